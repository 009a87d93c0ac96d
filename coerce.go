package sqlmap

import (
	"reflect"
	"strconv"
	"time"
)

// reflectValueOf returns an addressable struct Value for c's concrete
// type when c wraps a non-nil pointer, the shape every decorator in
// cache.go is constructed as; an invalid Value otherwise.
func reflectValueOf(c Cache) reflect.Value {
	v := reflect.ValueOf(c)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		return v.Elem()
	}
	return reflect.Value{}
}

// coerceStringTo converts a property-file-style string value to t, the
// handful of scalar shapes cache/pool/setting properties actually need:
// booleans, integers, floats, durations, and plain strings.
func coerceStringTo(raw string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				n, err2 := strconv.ParseInt(raw, 10, 64)
				if err2 != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(time.Duration(n)).Convert(t), nil
			}
			return reflect.ValueOf(d).Convert(t), nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	}
	return reflect.Value{}, &ReflectionError{Type: t.String(), Message: "no string coercion for kind " + t.Kind().String()}
}
