package sqlmap

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings holds the recognized <settings> keys. Enum-shaped
// fields are validated with go-playground/validator's oneof tag so a
// malformed value is caught at the same BuilderError boundary as an
// unrecognized key, rather than surfacing later as a zero-value default.
type Settings struct {
	CacheEnabled                     bool                             `validator:"-"`
	LazyLoadingEnabled               bool                             `validator:"-"`
	AggressiveLazyLoading            bool                             `validator:"-"`
	MultipleResultSetsEnabled        bool                             `validator:"-"`
	UseColumnLabel                   bool                             `validator:"-"`
	UseGeneratedKeys                 bool                             `validator:"-"`
	AutoMappingBehavior              AutoMappingBehavior              `validator:"oneof=0 1 2"`
	AutoMappingUnknownColumnBehavior AutoMappingUnknownColumnBehavior  `validator:"oneof=0 1 2"`
	DefaultExecutorType              ExecutorType                     `validator:"oneof=0 1 2"`
	DefaultStatementTimeout          int                              `validator:"gte=0"`
	DefaultFetchSize                 int                               `validator:"gte=0"`
	MapUnderscoreToCamelCase         bool                              `validator:"-"`
	LocalCacheScope                  LocalCacheScope                  `validator:"oneof=0 1"`
	JDBCTypeForNull                  string                            `validator:"-"`
	LazyLoadTriggerMethods           []string                          `validator:"-"`
	SafeRowBoundsEnabled             bool                              `validator:"-"`
	SafeResultHandlerEnabled         bool                              `validator:"-"`
	DefaultScriptingLanguage         string                            `validator:"-"`
	DefaultEnumTypeHandler           string                            `validator:"-"`
	CallSettersOnNulls               bool                              `validator:"-"`
	ReturnInstanceForEmptyRow        bool                              `validator:"-"`
	ShrinkWhitespacesInSQL           bool                              `validator:"-"`
	ArgNameBasedConstructorAutoMapping bool                            `validator:"-"`
	NullableOnForEach                bool                              `validator:"-"`
}

// DefaultSettings returns the recognized defaults (cacheEnabled=true,
// useGeneratedKeys=false, autoMappingBehavior=PARTIAL,
// autoMappingUnknownColumnBehavior=NONE, defaultExecutorType=SIMPLE,
// localCacheScope=SESSION, and so on), matching this family's usual
// out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		CacheEnabled:               true,
		UseColumnLabel:             true,
		AutoMappingBehavior:        AutoMappingPartial,
		DefaultExecutorType:        ExecutorSimple,
		LocalCacheScope:            LocalCacheSession,
		LazyLoadTriggerMethods:     []string{"equals", "clone", "hashCode", "toString"},
		DefaultScriptingLanguage:   "xml",
		SafeRowBoundsEnabled:       false,
		ShrinkWhitespacesInSQL:     false,
	}
}

var settingsValidate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("validator")
	return v
}()

// ValidateSettings runs struct-tag validation over s, reporting the
// first violation as a BuilderError.
func ValidateSettings(s Settings) error {
	if err := settingsValidate.Struct(s); err != nil {
		return &BuilderError{Message: "invalid settings", Err: err}
	}
	return nil
}

// recognizedSettingKeys is every <setting name="…"> key this family
// recognizes. Every key must map to a recognized configuration setter;
// unknown keys abort with a BuilderError.
var recognizedSettingKeys = map[string]bool{
	"cacheEnabled": true, "lazyLoadingEnabled": true, "aggressiveLazyLoading": true,
	"multipleResultSetsEnabled": true, "useColumnLabel": true, "useGeneratedKeys": true,
	"autoMappingBehavior": true, "autoMappingUnknownColumnBehavior": true,
	"defaultExecutorType": true, "defaultStatementTimeout": true, "defaultFetchSize": true,
	"mapUnderscoreToCamelCase": true, "localCacheScope": true, "jdbcTypeForNull": true,
	"lazyLoadTriggerMethods": true, "safeRowBoundsEnabled": true, "safeResultHandlerEnabled": true,
	"defaultScriptingLanguage": true, "defaultEnumTypeHandler": true, "callSettersOnNulls": true,
	"returnInstanceForEmptyRow": true, "shrinkWhitespacesInSql": true,
	"argNameBasedConstructorAutoMapping": true, "nullableOnForEach": true,
}

// ApplySettingKV applies one <setting name="…" value="…"> pair to s,
// returning a BuilderError for an unrecognized key or a value that
// fails to parse into the key's declared shape.
func ApplySettingKV(s *Settings, name, value string) error {
	if !recognizedSettingKeys[name] {
		return &BuilderError{Message: "unknown setting '" + name + "'"}
	}
	switch name {
	case "cacheEnabled":
		return setBool(&s.CacheEnabled, name, value)
	case "lazyLoadingEnabled":
		return setBool(&s.LazyLoadingEnabled, name, value)
	case "aggressiveLazyLoading":
		return setBool(&s.AggressiveLazyLoading, name, value)
	case "multipleResultSetsEnabled":
		return setBool(&s.MultipleResultSetsEnabled, name, value)
	case "useColumnLabel":
		return setBool(&s.UseColumnLabel, name, value)
	case "useGeneratedKeys":
		return setBool(&s.UseGeneratedKeys, name, value)
	case "autoMappingBehavior":
		switch strings.ToUpper(value) {
		case "NONE":
			s.AutoMappingBehavior = AutoMappingNone
		case "PARTIAL":
			s.AutoMappingBehavior = AutoMappingPartial
		case "FULL":
			s.AutoMappingBehavior = AutoMappingFull
		default:
			return &BuilderError{Message: "invalid autoMappingBehavior '" + value + "'"}
		}
	case "autoMappingUnknownColumnBehavior":
		switch strings.ToUpper(value) {
		case "NONE":
			s.AutoMappingUnknownColumnBehavior = UnknownColumnNone
		case "WARNING":
			s.AutoMappingUnknownColumnBehavior = UnknownColumnWarning
		case "FAILING":
			s.AutoMappingUnknownColumnBehavior = UnknownColumnFailing
		default:
			return &BuilderError{Message: "invalid autoMappingUnknownColumnBehavior '" + value + "'"}
		}
	case "defaultExecutorType":
		switch strings.ToUpper(value) {
		case "SIMPLE":
			s.DefaultExecutorType = ExecutorSimple
		case "REUSE":
			s.DefaultExecutorType = ExecutorReuse
		case "BATCH":
			s.DefaultExecutorType = ExecutorBatch
		default:
			return &BuilderError{Message: "invalid defaultExecutorType '" + value + "'"}
		}
	case "defaultStatementTimeout":
		return setInt(&s.DefaultStatementTimeout, name, value)
	case "defaultFetchSize":
		return setInt(&s.DefaultFetchSize, name, value)
	case "mapUnderscoreToCamelCase":
		return setBool(&s.MapUnderscoreToCamelCase, name, value)
	case "localCacheScope":
		switch strings.ToUpper(value) {
		case "SESSION":
			s.LocalCacheScope = LocalCacheSession
		case "STATEMENT":
			s.LocalCacheScope = LocalCacheStatement
		default:
			return &BuilderError{Message: "invalid localCacheScope '" + value + "'"}
		}
	case "jdbcTypeForNull":
		s.JDBCTypeForNull = value
	case "lazyLoadTriggerMethods":
		s.LazyLoadTriggerMethods = splitCommaTrim(value)
	case "safeRowBoundsEnabled":
		return setBool(&s.SafeRowBoundsEnabled, name, value)
	case "safeResultHandlerEnabled":
		return setBool(&s.SafeResultHandlerEnabled, name, value)
	case "defaultScriptingLanguage":
		s.DefaultScriptingLanguage = value
	case "defaultEnumTypeHandler":
		s.DefaultEnumTypeHandler = value
	case "callSettersOnNulls":
		return setBool(&s.CallSettersOnNulls, name, value)
	case "returnInstanceForEmptyRow":
		return setBool(&s.ReturnInstanceForEmptyRow, name, value)
	case "shrinkWhitespacesInSql":
		return setBool(&s.ShrinkWhitespacesInSQL, name, value)
	case "argNameBasedConstructorAutoMapping":
		return setBool(&s.ArgNameBasedConstructorAutoMapping, name, value)
	case "nullableOnForEach":
		return setBool(&s.NullableOnForEach, name, value)
	}
	return nil
}

func setBool(dst *bool, name, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return &BuilderError{Message: "invalid boolean for setting '" + name + "': " + value}
	}
	*dst = b
	return nil
}

func setInt(dst *int, name, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return &BuilderError{Message: "invalid integer for setting '" + name + "': " + value}
	}
	*dst = n
	return nil
}

func splitCommaTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
