package sqlmap

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/spf13/viper"
)

// ResourceLoader fetches the raw bytes of a named resource (a
// classpath-style resource path or a URL, per a `resource`/`url`
// attribute). The root and mapper builders never open files or sockets
// themselves; the caller supplies this so the builder stays agnostic of
// where documents actually live.
type ResourceLoader interface {
	Load(name string) ([]byte, error)
}

// rootSectionOrder is the mandatory relative order for
// the root document's children: properties supplies ${...}
// substitutions consumed by every later section and environments must
// run after custom object factories so that data-source construction
// can use them.
var rootSectionOrder = []string{
	"properties", "settings", "typeAliases", "plugins",
	"objectFactory", "objectWrapperFactory", "reflectorFactory",
	"environments", "databaseIdProvider", "typeHandlers", "mappers",
}

var rootSectionRank = func() map[string]int {
	m := make(map[string]int, len(rootSectionOrder))
	for i, s := range rootSectionOrder {
		m[s] = i
	}
	return m
}()

// XMLConfigBuilder parses the root configuration document into a fresh
// Configuration, then parses every referenced mapper document.
type XMLConfigBuilder struct {
	config   *Configuration
	loader   ResourceLoader
	overrides map[string]string // caller-supplied properties, win over the document's own
}

// NewXMLConfigBuilder returns a builder that will load mapper/property
// resources through loader. overrides (may be nil) are merged over
// whatever <properties> declares: caller-supplied variables win.
func NewXMLConfigBuilder(loader ResourceLoader, overrides map[string]string) *XMLConfigBuilder {
	return &XMLConfigBuilder{config: NewConfiguration(), loader: loader, overrides: overrides}
}

// Parse reads data as a <configuration> document, enforcing the
// mandatory section order by walking the raw token stream before
// decoding the whole document with a single xml.Unmarshal, then returns
// the sealed Configuration.
func (b *XMLConfigBuilder) Parse(data []byte) (*Configuration, error) {
	if err := b.checkSectionOrder(data); err != nil {
		return nil, err
	}
	var doc configDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &BuilderError{Message: "malformed configuration document", Err: err}
	}

	props, err := b.resolveProperties(doc.Properties)
	if err != nil {
		return nil, err
	}

	if doc.Settings != nil {
		for _, s := range doc.Settings.Setting {
			if err := ApplySettingKV(&b.config.Settings, s.Name, substitute(s.Value, props)); err != nil {
				return nil, err
			}
		}
	}
	if err := ValidateSettings(b.config.Settings); err != nil {
		return nil, err
	}

	if doc.TypeAliases != nil {
		for _, ta := range doc.TypeAliases.TypeAlias {
			t, err := resolveTypeName(b.config, ta.Type)
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, &BuilderError{Message: "typeAlias element requires a type attribute"}
			}
			alias := ta.Alias
			if alias == "" {
				alias = t.Name()
			}
			if err := b.config.Aliases.Register(alias, t); err != nil {
				return nil, err
			}
		}
	}

	if doc.DatabaseIDProvider != nil {
		b.config.DatabaseID = substitute(propLookup(doc.DatabaseIDProvider.Property, "databaseId"), props)
	}

	if doc.Mappers != nil {
		for _, m := range doc.Mappers.Mapper {
			name := m.Resource
			if name == "" {
				name = m.URL
			}
			if name == "" {
				continue // class-scanned mapper binding: no document to parse
			}
			if err := b.parseMapperResource(name); err != nil {
				return nil, err
			}
		}
	}

	if err := b.config.Seal(); err != nil {
		return nil, err
	}
	return b.config, nil
}

func (b *XMLConfigBuilder) parseMapperResource(name string) error {
	data, err := b.loader.Load(name)
	if err != nil {
		return &BuilderError{Resource: name, Message: "failed to load mapper resource", Err: err}
	}
	return NewXMLMapperBuilder(b.config, name).Parse(data)
}

// resolveProperties implements the properties element's rule: `resource` and
// `url` are mutually exclusive; the loaded file's key/values are merged
// with the nested <property> elements, and the builder's own overrides
// win over both.
func (b *XMLConfigBuilder) resolveProperties(el *propertiesElem) (map[string]string, error) {
	merged := make(map[string]string)
	if el != nil {
		if el.Resource != "" && el.URL != "" {
			return nil, &BuilderError{Message: "properties element cannot specify both resource and url"}
		}
		name := el.Resource
		if name == "" {
			name = el.URL
		}
		if name != "" && b.loader != nil {
			data, err := b.loader.Load(name)
			if err != nil {
				return nil, &BuilderError{Message: "failed to load properties resource '" + name + "'", Err: err}
			}
			if err := mergePropertiesFile(merged, data); err != nil {
				return nil, err
			}
		}
		for _, p := range el.Property {
			merged[p.Name] = p.Value
		}
	}
	for k, v := range b.overrides {
		merged[k] = v
	}
	return merged, nil
}

// mergePropertiesFile decodes data as a .properties-style (key=value
// per line) document via viper and merges the flattened result into
// dst. YAML and JSON documents are not recognized.
func mergePropertiesFile(dst map[string]string, data []byte) error {
	v := viper.New()
	v.SetConfigType("properties")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return &BuilderError{Message: "failed to parse properties resource", Err: err}
	}
	for _, key := range v.AllKeys() {
		dst[key] = v.GetString(key)
	}
	return nil
}

// substitute replaces every ${key} occurrence in s with props[key],
// leaving unresolved placeholders untouched (matching this family's
// permissive substitution behavior for properties that are supplied at
// a later layer, e.g. by a typeHandler's own configuration).
func substitute(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += start
		b.WriteString(s[:start])
		key := s[start+2 : end]
		if v, ok := props[key]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	return b.String()
}

func propLookup(props []propertyKV, name string) string {
	for _, p := range props {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// checkSectionOrder walks the raw token stream looking only at the
// configuration element's direct children, rejecting a document whose
// recognized sections appear out of the mandatory order. Unknown
// child elements are ignored (forward-compatible with vendor
// extensions); only recognized-section relative order is enforced.
func (b *XMLConfigBuilder) checkSectionOrder(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	lastRank := -1
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &BuilderError{Message: "malformed configuration document", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				rank, ok := rootSectionRank[t.Name.Local]
				if ok {
					if rank < lastRank {
						return &BuilderError{Message: "section <" + t.Name.Local + "> appears out of order; expected order is " + strings.Join(rootSectionOrder, ", ")}
					}
					lastRank = rank
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return nil
}
