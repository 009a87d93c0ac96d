package sqlmap

import "encoding/xml"

// The types below mirror the on-disk XML shape of the root configuration
// document and per-namespace mapper documents. They exist purely to
// let builder_root.go/builder_mapper.go decode attribute bags with
// encoding/xml before translating them into the immutable mapping-model
// types in mapping_model.go; nothing downstream of the builder ever sees
// these structs.

// configDocument is the root <configuration> element. Every child is
// optional; builder_root.go enforces their mandatory relative order
// itself by walking the decoder's token stream rather than relying on
// struct-field order (encoding/xml.Unmarshal does not enforce document
// order).
type configDocument struct {
	XMLName           xml.Name           `xml:"configuration"`
	Properties        *propertiesElem    `xml:"properties"`
	Settings          *settingsElem      `xml:"settings"`
	TypeAliases       *typeAliasesElem   `xml:"typeAliases"`
	Environments      *environmentsElem  `xml:"environments"`
	DatabaseIDProvider *databaseIDProviderElem `xml:"databaseIdProvider"`
	Mappers           *mappersElem       `xml:"mappers"`
}

type propertiesElem struct {
	Resource string      `xml:"resource,attr"`
	URL      string      `xml:"url,attr"`
	Property []propertyKV `xml:"property"`
}

type propertyKV struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type settingsElem struct {
	Setting []propertyKV `xml:"setting"`
}

type typeAliasesElem struct {
	TypeAlias []typeAliasElem `xml:"typeAlias"`
	Package   []packageElem   `xml:"package"`
}

type typeAliasElem struct {
	Alias string `xml:"alias,attr"`
	Type  string `xml:"type,attr"`
}

type packageElem struct {
	Name string `xml:"name,attr"`
}

type environmentsElem struct {
	Default     string            `xml:"default,attr"`
	Environment []environmentElem `xml:"environment"`
}

type environmentElem struct {
	ID           string          `xml:"id,attr"`
	TransactionManager struct {
		Type string `xml:"type,attr"`
	} `xml:"transactionManager"`
	DataSource dataSourceElem `xml:"dataSource"`
}

type dataSourceElem struct {
	Type     string       `xml:"type,attr"`
	Property []propertyKV `xml:"property"`
}

type databaseIDProviderElem struct {
	Type     string       `xml:"type,attr"`
	Property []propertyKV `xml:"property"`
}

type mappersElem struct {
	Mapper  []mapperRefElem  `xml:"mapper"`
	Package []packageElem    `xml:"package"`
}

type mapperRefElem struct {
	Resource string `xml:"resource,attr"`
	URL      string `xml:"url,attr"`
	Class    string `xml:"class,attr"`
}

// mapperDocument is the root <mapper namespace="…"> element of a
// per-namespace document.
type mapperDocument struct {
	XMLName     xml.Name          `xml:"mapper"`
	Namespace   string            `xml:"namespace,attr"`
	CacheRef    *cacheRefElem     `xml:"cache-ref"`
	Cache       *cacheElem        `xml:"cache"`
	ParameterMap []parameterMapElem `xml:"parameterMap"`
	ResultMap   []resultMapElem   `xml:"resultMap"`
	SQL         []sqlFragmentElem `xml:"sql"`
	Select      []statementElem   `xml:"select"`
	Insert      []statementElem   `xml:"insert"`
	Update      []statementElem   `xml:"update"`
	Delete      []statementElem   `xml:"delete"`
}

type cacheRefElem struct {
	Namespace string `xml:"namespace,attr"`
}

type cacheElem struct {
	Type          string       `xml:"type,attr"`
	Eviction      string       `xml:"eviction,attr"`
	FlushInterval string       `xml:"flushInterval,attr"`
	Size          string       `xml:"size,attr"`
	ReadWrite     string       `xml:"readWrite,attr"`
	Blocking      string       `xml:"blocking,attr"`
	Property      []propertyKV `xml:"property"`
}

type parameterMapElem struct {
	ID         string                  `xml:"id,attr"`
	Type       string                  `xml:"type,attr"`
	Parameter  []parameterMappingElem  `xml:"parameter"`
}

type parameterMappingElem struct {
	Property  string `xml:"property,attr"`
	JavaType  string `xml:"javaType,attr"`
	JDBCType  string `xml:"jdbcType,attr"`
	Mode      string `xml:"mode,attr"`
	Scale     string `xml:"numericScale,attr"`
	TypeHandler string `xml:"typeHandler,attr"`
}

type resultMapElem struct {
	ID            string               `xml:"id,attr"`
	Type          string               `xml:"type,attr"`
	Extends       string               `xml:"extends,attr"`
	AutoMapping   string               `xml:"autoMapping,attr"`
	Constructor   *constructorElem     `xml:"constructor"`
	ID_           []resultElem         `xml:"id"`
	Result        []resultElem         `xml:"result"`
	Association   []associationElem    `xml:"association"`
	Collection    []associationElem    `xml:"collection"`
	Discriminator *discriminatorElem   `xml:"discriminator"`
}

type constructorElem struct {
	IDArg  []resultElem `xml:"idArg"`
	Arg    []resultElem `xml:"arg"`
}

type resultElem struct {
	Property      string `xml:"property,attr"`
	Column        string `xml:"column,attr"`
	JavaType      string `xml:"javaType,attr"`
	JDBCType      string `xml:"jdbcType,attr"`
	TypeHandler   string `xml:"typeHandler,attr"`
	Select        string `xml:"select,attr"`
	ResultMap     string `xml:"resultMap,attr"`
	ColumnPrefix  string `xml:"columnPrefix,attr"`
	NotNullColumn string `xml:"notNullColumn,attr"`
	ForeignColumn string `xml:"foreignColumn,attr"`
	Lazy          string `xml:"fetchType,attr"`
}

type associationElem struct {
	resultElem
	OfType string `xml:"ofType,attr"`
}

type discriminatorElem struct {
	Column string          `xml:"column,attr"`
	Case   []discCaseElem  `xml:"case"`
}

type discCaseElem struct {
	Value     string `xml:"value,attr"`
	ResultMap string `xml:"resultMap,attr"`
}

type sqlFragmentElem struct {
	ID         string `xml:"id,attr"`
	DatabaseID string `xml:"databaseId,attr"`
	Raw        string `xml:",innerxml"`
}

// statementElem covers select/insert/update/delete uniformly; the kind
// is determined by which field of mapperDocument it was decoded from.
type statementElem struct {
	ID            string `xml:"id,attr"`
	ParameterMap  string `xml:"parameterMap,attr"`
	ParameterType string `xml:"parameterType,attr"`
	ResultMap     string `xml:"resultMap,attr"`
	ResultType    string `xml:"resultType,attr"`
	ResultSetType string `xml:"resultSetType,attr"`
	StatementType string `xml:"statementType,attr"`
	FetchSize     string `xml:"fetchSize,attr"`
	Timeout       string `xml:"timeout,attr"`
	FlushCache    string `xml:"flushCache,attr"`
	UseCache      string `xml:"useCache,attr"`
	ResultOrdered string `xml:"resultOrdered,attr"`
	KeyProperty   string `xml:"keyProperty,attr"`
	KeyColumn     string `xml:"keyColumn,attr"`
	DatabaseID    string `xml:"databaseId,attr"`
	Lang          string `xml:"lang,attr"`
	ResultSets    string `xml:"resultSets,attr"`
	Raw           string `xml:",innerxml"`
}
