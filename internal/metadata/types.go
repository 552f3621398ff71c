package metadata

// ValueType is the declared datatype of a property.
type ValueType string

// Recognised value types.
const (
	TypeCommonsMedia    ValueType = "commonsMedia"
	TypeItem            ValueType = "wikibase-item"
	TypeExternalID      ValueType = "external-id"
	TypeURL             ValueType = "url"
	TypeString          ValueType = "string"
	TypeQuantity        ValueType = "quantity"
	TypeTime            ValueType = "time"
	TypeGlobeCoordinate ValueType = "globe-coordinate"
	TypeMonolingualText ValueType = "monolingualtext"
	TypeProperty        ValueType = "wikibase-property"
	TypeMath            ValueType = "math"
	TypeGeoShape        ValueType = "geo-shape"
	TypeTabularData     ValueType = "tabular-data"
	TypeLexeme          ValueType = "wikibase-lexeme"
	TypeForm            ValueType = "wikibase-form"
	TypeSense           ValueType = "wikibase-sense"
	TypeMusicalNotation ValueType = "musical-notation"
)

var allowedTypes = map[ValueType]struct{}{
	TypeCommonsMedia:    {},
	TypeItem:            {},
	TypeExternalID:      {},
	TypeURL:             {},
	TypeString:          {},
	TypeQuantity:        {},
	TypeTime:            {},
	TypeGlobeCoordinate: {},
	TypeMonolingualText: {},
	TypeProperty:        {},
	TypeMath:            {},
	TypeGeoShape:        {},
	TypeTabularData:     {},
	TypeLexeme:          {},
	TypeForm:            {},
	TypeSense:           {},
	TypeMusicalNotation: {},
}

// typeAliases maps short user-facing names to declared types.
var typeAliases = map[string]ValueType{
	"media":      TypeCommonsMedia,
	"item":       TypeItem,
	"id":         TypeExternalID,
	"coordinate": TypeGlobeCoordinate,
	"property":   TypeProperty,
	"lexeme":     TypeLexeme,
	"form":       TypeForm,
	"sense":      TypeSense,
	"country":    TypeItem,
	"location":   TypeItem,
}

// ResolveType maps a requested type or alias to a declared value type.
// The second result is false when the name is not recognised.
func ResolveType(name string) (ValueType, bool) {
	if t, ok := typeAliases[name]; ok {
		return t, true
	}
	t := ValueType(name)
	if _, ok := allowedTypes[t]; ok {
		return t, true
	}
	return "", false
}
