// Package model defines the entity metadata, record, and persistence
// contracts the REST query layer is built against. Implementations live
// under pkg/store; the core in pkg/rest only ever talks to these
// interfaces.
package model

import (
	"strings"
	"unicode"
)

// Verb is the HTTP method of an API request.
type Verb string

const (
	VerbGet    Verb = "GET"
	VerbPost   Verb = "POST"
	VerbPut    Verb = "PUT"
	VerbDelete Verb = "DELETE"
)

// FieldKind classifies an entity attribute as a plain column or one of
// the relation kinds.
type FieldKind uint8

const (
	KindScalar FieldKind = iota
	KindHasOne
	KindHasMany
	KindManyMany
	KindBelongsManyMany
)

// IsToMany reports whether the kind is a collection-valued relation.
func (k FieldKind) IsToMany() bool {
	switch k {
	case KindHasMany, KindManyMany, KindBelongsManyMany:
		return true
	}
	return false
}

// Field describes a single attribute of an entity.
type Field struct {
	Name   string
	Kind   FieldKind
	Target string // related entity name, empty for scalar fields
	Column string // for KindHasOne, the foreign-key column the relation sets
}

// Entity exposes the metadata the query layer needs: which columns can
// be filtered on and a typed descriptor per attribute.
type Entity interface {
	// Name returns the internal entity name.
	Name() string
	// HasColumn reports whether name is filterable: a scalar column or
	// a to-one foreign-key column.
	HasColumn(name string) bool
	// Field returns the descriptor for an attribute name.
	Field(name string) (Field, bool)
}

// AccessControl is the policy predicate consulted before any operation.
// It is evaluated twice for mutations: once at the type level (rec nil)
// and again once the concrete record is known.
type AccessControl interface {
	CanAccess(entity Entity, rec Record, verb Verb) bool
}

// AllowAll grants every request. It is the default policy.
type AllowAll struct{}

func (AllowAll) CanAccess(Entity, Record, Verb) bool { return true }

// NameTranslator maps wire-facing entity and column names to their
// internal form and back. Format is the inverse used when an internal
// name is echoed in a client-facing message.
type NameTranslator interface {
	Unformat(public string) string
	Format(internal string) string
}

// SnakeTranslator converts CamelCase public names to snake_case
// internal names, e.g. "ProductCategory" -> "product_category".
type SnakeTranslator struct{}

func (SnakeTranslator) Unformat(public string) string {
	var b strings.Builder
	for i, r := range public {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (SnakeTranslator) Format(internal string) string {
	var b strings.Builder
	upper := true
	for _, r := range internal {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
