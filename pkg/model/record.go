package model

// Record is a single entity instance owned by a Store. Field access is
// by internal name; relation collections are reached through Relation.
type Record interface {
	ID() int64
	Entity() Entity
	Get(field string) any
	Set(field string, value any)
	// Relation returns the collection handle for a to-many relation.
	Relation(name string) (RelationList, error)
	// Data returns the scalar fields of the record, including its id,
	// for serialization.
	Data() map[string]any
}

// RelationList is the membership handle of a to-many relation on one
// record. Add accepts optional join-table fields for many-many
// relations.
type RelationList interface {
	RemoveAll() error
	Add(id int64, extra map[string]any) error
	IDs() ([]int64, error)
}

// MutationOutcome reports what a payload merge touched. A write is
// issued only when at least one flag is set, and ChangedRelations must
// reach the store's write call so join rows are flushed even when no
// scalar field changed.
type MutationOutcome struct {
	ChangedFields    bool
	ChangedRelations bool
}

// Changed reports whether the merge produced any mutation at all.
func (o MutationOutcome) Changed() bool {
	return o.ChangedFields || o.ChangedRelations
}
