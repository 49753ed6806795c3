package rest

import (
	"fmt"

	"github.com/apidoor/restq/pkg/model"
)

// mergePayload applies a deserialized payload onto a record in place
// and reports what changed. The caller persists afterward, only when
// something changed, passing ChangedRelations through to the store so
// join rows are flushed.
//
// Scalar values naming a to-one relation reassign its foreign key; any
// other scalar assigns the field only when the value differs, so an
// identical payload is idempotent. ID-list values replace the whole
// member set of a to-many relation and always set ChangedRelations,
// even when the new set equals the old one.
func mergePayload(rec model.Record, payload *model.Payload) (model.MutationOutcome, error) {
	var outcome model.MutationOutcome

	for attr, value := range payload.Fields {
		field, known := rec.Entity().Field(attr)

		if value.Kind == model.ValueScalar {
			if known && field.Kind == model.KindHasOne {
				rec.Set(field.Column, value.Scalar)
				outcome.ChangedFields = true
			} else if !looseEqual(rec.Get(attr), value.Scalar) {
				rec.Set(attr, value.Scalar)
				outcome.ChangedFields = true
			}
			continue
		}

		// An id list on an attribute that is not a to-many relation is
		// silently ignored. This masks typos in relation names but is
		// the documented behavior.
		if !known || !field.Kind.IsToMany() {
			continue
		}

		list, err := rec.Relation(attr)
		if err != nil {
			return outcome, err
		}
		outcome.ChangedRelations = true
		if err := list.RemoveAll(); err != nil {
			return outcome, err
		}
		extras := payload.Extra[attr]
		for _, id := range value.IDs {
			if err := list.Add(id, extras[id]); err != nil {
				return outcome, err
			}
		}
	}
	return outcome, nil
}

// looseEqual compares a stored field value with an incoming payload
// value across type boundaries, so the number 3 and the string "3"
// count as equal and produce no mutation.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
