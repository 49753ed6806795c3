package rest

import (
	"context"
	"testing"

	"github.com/apidoor/restq/internal/testutil"
	"github.com/apidoor/restq/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededProduct(t *testing.T) model.Record {
	t.Helper()
	store := testutil.NewCatalogStore()
	testutil.SeedCatalog(store)
	rec, err := store.ByID(context.Background(), "product", 1)
	require.NoError(t, err)
	return rec
}

func TestMergeScalarChange(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"title": model.ScalarValue("Chair Supreme"),
	}})
	require.NoError(t, err)
	assert.True(t, outcome.ChangedFields)
	assert.False(t, outcome.ChangedRelations)
	assert.Equal(t, "Chair Supreme", rec.Get("title"))
}

func TestMergeScalarIdempotent(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"title":  model.ScalarValue("Chair Deluxe"),
		"status": model.ScalarValue("active"),
	}})
	require.NoError(t, err)
	assert.False(t, outcome.ChangedFields)
	assert.False(t, outcome.ChangedRelations)
}

// A numeric payload value equal to the stored string counts as equal;
// types are not part of the comparison.
func TestMergeScalarLooseEquality(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"price": model.ScalarValue(float64(120)),
	}})
	require.NoError(t, err)
	assert.False(t, outcome.Changed())
}

func TestMergeHasOneReassignsForeignKey(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"supplier": model.ScalarValue(float64(2)),
	}})
	require.NoError(t, err)
	assert.True(t, outcome.ChangedFields)
	assert.Equal(t, float64(2), rec.Get("supplierid"))
}

func TestMergeRelationReplacesMembers(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"categories": model.IDListValue([]int64{2, 3}),
	}})
	require.NoError(t, err)
	assert.True(t, outcome.ChangedRelations)
	assert.False(t, outcome.ChangedFields)

	list, err := rec.Relation("categories")
	require.NoError(t, err)
	ids, err := list.IDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

// Re-sending the existing member set still reports a relation change.
// The flag tracks that the branch ran, not that membership differs.
func TestMergeRelationAlwaysFlagged(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"categories": model.IDListValue([]int64{1, 3}),
	}})
	require.NoError(t, err)
	assert.True(t, outcome.ChangedRelations)
}

func TestMergeRelationExtraFields(t *testing.T) {
	rec := seededProduct(t)
	_, err := mergePayload(rec, &model.Payload{
		Fields: map[string]model.PayloadValue{
			"categories": model.IDListValue([]int64{2}),
		},
		Extra: map[string]map[int64]map[string]any{
			"categories": {2: {"sortorder": "7"}},
		},
	})
	require.NoError(t, err)

	list, err := rec.Relation("categories")
	require.NoError(t, err)
	extras, ok := list.(interface{ ExtraFields(int64) map[string]any })
	require.True(t, ok)
	assert.Equal(t, map[string]any{"sortorder": "7"}, extras.ExtraFields(2))
}

// An id list on an attribute that is not a to-many relation is dropped
// without an error. Documented behavior, typo-prone as it is.
func TestMergeIDListOnNonRelationIgnored(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{
		"title":      model.IDListValue([]int64{1, 2}),
		"categoriez": model.IDListValue([]int64{1, 2}),
	}})
	require.NoError(t, err)
	assert.False(t, outcome.Changed())
	assert.Equal(t, "Chair Deluxe", rec.Get("title"))
}

func TestMergeEmptyPayload(t *testing.T) {
	rec := seededProduct(t)
	outcome, err := mergePayload(rec, &model.Payload{Fields: map[string]model.PayloadValue{}})
	require.NoError(t, err)
	assert.False(t, outcome.Changed())
}
