package rest

import (
	"testing"

	"github.com/apidoor/restq/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromQuery(t *testing.T) {
	params := ParamsFromQuery("Title__StartsWith=Chair&sort=Asc&Status=active")
	require.Len(t, params, 3)
	assert.Equal(t, "Title__StartsWith", params[0].Key)
	assert.Equal(t, []string{"Chair"}, params[0].Values)
	assert.Equal(t, "sort", params[1].Key)
	assert.Equal(t, "Status", params[2].Key)
}

func TestParamsFromQueryRepeatedKey(t *testing.T) {
	params := ParamsFromQuery("limit=10&Status=active&limit=5")
	require.Len(t, params, 2)
	assert.Equal(t, "limit", params[0].Key)
	assert.Equal(t, []string{"10", "5"}, params[0].Values)
	assert.Equal(t, "Status", params[1].Key)
}

func TestParamsFromQueryUnescapes(t *testing.T) {
	params := ParamsFromQuery("Title__PartialMatch=garden%20table")
	require.Len(t, params, 1)
	assert.Equal(t, []string{"garden table"}, params[0].Values)
}

func TestParamsFromQueryEmpty(t *testing.T) {
	assert.Empty(t, ParamsFromQuery(""))
}

func TestParseQueryParamsOrderAndCase(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("Title__StartsWith=Chair&sort=Asc"))
	require.Len(t, clauses, 2)

	assert.Equal(t, "title", clauses[0].Column)
	assert.Equal(t, model.ModStartsWith, clauses[0].Modifier)
	assert.Equal(t, "chair", clauses[0].Value)
	assert.True(t, clauses[0].ModifierOK)

	assert.Equal(t, "", clauses[1].Column)
	assert.Equal(t, model.ModSort, clauses[1].Modifier)
	assert.Equal(t, "asc", clauses[1].Value)
}

func TestParseQueryParamsIgnoredKeys(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("url=whatever&Flush=1&FLUSHTOKEN=x&Status=active"))
	require.Len(t, clauses, 1)
	assert.Equal(t, "status", clauses[0].Column)
}

func TestParseQueryParamsUnknownModifier(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("Price__Between=10"))
	require.Len(t, clauses, 1)
	assert.False(t, clauses[0].ModifierOK)
	assert.Equal(t, "between", clauses[0].RawModifier)
}

func TestParseQueryParamsEmptySuffix(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("Title__=chair"))
	require.Len(t, clauses, 1)
	assert.True(t, clauses[0].ModifierOK)
	assert.Equal(t, model.ModExact, clauses[0].Modifier)
	assert.Equal(t, "title", clauses[0].Column)
}

func TestParseQueryParamsBareQueryWideKeys(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("sort=Desc&limit=20&rand=123"))
	require.Len(t, clauses, 3)
	for _, c := range clauses {
		assert.Equal(t, "", c.Column)
	}
	assert.Equal(t, model.ModSort, clauses[0].Modifier)
	assert.Equal(t, model.ModLimit, clauses[1].Modifier)
	assert.Equal(t, model.ModRand, clauses[2].Modifier)
}

// A key that spells a per-column modifier without the separator is a
// plain column, not a modifier. "negation" must stay usable as a
// column name.
func TestParseQueryParamsModifierNamedColumn(t *testing.T) {
	h := NewHandler(nil)
	clauses := h.parseQueryParams(ParamsFromQuery("Negation="))
	require.Len(t, clauses, 1)
	assert.Equal(t, "negation", clauses[0].Column)
	assert.Equal(t, model.ModNone, clauses[0].Modifier)
	assert.Equal(t, "", clauses[0].Value)
}

func TestParseQueryParamsCustomSeparator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Separator = ":"
	h := NewHandler(nil, WithConfig(cfg))
	clauses := h.parseQueryParams(ParamsFromQuery("Title:StartsWith=Chair"))
	require.Len(t, clauses, 1)
	assert.Equal(t, "title", clauses[0].Column)
	assert.Equal(t, model.ModStartsWith, clauses[0].Modifier)
}
