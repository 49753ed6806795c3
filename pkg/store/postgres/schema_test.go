package postgres

import (
	"testing"

	"github.com/apidoor/restq/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsJoinTable(t *testing.T) {
	join := table{
		Name:    "product_category",
		Columns: []column{{Name: "product_id"}, {Name: "category_id"}, {Name: "sortorder"}},
		ForeignKeys: []foreignKey{
			{Column: "product_id", ReferencedTable: "product", ReferencedColumn: "id"},
			{Column: "category_id", ReferencedTable: "category", ReferencedColumn: "id"},
		},
	}
	assert.True(t, isJoinTable(join))

	withID := join
	withID.Columns = append([]column{{Name: "id"}}, join.Columns...)
	assert.False(t, isJoinTable(withID), "a table with its own id is an entity, not a join table")

	oneFK := join
	oneFK.ForeignKeys = join.ForeignKeys[:1]
	assert.False(t, isJoinTable(oneFK))
}

func TestWireJoinTable(t *testing.T) {
	entities := map[string]*entity{
		"product": {
			name:    "product",
			columns: map[string]bool{"id": true, "title": true},
			fields:  map[string]model.Field{},
			joins:   map[string]manyManyJoin{},
		},
		"category": {
			name:    "category",
			columns: map[string]bool{"id": true, "title": true},
			fields:  map[string]model.Field{},
			joins:   map[string]manyManyJoin{},
		},
	}

	wireJoinTable(entities, table{
		Name:    "product_category",
		Columns: []column{{Name: "product_id"}, {Name: "category_id"}, {Name: "sortorder"}},
		ForeignKeys: []foreignKey{
			{Column: "product_id", ReferencedTable: "product", ReferencedColumn: "id"},
			{Column: "category_id", ReferencedTable: "category", ReferencedColumn: "id"},
		},
	})

	// alphabetically first referenced table owns the relation
	f, ok := entities["category"].Field("product")
	require.True(t, ok)
	assert.Equal(t, model.KindManyMany, f.Kind)

	f, ok = entities["product"].Field("category")
	require.True(t, ok)
	assert.Equal(t, model.KindBelongsManyMany, f.Kind)

	j := entities["product"].joins["category"]
	assert.Equal(t, "product_category", j.JoinTable)
	assert.Equal(t, "product_id", j.OwnColumn)
	assert.Equal(t, "category_id", j.TargetColumn)
	assert.Equal(t, []string{"sortorder"}, j.ExtraColumns)
}
