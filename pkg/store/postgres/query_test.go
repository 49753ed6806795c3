package postgres

import (
	"testing"

	"github.com/apidoor/restq/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSQL(build func(q model.Query) model.Query) (string, []any) {
	q := build(&query{entity: "product"})
	return q.(*query).SQL()
}

func TestQuerySQLBare(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query { return q })
	assert.Equal(t, `SELECT * FROM "product"`, sql)
	assert.Empty(t, args)
}

func TestQuerySQLEquality(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query {
		return q.Filter("status", model.ModNone, "active")
	})
	assert.Equal(t, `SELECT * FROM "product" WHERE lower("status"::text) = $1`, sql)
	assert.Equal(t, []any{"active"}, args)
}

func TestQuerySQLPatternModifiers(t *testing.T) {
	tests := []struct {
		mod     model.Modifier
		wantSQL string
		wantArg string
	}{
		{model.ModStartsWith, `SELECT * FROM "product" WHERE "title"::text ILIKE $1`, "chair%"},
		{model.ModEndsWith, `SELECT * FROM "product" WHERE "title"::text ILIKE $1`, "%chair"},
		{model.ModPartialMatch, `SELECT * FROM "product" WHERE "title"::text ILIKE $1`, "%chair%"},
	}
	for _, tt := range tests {
		sql, args := buildSQL(func(q model.Query) model.Query {
			return q.Filter("title", tt.mod, "chair")
		})
		assert.Equal(t, tt.wantSQL, sql, "%s", tt.mod)
		require.Len(t, args, 1)
		assert.Equal(t, tt.wantArg, args[0], "%s", tt.mod)
	}
}

// LIKE wildcards in user values match literally, not as patterns.
func TestQuerySQLEscapesLikeWildcards(t *testing.T) {
	_, args := buildSQL(func(q model.Query) model.Query {
		return q.Filter("title", model.ModPartialMatch, "50%_off")
	})
	require.Len(t, args, 1)
	assert.Equal(t, `%50\%\_off%`, args[0])
}

func TestQuerySQLComparisonAndNegation(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query {
		return q.Filter("price", model.ModGreaterThan, "100").
			Filter("price", model.ModLessThan, "500").
			Filter("status", model.ModNegation, "discontinued")
	})
	assert.Equal(t, `SELECT * FROM "product" WHERE "price" > $1 AND "price" < $2 AND lower("status"::text) <> $3`, sql)
	assert.Equal(t, []any{"100", "500", "discontinued"}, args)
}

func TestQuerySQLSort(t *testing.T) {
	sql, _ := buildSQL(func(q model.Query) model.Query {
		return q.Sort("title", "desc").Sort("", "asc")
	})
	assert.Equal(t, `SELECT * FROM "product" ORDER BY "title" DESC, "id" ASC`, sql)
}

func TestQuerySQLSortRand(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query {
		return q.SortRand("57")
	})
	assert.Equal(t, `SELECT * FROM "product" ORDER BY md5(id::text || $1)`, sql)
	assert.Equal(t, []any{"57"}, args)
}

func TestQuerySQLLimitOffset(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query {
		return q.Limit(20, 40)
	})
	assert.Equal(t, `SELECT * FROM "product" LIMIT $1 OFFSET $2`, sql)
	assert.Equal(t, []any{20, 40}, args)

	sql, args = buildSQL(func(q model.Query) model.Query {
		return q.Limit(20, 0)
	})
	assert.Equal(t, `SELECT * FROM "product" LIMIT $1`, sql)
	assert.Equal(t, []any{20}, args)

	assert.True(t, (&query{}).Limit(1, 0).HasLimit())
	assert.False(t, (&query{}).HasLimit())
}

// Identifiers are quoted so a hostile column name cannot break out of
// the statement.
func TestQuerySQLSanitizesIdentifiers(t *testing.T) {
	sql, _ := buildSQL(func(q model.Query) model.Query {
		return q.Filter(`ti"tle`, model.ModNone, "x")
	})
	assert.Equal(t, `SELECT * FROM "product" WHERE lower("ti""tle"::text) = $1`, sql)
}

func TestQuerySQLComposed(t *testing.T) {
	sql, args := buildSQL(func(q model.Query) model.Query {
		return q.Filter("title", model.ModStartsWith, "chair").
			Sort("price", "asc").
			Limit(100, 0)
	})
	assert.Equal(t, `SELECT * FROM "product" WHERE "title"::text ILIKE $1 ORDER BY "price" ASC LIMIT $2`, sql)
	assert.Equal(t, []any{"chair%", 100}, args)
}
