package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/apidoor/restq/pkg/model"
	"github.com/jackc/pgx/v5"
)

// query accumulates SQL fragments and runs as a single SELECT. Values
// are always bound as parameters; identifiers are sanitized.
type query struct {
	store    *Store
	entity   string
	where    []string
	order    []string
	args     []any
	limit    int
	offset   int
	hasLimit bool
}

func (s *Store) Query(entityName string) model.Query {
	return &query{store: s, entity: entityName}
}

func (q *query) placeholder(value any) string {
	q.args = append(q.args, value)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) Filter(column string, mod model.Modifier, value string) model.Query {
	col := pgx.Identifier{column}.Sanitize()
	switch mod {
	case model.ModStartsWith:
		q.where = append(q.where, fmt.Sprintf("%s::text ILIKE %s", col, q.placeholder(likePattern(value)+"%")))
	case model.ModEndsWith:
		q.where = append(q.where, fmt.Sprintf("%s::text ILIKE %s", col, q.placeholder("%"+likePattern(value))))
	case model.ModPartialMatch:
		q.where = append(q.where, fmt.Sprintf("%s::text ILIKE %s", col, q.placeholder("%"+likePattern(value)+"%")))
	case model.ModGreaterThan:
		q.where = append(q.where, fmt.Sprintf("%s > %s", col, q.placeholder(value)))
	case model.ModLessThan:
		q.where = append(q.where, fmt.Sprintf("%s < %s", col, q.placeholder(value)))
	case model.ModNegation:
		q.where = append(q.where, fmt.Sprintf("lower(%s::text) <> %s", col, q.placeholder(value)))
	default:
		q.where = append(q.where, fmt.Sprintf("lower(%s::text) = %s", col, q.placeholder(value)))
	}
	return q
}

func (q *query) Sort(column, direction string) model.Query {
	if column == "" {
		column = "id"
	}
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	q.order = append(q.order, fmt.Sprintf("%s %s", pgx.Identifier{column}.Sanitize(), dir))
	return q
}

// SortRand orders by a keyed hash of the row id so a given seed always
// produces the same permutation.
func (q *query) SortRand(seed string) model.Query {
	q.order = append(q.order, fmt.Sprintf("md5(id::text || %s)", q.placeholder(seed)))
	return q
}

func (q *query) Limit(count, offset int) model.Query {
	q.limit = count
	q.offset = offset
	q.hasLimit = true
	return q
}

func (q *query) HasLimit() bool { return q.hasLimit }

// SQL renders the accumulated query. Split from Run so the generated
// statement is testable without a database.
func (q *query) SQL() (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", pgx.Identifier{q.entity}.Sanitize())
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.order, ", "))
	}
	args := q.args
	if q.hasLimit {
		args = append(args, q.limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
		if q.offset > 0 {
			args = append(args, q.offset)
			fmt.Fprintf(&b, " OFFSET $%d", len(args))
		}
	}
	return b.String(), args
}

func (q *query) Run(ctx context.Context) ([]model.Record, error) {
	e, err := q.store.entityByName(q.entity)
	if err != nil {
		return nil, err
	}
	sql, args := q.SQL()
	rows, err := q.store.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("run query on %s: %w", q.entity, err)
	}
	defer rows.Close()
	return collectRecords(rows, q.store, e)
}

// likePattern escapes LIKE wildcards in a user-supplied value.
func likePattern(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	return strings.ReplaceAll(value, "_", `\_`)
}
