package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/apidoor/restq/pkg/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type column struct {
	Name       string
	DataType   string
	IsNullable bool
}

type foreignKey struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

type table struct {
	Name        string
	Columns     []column
	PrimaryKeys []string
	ForeignKeys []foreignKey
}

// manyManyJoin is the join-table wiring of one many-many relation as
// seen from the owning side.
type manyManyJoin struct {
	JoinTable    string
	OwnColumn    string
	TargetColumn string
	ExtraColumns []string
}

// entity is a table exposed through the API: its filterable columns
// plus relation descriptors derived from foreign keys.
type entity struct {
	name    string
	columns map[string]bool
	fields  map[string]model.Field
	joins   map[string]manyManyJoin // relation name -> join wiring
}

func (e *entity) Name() string               { return e.name }
func (e *entity) HasColumn(name string) bool { return e.columns[name] }

func (e *entity) Field(name string) (model.Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// loadEntities introspects the public schema and derives the entity
// graph. A table with an "id" column becomes an entity. A table with
// exactly two foreign keys and no id of its own is a join table: it
// yields a many-many relation on both referenced entities, with its
// remaining columns as per-pair extra fields.
func loadEntities(ctx context.Context, pool *pgxpool.Pool) (map[string]*entity, error) {
	tables, err := loadTables(ctx, pool)
	if err != nil {
		return nil, err
	}

	entities := make(map[string]*entity)
	joins := make([]table, 0)

	for _, t := range tables {
		if isJoinTable(t) {
			joins = append(joins, t)
			continue
		}
		if !hasIDColumn(t) {
			continue
		}
		e := &entity{
			name:    t.Name,
			columns: make(map[string]bool, len(t.Columns)),
			fields:  make(map[string]model.Field),
			joins:   make(map[string]manyManyJoin),
		}
		for _, c := range t.Columns {
			e.columns[c.Name] = true
			e.fields[c.Name] = model.Field{Name: c.Name, Kind: model.KindScalar}
		}
		for _, fk := range t.ForeignKeys {
			name := strings.TrimSuffix(fk.Column, "_id")
			e.fields[name] = model.Field{
				Name:   name,
				Kind:   model.KindHasOne,
				Target: fk.ReferencedTable,
				Column: fk.Column,
			}
		}
		entities[t.Name] = e
	}

	// Reverse foreign keys become has-many relations named after the
	// child table.
	for _, t := range tables {
		if isJoinTable(t) || !hasIDColumn(t) {
			continue
		}
		for _, fk := range t.ForeignKeys {
			parent, ok := entities[fk.ReferencedTable]
			if !ok {
				continue
			}
			parent.fields[t.Name] = model.Field{
				Name:   t.Name,
				Kind:   model.KindHasMany,
				Target: t.Name,
			}
		}
	}

	for _, j := range joins {
		wireJoinTable(entities, j)
	}
	return entities, nil
}

// wireJoinTable attaches a many-many relation to both sides of a join
// table. The alphabetically first side owns the relation; the other
// carries the belongs variant. Extra columns become join-table fields.
func wireJoinTable(entities map[string]*entity, j table) {
	if len(j.ForeignKeys) != 2 {
		return
	}
	a, b := j.ForeignKeys[0], j.ForeignKeys[1]
	if a.ReferencedTable > b.ReferencedTable {
		a, b = b, a
	}

	fkCols := map[string]bool{a.Column: true, b.Column: true}
	var extras []string
	for _, c := range j.Columns {
		if !fkCols[c.Name] {
			extras = append(extras, c.Name)
		}
	}
	sort.Strings(extras)

	attach := func(ownFK, targetFK foreignKey, kind model.FieldKind) {
		own, ok := entities[ownFK.ReferencedTable]
		if !ok {
			return
		}
		name := targetFK.ReferencedTable
		own.fields[name] = model.Field{Name: name, Kind: kind, Target: name}
		own.joins[name] = manyManyJoin{
			JoinTable:    j.Name,
			OwnColumn:    ownFK.Column,
			TargetColumn: targetFK.Column,
			ExtraColumns: extras,
		}
	}
	attach(a, b, model.KindManyMany)
	attach(b, a, model.KindBelongsManyMany)
}

func isJoinTable(t table) bool {
	return len(t.ForeignKeys) == 2 && !hasIDColumn(t)
}

func hasIDColumn(t table) bool {
	for _, c := range t.Columns {
		if c.Name == "id" {
			return true
		}
	}
	return false
}

func loadTables(ctx context.Context, pool *pgxpool.Pool) ([]table, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []table
	for rows.Next() {
		var t table
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		cols, pks, err := queryColumns(ctx, pool, tables[i].Name)
		if err != nil {
			return nil, fmt.Errorf("query columns %s: %w", tables[i].Name, err)
		}
		tables[i].Columns = cols
		tables[i].PrimaryKeys = pks

		fks, err := queryForeignKeys(ctx, pool, tables[i].Name)
		if err != nil {
			return nil, fmt.Errorf("query foreign keys %s: %w", tables[i].Name, err)
		}
		tables[i].ForeignKeys = fks
	}
	return tables, nil
}

func queryColumns(ctx context.Context, pool *pgxpool.Pool, tbl string) ([]column, []string, error) {
	rows, err := pool.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = 'public'
					AND tc.table_name = $1
					AND kcu.column_name = c.column_name
			) AS is_primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1`, tbl)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var cols []column
	var pkeys []string
	for rows.Next() {
		var col column
		var isPK bool
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &isPK); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
		if isPK {
			pkeys = append(pkeys, col.Name)
		}
	}
	return cols, pkeys, rows.Err()
}

func queryForeignKeys(ctx context.Context, pool *pgxpool.Pool, tbl string) ([]foreignKey, error) {
	rows, err := pool.Query(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_name,
			ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = 'public'
			AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, tbl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkeys []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		fkeys = append(fkeys, fk)
	}
	return fkeys, rows.Err()
}
