package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/apidoor/restq/pkg/model"
	"github.com/jackc/pgx/v5"
)

// pgRecord buffers field and relation mutations in memory; nothing
// reaches the database until Store.Save runs them in one transaction.
type pgRecord struct {
	store  *Store
	entity *entity
	fields map[string]any
	// pending relation rewrites by relation name, applied on save when
	// the relation-flush flag is set.
	pending map[string]*pendingRelation
}

type pendingRelation struct {
	cleared bool
	adds    []relationAdd
}

type relationAdd struct {
	id    int64
	extra map[string]any
}

func newPGRecord(s *Store, e *entity, fields map[string]any) *pgRecord {
	return &pgRecord{store: s, entity: e, fields: fields, pending: make(map[string]*pendingRelation)}
}

func (r *pgRecord) ID() int64 {
	switch id := r.fields["id"].(type) {
	case int64:
		return id
	case int32:
		return int64(id)
	case int:
		return int64(id)
	}
	return 0
}

func (r *pgRecord) Entity() model.Entity { return r.entity }

func (r *pgRecord) Get(field string) any { return r.fields[field] }

func (r *pgRecord) Set(field string, value any) { r.fields[field] = value }

func (r *pgRecord) Data() map[string]any {
	data := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		data[k] = v
	}
	return data
}

func (r *pgRecord) Relation(name string) (model.RelationList, error) {
	f, ok := r.entity.fields[name]
	if !ok || !f.Kind.IsToMany() {
		return nil, fmt.Errorf("no to-many relation %q on %s", name, r.entity.name)
	}
	return &relationList{rec: r, field: f}, nil
}

func (r *pgRecord) insert(ctx context.Context, tx pgx.Tx) error {
	var cols, placeholders []string
	var args []any
	for name, value := range r.fields {
		if name == "id" || !r.entity.columns[name] {
			continue
		}
		cols = append(cols, pgx.Identifier{name}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, value)
	}

	table := pgx.Identifier{r.entity.name}.Sanitize()
	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", table)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}

	var id int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert %s: %w", r.entity.name, err)
	}
	r.fields["id"] = id
	return nil
}

func (r *pgRecord) update(ctx context.Context, tx pgx.Tx) error {
	var sets []string
	var args []any
	for name, value := range r.fields {
		if name == "id" || !r.entity.columns[name] {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{name}.Sanitize(), len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, r.ID())
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{r.entity.name}.Sanitize(), strings.Join(sets, ", "), len(args))
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s %d: %w", r.entity.name, r.ID(), err)
	}
	return nil
}

// flushRelations applies buffered relation rewrites. Has-many clears
// null out the child foreign key; many-many clears delete join rows.
func (r *pgRecord) flushRelations(ctx context.Context, tx pgx.Tx) error {
	for name, pending := range r.pending {
		f := r.entity.fields[name]
		var err error
		switch f.Kind {
		case model.KindHasMany:
			err = r.flushHasMany(ctx, tx, f, pending)
		case model.KindManyMany, model.KindBelongsManyMany:
			err = r.flushManyMany(ctx, tx, name, pending)
		}
		if err != nil {
			return err
		}
	}
	r.pending = make(map[string]*pendingRelation)
	return nil
}

func (r *pgRecord) flushHasMany(ctx context.Context, tx pgx.Tx, f model.Field, pending *pendingRelation) error {
	child := pgx.Identifier{f.Target}.Sanitize()
	fk, err := r.childForeignKey(f.Target)
	if err != nil {
		return err
	}

	if pending.cleared {
		query := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = $1", child, fk, fk)
		if _, err := tx.Exec(ctx, query, r.ID()); err != nil {
			return fmt.Errorf("clear %s on %s: %w", fk, f.Target, err)
		}
	}
	for _, add := range pending.adds {
		query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = $2", child, fk)
		if _, err := tx.Exec(ctx, query, r.ID(), add.id); err != nil {
			return fmt.Errorf("attach %s %d: %w", f.Target, add.id, err)
		}
	}
	return nil
}

func (r *pgRecord) flushManyMany(ctx context.Context, tx pgx.Tx, name string, pending *pendingRelation) error {
	join := r.entity.joins[name]
	joinTable := pgx.Identifier{join.JoinTable}.Sanitize()
	ownCol := pgx.Identifier{join.OwnColumn}.Sanitize()
	targetCol := pgx.Identifier{join.TargetColumn}.Sanitize()

	if pending.cleared {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", joinTable, ownCol)
		if _, err := tx.Exec(ctx, query, r.ID()); err != nil {
			return fmt.Errorf("clear join %s: %w", join.JoinTable, err)
		}
	}

	allowed := make(map[string]bool, len(join.ExtraColumns))
	for _, c := range join.ExtraColumns {
		allowed[c] = true
	}

	for _, add := range pending.adds {
		cols := []string{ownCol, targetCol}
		args := []any{r.ID(), add.id}
		for col, value := range add.extra {
			if !allowed[col] {
				continue
			}
			cols = append(cols, pgx.Identifier{col}.Sanitize())
			args = append(args, value)
		}
		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			joinTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("add join %s %d: %w", join.JoinTable, add.id, err)
		}
	}
	return nil
}

// childForeignKey finds the column on the child table that references
// this record's table.
func (r *pgRecord) childForeignKey(child string) (string, error) {
	e, err := r.store.entityByName(child)
	if err != nil {
		return "", err
	}
	for _, f := range e.fields {
		if f.Kind == model.KindHasOne && f.Target == r.entity.name {
			return pgx.Identifier{f.Column}.Sanitize(), nil
		}
	}
	return "", fmt.Errorf("no foreign key from %s to %s", child, r.entity.name)
}

type relationList struct {
	rec   *pgRecord
	field model.Field
}

func (l *relationList) pending() *pendingRelation {
	p, ok := l.rec.pending[l.field.Name]
	if !ok {
		p = &pendingRelation{}
		l.rec.pending[l.field.Name] = p
	}
	return p
}

func (l *relationList) RemoveAll() error {
	p := l.pending()
	p.cleared = true
	p.adds = nil
	return nil
}

func (l *relationList) Add(id int64, extra map[string]any) error {
	p := l.pending()
	p.adds = append(p.adds, relationAdd{id: id, extra: extra})
	return nil
}

// IDs reads the current member set from the database, ignoring any
// buffered rewrites.
func (l *relationList) IDs() ([]int64, error) {
	ctx := context.Background()
	var query string
	switch l.field.Kind {
	case model.KindHasMany:
		fk, err := l.rec.childForeignKey(l.field.Target)
		if err != nil {
			return nil, err
		}
		query = fmt.Sprintf("SELECT id FROM %s WHERE %s = $1 ORDER BY id",
			pgx.Identifier{l.field.Target}.Sanitize(), fk)
	default:
		join := l.rec.entity.joins[l.field.Name]
		query = fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY 1",
			pgx.Identifier{join.TargetColumn}.Sanitize(),
			pgx.Identifier{join.JoinTable}.Sanitize(),
			pgx.Identifier{join.OwnColumn}.Sanitize())
	}

	rows, err := l.rec.store.pool.Query(ctx, query, l.rec.ID())
	if err != nil {
		return nil, fmt.Errorf("list %s members: %w", l.field.Name, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
