// Package postgres implements the persistence contracts over a
// PostgreSQL database using pgx. Tables in the public schema become
// entities; foreign keys become to-one and to-many relations; join
// tables without an id of their own become many-many relations with
// per-pair extra columns.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apidoor/restq/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	mu       sync.RWMutex
	entities map[string]*entity
}

// NewStore connects and introspects the schema once. Call Reload to
// pick up schema changes.
func NewStore(ctx context.Context, connString string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{pool: pool, logger: logger}
	if err := s.Reload(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Reload re-introspects the database and swaps the entity graph.
func (s *Store) Reload(ctx context.Context) error {
	entities, err := loadEntities(ctx, s.pool)
	if err != nil {
		return fmt.Errorf("load entities: %w", err)
	}
	s.mu.Lock()
	s.entities = entities
	s.mu.Unlock()
	s.logger.Info("schema loaded", zap.Int("entities", len(entities)))
	return nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Entity(name string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	return e, ok
}

func (s *Store) entityByName(name string) (*entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", name)
	}
	return e, nil
}

func (s *Store) ByID(ctx context.Context, entityName string, id int64) (model.Record, error) {
	e, err := s.entityByName(entityName)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = $1", pgx.Identifier{e.name}.Sanitize()), id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %d: %w", entityName, id, err)
	}
	defer rows.Close()

	records, err := collectRecords(rows, s, e)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, model.ErrNotFound
	}
	return records[0], nil
}

func (s *Store) New(entityName string) (model.Record, error) {
	e, err := s.entityByName(entityName)
	if err != nil {
		return nil, err
	}
	return newPGRecord(s, e, map[string]any{"id": int64(0)}), nil
}

func (s *Store) Save(ctx context.Context, rec model.Record, flushRelations bool) error {
	r, ok := rec.(*pgRecord)
	if !ok {
		return errors.New("record does not belong to this store")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if r.ID() == 0 {
		if err := r.insert(ctx, tx); err != nil {
			return err
		}
	} else if err := r.update(ctx, tx); err != nil {
		return err
	}

	if flushRelations {
		if err := r.flushRelations(ctx, tx); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, rec model.Record) error {
	r, ok := rec.(*pgRecord)
	if !ok {
		return errors.New("record does not belong to this store")
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", pgx.Identifier{r.entity.name}.Sanitize()), r.ID())
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.entity.name, r.ID(), err)
	}
	return nil
}

// collectRecords materializes query rows into records, column names
// taken from the row descriptions.
func collectRecords(rows pgx.Rows, s *Store, e *entity) ([]model.Record, error) {
	descs := rows.FieldDescriptions()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = string(d.Name)
	}

	var out []model.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(names))
		for i, name := range names {
			fields[name] = values[i]
		}
		out = append(out, newPGRecord(s, e, fields))
	}
	return out, rows.Err()
}
