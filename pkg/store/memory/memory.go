// Package memory implements the persistence contracts over in-process
// maps. It backs the test suite and embedded deployments that need no
// external database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/apidoor/restq/pkg/model"
)

// EntityDef declares one entity: its scalar columns and relation
// descriptors, keyed by relation name with the target entity as value.
type EntityDef struct {
	Name            string
	Fields          []string
	HasOne          map[string]string
	HasMany         map[string]string
	ManyMany        map[string]string
	BelongsManyMany map[string]string
}

type entity struct {
	name    string
	fields  map[string]model.Field
	columns map[string]bool
}

func (e *entity) Name() string { return e.name }

func (e *entity) HasColumn(name string) bool { return e.columns[name] }

func (e *entity) Field(name string) (model.Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// link is one to-many membership with optional join-table fields.
type link struct {
	id    int64
	extra map[string]any
}

type record struct {
	entity *entity
	fields map[string]any
	rels   map[string][]link
}

// Store is an in-memory model.Store. All access is guarded by one
// RWMutex; records returned to callers are copies, so merges stay
// invisible until Save.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*entity
	records  map[string]map[int64]*record
	nextID   map[string]int64
}

func NewStore(defs ...EntityDef) *Store {
	s := &Store{
		entities: make(map[string]*entity),
		records:  make(map[string]map[int64]*record),
		nextID:   make(map[string]int64),
	}
	for _, def := range defs {
		s.Register(def)
	}
	return s
}

// Register declares an entity. Filterable columns are the scalar
// fields, the id, and the foreign-key column of each to-one relation.
func (s *Store) Register(def EntityDef) {
	e := &entity{
		name:    def.Name,
		fields:  map[string]model.Field{"id": {Name: "id", Kind: model.KindScalar}},
		columns: map[string]bool{"id": true},
	}
	for _, f := range def.Fields {
		e.fields[f] = model.Field{Name: f, Kind: model.KindScalar}
		e.columns[f] = true
	}
	relations := []struct {
		kind model.FieldKind
		defs map[string]string
	}{
		{model.KindHasOne, def.HasOne},
		{model.KindHasMany, def.HasMany},
		{model.KindManyMany, def.ManyMany},
		{model.KindBelongsManyMany, def.BelongsManyMany},
	}
	for _, group := range relations {
		for name, target := range group.defs {
			f := model.Field{Name: name, Kind: group.kind, Target: target}
			if group.kind == model.KindHasOne {
				f.Column = name + "id"
				e.columns[f.Column] = true
			}
			e.fields[name] = f
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[def.Name] = e
	s.records[def.Name] = make(map[int64]*record)
}

func (s *Store) Entity(name string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	return e, ok
}

func (s *Store) ByID(_ context.Context, entityName string, id int64) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[entityName][id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec.clone(), nil
}

func (s *Store) New(entityName string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityName]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entityName)
	}
	return newRecord(e), nil
}

func (s *Store) Save(_ context.Context, rec model.Record, flushRelations bool) error {
	r, ok := rec.(*record)
	if !ok {
		return fmt.Errorf("record does not belong to this store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.entity.name
	id := r.ID()
	if id == 0 {
		s.nextID[name]++
		id = s.nextID[name]
		r.fields["id"] = id
	} else if id > s.nextID[name] {
		s.nextID[name] = id
	}

	stored, exists := s.records[name][id]
	if !exists {
		stored = newRecord(r.entity)
		stored.fields["id"] = id
		s.records[name][id] = stored
	}
	for k, v := range r.fields {
		stored.fields[k] = v
	}
	if flushRelations {
		stored.rels = cloneRels(r.rels)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, rec model.Record) error {
	r, ok := rec.(*record)
	if !ok {
		return fmt.Errorf("record does not belong to this store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[r.entity.name], r.ID())
	return nil
}

// Seed inserts a record directly, assigning the next id. Test and
// fixture helper.
func (s *Store) Seed(entityName string, fields map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[entityName]
	s.nextID[entityName]++
	id := s.nextID[entityName]
	rec := newRecord(e)
	rec.fields["id"] = id
	for k, v := range fields {
		rec.fields[k] = v
	}
	s.records[entityName][id] = rec
	return id
}

// Link adds one to-many membership directly. Test and fixture helper.
func (s *Store) Link(entityName string, id int64, relation string, targetID int64, extra map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[entityName][id]; ok {
		rec.rels[relation] = append(rec.rels[relation], link{id: targetID, extra: extra})
	}
}

// snapshot returns cloned records of an entity ordered by id.
func (s *Store) snapshot(entityName string) []*record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.records[entityName]
	out := make([]*record, 0, len(byID))
	for _, rec := range byID {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func newRecord(e *entity) *record {
	return &record{
		entity: e,
		fields: map[string]any{"id": int64(0)},
		rels:   make(map[string][]link),
	}
}

func (r *record) clone() *record {
	fields := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	return &record{entity: r.entity, fields: fields, rels: cloneRels(r.rels)}
}

func cloneRels(rels map[string][]link) map[string][]link {
	out := make(map[string][]link, len(rels))
	for name, links := range rels {
		out[name] = append([]link(nil), links...)
	}
	return out
}

func (r *record) ID() int64 {
	switch id := r.fields["id"].(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case float64:
		return int64(id)
	}
	return 0
}

func (r *record) Entity() model.Entity { return r.entity }

func (r *record) Get(field string) any { return r.fields[field] }

func (r *record) Set(field string, value any) { r.fields[field] = value }

func (r *record) Relation(name string) (model.RelationList, error) {
	f, ok := r.entity.fields[name]
	if !ok || !f.Kind.IsToMany() {
		return nil, fmt.Errorf("no to-many relation %q on %s", name, r.entity.name)
	}
	return &relationList{rec: r, name: name}, nil
}

func (r *record) Data() map[string]any {
	data := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		data[k] = v
	}
	return data
}

type relationList struct {
	rec  *record
	name string
}

func (l *relationList) RemoveAll() error {
	l.rec.rels[l.name] = nil
	return nil
}

func (l *relationList) Add(id int64, extra map[string]any) error {
	l.rec.rels[l.name] = append(l.rec.rels[l.name], link{id: id, extra: extra})
	return nil
}

func (l *relationList) IDs() ([]int64, error) {
	links := l.rec.rels[l.name]
	ids := make([]int64, 0, len(links))
	for _, ln := range links {
		ids = append(ids, ln.id)
	}
	return ids, nil
}

// ExtraFields returns the join-table fields stored for one membership.
func (l *relationList) ExtraFields(id int64) map[string]any {
	for _, ln := range l.rec.rels[l.name] {
		if ln.id == id {
			return ln.extra
		}
	}
	return nil
}
