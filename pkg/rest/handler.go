package rest

import (
	"context"
	"errors"
	"strconv"

	"github.com/apidoor/restq/pkg/model"
	"go.uber.org/zap"
)

// Config is the read-only configuration of the query layer, fixed at
// construction.
type Config struct {
	// Separator splits a parameter key into column and modifier.
	Separator string
	// DefaultLimit caps unbounded GET queries when no limit clause is
	// present. Negative disables capping.
	DefaultLimit int
	// IgnoredParams are query keys skipped by the parser, matched
	// case-insensitively. Transport artifacts, not filters.
	IgnoredParams []string
}

// DefaultConfig returns the stock settings: "__" separator, a 100
// record cap, and the usual cache-control artifacts ignored.
func DefaultConfig() Config {
	return Config{
		Separator:     "__",
		DefaultLimit:  100,
		IgnoredParams: []string{"url", "flush", "flushtoken"},
	}
}

// Handler translates API requests into store operations. It owns no
// state beyond its collaborators and configuration; one instance serves
// concurrent requests.
type Handler struct {
	store  model.Store
	access model.AccessControl
	names  model.NameTranslator
	deser  Deserializer
	cfg    Config
	logger *zap.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithAccessControl(ac model.AccessControl) HandlerOption {
	return func(h *Handler) { h.access = ac }
}

func WithNameTranslator(nt model.NameTranslator) HandlerOption {
	return func(h *Handler) { h.names = nt }
}

func WithDeserializer(d Deserializer) HandlerOption {
	return func(h *Handler) { h.deser = d }
}

func WithConfig(cfg Config) HandlerOption {
	return func(h *Handler) { h.cfg = cfg }
}

func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler builds a Handler over the store. Defaults: allow-all
// access, snake_case name translation, JSON bodies, DefaultConfig, and
// a no-op logger.
func NewHandler(store model.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		access: model.AllowAll{},
		names:  model.SnakeTranslator{},
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.deser == nil {
		h.deser = &JSONDeserializer{Names: h.names}
	}
	return h
}

// Result is the successful outcome of a request: exactly one of a
// single record, a record list, or the empty delete marker. Entity and
// ID identify the touched record for mutation verbs.
type Result struct {
	Record  model.Record
	Records []model.Record
	Deleted bool
	Entity  string
	ID      int64
}

// Handle validates the request and routes it by verb. Errors from any
// component pass through unchanged; processing stops at the first one.
func (h *Handler) Handle(ctx context.Context, req *Request) (*Result, *Error) {
	if req.Entity == "" {
		return nil, badRequest("Missing Model parameter.")
	}

	name := h.names.Unformat(req.Entity)
	entity, ok := h.store.Entity(name)
	if !ok {
		return nil, badRequest("Model does not exist. Received '%s'.", req.Entity)
	}

	if !h.access.CanAccess(entity, nil, req.Verb) {
		return nil, forbidden()
	}

	id, hasID, apiErr := validateID(req)
	if apiErr != nil {
		return nil, apiErr
	}

	switch req.Verb {
	case model.VerbGet:
		return h.find(ctx, entity, id, hasID, req.Params)
	case model.VerbPost:
		return h.create(ctx, entity, req)
	case model.VerbPut:
		return h.update(ctx, entity, id, req)
	case model.VerbDelete:
		return h.delete(ctx, entity, id, req)
	}
	return nil, &Error{Code: 403, Message: "HTTP method mismatch."}
}

// validateID enforces the id shape per verb: PUT and DELETE require a
// non-negative integer, GET and POST accept an absent id. The offending
// raw value is echoed in the message.
func validateID(req *Request) (id int64, hasID bool, apiErr *Error) {
	mutating := req.Verb == model.VerbPut || req.Verb == model.VerbDelete

	if req.ID == "" {
		if mutating {
			return 0, false, badRequest("Invalid or missing ID. Received '%s'.", req.ID)
		}
		return 0, false, nil
	}

	id, err := strconv.ParseInt(req.ID, 10, 64)
	if err != nil || id < 0 {
		if mutating {
			return 0, false, badRequest("Invalid or missing ID. Received '%s'.", req.ID)
		}
		return 0, false, badRequest("Invalid ID. Received '%s'.", req.ID)
	}
	return id, true, nil
}

// find fetches one record by id, or runs a filtered query over the
// entity. A find-by-id ignores filter, sort, and limit parameters.
func (h *Handler) find(ctx context.Context, entity model.Entity, id int64, hasID bool, params []Param) (*Result, *Error) {
	if hasID {
		rec, err := h.store.ByID(ctx, entity.Name(), id)
		if errors.Is(err, model.ErrNotFound) {
			return nil, notFound("Model %d of %s not found.", id, h.names.Format(entity.Name()))
		}
		if err != nil {
			return nil, internalError(err)
		}
		return &Result{Record: rec}, nil
	}

	clauses := h.parseQueryParams(params)
	q, apiErr := h.applyFilters(h.store.Query(entity.Name()), clauses, entity)
	if apiErr != nil {
		return nil, apiErr
	}
	records, err := q.Run(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return &Result{Records: records}, nil
}

// create re-checks access for the verb, then runs the update path
// against a fresh unsaved record.
func (h *Handler) create(ctx context.Context, entity model.Entity, req *Request) (*Result, *Error) {
	if !h.access.CanAccess(entity, nil, req.Verb) {
		return nil, forbidden()
	}
	return h.update(ctx, entity, 0, req)
}

// update merges the request body onto the record with the given id (a
// zero id means a new unsaved record), persists when the merge changed
// anything, and returns the re-fetched record so the response reflects
// server-computed fields.
func (h *Handler) update(ctx context.Context, entity model.Entity, id int64, req *Request) (*Result, *Error) {
	var rec model.Record
	var err error
	if id == 0 {
		rec, err = h.store.New(entity.Name())
	} else {
		rec, err = h.store.ByID(ctx, entity.Name(), id)
		if errors.Is(err, model.ErrNotFound) {
			return nil, notFound("Record not found.")
		}
	}
	if err != nil {
		return nil, internalError(err)
	}

	// Second access check, now against the concrete record: rules may
	// depend on record state not known before lookup.
	if !h.access.CanAccess(entity, rec, req.Verb) {
		return nil, forbidden()
	}

	payload, apiErr := h.deser.Deserialize(req.Body)
	if apiErr != nil {
		return nil, apiErr
	}

	outcome, err := mergePayload(rec, payload)
	if err != nil {
		return nil, internalError(err)
	}
	if outcome.Changed() {
		if err := h.store.Save(ctx, rec, outcome.ChangedRelations); err != nil {
			return nil, internalError(err)
		}
		h.logger.Debug("record written",
			zap.String("entity", entity.Name()),
			zap.Int64("id", rec.ID()),
			zap.Bool("fields", outcome.ChangedFields),
			zap.Bool("relations", outcome.ChangedRelations))
	}

	fresh, err := h.store.ByID(ctx, entity.Name(), rec.ID())
	if errors.Is(err, model.ErrNotFound) {
		return nil, notFound("Record not found.")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &Result{Record: fresh, Entity: entity.Name(), ID: fresh.ID()}, nil
}

// delete removes the record with the given id after re-checking access
// against it, returning the empty success marker.
func (h *Handler) delete(ctx context.Context, entity model.Entity, id int64, req *Request) (*Result, *Error) {
	rec, err := h.store.ByID(ctx, entity.Name(), id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, notFound("Record not found.")
	}
	if err != nil {
		return nil, internalError(err)
	}

	if !h.access.CanAccess(entity, rec, req.Verb) {
		return nil, forbidden()
	}

	if err := h.store.Delete(ctx, rec); err != nil {
		return nil, internalError(err)
	}
	return &Result{Deleted: true, Entity: entity.Name(), ID: id}, nil
}
