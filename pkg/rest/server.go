package rest

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apidoor/restq/pkg/events"
	"github.com/apidoor/restq/pkg/httputil"
	"github.com/apidoor/restq/pkg/metrics"
	"github.com/apidoor/restq/pkg/model"
	"go.uber.org/zap"
)

// Server exposes a Handler over HTTP at /{baseURL}/{Entity}/{ID}. The
// transport concerns live here: routing, body reading, serialization,
// middleware, metrics, and mutation events. The Handler itself stays
// synchronous and transport-free.
type Server struct {
	handler    *Handler
	mux        *http.ServeMux
	server     *http.Server
	middleware []httputil.Middleware
	baseURL    string
	logger     *zap.Logger
	publisher  *events.Publisher
}

type ServerOption func(*Server)

// WithBaseURL sets the path prefix the API is served under.
func WithBaseURL(base string) ServerOption {
	return func(s *Server) { s.baseURL = base }
}

// WithPublisher attaches a mutation-event publisher. Nil is fine.
func WithPublisher(p *events.Publisher) ServerOption {
	return func(s *Server) { s.publisher = p }
}

func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		handler: handler,
		mux:     http.NewServeMux(),
		baseURL: "/api",
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("/", s.handleRequest)
	return s
}

// AddMiddleware appends middleware; the first added is the outermost.
func (s *Server) AddMiddleware(mw ...httputil.Middleware) {
	s.middleware = append(s.middleware, mw...)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, parseErr := s.parseRequest(r)
	if parseErr != nil {
		httputil.Error(w, parseErr.Code, parseErr.Message)
		return
	}

	result, apiErr := s.handler.Handle(r.Context(), req)

	status := s.respond(w, req, result, apiErr)
	metrics.RequestsTotal.WithLabelValues(req.Entity, string(req.Verb), strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(req.Entity, string(req.Verb)).Observe(time.Since(start).Seconds())
}

// parseRequest extracts entity and id from the path and reads the body.
// An empty path yields a request with no entity, which the handler
// rejects with its own 400. A body that cannot be read is an error, not
// an empty body.
func (s *Server) parseRequest(r *http.Request) (*Request, *Error) {
	path := strings.TrimPrefix(r.URL.Path, s.baseURL)
	path = strings.Trim(path, "/")

	req := &Request{
		Verb:   model.Verb(r.Method),
		Params: ParamsFromQuery(r.URL.RawQuery),
	}

	if path != "" {
		parts := strings.SplitN(path, "/", 3)
		req.Entity = parts[0]
		if len(parts) > 1 {
			req.ID = parts[1]
		}
		if len(parts) > 2 {
			return nil, notFound("Not found.")
		}
	}

	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, badRequest("Invalid or malformed payload.")
		}
		req.Body = body
	}
	return req, nil
}

// respond writes the outcome and returns the HTTP status used.
func (s *Server) respond(w http.ResponseWriter, req *Request, result *Result, apiErr *Error) int {
	if apiErr != nil {
		httputil.Error(w, apiErr.Code, apiErr.Message)
		return apiErr.Code
	}

	s.publishMutation(req, result)

	switch {
	case result.Deleted:
		httputil.JSON(w, http.StatusOK, map[string]any{})
		return http.StatusOK
	case result.Record != nil:
		status := http.StatusOK
		if req.Verb == model.VerbPost {
			status = http.StatusCreated
		}
		httputil.JSON(w, status, result.Record.Data())
		return status
	default:
		rows := make([]map[string]any, 0, len(result.Records))
		for _, rec := range result.Records {
			rows = append(rows, rec.Data())
		}
		httputil.JSON(w, http.StatusOK, rows)
		return http.StatusOK
	}
}

func (s *Server) publishMutation(req *Request, result *Result) {
	var op events.Op
	switch req.Verb {
	case model.VerbPost:
		op = events.OpCreate
	case model.VerbPut:
		op = events.OpUpdate
	case model.VerbDelete:
		op = events.OpDelete
	default:
		return
	}

	entity, id := result.Entity, result.ID
	metrics.RecordWrites.WithLabelValues(entity, string(op)).Inc()
	if err := s.publisher.Publish(entity, op, id); err != nil {
		s.logger.Warn("publish mutation event failed",
			zap.String("entity", entity), zap.String("op", string(op)), zap.Error(err))
	}
}

// Start serves on addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	handler := http.Handler(s.mux)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	s.logger.Info("server starting", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
