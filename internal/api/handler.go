package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/obsidianstack/rosterd/internal/metrics"
	"github.com/obsidianstack/rosterd/internal/store"
)

// Defaults used when no option overrides them.
const (
	DefaultPrefix       = "/v1/student"
	DefaultMaxBodyBytes = 16 * 1024
)

const allowedMethods = "GET, POST, PUT, DELETE"

// Handler is the HTTP handler for the record routes and /healthz.
type Handler struct {
	store   *store.Store
	prefix  string
	maxBody atomic.Int64
	metrics metrics.Recorder
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithPrefix binds the record routes to prefix instead of DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(h *Handler) { h.prefix = prefix }
}

// WithMaxBodyBytes sets the initial request body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) { h.maxBody.Store(n) }
}

// WithRecorder sends operation and rejection counts to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(h *Handler) {
		if rec != nil {
			h.metrics = rec
		}
	}
}

// WithLogger replaces slog.Default for handler logs.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler wired to st and registers all routes.
func New(st *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:   st,
		prefix:  DefaultPrefix,
		metrics: nopRecorder{},
		logger:  slog.Default(),
		mux:     http.NewServeMux(),
	}
	h.maxBody.Store(DefaultMaxBodyBytes)
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc(h.prefix, h.records)
	h.mux.HandleFunc("/healthz", h.health)
	h.mux.HandleFunc("/", h.notFound)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetMaxBodyBytes changes the body cap for requests that start afterwards.
// Non-positive values are ignored.
func (h *Handler) SetMaxBodyBytes(n int64) {
	if n <= 0 {
		return
	}
	if old := h.maxBody.Swap(n); old != n {
		h.logger.Info("api: body limit changed", "old", old, "new", n)
	}
}

// MaxBodyBytes returns the current body cap.
func (h *Handler) MaxBodyBytes() int64 {
	return h.maxBody.Load()
}

// --- route handlers ---------------------------------------------------------

// records dispatches the four verbs bound to the prefix.
func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	// ServeMux also routes "<prefix>/..." here when prefix ends in "/".
	if r.URL.Path != h.prefix {
		h.notFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		h.upsert(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.Header().Set("Allow", allowedMethods)
		h.reject(w, r, http.StatusMethodNotAllowed, metrics.ReasonMethod, "method not allowed")
	}
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == nil {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, "missing field: name")
		return
	}
	if *req.Name == "" {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, "name must not be empty")
		return
	}
	if req.Branch == nil {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, "missing field: branch")
		return
	}

	out := Upsert(h.store, Record{Name: *req.Name, Branch: *req.Branch})
	h.metrics.ObserveOperation(metrics.OpUpsert)
	h.logger.Debug("api: record upserted", "name", *req.Name, "method", r.Method)
	textResp(w, out.Status, out.Message)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == nil {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, "missing field: name")
		return
	}
	if *req.Name == "" {
		h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, "name must not be empty")
		return
	}

	out := Remove(h.store, ID{Name: *req.Name})
	h.metrics.ObserveOperation(metrics.OpRemove)
	h.logger.Debug("api: record removed", "name", *req.Name)
	textResp(w, out.Status, out.Message)
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	out := List(h.store)
	h.metrics.ObserveOperation(metrics.OpList)
	jsonResp(w, out.Status, out.Records)
}

// health returns GET /healthz: liveness plus the current record count.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.reject(w, r, http.StatusMethodNotAllowed, metrics.ReasonMethod, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", Records: h.store.Len()})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, http.StatusNotFound, metrics.ReasonNotFound, "not found")
}

// --- helpers ----------------------------------------------------------------

// decode reads exactly one JSON value from the capped body into v. On failure
// it writes the rejection and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	limit := h.maxBody.Load()
	if r.ContentLength > limit {
		h.reject(w, r, http.StatusRequestEntityTooLarge, metrics.ReasonOversized,
			fmt.Sprintf("body exceeds %d bytes", limit))
		return false
	}

	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		h.rejectDecode(w, r, limit, err, "invalid JSON body")
		return false
	}
	// Only whitespace may follow the object.
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		h.rejectDecode(w, r, limit, err, "unexpected data after JSON body")
		return false
	}
	return true
}

func (h *Handler) rejectDecode(w http.ResponseWriter, r *http.Request, limit int64, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.reject(w, r, http.StatusRequestEntityTooLarge, metrics.ReasonOversized,
			fmt.Sprintf("body exceeds %d bytes", limit))
		return
	}
	h.reject(w, r, http.StatusBadRequest, metrics.ReasonMalformed, msg)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, code int, reason, msg string) {
	h.metrics.ObserveRejection(reason)
	h.logger.Debug("api: request rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"status", code,
		"reason", reason,
		"request_id", RequestID(r.Context()),
	)
	jsonErr(w, code, msg)
}

func textResp(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, msg) //nolint:errcheck
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string) {}
func (nopRecorder) ObserveRejection(string) {}
