package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/service"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type Dependencies struct {
	Logger     *log.Logger
	Addr       string
	Records    *service.RecordService
	Dispatcher *notify.Dispatcher
	Queue      store.NotificationStore

	// Gatherer backs /metrics.  Nil leaves the route unmounted.
	Gatherer prometheus.Gatherer
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	router     chi.Router
	records    *service.RecordService
	dispatcher *notify.Dispatcher
	queue      store.NotificationStore
}

func NewServer(d Dependencies) *Server {
	r := chi.NewRouter()

	s := &Server{
		logger:     d.Logger,
		router:     r,
		records:    d.Records,
		dispatcher: d.Dispatcher,
		queue:      d.Queue,
	}

	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(d.Logger))

	r.Get("/healthz", s.handleHealth)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/records", s.handleListRecords)
		r.Get("/records/{id}", s.handleGetRecord)
		r.Put("/records/{id}", s.handleSubmitRecord)
		r.Delete("/records/{id}", s.handleDeleteRecord)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/flush", s.handleFlushNotifications)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"server_time": serverTime(),
	})
}

// ── Records ──────────────────────────────────────────────────────────────────

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.List(r.Context())
	if err != nil {
		s.writeServiceError(w, "list records", err)
		return
	}
	if records == nil {
		records = []types.Entity{}
	}
	s.respond(w, r, http.StatusOK, types.RecordList{Records: records})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	e, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, "get record", err)
		return
	}
	s.respond(w, r, http.StatusOK, e)
}

// handleSubmitRecord runs one full change session: load, confirm, validate,
// upsert, notify.
func (s *Server) handleSubmitRecord(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	req, err := decodeSubmitRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "invalid request body")
		return
	}

	surface := &httpSurface{}
	confirm := service.ConfirmFunc(func(string) bool { return req.Confirm })

	var dispatcher service.TaskDispatcher
	if s.dispatcher != nil {
		dispatcher = s.dispatcher
	}
	ctrl := service.NewController(s.records, dispatcher, surface, confirm)

	if err := ctrl.Load(r.Context(), id); err != nil {
		s.writeServiceError(w, "load record", err)
		return
	}

	o, err := ctrl.Submit(r.Context(), types.Entity{ID: id, Fields: req.Fields})
	if err != nil {
		s.writeServiceError(w, "submit record", err)
		return
	}

	resp := types.SubmitResponse{
		Outcome:       o.Kind,
		Violations:    o.Violations,
		Reason:        o.Reason,
		Attempts:      o.Attempts,
		Notifications: surface.summary,
		ServerTime:    serverTime(),
	}
	if o.Kind == types.OutcomeCommitted {
		e := o.Entity
		resp.Entity = &e
	}
	s.respond(w, r, outcomeStatus(o), resp)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	confirmed := r.URL.Query().Get("confirm") == "true"

	ctrl := service.NewController(s.records, nil, &httpSurface{},
		service.ConfirmFunc(func(string) bool { return confirmed }))

	deleted, err := ctrl.DeleteRecord(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, "delete record", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusConflict, "not_confirmed", "delete requires confirm=true")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Notifications ────────────────────────────────────────────────────────────

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	status := types.NotificationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", types.NotificationPending, types.NotificationSent, types.NotificationFailed:
	default:
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, sent or failed")
		return
	}

	tasks, err := s.queue.List(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, "list notifications", err)
		return
	}
	if tasks == nil {
		tasks = []types.NotificationTask{}
	}
	writeJSON(w, http.StatusOK, types.NotificationList{Notifications: tasks})
}

func (s *Server) handleFlushNotifications(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "no_dispatcher", "notification dispatch is not configured")
		return
	}
	sum, err := s.dispatcher.Flush(r.Context())
	if err != nil {
		s.writeServiceError(w, "flush notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ── Errors ───────────────────────────────────────────────────────────────────

func outcomeStatus(o types.Outcome) int {
	switch o.Kind {
	case types.OutcomeCommitted:
		return http.StatusOK
	case types.OutcomeRejected:
		return http.StatusUnprocessableEntity
	case types.OutcomeTransientFailure:
		return http.StatusServiceUnavailable
	}
	if o.Reason == "user cancelled" {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, store.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func serverTime() string { return time.Now().UTC().Format(time.RFC3339Nano) }
