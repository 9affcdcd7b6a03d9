// Package mockapi - in-memory реализация сервиса аудиторий для локальных запусков и тестов.
package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"audience-client/internal/domain"
)

// DefaultPageSize - размер страницы листинга по умолчанию.
const DefaultPageSize = 50

// Option - функциональная опция для настройки Server.
type Option func(*Server)

// WithPageSize задает размер страницы листинга.
func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRequestLogging включает журнал запросов chi.
func WithRequestLogging() Option {
	return func(s *Server) {
		s.requestLog = true
	}
}

// Server обслуживает эндпоинты /insights/audience поверх Store.
type Server struct {
	store      *Store
	pageSize   int
	log        *slog.Logger
	requestLog bool
	router     chi.Router
}

// New создает новый экземпляр Server.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		pageSize: DefaultPageSize,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler возвращает HTTP-обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer создает http.Server с таймаутами по умолчанию.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	if s.requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/insights/audience", func(r chi.Router) {
		r.Get("/usage", s.handleUsage)

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", s.handleListSegments)
			r.Post("/", s.handleCreateSegment)
			r.Get("/{id}", s.handleGetSegment)
			r.Delete("/{id}", s.handleDeleteSegment)
			r.Post("/{id}/ids", s.handleAppendIDs)
		})

		r.Route("/audiences", func(r chi.Router) {
			r.Get("/", s.handleListAudiences)
			r.Post("/", s.handleCreateAudience)
			r.Get("/{id}", s.handleGetAudience)
			r.Delete("/{id}", s.handleDeleteAudience)
			r.Post("/{id}/query", s.handleQuery)
		})
	})
	return r
}

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	offset, ok := parseCursor(w, r)
	if !ok {
		return
	}
	items, next := s.store.ListSegments(offset, s.pageSize)
	resp := map[string]any{"segments": items}
	if next >= 0 {
		resp["next"] = strconv.Itoa(next)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body")
		return
	}
	seg, err := s.store.CreateSegment(req.Name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Debug("segment created", "segment", seg.Name, "segment_id", seg.ID)
	writeJSON(w, http.StatusCreated, seg)
}

func (s *Server) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := s.store.GetSegment(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSegment(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "result": "deleted"})
}

func (s *Server) handleAppendIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.AppendIDs(id, req.UserIDs); err != nil {
		s.writeStoreError(w, err)
		return
	}
	seg, _ := s.store.GetSegment(id)
	writeJSON(w, http.StatusOK, seg)
}

func (s *Server) handleListAudiences(w http.ResponseWriter, r *http.Request) {
	offset, ok := parseCursor(w, r)
	if !ok {
		return
	}
	items, next := s.store.ListAudiences(offset, s.pageSize)
	resp := map[string]any{"audiences": items}
	if next >= 0 {
		resp["next"] = strconv.Itoa(next)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAudience(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		SegmentIDs []string `json:"segment_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body")
		return
	}
	aud, err := s.store.CreateAudience(req.Name, req.SegmentIDs)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Debug("audience created", "audience", aud.Name, "audience_id", aud.ID, "segments", len(aud.SegmentIDs))
	writeJSON(w, http.StatusCreated, aud)
}

func (s *Server) handleGetAudience(w http.ResponseWriter, r *http.Request) {
	aud, err := s.store.GetAudience(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aud)
}

func (s *Server) handleDeleteAudience(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteAudience(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "result": "deleted"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Groupings domain.Groupings `json:"groupings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body")
		return
	}
	res, err := s.store.Query(chi.URLParam(r, "id"), req.Groupings)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Usage())
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Status
	}
	s.log.Debug("request rejected", "status", status, "error", err)
	writeError(w, status, err.Error())
}

// HTTPError позволяет хуку вернуть произвольный статус.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func parseCursor(w http.ResponseWriter, r *http.Request) (int, bool) {
	next := r.URL.Query().Get("next")
	if next == "" {
		return 0, true
	}
	offset, err := strconv.Atoi(next)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid next cursor")
		return 0, false
	}
	return offset, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]any{{"message": message}},
	})
}
