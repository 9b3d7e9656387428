package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/services/publisher"
	"sjsage522/euromillionsworker/services/worker"
)

const (
	// IndexMessage is served on GET /
	IndexMessage = "Euromillions Bot API is running"

	gridListLimit    = 20
	defaultDrawLimit = 20
	maxDrawLimit     = 500
)

// Syncer runs the fetch-and-persist job
type Syncer interface {
	SyncHistory(ctx context.Context) (worker.SyncReport, error)
}

// GridGenerator produces grids for the next draw
type GridGenerator interface {
	Generate(ctx context.Context, now time.Time) ([]models.Grid, error)
}

// Store is the storage used by the handlers
type Store interface {
	ListDraws(ctx context.Context, limit int) ([]models.Draw, error)
	SaveGrid(ctx context.Context, grid models.Grid) (models.Grid, error)
	ListGrids(ctx context.Context, limit int) ([]models.Grid, error)
}

// Server exposes the HTTP API
type Server struct {
	syncer    Syncer
	generator GridGenerator
	store     Store
	publisher publisher.Publisher
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new API server. pub may be nil.
func New(syncer Syncer, generator GridGenerator, store Store, pub publisher.Publisher) *Server {
	if pub == nil {
		pub = publisher.NoopPublisher{}
	}
	return &Server{
		syncer:    syncer,
		generator: generator,
		store:     store,
		publisher: pub,
		log:       logger.ForAPI(),
		now:       time.Now,
	}
}

// Routes returns the router with middleware applied
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/history", s.handleHistory)
	r.Get("/generate", s.handleGenerate)
	r.Get("/grids", s.handleListGrids)
	r.Get("/draws", s.handleListDraws)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(IndexMessage))
}

type historyResponse struct {
	Message string `json:"message"`
	worker.SyncReport
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	report, err := s.syncer.SyncHistory(r.Context())
	if err != nil {
		s.log.WithContext(r.Context()).Error().Err(err).Msg("History sync failed")
		writeError(w, http.StatusInternalServerError, fmt.Errorf("error fetching history: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Message:    fmt.Sprintf("History fetched. Processed %d draws.", report.Processed),
		SyncReport: report,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithContext(r.Context())
	grids, err := s.generator.Generate(r.Context(), s.now())
	if err != nil {
		log.Error().Err(err).Msg("Error generating grids")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// a grid that fails to save is still returned
	for i, grid := range grids {
		saved, err := s.store.SaveGrid(r.Context(), grid)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to save grid")
			continue
		}
		grids[i] = saved

		data, err := json.Marshal(saved)
		if err != nil {
			continue
		}
		if err := s.publisher.Publish(publisher.KeyGrid, data); err != nil {
			log.Warn().Err(err).Int64("grid_id", saved.ID).Msg("Failed to publish grid")
		}
	}

	writeJSON(w, http.StatusOK, grids)
}

func (s *Server) handleListGrids(w http.ResponseWriter, r *http.Request) {
	grids, err := s.store.ListGrids(r.Context(), gridListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("error listing grids: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(grids))
}

func (s *Server) handleListDraws(w http.ResponseWriter, r *http.Request) {
	limit := defaultDrawLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxDrawLimit)
	}

	draws, err := s.store.ListDraws(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("error listing draws: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(draws))
}

// requestLogger logs one line per request and hands handlers a logger
// tagged with the chi request id
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logger.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		r = r.WithContext(log.Into(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
