// internal/server/server.go
//
// Package server exposes discovery, scoring and outreach over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/valpere/LeadScout/internal/monitoring"
	"github.com/valpere/LeadScout/internal/scoring"
	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// Discoverer runs one discovery under a caller chosen run id
type Discoverer interface {
	RunWithID(ctx context.Context, runID string, req types.DiscoveryRequest) types.DiscoveryResult
}

// LeadRepository is the part of the lead store the API uses
type LeadRepository interface {
	SaveLeads(ctx context.Context, leads []types.Lead) ([]types.Lead, error)
	ListLeads(ctx context.Context, limit int) ([]types.Lead, error)
	GetLeads(ctx context.Context, ids []int64) ([]types.Lead, error)
	HasPersona(ctx context.Context, leadID int64) (bool, error)
	SavePersona(ctx context.Context, result types.PersonaResult) (bool, error)
	OutreachContents(ctx context.Context, leadID int64) (map[string]string, error)
	MarkSent(ctx context.Context, leadID int64, channel string, at time.Time) error
}

// Config holds the HTTP settings of the API
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxResults caps and defaults the batch size of a discovery request
	MaxResults   int
	ScoreWorkers int
	MetricsPath  string
	APIKey       string
}

// Deps are the collaborators behind the routes. Nil members disable their
// routes with 503.
type Deps struct {
	Discoverer Discoverer
	Scorer     scoring.Scorer
	Personas   scoring.PersonaGenerator
	Leads      LeadRepository
	Metrics    http.Handler
	Health     *monitoring.HealthManager
	Runs       *monitoring.RunTracker
}

// Server is the LeadScout HTTP API
type Server struct {
	config Config
	deps   Deps
	logger utils.Logger
	newID  func() string

	// background discovery runs
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a server
func New(config Config, deps Deps) *Server {
	if config.MaxResults <= 0 {
		config.MaxResults = 50
	}
	if config.ScoreWorkers <= 0 {
		config.ScoreWorkers = 1
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 15 * time.Second
	}
	if deps.Runs == nil {
		deps.Runs = monitoring.NewRunTracker(monitoring.RunTrackerConfig{})
	}
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthManager("", 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:  config,
		deps:    deps,
		logger:  utils.NewComponentLogger("server"),
		newID:   uuid.NewString,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Handler returns the routed and wrapped handler
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.deps.Health.HealthHandler()).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		r.Handle(s.config.MetricsPath, s.deps.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/discover", s.handleDiscover).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/score", s.handleScore).Methods(http.MethodPost)
	api.HandleFunc("/leads", s.handleListLeads).Methods(http.MethodGet)
	api.HandleFunc("/leads/personas", s.handlePersonas).Methods(http.MethodPost)
	api.HandleFunc("/leads/{id:[0-9]+}/outreach", s.handleOutreach).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id:[0-9]+}/outreach/{channel}/sent", s.handleMarkSent).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, utils.ErrCodeNotFound, "no such route")
	})

	return s.recoverMiddleware(s.loggingMiddleware(r))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits for background runs
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels background runs and waits for them
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
