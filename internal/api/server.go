// Package api implements the HTTP surface of the prediction service: a chi
// router with request-ID, logging, recovery, CORS and API-key middleware, and
// handlers for predictions, the weekly outlook, rider reports, and history.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"railwatch/internal/config"
	"railwatch/internal/db"
	"railwatch/internal/obs"
	"railwatch/internal/patterns"
	"railwatch/internal/types"
)

// WeatherSource supplies forecast snapshots for a route.
type WeatherSource interface {
	FetchHourly(ctx context.Context, routeID, targetDate, targetTime string) (*types.WeatherSnapshot, error)
	FetchDaily(ctx context.Context, routeID string) ([]types.WeatherSnapshot, error)
}

// OperatorSource supplies the operator's announced status for a route, nil
// when nothing abnormal is reported.
type OperatorSource interface {
	Fetch(ctx context.Context, routeID string, now time.Time) (*types.OfficialStatus, error)
}

// PredictionStore persists evaluations and serves their history.
type PredictionStore interface {
	Insert(ctx context.Context, res *types.PredictionResult) error
	ListRecent(ctx context.Context, routeID string, limit int) ([]db.PredictionLog, error)
	Latest(ctx context.Context, routeID, targetDate string) (*db.PredictionLog, error)
}

// CrowdStore records rider reports and aggregates them into a consensus.
type CrowdStore interface {
	Insert(ctx context.Context, routeID string, report types.ConsensusState, at time.Time) error
	Aggregate(ctx context.Context, routeID string, window time.Duration, now time.Time) (*types.CrowdsourcedStatus, error)
}

// AlertSink publishes a suspension alert when a prediction newly enters a
// stopped state.
type AlertSink interface {
	Dispatch(ctx context.Context, prevStatus types.OperationState, result *types.PredictionResult) error
}

// Predictor is the evaluation core.
type Predictor interface {
	Evaluate(input *types.PredictionInput, now time.Time) *types.PredictionResult
	EvaluateWeekly(routeID, routeName string, dailyWeather []types.WeatherSnapshot, official *types.OfficialStatus, crowd *types.CrowdsourcedStatus, hist *patterns.Pattern, now time.Time) []*types.PredictionResult
}

// Server wires the handlers to their collaborators. All fields are set at
// construction and never mutated.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	validate    *validator.Validate
	engine      Predictor
	weather     WeatherSource
	operator    OperatorSource
	predictions PredictionStore
	crowd       CrowdStore
	keys        KeyStore
	alerts      AlertSink
	metrics     obs.Metrics

	router *chi.Mux
}

// ServerDeps bundles the collaborators for NewServer.
type ServerDeps struct {
	Engine      Predictor
	Weather     WeatherSource
	Operator    OperatorSource
	Predictions PredictionStore
	Crowd       CrowdStore
	Keys        KeyStore
	Alerts      AlertSink
	Metrics     obs.Metrics
}

// NewServer builds the server and mounts all routes. It fails fast on missing
// critical collaborators.
func NewServer(cfg *config.Config, logger *slog.Logger, deps ServerDeps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if deps.Engine == nil || deps.Weather == nil {
		return nil, fmt.Errorf("engine and weather source must not be nil")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = obs.NopMetrics{}
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		validate:    validator.New(),
		engine:      deps.Engine,
		weather:     deps.Weather,
		operator:    deps.Operator,
		predictions: deps.Predictions,
		crowd:       deps.Crowd,
		keys:        deps.Keys,
		alerts:      deps.Alerts,
		metrics:     metrics,
		router:      chi.NewRouter(),
	}
	s.mountRoutes()
	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) mountRoutes() {
	r := s.router

	r.Use(s.Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(NewCORSMiddleware(s.cfg.Server.CorsAllowedOrigins))
	r.Use(RequestLogger(s.logger, []string{"X-API-Key", "Authorization", "Cookie"}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		if s.keys != nil {
			r.Use(s.APIKeyAuth)
		}

		r.Post("/predictions", s.handlePredict)
		r.Get("/routes", s.handleListRoutes)
		r.Get("/routes/{routeID}/weekly", s.handleWeekly)
		r.Get("/routes/{routeID}/history", s.handleHistory)
		r.Post("/routes/{routeID}/reports", s.handleReport)
	})
}
