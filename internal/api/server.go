// Package api exposes the matching engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"investor-matching/internal/common/auth"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/thesis"
	"investor-matching/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Matching is the engine surface the handlers call.
type Matching interface {
	UpsertThesis(ctx context.Context, id models.Identity, in models.ThesisInput) (*thesis.UpsertResult, error)
	PatchThesis(ctx context.Context, id models.Identity, patch models.ThesisPatch) (*models.InvestorThesis, error)
	GetThesis(ctx context.Context, id models.Identity) (*models.InvestorThesis, error)
	DeactivateThesis(ctx context.Context, id models.Identity) (int, error)
	ComputeMatch(ctx context.Context, id models.Identity, startupID string) (*engine.ComputeResult, error)
	RecomputeForInvestor(ctx context.Context, investorID string) (*engine.BatchResult, error)
	UpdateMatchStatus(ctx context.Context, id models.Identity, matchID string, status models.MatchStatus) (*match.StatusChange, error)
	ListMatches(ctx context.Context, id models.Identity, f models.MatchFilter) (models.Page[*models.StartupMatch], error)
	RecordInteraction(ctx context.Context, id models.Identity, matchID string, typ models.InteractionType, notes *string) (*interaction.RecordResult, error)
	ListInteractions(ctx context.Context, id models.Identity, f models.InteractionFilter) (models.Page[*models.MatchInteraction], error)
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Server struct {
	matching Matching
	auth     auth.Authenticator
	checks   map[string]Check
	logger   logger.Logger
}

func NewServer(m Matching, a auth.Authenticator, checks map[string]Check, log logger.Logger) *Server {
	return &Server{
		matching: m,
		auth:     a,
		checks:   checks,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("PUT /v1/thesis", s.authenticated(s.handlePutThesis))
	mux.HandleFunc("PATCH /v1/thesis", s.authenticated(s.handlePatchThesis))
	mux.HandleFunc("GET /v1/thesis", s.authenticated(s.handleGetThesis))
	mux.HandleFunc("DELETE /v1/thesis", s.authenticated(s.handleDeleteThesis))

	mux.HandleFunc("POST /v1/matches", s.authenticated(s.handleComputeMatch))
	mux.HandleFunc("POST /v1/matches/recompute", s.authenticated(s.handleRecompute))
	mux.HandleFunc("GET /v1/matches", s.authenticated(s.handleListMatches))
	mux.HandleFunc("PATCH /v1/matches/{id}", s.authenticated(s.handleUpdateMatchStatus))

	mux.HandleFunc("POST /v1/interactions", s.authenticated(s.handleRecordInteraction))
	mux.HandleFunc("GET /v1/interactions", s.authenticated(s.handleListInteractions))

	return s.instrument(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "unavailable"
			s.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			continue
		}
		results[name] = "ok"
	}
	s.writeJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": results})
}

// Shutdown gracefully stops srv within timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
