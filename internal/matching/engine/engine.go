// Package engine is the matching API surface: thesis management, scoring, the match lifecycle and
// the interaction log, with the authorization rules applied per call.
package engine

import (
	"context"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/common/observability"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/notify"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/matching/thesis"
	"investor-matching/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// Startups is the read side of the startup directory.
type Startups interface {
	GetStartup(ctx context.Context, id string) (*models.Startup, error)
	Candidates(ctx context.Context, f models.CandidateFilter) ([]*models.Startup, error)
}

type BatchConfig struct {
	Concurrency int
	PageSize    int
}

type Dependencies struct {
	Theses       *thesis.Store
	Matches      *match.Service
	Interactions *interaction.Service
	Startups     Startups
	Scorer       *scoring.Scorer
	Notifier     *notify.Notifier
	Observer     *observability.Observability
	Logger       logger.Logger
}

type Engine struct {
	theses       *thesis.Store
	matches      *match.Service
	interactions *interaction.Service
	startups     Startups
	scorer       *scoring.Scorer
	notifier     *notify.Notifier
	obs          *observability.Observability
	batch        BatchConfig
	logger       logger.Logger
}

func New(deps Dependencies, batch BatchConfig) *Engine {
	if batch.Concurrency <= 0 {
		batch.Concurrency = 8
	}
	if batch.PageSize <= 0 {
		batch.PageSize = 200
	}
	return &Engine{
		theses:       deps.Theses,
		matches:      deps.Matches,
		interactions: deps.Interactions,
		startups:     deps.Startups,
		scorer:       deps.Scorer,
		notifier:     deps.Notifier,
		obs:          deps.Observer,
		batch:        batch,
		logger:       deps.Logger.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

func requireInvestor(id models.Identity) error {
	if !id.IsInvestor() {
		return errors.NewAuthorizationError("investor role required")
	}
	return nil
}

func (e *Engine) UpsertThesis(ctx context.Context, id models.Identity, in models.ThesisInput) (res *thesis.UpsertResult, err error) {
	ctx, end := e.obs.StartSpan(ctx, "thesis.upsert", attribute.String("investor.id", id.UserID))
	defer func() { end(err) }()

	if err = requireInvestor(id); err != nil {
		return nil, err
	}
	return e.theses.UpsertThesis(ctx, id.UserID, in)
}

func (e *Engine) PatchThesis(ctx context.Context, id models.Identity, patch models.ThesisPatch) (t *models.InvestorThesis, err error) {
	ctx, end := e.obs.StartSpan(ctx, "thesis.patch", attribute.String("investor.id", id.UserID))
	defer func() { end(err) }()

	if err = requireInvestor(id); err != nil {
		return nil, err
	}
	return e.theses.PatchThesis(ctx, id.UserID, patch)
}

// GetThesis returns nil, nil when the investor has no active thesis.
func (e *Engine) GetThesis(ctx context.Context, id models.Identity) (t *models.InvestorThesis, err error) {
	ctx, end := e.obs.StartSpan(ctx, "thesis.get", attribute.String("investor.id", id.UserID))
	defer func() { end(err) }()

	if err = requireInvestor(id); err != nil {
		return nil, err
	}
	return e.theses.GetActiveThesis(ctx, id.UserID)
}

func (e *Engine) DeactivateThesis(ctx context.Context, id models.Identity) (n int, err error) {
	ctx, end := e.obs.StartSpan(ctx, "thesis.deactivate", attribute.String("investor.id", id.UserID))
	defer func() { end(err) }()

	if err = requireInvestor(id); err != nil {
		return 0, err
	}
	return e.theses.DeactivateThesis(ctx, id.UserID)
}

// ComputeResult is a freshly scored and stored match.
type ComputeResult struct {
	Match  *models.StartupMatch `json:"match"`
	Result scoring.Result       `json:"result"`
}

// ComputeMatch scores one startup against the caller's active thesis and stores the match.
func (e *Engine) ComputeMatch(ctx context.Context, id models.Identity, startupID string) (res *ComputeResult, err error) {
	ctx, end := e.obs.StartSpan(ctx, "match.compute",
		attribute.String("investor.id", id.UserID), attribute.String("startup.id", startupID))
	defer func() { end(err) }()

	if err = requireInvestor(id); err != nil {
		return nil, err
	}
	return e.computeFor(ctx, id.UserID, startupID)
}

func (e *Engine) computeFor(ctx context.Context, investorID, startupID string) (*ComputeResult, error) {
	t, err := e.theses.GetActiveThesis(ctx, investorID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NewNotFoundError("thesis", "no active thesis to score against")
	}
	s, err := e.startups.GetStartup(ctx, startupID)
	if err != nil {
		return nil, err
	}

	r := e.score(t, s)
	m, err := e.matches.CreateOrUpdateMatch(ctx, investorID, r)
	if err != nil {
		return nil, err
	}
	return &ComputeResult{Match: m, Result: r}, nil
}

func (e *Engine) score(t *models.InvestorThesis, s *models.Startup) scoring.Result {
	r := e.scorer.Score(t, s)
	outcome := "scored"
	if r.Breakdown.Excluded {
		outcome = "excluded"
	}
	metrics.ScoresComputed.WithLabelValues(outcome).Inc()
	metrics.ScoreDistribution.Observe(r.Overall)
	return r
}

func (e *Engine) UpdateMatchStatus(ctx context.Context, id models.Identity, matchID string, status models.MatchStatus) (ch *match.StatusChange, err error) {
	ctx, end := e.obs.StartSpan(ctx, "match.update_status",
		attribute.String("match.id", matchID), attribute.String("status", string(status)))
	defer func() { end(err) }()

	ch, err = e.matches.UpdateStatus(ctx, id, matchID, status)
	if err != nil {
		return nil, err
	}
	if ch.Changed {
		e.notifyChange(ctx, ch.Match, ch.Previous)
	}
	return ch, nil
}

func (e *Engine) ListMatches(ctx context.Context, id models.Identity, f models.MatchFilter) (page models.Page[*models.StartupMatch], err error) {
	ctx, end := e.obs.StartSpan(ctx, "match.list")
	defer func() { end(err) }()

	return e.matches.ListMatches(ctx, id, f)
}

func (e *Engine) RecordInteraction(ctx context.Context, id models.Identity, matchID string, typ models.InteractionType, notes *string) (res *interaction.RecordResult, err error) {
	ctx, end := e.obs.StartSpan(ctx, "interaction.record",
		attribute.String("match.id", matchID), attribute.String("type", string(typ)))
	defer func() { end(err) }()

	res, err = e.interactions.RecordInteraction(ctx, id, matchID, typ, notes)
	if err != nil {
		return nil, err
	}
	if res.StatusChanged {
		e.notifyChange(ctx, res.Match, res.PreviousStatus)
	}
	return res, nil
}

func (e *Engine) ListInteractions(ctx context.Context, id models.Identity, f models.InteractionFilter) (page models.Page[*models.MatchInteraction], err error) {
	ctx, end := e.obs.StartSpan(ctx, "interaction.list")
	defer func() { end(err) }()

	return e.interactions.ListInteractions(ctx, id, f)
}

// notifyChange runs after the change is committed; nothing it does can fail the request.
func (e *Engine) notifyChange(ctx context.Context, m *models.StartupMatch, previous models.MatchStatus) {
	if e.notifier == nil {
		return
	}
	s, err := e.startups.GetStartup(ctx, m.StartupID)
	if err != nil {
		e.logger.Warn("startup lookup for notification failed", map[string]interface{}{
			"startupId": m.StartupID,
			"error":     err.Error(),
		})
	}
	e.notifier.StatusChanged(ctx, m, previous, s)
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
