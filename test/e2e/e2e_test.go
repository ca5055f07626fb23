//go:build e2e

// Package e2e drives the matching engine against a real postgres. Run with
//
//	E2E_POSTGRES_HOST=localhost go test -tags e2e ./test/e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"investor-matching/internal/common/config"
	"investor-matching/internal/common/database"
	apperrors "investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/observability"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/directory"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/matching/thesis"
	"investor-matching/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *database.PostgresClient {
	t.Helper()
	host := os.Getenv("E2E_POSTGRES_HOST")
	if host == "" {
		t.Skip("E2E_POSTGRES_HOST not set")
	}

	cfg := config.PostgresConfig{
		Host:           host,
		Port:           5432,
		Database:       envOr("E2E_POSTGRES_DB", "matching"),
		User:           envOr("E2E_POSTGRES_USER", "postgres"),
		Password:       os.Getenv("E2E_POSTGRES_PASSWORD"),
		MaxConnections: 10,
		MaxIdle:        2,
		SSLMode:        "disable",
	}
	pg, err := database.NewPostgres(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, pg.Ping(ctx), "postgres unreachable")

	_, err = database.Migrate(ctx, pg.DB)
	require.NoError(t, err)
	return pg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newEngine(t *testing.T, pg *database.PostgresClient) *engine.Engine {
	log := logger.NewTestLogger(t)
	policy := retry.DefaultPolicy()
	tx := database.NewTransactor(pg.DB)

	dir := directory.New(directory.NewPostgresRepository(pg.DB), policy, log)
	matches := match.NewService(match.NewPostgresRepository(pg.DB), dir, match.DefaultPagination(), policy, log)
	return engine.New(engine.Dependencies{
		Theses:       thesis.NewStore(thesis.NewPostgresRepository(pg.DB), tx, policy, log),
		Matches:      matches,
		Interactions: interaction.NewService(interaction.NewPostgresRepository(pg.DB), matches, tx, policy, log),
		Startups:     dir,
		Scorer:       scoring.NewScorer(scoring.DefaultConfig()),
		Observer:     observability.NewNoop(),
		Logger:       log,
	}, engine.BatchConfig{Concurrency: 4, PageSize: 2})
}

// seedStartups inserts startups under a run-unique id prefix and industry suffix so startups left by
// earlier runs never match this run's preferred industry.
func seedStartups(t *testing.T, pg *database.PostgresClient, run, founder string) []string {
	t.Helper()
	rows := []struct {
		suffix, industry, stage string
		ask                     int64
		tags                    []string
	}{
		{"ai", "AI/ML", "seed", 500_000, nil},
		{"ai2", "AI/ML", "seed", 3_000_000, nil},
		{"bio", "Biotech", "seed", 500_000, nil},
		{"bet", "AI/ML", "seed", 500_000, []string{"gambling"}},
	}
	var ids []string
	for _, r := range rows {
		id := "e2e-" + run + "-" + r.suffix
		_, err := pg.DB.ExecContext(context.Background(), `
			INSERT INTO startups (id, founder_id, founder_email, name, industry, stage, funding_ask, tags)
			VALUES ($1, $2, '', $3, $4, $5, $6, $7)`,
			id, founder, "Startup "+r.suffix, r.industry+"-"+run, r.stage, r.ask, pq.Array(append([]string{}, r.tags...)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestMatchingFlow(t *testing.T) {
	pg := openDB(t)
	e := newEngine(t, pg)
	ctx := context.Background()

	run := uuid.NewString()[:8]
	inv := models.Identity{UserID: "e2e-inv-" + run, Role: models.RoleInvestor}
	fnd := models.Identity{UserID: "e2e-fnd-" + run, Role: models.RoleFounder}
	ids := seedStartups(t, pg, run, fnd.UserID)

	_, err := e.UpsertThesis(ctx, inv, models.ThesisInput{
		MinFundingAsk:       100_000,
		MaxFundingAsk:       2_000_000,
		PreferredIndustries: []string{"ai/ml-" + run},
		PreferredStages:     []string{"seed"},
		NoLocationPref:      true,
		ExcludeKeywords:     []string{"gambling"},
	})
	require.NoError(t, err)

	res, err := e.ComputeMatch(ctx, inv, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, res.Match.Status)
	matchID := res.Match.ID

	batch, err := e.RecomputeForInvestor(ctx, inv.UserID)
	require.NoError(t, err)
	assert.Subset(t, batch.Upserted, ids)
	assert.Contains(t, batch.Excluded, ids[3])
	assert.Empty(t, batch.Failed)

	page, err := e.ListMatches(ctx, inv, models.MatchFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, matchID, page.Items[0].ID, "same pair keeps its id across recompute")

	scores := map[string]float64{}
	for p := 1; ; p++ {
		page, err := e.ListMatches(ctx, inv, models.MatchFilter{Page: p, Limit: 100})
		require.NoError(t, err)
		for _, m := range page.Items {
			scores[m.StartupID] = m.OverallScore
		}
		if !page.HasMore {
			break
		}
	}
	assert.Greater(t, scores[ids[0]], scores[ids[2]])
	assert.Greater(t, scores[ids[2]], 0.0, "off-industry startups are still scored")
	assert.Zero(t, scores[ids[3]])

	rec, err := e.RecordInteraction(ctx, inv, matchID, models.InteractionView, nil)
	require.NoError(t, err)
	require.NotNil(t, rec.Match.ViewedAt)

	rec, err = e.RecordInteraction(ctx, inv, matchID, models.InteractionPass, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusNotInterested, rec.Match.Status)

	rec, err = e.RecordInteraction(ctx, inv, matchID, models.InteractionLike, nil)
	require.NoError(t, err)
	assert.False(t, rec.StatusChanged)
	assert.Equal(t, models.MatchStatusNotInterested, rec.Match.Status)

	history, err := e.ListInteractions(ctx, fnd, models.InteractionFilter{StartupID: ids[0]})
	require.NoError(t, err)
	assert.Len(t, history.Items, 3)
	assert.Equal(t, models.InteractionLike, history.Items[0].Type)

	other := models.Identity{UserID: fmt.Sprintf("e2e-other-%s", run), Role: models.RoleInvestor}
	_, err = e.UpdateMatchStatus(ctx, other, matchID, models.MatchStatusContacted)
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestConcurrentThesisReplace(t *testing.T) {
	pg := openDB(t)
	e := newEngine(t, pg)
	inv := models.Identity{UserID: "e2e-inv-" + uuid.NewString()[:8], Role: models.RoleInvestor}

	in := models.ThesisInput{MaxFundingAsk: 1_000_000, NoLocationPref: true}
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := e.UpsertThesis(context.Background(), inv, in)
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			assert.True(t, apperrors.IsConflict(err) || apperrors.IsDependency(err), err.Error())
		}
	}

	var active int
	require.NoError(t, pg.DB.QueryRow(
		`SELECT COUNT(*) FROM investor_theses WHERE investor_id = $1 AND is_active`, inv.UserID).Scan(&active))
	assert.Equal(t, 1, active)
}
