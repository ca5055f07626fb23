package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"investor-matching/internal/common/database"
	apperrors "investor-matching/internal/common/errors"
	"investor-matching/internal/matching/directory"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/thesis"
	"investor-matching/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ thesis.Repository      = (*ThesisRepository)(nil)
	_ match.Repository       = (*MatchRepository)(nil)
	_ interaction.Repository = (*InteractionRepository)(nil)
	_ directory.Store        = (*StartupRepository)(nil)
	_ database.Transactor    = (*DB)(nil)
)

func TestThesis_OneActivePerInvestor(t *testing.T) {
	db := New()
	repo := db.Theses()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &models.InvestorThesis{ID: "th-1", InvestorID: "inv-1", IsActive: true}))
	err := repo.Insert(ctx, &models.InvestorThesis{ID: "th-2", InvestorID: "inv-1", IsActive: true})
	assert.True(t, apperrors.IsConflict(err))

	n, err := repo.Deactivate(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetActive(ctx, "inv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithinTx_RollsBack(t *testing.T) {
	db := New()
	repo := db.Theses()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &models.InvestorThesis{ID: "th-1", InvestorID: "inv-1", IsActive: true}))

	boom := errors.New("boom")
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Deactivate(ctx, "inv-1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetActive(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "th-1", got.ID)
}

func TestMatches_UpsertKeepsStatus(t *testing.T) {
	db := New()
	repo := db.Matches()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := repo.Upsert(ctx, &models.StartupMatch{ID: "m-1", InvestorID: "inv-1", StartupID: "st-1", OverallScore: 0.4, UpdatedAt: now})
	require.NoError(t, err)

	ok, err := repo.CompareAndSetStatus(ctx, first.ID, models.MatchStatusPending, models.MatchStatusViewed, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSetStatus(ctx, first.ID, models.MatchStatusPending, models.MatchStatusInterested, now)
	require.NoError(t, err)
	assert.False(t, ok, "compare-and-set refuses a stale status")

	again, err := repo.Upsert(ctx, &models.StartupMatch{ID: "m-2", InvestorID: "inv-1", StartupID: "st-1", OverallScore: 0.8, UpdatedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "m-1", again.ID)
	assert.Equal(t, 0.8, again.OverallScore)
	assert.Equal(t, models.MatchStatusViewed, again.Status)
	require.NotNil(t, again.ViewedAt)
	assert.Equal(t, now, *again.ViewedAt)
}

func TestMatches_ListOrdering(t *testing.T) {
	db := New()
	repo := db.Matches()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, m := range []models.StartupMatch{
		{ID: "c", InvestorID: "inv-1", StartupID: "s3", OverallScore: 0.5, UpdatedAt: now},
		{ID: "a", InvestorID: "inv-1", StartupID: "s1", OverallScore: 0.5, UpdatedAt: now},
		{ID: "b", InvestorID: "inv-1", StartupID: "s2", OverallScore: 0.9, UpdatedAt: now},
		{ID: "d", InvestorID: "inv-2", StartupID: "s1", OverallScore: 1, UpdatedAt: now},
	} {
		m := m
		_, err := repo.Upsert(ctx, &m)
		require.NoError(t, err)
	}

	got, err := repo.List(ctx, models.MatchFilter{InvestorID: "inv-1"}, 10, 0)
	require.NoError(t, err)
	var ids []string
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	page, err := repo.List(ctx, models.MatchFilter{InvestorID: "inv-1"}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = repo.List(ctx, models.MatchFilter{InvestorID: "inv-1"}, 2, -100)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStartups_Candidates(t *testing.T) {
	db := New()
	repo := db.Startups()
	repo.Put(models.Startup{ID: "s2", FounderID: "f1", Industry: "Fintech", Stage: "seed"})
	repo.Put(models.Startup{ID: "s1", FounderID: "f1", Industry: "AI/ML", Stage: "Seed"})
	repo.Put(models.Startup{ID: "s3", FounderID: "f2", Industry: "ai/ml", Stage: "series_a"})

	got, err := repo.List(context.Background(), models.CandidateFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)

	got, err = repo.List(context.Background(), models.CandidateFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s3", got[0].ID)

	owns, err := repo.FounderOwns(context.Background(), "f2", "s3")
	require.NoError(t, err)
	assert.True(t, owns)

	owns, _ = repo.FounderOwns(context.Background(), "f1", "s3")
	assert.False(t, owns)
}
