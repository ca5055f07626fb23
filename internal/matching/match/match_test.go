package match

import (
	"context"
	"math"
	"testing"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	investor = models.Identity{UserID: "inv-1", Role: models.RoleInvestor}
	founder  = models.Identity{UserID: "fnd-1", Role: models.RoleFounder}
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type owners map[string]string

func (o owners) FounderOwns(_ context.Context, founderID, startupID string) (bool, error) {
	return o[startupID] == founderID, nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewService(NewPostgresRepository(db), owners{"st-1": "fnd-1"}, DefaultPagination(), retry.Policy{MaxTries: 1}, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func matchRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "investor_id", "startup_id", "overall_score", "breakdown", "status", "viewed_at", "created_at", "updated_at",
	})
}

func addMatch(rows *sqlmock.Rows, id, investorID string, status models.MatchStatus) *sqlmock.Rows {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(id, investorID, "st-1", 0.6, []byte(`{"industry":1,"stage":1,"funding":1}`), string(status), nil, created, created)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to models.MatchStatus
		changed  bool
		wantErr  bool
	}{
		{models.MatchStatusPending, models.MatchStatusViewed, true, false},
		{models.MatchStatusPending, models.MatchStatusContacted, true, false},
		{models.MatchStatusViewed, models.MatchStatusInterested, true, false},
		{models.MatchStatusInterested, models.MatchStatusContacted, true, false},
		{models.MatchStatusViewed, models.MatchStatusViewed, false, false},
		{models.MatchStatusContacted, models.MatchStatusContacted, false, false},
		{models.MatchStatusInterested, models.MatchStatusViewed, false, true},
		{models.MatchStatusInterested, models.MatchStatusNotInterested, false, true},
		{models.MatchStatusNotInterested, models.MatchStatusInterested, false, true},
		{models.MatchStatusContacted, models.MatchStatusNotInterested, false, true},
		{models.MatchStatusViewed, models.MatchStatusPending, false, true},
		{models.MatchStatusPending, "archived", false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			_, changed, err := Transition(tt.from, tt.to)
			assert.Equal(t, tt.changed, changed)
			if tt.wantErr {
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestForInteraction(t *testing.T) {
	s, ok := ForInteraction(models.InteractionLike)
	assert.True(t, ok)
	assert.Equal(t, models.MatchStatusInterested, s)

	_, ok = ForInteraction(models.InteractionSave)
	assert.False(t, ok)
	_, ok = ForInteraction(models.InteractionNote)
	assert.False(t, ok)
}

func TestPagination(t *testing.T) {
	p := DefaultPagination()

	page, limit := p.Clamp(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = p.Clamp(3, 500)
	assert.Equal(t, 100, limit)

	fetch, offset := Window(3, 10)
	assert.Equal(t, 11, fetch)
	assert.Equal(t, 20, offset)

	page, limit = p.Clamp(math.MaxInt, 100)
	assert.Equal(t, 100, limit)
	_, offset = Window(page, limit)
	assert.GreaterOrEqual(t, offset, 0)
	assert.Greater(t, offset, math.MaxInt-2*limit)

	got := Build([]int{1, 2, 3}, 1, 2)
	assert.Equal(t, []int{1, 2}, got.Items)
	assert.True(t, got.HasMore)

	empty := Build[int](nil, 1, 2)
	assert.NotNil(t, empty.Items)
	assert.False(t, empty.HasMore)
}

func TestCreateOrUpdateMatch_UpsertsScoreOnly(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO startup_matches .+ ON CONFLICT \\(investor_id, startup_id\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), "inv-1", "st-1", 0.6, sqlmock.AnyArg(), models.MatchStatusPending, fixedNow).
		WillReturnRows(addMatch(matchRows(), "m-existing", "inv-1", models.MatchStatusInterested))

	m, err := s.CreateOrUpdateMatch(context.Background(), "inv-1", scoring.Result{
		StartupID: "st-1",
		Overall:   0.6,
		Breakdown: models.ScoreBreakdown{Industry: 1, Stage: 1, Funding: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "m-existing", m.ID)
	assert.Equal(t, models.MatchStatusInterested, m.Status, "re-scoring leaves the status alone")
	assert.Equal(t, 1.0, m.Breakdown.Industry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_ViewedStampsViewedAt(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches WHERE id = \\$1").
		WithArgs("m-1").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusPending))
	mock.ExpectExec("UPDATE startup_matches\\s+SET status = \\$3").
		WithArgs("m-1", models.MatchStatusPending, models.MatchStatusViewed, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ch, err := s.UpdateStatus(context.Background(), investor, "m-1", models.MatchStatusViewed)
	require.NoError(t, err)
	assert.True(t, ch.Changed)
	assert.Equal(t, models.MatchStatusPending, ch.Previous)
	require.NotNil(t, ch.Match.ViewedAt)
	assert.Equal(t, fixedNow, *ch.Match.ViewedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_PassThenLikeIsRejected(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-1").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusNotInterested))

	_, err := s.UpdateStatus(context.Background(), investor, "m-1", models.MatchStatusInterested)
	assert.True(t, errors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusContacted))

	ch, err := s.UpdateStatus(context.Background(), investor, "m-1", models.MatchStatusContacted)
	require.NoError(t, err)
	assert.False(t, ch.Changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_HidesForeignAndMissingMatches(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-other").
		WillReturnRows(addMatch(matchRows(), "m-other", "inv-2", models.MatchStatusPending))
	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-missing").
		WillReturnRows(matchRows())

	_, err := s.UpdateStatus(context.Background(), investor, "m-other", models.MatchStatusViewed)
	assert.True(t, errors.IsAuthorization(err))

	_, err = s.UpdateStatus(context.Background(), investor, "m-missing", models.MatchStatusViewed)
	assert.True(t, errors.IsAuthorization(err))

	_, err = s.UpdateStatus(context.Background(), founder, "m-1", models.MatchStatusViewed)
	assert.True(t, errors.IsAuthorization(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_RejectsPendingTarget(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.UpdateStatus(context.Background(), investor, "m-1", models.MatchStatusPending)
	assert.True(t, errors.IsValidation(err))
}

func TestApplyStatus_RedecidesAfterLostRace(t *testing.T) {
	s, mock := newTestService(t)

	// another request moved the match to interested between our read and our write
	mock.ExpectExec("UPDATE startup_matches").
		WithArgs("m-1", models.MatchStatusViewed, models.MatchStatusContacted, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-1").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusInterested))
	mock.ExpectExec("UPDATE startup_matches").
		WithArgs("m-1", models.MatchStatusInterested, models.MatchStatusContacted, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ch, err := s.ApplyStatus(context.Background(), &models.StartupMatch{ID: "m-1", InvestorID: "inv-1", Status: models.MatchStatusViewed}, models.MatchStatusContacted)
	require.NoError(t, err)
	assert.True(t, ch.Changed)
	assert.Equal(t, models.MatchStatusInterested, ch.Previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMatches_Investor(t *testing.T) {
	s, mock := newTestService(t)

	rows := matchRows()
	addMatch(rows, "m-1", "inv-1", models.MatchStatusPending)
	addMatch(rows, "m-2", "inv-1", models.MatchStatusViewed)
	addMatch(rows, "m-3", "inv-1", models.MatchStatusViewed)
	mock.ExpectQuery("SELECT .+ FROM startup_matches WHERE investor_id = \\$1\\s+ORDER BY overall_score DESC, updated_at DESC, id ASC\\s+LIMIT \\$2 OFFSET \\$3").
		WithArgs("inv-1", 3, 2).
		WillReturnRows(rows)

	page, err := s.ListMatches(context.Background(), investor, models.MatchFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMatches_HugePageIsEmpty(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches WHERE investor_id = \\$1").
		WithArgs("inv-1", 101, sqlmock.AnyArg()).
		WillReturnRows(matchRows())

	page, err := s.ListMatches(context.Background(), investor, models.MatchFilter{Page: 1e17, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMatches_InvestorCannotReadOthers(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.ListMatches(context.Background(), investor, models.MatchFilter{InvestorID: "inv-2"})
	assert.True(t, errors.IsAuthorization(err))
}

func TestListMatches_Founder(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches WHERE startup_id = \\$1").
		WithArgs("st-1", 21, 0).
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusPending))

	page, err := s.ListMatches(context.Background(), founder, models.MatchFilter{StartupID: "st-1"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	_, err = s.ListMatches(context.Background(), founder, models.MatchFilter{StartupID: "st-2"})
	assert.True(t, errors.IsAuthorization(err))

	_, err = s.ListMatches(context.Background(), founder, models.MatchFilter{})
	assert.True(t, errors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForFounder(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-1").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusPending))
	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-gone").
		WillReturnRows(matchRows())
	mock.ExpectQuery("SELECT .+ FROM startup_matches").
		WithArgs("m-1").
		WillReturnRows(addMatch(matchRows(), "m-1", "inv-1", models.MatchStatusPending))

	m, err := s.GetForFounder(context.Background(), founder, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "st-1", m.StartupID)

	_, err = s.GetForFounder(context.Background(), founder, "m-gone")
	assert.True(t, errors.IsAuthorization(err))

	_, err = s.GetForFounder(context.Background(), models.Identity{UserID: "fnd-2", Role: models.RoleFounder}, "m-1")
	assert.True(t, errors.IsAuthorization(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
