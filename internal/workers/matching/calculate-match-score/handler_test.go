package calculatematchscore

import (
	"context"
	"testing"

	"investor-matching/internal/common/config"
	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatcher struct {
	calledWith models.Identity
	err        error
}

func (f *fakeMatcher) ComputeMatch(_ context.Context, id models.Identity, startupID string) (*engine.ComputeResult, error) {
	f.calledWith = id
	if f.err != nil {
		return nil, f.err
	}
	breakdown := models.ScoreBreakdown{Industry: 1, Stage: 1, Funding: 1}
	return &engine.ComputeResult{
		Match: &models.StartupMatch{
			ID: "m-1", InvestorID: id.UserID, StartupID: startupID,
			OverallScore: 0.6, Breakdown: breakdown, Status: models.MatchStatusPending,
		},
		Result: scoring.Result{StartupID: startupID, Overall: 0.6, Breakdown: breakdown},
	}, nil
}

func job(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Variables: vars, Retries: 3}}
}

func TestParseInput(t *testing.T) {
	in, err := parseInput(job(`{"investorId": "inv-1", "startupId": "st-1", "other": true}`))
	require.NoError(t, err)
	assert.Equal(t, &Input{InvestorID: "inv-1", StartupID: "st-1"}, in)

	_, err = parseInput(job(`{"investorId": "inv-1"}`))
	require.Error(t, err)
	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindValidation, stdErr.Kind)
	assert.Equal(t, "startupId", stdErr.Fields[0].Field)

	_, err = parseInput(job(`not json`))
	assert.True(t, errors.IsValidation(err))
}

func TestExecute(t *testing.T) {
	m := &fakeMatcher{}
	h := NewHandler(&Config{Enabled: true}, m, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{InvestorID: "inv-1", StartupID: "st-1"})
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "inv-1", Role: models.RoleInvestor}, m.calledWith)
	assert.Equal(t, "m-1", out.MatchID)
	assert.Equal(t, 0.6, out.OverallScore)
	assert.Equal(t, models.MatchStatusPending, out.Status)
	assert.False(t, out.Excluded)
}

func TestExecute_PropagatesTypedErrors(t *testing.T) {
	m := &fakeMatcher{err: errors.NewNotFoundError("startup", "st-404")}
	h := NewHandler(&Config{Enabled: true}, m, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{InvestorID: "inv-1", StartupID: "st-404"})
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.MaxJobsActive)
	assert.Equal(t, int64(30_000), cfg.Timeout.Milliseconds())

	cfg = LoadConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2},
	}})
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, int64(10_000), cfg.Timeout.Milliseconds())
}
