package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"investor-matching/internal/common/config"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
app:
  name: matching-test
auth:
  static_tokens:
    inv-token: "investor:inv-1"
matching:
  batch:
    concurrency: 2
    page_size: 5
`

const testSeed = `[
  {"id": "st-1", "founderId": "fnd-1", "name": "Agentic", "industry": "AI/ML", "stage": "seed", "fundingAsk": 500000},
  {"id": "st-2", "founderId": "fnd-2", "name": "CellWorks", "industry": "Biotech", "stage": "seed", "fundingAsk": 500000}
]`

func TestBuildApp_InMemory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	seedPath := filepath.Join(dir, "startups.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o600))
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))

	var err error
	cfg, err = config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { cfg = nil })

	ctx := context.Background()
	a, err := buildApp(ctx, logger.NewTestLogger(t), options{inMemory: true, seedFile: seedPath})
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.checks)

	id, err := a.auth.Authenticate(ctx, "inv-token")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "inv-1", Role: models.RoleInvestor}, id)

	_, err = a.engine.UpsertThesis(ctx, id, models.ThesisInput{
		MaxFundingAsk:       1_000_000,
		PreferredIndustries: []string{"AI/ML", "Biotech"},
		NoLocationPref:      true,
	})
	require.NoError(t, err)

	res, err := a.engine.RecomputeForInvestor(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []string{"st-1", "st-2"}, res.Upserted)
}

func TestBuildApp_PostgresRequiresHost(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	_, err := buildApp(context.Background(), logger.NewNoOpLogger(), options{})
	assert.ErrorContains(t, err, "--in-memory")
}
