package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"investor-matching/internal/common/auth"
	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/observability"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/directory"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/memstore"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/matching/thesis"
	"investor-matching/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, checks map[string]Check) *httptest.Server {
	t.Helper()
	db := memstore.New()
	log := logger.NewTestLogger(t)
	policy := retry.Policy{MaxTries: 1}

	db.Startups().Put(models.Startup{ID: "st-ai", FounderID: "fnd-1", Name: "Agentic", Industry: "AI/ML", Stage: "seed", FundingAsk: 500_000})
	db.Startups().Put(models.Startup{ID: "st-bio", FounderID: "fnd-2", Name: "CellWorks", Industry: "Biotech", Stage: "seed", FundingAsk: 500_000})

	dir := directory.New(db.Startups(), policy, log)
	matches := match.NewService(db.Matches(), dir, match.DefaultPagination(), policy, log)
	e := engine.New(engine.Dependencies{
		Theses:       thesis.NewStore(db.Theses(), db, policy, log),
		Matches:      matches,
		Interactions: interaction.NewService(db.Interactions(), matches, db, policy, log),
		Startups:     dir,
		Scorer:       scoring.NewScorer(scoring.DefaultConfig()),
		Observer:     observability.NewNoop(),
		Logger:       log,
	}, engine.BatchConfig{Concurrency: 2, PageSize: 10})

	authn := auth.NewStaticAuthenticator(map[string]string{
		"inv-token":  "investor:inv-1",
		"inv2-token": "investor:inv-2",
		"fnd-token":  "founder:fnd-1",
		"fnd2-token": "founder:fnd-2",
	})

	srv := httptest.NewServer(NewServer(e, authn, checks, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

type response struct {
	status int
	body   map[string]interface{}
}

func call(t *testing.T, srv *httptest.Server, method, path, token, body string) response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, body: map[string]interface{}{}}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.body))
	}
	return out
}

func errorCode(r response) string {
	e, _ := r.body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

const thesisBody = `{
	"minFundingAsk": 100000,
	"maxFundingAsk": 2000000,
	"preferredIndustries": ["AI/ML"],
	"preferredStages": ["seed"],
	"noLocationPref": true,
	"weights": {"industry": 0.25, "stage": 0.2, "funding": 0.15, "location": 0.1, "traction": 0.2, "team": 0.1}
}`

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return fmt.Errorf("connection refused") },
	})

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health", "", "").status)

	ready := call(t, srv, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.status)
	assert.Equal(t, false, ready.body["ready"])
	assert.Equal(t, map[string]interface{}{"postgres": "ok", "redis": "unavailable"}, ready.body["checks"])
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t, nil)

	r := call(t, srv, http.MethodGet, "/v1/thesis", "", "")
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(r))

	r = call(t, srv, http.MethodGet, "/v1/thesis", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = call(t, srv, http.MethodPut, "/v1/thesis", "fnd-token", thesisBody)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Equal(t, "FORBIDDEN", errorCode(r))
}

func TestThesisEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	r := call(t, srv, http.MethodGet, "/v1/thesis", "inv-token", "")
	assert.Equal(t, http.StatusNotFound, r.status)

	r = call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", thesisBody)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, float64(0), r.body["deactivated"])

	r = call(t, srv, http.MethodPatch, "/v1/thesis", "inv-token", `{"maxFundingAsk": 3000000}`)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, float64(3_000_000), r.body["maxFundingAsk"])

	r = call(t, srv, http.MethodGet, "/v1/thesis", "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, true, r.body["isActive"])

	r = call(t, srv, http.MethodDelete, "/v1/thesis", "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, float64(1), r.body["deactivated"])

	r = call(t, srv, http.MethodDelete, "/v1/thesis", "inv-token", "")
	assert.Equal(t, float64(0), r.body["deactivated"])
}

func TestThesisValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	r := call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", `{"maxFundingAsk": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(r))

	r = call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", `{"maxFundingAsk": 100, "minFundingAsk": 500, "noLocationPref": true}`)
	require.Equal(t, http.StatusBadRequest, r.status)
	fields := r.body["error"].(map[string]interface{})["fields"].([]interface{})
	require.NotEmpty(t, fields)
	assert.Equal(t, "minFundingAsk", fields[0].(map[string]interface{})["field"])

	r = call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", `{"maxFundingAsk": 1, "unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = call(t, srv, http.MethodPatch, "/v1/thesis", "inv-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestDecode_BodyLimit(t *testing.T) {
	big := `{"maxFundingAsk": 1, "keywords": ["` + strings.Repeat("x", maxBodyBytes) + `"]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/thesis", strings.NewReader(big))

	var in models.ThesisInput
	err := decode(httptest.NewRecorder(), req, putThesisSchema, &in)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	req = httptest.NewRequest(http.MethodPut, "/v1/thesis", strings.NewReader(`{"maxFundingAsk": 10}`))
	require.NoError(t, decode(httptest.NewRecorder(), req, putThesisSchema, &in))
	assert.Equal(t, int64(10), in.MaxFundingAsk)
}

func TestMatchFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", thesisBody).status)

	r := call(t, srv, http.MethodPost, "/v1/matches", "inv-token", `{"startupId": "st-ai"}`)
	require.Equal(t, http.StatusOK, r.status)
	m := r.body["match"].(map[string]interface{})
	matchID := m["id"].(string)
	assert.Equal(t, 0.6, m["overallScore"])
	assert.Equal(t, "pending", m["status"])

	r = call(t, srv, http.MethodPost, "/v1/matches", "inv-token", `{"startupId": "st-missing"}`)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = call(t, srv, http.MethodPatch, "/v1/matches/"+matchID, "inv-token", `{"status": "viewed"}`)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, true, r.body["changed"])
	assert.Equal(t, "pending", r.body["previousStatus"])

	r = call(t, srv, http.MethodPatch, "/v1/matches/"+matchID, "inv2-token", `{"status": "interested"}`)
	assert.Equal(t, http.StatusForbidden, r.status)

	r = call(t, srv, http.MethodPatch, "/v1/matches/"+matchID, "inv-token", `{"status": "pending"}`)
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = call(t, srv, http.MethodPost, "/v1/interactions", "inv-token",
		fmt.Sprintf(`{"matchId": %q, "type": "like"}`, matchID))
	require.Equal(t, http.StatusCreated, r.status)
	assert.Equal(t, true, r.body["statusChanged"])
	assert.Equal(t, "interested", r.body["match"].(map[string]interface{})["status"])

	r = call(t, srv, http.MethodPost, "/v1/interactions", "inv-token",
		fmt.Sprintf(`{"matchId": %q, "type": "note", "notes": "call next week"}`, matchID))
	require.Equal(t, http.StatusCreated, r.status)

	r = call(t, srv, http.MethodGet, "/v1/interactions?match="+matchID, "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Len(t, r.body["items"], 2)

	r = call(t, srv, http.MethodGet, "/v1/interactions?startup=st-ai", "fnd-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Len(t, r.body["items"], 2)

	r = call(t, srv, http.MethodGet, "/v1/interactions?startup=st-ai", "fnd2-token", "")
	assert.Equal(t, http.StatusForbidden, r.status)
}

func TestListMatches(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, "/v1/thesis", "inv-token", thesisBody).status)

	r := call(t, srv, http.MethodPost, "/v1/matches/recompute", "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, float64(1), r.body["processed"])

	r = call(t, srv, http.MethodPost, "/v1/matches", "inv-token", `{"startupId": "st-bio"}`)
	require.Equal(t, http.StatusOK, r.status)

	r = call(t, srv, http.MethodGet, "/v1/matches?limit=1", "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	items := r.body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "st-ai", items[0].(map[string]interface{})["startupId"])
	assert.Equal(t, true, r.body["hasMore"])

	r = call(t, srv, http.MethodGet, "/v1/matches?page=2&limit=1", "inv-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, false, r.body["hasMore"])

	r = call(t, srv, http.MethodGet, "/v1/matches?investor=inv-2", "inv-token", "")
	assert.Equal(t, http.StatusForbidden, r.status)

	r = call(t, srv, http.MethodGet, "/v1/matches?page=abc", "inv-token", "")
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = call(t, srv, http.MethodGet, "/v1/matches?startup=st-ai", "fnd-token", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Len(t, r.body["items"], 1)

	r = call(t, srv, http.MethodGet, "/v1/matches", "fnd-token", "")
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = call(t, srv, http.MethodPost, "/v1/matches/recompute", "fnd-token", "")
	assert.Equal(t, http.StatusForbidden, r.status)
}
