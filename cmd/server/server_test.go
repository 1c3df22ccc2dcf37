package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybbu/NexJen-Bio/internal/analytics"
	"github.com/ybbu/NexJen-Bio/internal/config"
	"github.com/ybbu/NexJen-Bio/internal/insights"
	"github.com/ybbu/NexJen-Bio/internal/network"
	"github.com/ybbu/NexJen-Bio/internal/normalize"
	"github.com/ybbu/NexJen-Bio/internal/scoring"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return testRouterWithScores(t, "does-not-exist.json")
}

func testRouterWithScores(t *testing.T, scoresPath string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	records := []*trials.Record{
		{
			NCTID:           "NCT00000001",
			BriefTitle:      "Levodopa Extension Study",
			StudyType:       trials.StudyTypeInterventional,
			Phases:          "PHASE3",
			OverallStatus:   "COMPLETED",
			Conditions:      "Parkinson Disease",
			Interventions:   "DRUG: Levodopa",
			PrimaryOutcomes: "All-cause mortality at 24 months",
			Allocation:      "RANDOMIZED, PARALLEL",
			Masking:         "DOUBLE",
			LeadSponsor:     "Acme Pharma",
			Collaborators:   "Beta Research",
			Country:         "United States",
			EnrollmentCount: 350,
			StartDate:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			NCTID:           "NCT00000002",
			BriefTitle:      "DBS Registry",
			StudyType:       trials.StudyTypeInterventional,
			Phases:          "PHASE2",
			OverallStatus:   "RECRUITING",
			Conditions:      "Parkinson Disease",
			Interventions:   "DEVICE: Deep brain stimulation",
			LeadSponsor:     "Beta Research",
			Collaborators:   "Acme Pharma",
			Country:         "Germany",
			EnrollmentCount: 120,
			StartDate:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	store := trials.NewStore(records)

	normalizer, err := normalize.NewNormalizer()
	require.NoError(t, err)

	scores, err := trials.LoadScoreCache(scoresPath)
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)

	svc := &services{
		store:      store,
		scores:     scores,
		scorer:     scoring.NewScorer(store),
		builder:    network.NewBuilder(normalizer),
		analytics:  analytics.NewService(store, scores),
		classifier: insights.NewClassifier(),
	}

	return newRouter(cfg, svc)
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["trials"])
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "cache")
}

func TestTrialEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/trials/NCT00000001")
	require.Equal(t, http.StatusOK, w.Code)

	var rec trials.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Levodopa Extension Study", rec.BriefTitle)

	w = doGET(r, "/trials/NCT99999999")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doGET(r, "/trials/garbage")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScoreEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/scores/NCT00000001")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "NCT00000001", body["nct_id"])
	assert.Greater(t, body["base_score"].(float64), 3.0)
	assert.Contains(t, body, "components")
	assert.Contains(t, body, "interpretation")

	w = doGET(r, "/scores/NCT99999999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreEndpointServesCachedEntry(t *testing.T) {
	scoresPath := filepath.Join(t.TempDir(), "quality_scores.json")
	cached := `{
		"NCT00000001": {
			"base_score": 4.6,
			"total_score": 5.1,
			"components": {"phase": 1.2},
			"bonuses": {"publications": 0.5},
			"penalties": {},
			"timestamp": "2026-08-01T00:00:00Z"
		}
	}`
	require.NoError(t, os.WriteFile(scoresPath, []byte(cached), 0o644))

	r := testRouterWithScores(t, scoresPath)

	w := doGET(r, "/scores/NCT00000001")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, true, body["cached"])
	assert.Equal(t, 5.1, body["total_score"])
	assert.Equal(t, "EXCELLENT", body["interpretation"])
	assert.Equal(t, 0.5, body["total_bonuses"])
	assert.Equal(t, "2026-08-01T00:00:00Z", body["scored_at"])

	// Trials absent from the persisted map still get scored live.
	w = doGET(r, "/scores/NCT00000002")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "cached")
}

func TestNetworkGraphEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/network/graph?mode=established_network")
	require.Equal(t, http.StatusOK, w.Code)

	var graph network.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 2)

	w = doGET(r, "/network/graph?top_k=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSponsorEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/network/sponsor/Acme%20Pharma")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["total_trials"])

	w = doGET(r, "/network/sponsor/Nobody%20Known")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsSummaryEndpoint(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/analytics/summary?window=1y")
	require.Equal(t, http.StatusOK, w.Code)

	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Contains(t, summary.Metrics, "trial_starts")
	assert.Contains(t, summary.Metrics, "total_trials")
}

func TestInsightsEndpoints(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/insights/emerging")
	require.Equal(t, http.StatusOK, w.Code)

	var emerging map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &emerging))
	assert.NotZero(t, emerging["count"])

	body := strings.NewReader(`{"text": "Levodopa 100mg daily"}`)
	wPost := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/insights/classify", body)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	r.ServeHTTP(wPost, req)
	require.Equal(t, http.StatusOK, wPost.Code)

	var cls insights.Classification
	require.NoError(t, json.Unmarshal(wPost.Body.Bytes(), &cls))
	assert.Equal(t, "Dopamine Precursor", cls.Mechanism)

	wPost = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/insights/classify", strings.NewReader(`{"text": ""}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	r.ServeHTTP(wPost, req)
	assert.Equal(t, http.StatusBadRequest, wPost.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	r := testRouter(t)

	w := doGET(r, "/health")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestGraphResponseCached(t *testing.T) {
	r := testRouter(t)

	first := doGET(r, "/network/graph?mode=established_network&timeframe=all")
	require.Equal(t, http.StatusOK, first.Code)

	second := doGET(r, "/network/graph?mode=established_network&timeframe=all")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
