package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
	"github.com/carlosrosan/palantir-webapp/internal/risk"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRows() []*domain.FeatureRow {
	return []*domain.FeatureRow{
		{AssetID: 1, AsOfDate: day("2023-05-14")},
		{AssetID: 2, AsOfDate: day("2023-05-14")},
	}
}

func TestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/score", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Rows, 2)
		assert.Equal(t, 1, req.Rows[0].AssetID)
		assert.Equal(t, "2023-05-14", req.Rows[0].AsOfDate)

		json.NewEncoder(w).Encode(scoreResponse{
			ModelVersion: "rf-v3",
			Predictions: []scoredRow{
				{AssetID: 1, ProbabilityScore: 0.82, PredictedFailure: true, RiskLevel: "critical"},
				{AssetID: 2, ProbabilityScore: 0.12, PredictedFailure: false, RiskLevel: "low"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	records, err := c.Score(context.Background(), testRows(), day("2023-05-14"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rf-v3", records[0].ModelVersion)
	assert.Equal(t, 0.82, records[0].ProbabilityScore)
	assert.True(t, records[0].PredictedFailure)
	assert.Equal(t, day("2023-05-14"), records[0].PredictionDate)
}

func TestScoreDerivesMissingRiskLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{
			ModelVersion: "rf-v3",
			Predictions: []scoredRow{
				{AssetID: 1, ProbabilityScore: 0.69},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	records, err := c.Score(context.Background(), testRows()[:1], day("2023-05-14"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, risk.LevelHigh, records[0].RiskLevel)
}

func TestScoreRejectsOutOfRangeProbability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{
			ModelVersion: "rf-v3",
			Predictions: []scoredRow{
				{AssetID: 1, ProbabilityScore: 1.7},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.Score(context.Background(), testRows()[:1], day("2023-05-14"))
	assert.Error(t, err)
}

func TestScoreRejectsMissingModelVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.Score(context.Background(), testRows()[:1], day("2023-05-14"))
	assert.Error(t, err)
}

func TestScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.Score(context.Background(), testRows()[:1], day("2023-05-14"))
	assert.Error(t, err)
}
