package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	httpAdapter "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http"
	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
)

func seedWardIssues(t *testing.T, env *testEnv, token, ward string, count int) {
	t.Helper()

	for i := 0; i < count; i++ {
		body := potholeRequest(ward)
		// Spread reports a few hundred meters apart so they still land
		// in one cluster at the default radius.
		body["coordinates"] = map[string]float64{
			"lat": 12.9716 + float64(i)*0.0005,
			"lng": 77.5946,
		}
		reportIssue(t, env, token, body)
	}
}

func TestAnalyticsHandler_WardAnalytics(t *testing.T) {
	env := newTestEnv(t)
	_, citizenToken := env.createUser(t, "citizen@example.com", "citizen")
	_, adminToken := env.createUser(t, "admin@example.com", "admin")

	seedWardIssues(t, env, citizenToken, "Ward 12", 2)

	t.Run("admin gets the rollup", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/wards/Ward%2012", nil, adminToken)
		requireStatus(t, rec, http.StatusOK)
		got := decodeBody[domain.WardAnalytics](t, rec)
		assert.Equal(t, "Ward 12", got.Ward)
		assert.Equal(t, 2, got.TotalIssues)
		assert.Equal(t, 2, got.OpenIssues)
	})

	t.Run("citizens are forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/wards/Ward%2012", nil, citizenToken)
		requireStatus(t, rec, http.StatusForbidden)
	})
}

func TestAnalyticsHandler_Hotspots(t *testing.T) {
	env := newTestEnv(t)
	_, citizenToken := env.createUser(t, "citizen@example.com", "citizen")
	_, adminToken := env.createUser(t, "admin@example.com", "admin")

	seedWardIssues(t, env, citizenToken, "Ward 12", 4)

	type list = httpAdapter.ListResponse[domain.IssueHotspot]

	t.Run("clusters nearby issues", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/hotspots", nil, adminToken)
		requireStatus(t, rec, http.StatusOK)
		got := decodeBody[list](t, rec)
		assert.Equal(t, 1, got.Count)
		assert.Equal(t, 4, got.Data[0].IssueCount)
	})

	t.Run("rejects a zero radius", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/hotspots?radiusKm=0", nil, adminToken)
		requireStatus(t, rec, http.StatusUnprocessableEntity)
	})

	t.Run("rejects an oversized radius", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/hotspots?radiusKm=500", nil, adminToken)
		requireStatus(t, rec, http.StatusUnprocessableEntity)
	})
}

func TestAnalyticsHandler_ImpactReport(t *testing.T) {
	env := newTestEnv(t)
	_, citizenToken := env.createUser(t, "citizen@example.com", "citizen")
	_, adminToken := env.createUser(t, "admin@example.com", "admin")

	seedWardIssues(t, env, citizenToken, "Ward 12", 2)
	seedWardIssues(t, env, citizenToken, "Ward 3", 1)

	t.Run("reports across all wards", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/impact-report", nil, adminToken)
		requireStatus(t, rec, http.StatusOK)
		got := decodeBody[domain.ImpactReport](t, rec)
		assert.Equal(t, 3, got.Summary.TotalIssues)
		assert.Len(t, got.Wards, 2)
	})

	t.Run("filters by ward", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/analytics/impact-report?ward=Ward+3", nil, adminToken)
		requireStatus(t, rec, http.StatusOK)
		got := decodeBody[domain.ImpactReport](t, rec)
		assert.Equal(t, 1, got.Summary.TotalIssues)
	})

	t.Run("accepts a date range", func(t *testing.T) {
		rec := env.do(t, http.MethodGet,
			"/api/v1/analytics/impact-report?start=2020-01-01&end=2040-01-01", nil, adminToken)
		requireStatus(t, rec, http.StatusOK)
		got := decodeBody[domain.ImpactReport](t, rec)
		assert.Equal(t, 3, got.Summary.TotalIssues)
	})

	t.Run("rejects a start without an end", func(t *testing.T) {
		rec := env.do(t, http.MethodGet,
			"/api/v1/analytics/impact-report?start=2020-01-01", nil, adminToken)
		requireStatus(t, rec, http.StatusUnprocessableEntity)
	})

	t.Run("rejects a start after the end", func(t *testing.T) {
		rec := env.do(t, http.MethodGet,
			"/api/v1/analytics/impact-report?start=2040-01-01&end=2020-01-01", nil, adminToken)
		requireStatus(t, rec, http.StatusUnprocessableEntity)
	})
}

func TestPublicHandler_Stats(t *testing.T) {
	env := newTestEnv(t)
	_, citizenToken := env.createUser(t, "citizen@example.com", "citizen")
	seedWardIssues(t, env, citizenToken, "Ward 12", 2)

	// No authentication required
	rec := env.do(t, http.MethodGet, "/api/v1/public/stats", nil, "")
	requireStatus(t, rec, http.StatusOK)
	got := decodeBody[domain.PublicStats](t, rec)
	assert.Equal(t, 2, got.TotalIssues)
	assert.Equal(t, 1, got.ActiveUsers)
	assert.Len(t, got.Wards, 1)
}
