package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http"
	mw "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/websocket"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/secondary/email"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/secondary/memory"
	"github.com/civicgrid/civic-issues-backend/internal/auth"
	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
	"github.com/civicgrid/civic-issues-backend/internal/core/services"
)

// testEnv wires real services over the in-memory stores, so handler tests
// exercise the full request path without a database.
type testEnv struct {
	router   chi.Router
	users    *memory.UserStore
	issues   *memory.IssueStore
	tokens   *memory.TokenStore
	tm       *auth.TokenManager
	issueSvc ports.IssueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := httpAdapter.NewErrorHandler(logger)

	users := memory.NewUserStore()
	issues := memory.NewIssueStore()
	tokens := memory.NewTokenStore()

	tm := auth.NewTokenManager("test-secret", time.Hour)
	hub := wsAdapter.NewHub(logger)

	authzSvc := services.NewAuthorizationService(users)
	authSvc := services.NewAuthService(users, tokens, 24*time.Hour)
	categorizer := services.NewCategorizeService(nil, logger)
	notifier := email.NewMockSMTPNotifierWithLogger(users, logger)
	issueSvc := services.NewIssueService(issues, authzSvc, categorizer, notifier, hub)
	analyticsSvc := services.NewAnalyticsService(issues, users, authzSvc)

	authHandler := httpAdapter.NewAuthHandler(authSvc, tm, errorHandler, logger)
	issueHandler := httpAdapter.NewIssueHandler(issueSvc, errorHandler, logger)
	analyticsHandler := httpAdapter.NewAnalyticsHandler(analyticsSvc, 0.5, errorHandler, logger)
	publicHandler := httpAdapter.NewPublicHandler(analyticsSvc, errorHandler, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", authHandler.RegisterRoutes)
		r.Route("/public", publicHandler.RegisterRoutes)
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tm))
			r.Route("/issues", issueHandler.RegisterRoutes)
			r.Route("/analytics", analyticsHandler.RegisterRoutes)
		})
	})

	env := &testEnv{
		router:   r,
		users:    users,
		issues:   issues,
		tokens:   tokens,
		tm:       tm,
		issueSvc: issueSvc,
	}
	t.Cleanup(issueSvc.Shutdown)
	return env
}

// createUser seeds a user and returns it with a valid access token.
func (e *testEnv) createUser(t *testing.T, email, role string) (*domain.User, string) {
	t.Helper()

	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Test User",
		Email:    email,
		Password: "SecurePass1!",
	}, role)
	require.NoError(t, err)

	created, err := e.users.Create(t.Context(), user)
	require.NoError(t, err)

	token, err := e.tm.GenerateToken(created.ID, created.Role)
	require.NoError(t, err)

	return created, token
}

// do runs one request through the router. A non-nil body is JSON-encoded
// and a non-empty token becomes a bearer header.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
