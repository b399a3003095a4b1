package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helphub/internal/api/http/handlers"
	"github.com/spec-kit/helphub/internal/auth"
	"github.com/spec-kit/helphub/internal/chat"
	"github.com/spec-kit/helphub/internal/classify"
	"github.com/spec-kit/helphub/internal/config"
	"github.com/spec-kit/helphub/internal/domain"
	"github.com/spec-kit/helphub/internal/observability"
	"github.com/spec-kit/helphub/internal/service"
	"github.com/spec-kit/helphub/internal/store"
)

type stubClassifier struct {
	result classify.Result
}

func (s *stubClassifier) Classify(ctx context.Context, transcript string, continuation bool) classify.Result {
	return s.result
}

type apiFixture struct {
	app     *fiber.App
	tickets *store.MemoryStore
	adapter *chat.MockAdapter
	tokens  *auth.TokenManager
	authCfg config.AuthConfig
}

func newAPIFixture(t *testing.T, classifier classify.Classifier) *apiFixture {
	t.Helper()

	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	authCfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		AgentEmail:            "agent@helphub.local",
		AgentPasswordHash:     hash,
	}

	tickets := store.NewMemoryStore()
	adapter := chat.NewMockAdapter()
	if classifier == nil {
		classifier = &stubClassifier{}
	}

	actions := service.NewActionService(tickets, classifier, nil, zap.NewNop())
	dashboard := service.NewDashboardService(tickets, nil)
	notifications := service.NewNotificationService(nil, adapter, zap.NewNop())

	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.AccessTokenTTLMinutes)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(nil, nil),
		Auth:           handlers.NewAuthHandler(authCfg, tokens),
		Tickets:        handlers.NewTicketsHandler(dashboard, actions),
		Dashboard:      handlers.NewDashboardHandler(dashboard),
		Notify:         handlers.NewNotifyHandler(notifications),
		AuthMiddleware: auth.NewMiddleware(tokens),
	})

	return &apiFixture{app: app, tickets: tickets, adapter: adapter, tokens: tokens, authCfg: authCfg}
}

func (f *apiFixture) seedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), store.TicketDraft{
		UserRef:  "user-1",
		RawInput: "the app crashes on login",
		Summary:  "App crashes on login",
		Category: domain.TicketCategoryBug,
		Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func (f *apiFixture) bearer(t *testing.T) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(f.authCfg.AgentEmail)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, app *fiber.App, method, path, authHeader string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	payload := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, payload := doRequest(t, f.app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", payload["status"])
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, payload := doRequest(t, f.app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "agent@helphub.local",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, payload["token"])
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, payload := doRequest(t, f.app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "agent@helphub.local",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestListAndGetTickets(t *testing.T) {
	f := newAPIFixture(t, nil)
	ticket := f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodGet, "/api/tickets", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := payload["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)

	resp, payload = doRequest(t, f.app, http.MethodGet, "/api/tickets/"+ticket.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ticket.ID, item["id"])
	assert.Equal(t, "open", item["status"])
}

func TestGetTicketNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, payload := doRequest(t, f.app, http.MethodGet, "/api/tickets/TK-MISSING", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}

func TestListTicketsFilterByStatus(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodGet, "/api/tickets?status=resolved", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := payload["data"].([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestUpdateStatusRequiresAuth(t *testing.T) {
	f := newAPIFixture(t, nil)
	ticket := f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodPatch, "/api/tickets/"+ticket.ID+"/status", "", map[string]string{
		"status": "resolved",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestUpdateStatus(t *testing.T) {
	f := newAPIFixture(t, nil)
	ticket := f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodPatch, "/api/tickets/"+ticket.ID+"/status", f.bearer(t), map[string]string{
		"status":  "resolved",
		"comment": "fixed in v2.4",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "resolved", item["status"])
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	f := newAPIFixture(t, nil)
	ticket := f.seedTicket(t)

	resp, _ := doRequest(t, f.app, http.MethodPatch, "/api/tickets/"+ticket.ID+"/status", f.bearer(t), map[string]string{
		"status": "resolved",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload := doRequest(t, f.app, http.MethodPatch, "/api/tickets/"+ticket.ID+"/status", f.bearer(t), map[string]string{
		"status": "forwarded",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", errObj["code"])
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	f := newAPIFixture(t, nil)
	ticket := f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodPatch, "/api/tickets/"+ticket.ID+"/status", f.bearer(t), map[string]string{
		"status": "closed",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_FAILED", errObj["code"])
}

func TestReclassifyEndpoint(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Summary:  "Login broken after update",
		Category: domain.TicketCategoryBug,
		Priority: domain.TicketPriorityCritical,
	}}
	f := newAPIFixture(t, classifier)
	ticket := f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodPost, "/api/tickets/"+ticket.ID+"/reclassify", f.bearer(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "critical", item["priority"])
}

func TestDashboardStatsEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seedTicket(t)

	resp, payload := doRequest(t, f.app, http.MethodGet, "/api/dashboard/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["open"])
}

func TestNotifyEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, _ := doRequest(t, f.app, http.MethodPost, "/api/notify", f.bearer(t), map[string]string{
		"user_ref": "user-1",
		"message":  "an agent will contact you shortly",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sent := f.adapter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-1", sent[0].UserRef)
}

func TestNotifyValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp, payload := doRequest(t, f.app, http.MethodPost, "/api/notify", f.bearer(t), map[string]string{
		"user_ref": "",
		"message":  "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_FAILED", errObj["code"])
}
