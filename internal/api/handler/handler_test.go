package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trackbot/backend/internal/api/handler"
	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/feed"
	"trackbot/backend/internal/models"
	"trackbot/backend/internal/report"
	"trackbot/backend/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	apiToken  = "static-token"
	jwtSecret = "jwt-secret"
)

type MockTiming struct {
	mock.Mock
}

func (m *MockTiming) TimingTo(ctx context.Context, chatID int64, dest models.Coordinates) (report.TimingReport, error) {
	args := m.Called(ctx, chatID, dest)
	return args.Get(0).(report.TimingReport), args.Error(1)
}

type MockReports struct {
	mock.Mock
}

func (m *MockReports) RecentReportLogs(ctx context.Context, limit int) ([]models.ReportLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ReportLog), args.Error(1)
}

func newRouter(h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var bearer = map[string]string{"Authorization": "Bearer " + apiToken}

func TestHealth(t *testing.T) {
	r := newRouter(handler.NewHandler(new(MockTiming), nil, auth.NewAPIAuthenticator(apiToken, ""), nil, nil))

	rec := do(r, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestPostTiming_Auth(t *testing.T) {
	timing := new(MockTiming)
	timing.On("TimingTo", mock.Anything, int64(-100), mock.Anything).Return(report.TimingReport{}, nil)
	r := newRouter(handler.NewHandler(timing, nil, auth.NewAPIAuthenticator(apiToken, jwtSecret), nil, nil))
	payload := `{"coordinates":"19.43,-99.15","chatId":-100}`

	rec := do(r, http.MethodPost, "/api/timing", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token de API inválido", decode(t, rec)["error"])

	rec = do(r, http.MethodPost, "/api/timing", payload, map[string]string{"X-API-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodPost, "/api/timing", payload, map[string]string{"X-API-Token": apiToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := auth.IssueToken([]byte(jwtSecret), "dispatch", time.Hour)
	require.NoError(t, err)
	rec = do(r, http.MethodPost, "/api/timing", payload, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	timing.AssertNumberOfCalls(t, "TimingTo", 2)
}

func TestPostTiming_Success(t *testing.T) {
	timing := new(MockTiming)
	dest := models.Coordinates{Latitude: 19.43, Longitude: -99.15}
	timing.On("TimingTo", mock.Anything, int64(-100), dest).
		Return(report.TimingReport{Entries: make([]models.TimingEntry, 2), Errors: make([]models.TimingEntry, 1)}, nil)
	r := newRouter(handler.NewHandler(timing, nil, auth.NewAPIAuthenticator(apiToken, ""), nil, nil))

	rec := do(r, http.MethodPost, "/api/timing", `{"coordinates":"19.43, -99.15","chatId":"-100"}`, bearer)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["entries"])
	assert.Equal(t, float64(1), body["errors"])
	timing.AssertExpectations(t)
}

func TestPostTiming_BadRequests(t *testing.T) {
	timing := new(MockTiming)
	r := newRouter(handler.NewHandler(timing, nil, auth.NewAPIAuthenticator(apiToken, ""), nil, nil))

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"missing chat", `{"coordinates":"19.43,-99.15"}`, "Faltan parámetros requeridos: coordinates o chatId"},
		{"missing coordinates", `{"chatId":-100}`, "Faltan parámetros requeridos: coordinates o chatId"},
		{"bad chat id", `{"coordinates":"19.43,-99.15","chatId":"abc"}`, "Faltan parámetros requeridos: coordinates o chatId"},
		{"not json", `coordinates=1`, "Faltan parámetros requeridos: coordinates o chatId"},
		{"malformed coordinates", `{"coordinates":"north","chatId":-100}`, "Coordenadas inválidas"},
		{"out of range", `{"coordinates":"91,10","chatId":-100}`, "Coordenadas inválidas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, http.MethodPost, "/api/timing", tt.payload, bearer)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
	timing.AssertNotCalled(t, "TimingTo", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostTiming_NoDataAndFailure(t *testing.T) {
	timing := new(MockTiming)
	timing.On("TimingTo", mock.Anything, int64(-1), mock.Anything).Return(report.TimingReport{}, tracking.ErrNoData)
	timing.On("TimingTo", mock.Anything, int64(-2), mock.Anything).Return(report.TimingReport{}, errors.New("telegram send to -2: chat not found"))
	r := newRouter(handler.NewHandler(timing, nil, auth.NewAPIAuthenticator(apiToken, ""), nil, nil))

	rec := do(r, http.MethodPost, "/api/timing", `{"coordinates":"19.43,-99.15","chatId":-1}`, bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No hay datos de ubicación disponibles", body["message"])

	rec = do(r, http.MethodPost, "/api/timing", `{"coordinates":"19.43,-99.15","chatId":-2}`, bearer)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "telegram send to -2: chat not found", decode(t, rec)["error"])
}

func TestListReports(t *testing.T) {
	reports := new(MockReports)
	reports.On("RecentReportLogs", mock.Anything, 5).Return([]models.ReportLog{{ID: "r1", Kind: models.ReportKindGeo}}, nil)
	reports.On("RecentReportLogs", mock.Anything, 0).Return([]models.ReportLog(nil), errors.New("db down"))
	r := newRouter(handler.NewHandler(new(MockTiming), nil, auth.NewAPIAuthenticator(apiToken, ""), reports, nil))

	rec := do(r, http.MethodGet, "/api/reports?limit=5", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r1"`)

	rec = do(r, http.MethodGet, "/api/reports?limit=x", "", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/reports", "", bearer)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListReports_NotMountedWithoutDatabase(t *testing.T) {
	r := newRouter(handler.NewHandler(new(MockTiming), nil, auth.NewAPIAuthenticator(apiToken, ""), nil, nil))

	rec := do(r, http.MethodGet, "/api/reports", "", bearer)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeWebSocket(t *testing.T) {
	hub := feed.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := newRouter(handler.NewHandler(new(MockTiming), hub, auth.NewAPIAuthenticator(apiToken, ""), nil, []string{"https://dash.example.com"}))
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/positions"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = websocket.DefaultDialer.Dial(wsURL+"?token="+apiToken, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+apiToken, http.Header{"Origin": {"https://dash.example.com"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(models.PositionEvent{UserID: 7, UserName: "Juan", Type: models.EventTypePosition})

	var ev models.PositionEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "Juan", ev.UserName)
}
