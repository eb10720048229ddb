package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/warroom-backend/internal/config"
	"github.com/DoyleJ11/warroom-backend/internal/coordinator"
	"github.com/DoyleJ11/warroom-backend/internal/hub"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
	ptypes "github.com/DoyleJ11/warroom-backend/pkg/types"
)

func newRouter(t *testing.T, metricsEnabled bool) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := metrics.New()
	svc := coordinator.New(hub.NewHub(ctx, hub.Options{Metrics: m}))
	cfg := config.AppConfig{Server: config.ServerConfig{MetricsEnabled: metricsEnabled}}
	return SetupRoutes(svc, cfg, nil, m)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoomAndLookup(t *testing.T) {
	h := newRouter(t, true)

	rec := do(t, h, http.MethodPost, "/rooms", `{"name":"Ashfall","leader_name":"Aldric"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ptypes.CreateRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.RoomID, "SF-"))
	assert.NotEmpty(t, created.ParticipantID)

	rec = do(t, h, http.MethodGet, "/rooms/"+strings.ToLower(created.RoomID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info ptypes.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Exists)
	assert.Equal(t, "Ashfall", info.Name)
	assert.Equal(t, "narrative", info.Phase)
	require.Len(t, info.Participants, 1)
	assert.Equal(t, "leader", info.Participants[0].Role)
}

func TestCreateRoomValidation(t *testing.T) {
	h := newRouter(t, true)

	rec := do(t, h, http.MethodPost, "/rooms", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/rooms", `{"name":"Ashfall","leader_name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var e ptypes.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "EMPTY_NAME", e.Code)
}

func TestUnknownRoom(t *testing.T) {
	h := newRouter(t, true)

	rec := do(t, h, http.MethodGet, "/rooms/SF-ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"exists":false}`, rec.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newRouter(t, true)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)

	do(t, h, http.MethodPost, "/rooms", `{"leader_name":"Aldric"}`)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "warroom_rooms_active 1")
}

func TestMetricsDisabled(t *testing.T) {
	h := newRouter(t, false)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}
