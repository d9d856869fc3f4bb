package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philly/ipcbus/internal/adapters/rest"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
)

type staticStatus []wstransport.PeerStatus

func (s staticStatus) Status() []wstransport.PeerStatus { return s }

func TestHealthHandler_Liveness(t *testing.T) {
	h := rest.NewHealthHandler(rest.NewBaseHandler(logger.Nop{}), "1.0.0", eventbus.RoleCoordinator, nil)

	rec := httptest.NewRecorder()
	h.GetLiveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got rest.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, rest.Healthy, got.Status)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		peers  staticStatus
		status string
	}{
		{"all connected", staticStatus{{Tag: "window1", Connected: true}, {Tag: "window2", Connected: true}}, rest.Healthy},
		{"one missing", staticStatus{{Tag: "window1", Connected: true}, {Tag: "window2"}}, rest.Degraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := rest.NewHealthHandler(rest.NewBaseHandler(logger.Nop{}), "1.0.0", eventbus.RoleCoordinator, tt.peers)

			rec := httptest.NewRecorder()
			h.GetReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var got rest.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "coordinator", got.Role)
			require.Len(t, got.Satellites, 2)
			assert.Equal(t, "window1", got.Satellites[0].Tag)
		})
	}
}

type outbox struct {
	mu   sync.Mutex
	msgs []transport.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg transport.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) all() []transport.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transport.Message(nil), o.msgs...)
}

func newEventsRouter(t *testing.T, out *outbox) (http.Handler, *eventbus.Registry) {
	t.Helper()
	registry := eventbus.NewRegistry(func() *eventbus.Bus {
		b := eventbus.New(eventbus.RoleCoordinator, logger.Nop{})
		require.NoError(t, b.MainInit(eventbus.Satellite{Tag: "window1", Handle: out}))
		return b
	})
	t.Cleanup(registry.Shutdown)

	h := rest.NewEventsHandler(rest.NewBaseHandler(logger.Nop{}), registry)
	r := chi.NewRouter()
	r.Post("/events/{type}", h.Broadcast)
	return r, registry
}

func TestEventsHandler_BroadcastWithArgs(t *testing.T) {
	out := &outbox{}
	r, registry := newEventsRouter(t, out)

	var local eventbus.Args
	registry.Instance().AddEventListener("Ping", func(_ context.Context, args eventbus.Args) { local = args })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/Ping", strings.NewReader(`[{"from":"ops"}, 3]`)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp rest.BroadcastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ping", resp.EventType)
	assert.Equal(t, 2, resp.Args)

	require.Equal(t, 2, local.Len())
	var n int
	require.NoError(t, local.Decode(1, &n))
	assert.Equal(t, 3, n)

	msgs := out.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Ping", msgs[0].Type)
	assert.Equal(t, "window1", msgs[0].Target)
	assert.JSONEq(t, `{"from":"ops"}`, string(msgs[0].Args[0]))
}

func TestEventsHandler_EmptyBody(t *testing.T) {
	out := &outbox{}
	r, _ := newEventsRouter(t, out)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/SatelliteReady", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, out.all(), 1)
	assert.Empty(t, out.all()[0].Args)
}

func TestEventsHandler_RejectsNonArrayBody(t *testing.T) {
	r, _ := newEventsRouter(t, &outbox{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/Ping", strings.NewReader(`{"not":"an array"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsHandler_RejectsOverlongEventType(t *testing.T) {
	out := &outbox{}
	r, _ := newEventsRouter(t, out)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/"+strings.Repeat("x", 300), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, out.all())
}

func TestEventsHandler_DeliveryFailure(t *testing.T) {
	out := &outbox{err: transport.ErrNotConnected}
	r, _ := newEventsRouter(t, out)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/Ping", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "REMOTE_FAILURE", resp.Error)
}

func TestEventsHandler_ClosedBus(t *testing.T) {
	r, registry := newEventsRouter(t, &outbox{})
	registry.Instance().Close()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/Ping", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

