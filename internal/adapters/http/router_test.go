package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/voxhall/internal/app"
	"github.com/voxhall/voxhall/internal/config"
	"github.com/voxhall/voxhall/internal/core"
	"github.com/voxhall/voxhall/internal/domain"
	"github.com/voxhall/voxhall/internal/identity"
	"github.com/voxhall/voxhall/internal/store"
)

type apiEnv struct {
	srv       *httptest.Server
	lifecycle *app.RoomLifecycleManager
	room      *domain.Room
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := core.NewRegistry()
	presence := app.NewPresenceBroadcaster(reg, 50*time.Millisecond)
	t.Cleanup(presence.Shutdown)
	st := store.NewMemoryStore(time.Second)
	lifecycle := app.NewRoomLifecycleManager(st, reg, presence, time.Hour)
	orch := &app.Orchestrator{
		Registry:   reg,
		Presence:   presence,
		Relay:      app.NewSignalingRelay(reg),
		Moderation: app.NewModerationController(reg, presence, lifecycle),
		Lifecycle:  lifecycle,
	}

	provider := &identity.StaticProvider{Identities: map[string]domain.UserIdentity{
		"host-tok":  {ID: "u-host", DisplayName: "Hana"},
		"guest-tok": {ID: "u-guest", DisplayName: "Bora"},
	}}

	cfg := &config.Config{
		Mode:             "test",
		Secret:           "test-secret",
		StaticPath:       t.TempDir(),
		JoinRateLimit:    100,
		JoinRateInterval: time.Minute,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(SetupRouter(ctx, cfg, orch, provider))
	t.Cleanup(srv.Close)

	room, err := lifecycle.Create(ctx, app.CreateRoomSpec{
		Name: "lounge",
		Host: domain.UserIdentity{ID: "u-host", DisplayName: "Hana"},
	})
	require.NoError(t, err)

	return &apiEnv{srv: srv, lifecycle: lifecycle, room: room}
}

func (e *apiEnv) deleteRoom(t *testing.T, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, e.srv.URL+"/api/rooms/"+string(e.room.ID), nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDeleteRoomRequiresToken(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.deleteRoom(t, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_, ok := e.lifecycle.Room(e.room.ID)
	assert.True(t, ok)
}

func TestDeleteRoomRejectsNonHost(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.deleteRoom(t, "guest-tok")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, ok := e.lifecycle.Room(e.room.ID)
	assert.True(t, ok)
}

func TestDeleteRoomRejectsBadToken(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.deleteRoom(t, "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteRoomAsHost(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.deleteRoom(t, "host-tok")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok := e.lifecycle.Room(e.room.ID)
	assert.False(t, ok)

	// Gone means gone.
	resp = e.deleteRoom(t, "host-tok")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
