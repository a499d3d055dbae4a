package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/monitoring"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

func feature(name string) types.CreateModuleRequest {
	return types.CreateModuleRequest{
		Module: types.ModuleInfo{Name: name, ModuleType: types.ModuleTypeFeature},
	}
}

func dial(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/stream", h.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamEvents(t *testing.T) {
	reg := registry.New()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	conn := dial(t, NewHandler(reg, WithMetrics(metrics)))

	hello := read(t, conn)
	assert.Equal(t, "system", hello.Type)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSConnections))

	_, err := reg.CreateModule("alice", feature("first"))
	require.NoError(t, err)

	msg := read(t, conn)
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, registry.EventModuleCreated, msg.Event.Kind)
	assert.Equal(t, "first", msg.Event.Module)
	assert.Equal(t, types.Account("alice"), msg.Event.Account)
	assert.NotEmpty(t, msg.Event.ID)
}

func TestSubscribeFilter(t *testing.T) {
	reg := registry.New()
	conn := dial(t, NewHandler(reg))
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{
		Type:    "subscribe",
		Modules: []string{"watched"},
		Kinds:   []string{string(registry.EventContextAdded)},
	}))
	assert.Equal(t, "subscribed", read(t, conn).Type)

	_, err := reg.CreateModule("alice", feature("ignored"))
	require.NoError(t, err)
	_, err = reg.CreateModule("alice", feature("watched"))
	require.NoError(t, err)
	require.NoError(t, reg.AddContextID("alice", "ignored", "twitter.com"))
	require.NoError(t, reg.AddContextID("alice", "watched", "twitter.com"))

	msg := read(t, conn)
	require.NotNil(t, msg.Event)
	assert.Equal(t, registry.EventContextAdded, msg.Event.Kind)
	assert.Equal(t, "watched", msg.Event.Module)
}

func TestPingAndUnknown(t *testing.T) {
	conn := dial(t, NewHandler(registry.New()))
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "shout"}))
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "unknown message type", msg.Message)
}

func TestFilterMatch(t *testing.T) {
	created := registry.Event{Kind: registry.EventModuleCreated, Module: "a"}
	edited := registry.Event{Kind: registry.EventModuleEdited, Module: "b"}

	all := newFilter(Message{})
	assert.True(t, all.match(created))
	assert.True(t, all.match(edited))

	byModule := newFilter(Message{Modules: []string{"a"}})
	assert.True(t, byModule.match(created))
	assert.False(t, byModule.match(edited))

	byKind := newFilter(Message{Kinds: []string{string(registry.EventModuleEdited)}})
	assert.False(t, byKind.match(created))
	assert.True(t, byKind.match(edited))
}

func TestOptions(t *testing.T) {
	h := NewHandler(registry.New(), WithBuffer(0))
	assert.Equal(t, DefaultBuffer, h.buffer)

	h = NewHandler(registry.New(), WithBuffer(8))
	assert.Equal(t, 8, h.buffer)
	assert.True(t, h.upgrader.CheckOrigin(httptest.NewRequest("GET", "/", nil)))
}
