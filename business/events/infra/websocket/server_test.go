package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/events/app"
	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

func TestServer_StreamsBroadcastEvents(t *testing.T) {
	b, err := app.NewBroadcaster(logger.NewNop())
	require.NoError(t, err)

	srv := NewServer(":0", 8, b, logger.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+Path, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return b.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.Broadcast(ctx, domain.EventExecution, map[string]any{"success": true})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var got struct {
		ID      string         `json:"id"`
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "execution", got.Type)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, true, got.Payload["success"])

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return b.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

type stubRegistry struct {
	registered int
}

func (s *stubRegistry) Register(string, domain.Subscriber) string {
	s.registered++
	return "id"
}

func (s *stubRegistry) Unregister(string) bool { return true }

func TestServer_RejectsPlainHTTP(t *testing.T) {
	reg := &stubRegistry{}
	srv := NewServer(":0", 8, reg, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", Path, nil))

	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Equal(t, 0, reg.registered)
}
