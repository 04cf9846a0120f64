package webui

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendev/pkg/orchestrator"
)

func TestWebSocketStreamsProgress(t *testing.T) {
	s, _ := newTestServer(t)

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	cred := base64.StdEncoding.EncodeToString([]byte("opendev:hunter2"))
	header.Set("Authorization", "Basic "+cred)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	// Give the handler a moment to register its subscription.
	require.Eventually(t, func() bool {
		return s.engine.Events().SubscriberCount() > 0
	}, time.Second, 10*time.Millisecond)

	s.engine.Events().Publish(orchestrator.Event{
		Type:    orchestrator.EventStepStarted,
		TaskID:  "task-1",
		Step:    1,
		Mode:    "ask",
		Message: "survey",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev orchestrator.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, orchestrator.EventStepStarted, ev.Type)
	assert.Equal(t, "task-1", ev.TaskID)
	assert.Equal(t, 1, ev.Step)
}

func TestWebSocketRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
