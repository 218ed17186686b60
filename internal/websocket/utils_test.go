package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepAlive_PingsPeerAndWritesTypedFrames(t *testing.T) {
	pingPeriod = 20 * time.Millisecond
	t.Cleanup(func() { pingPeriod = (ReadWait * 9) / 10 })

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		stop := KeepAlive(conn)
		defer stop()

		var req RequestPayload
		for ReadJSON(conn, &req) == nil {
			if req.Action == ActionPing {
				WriteTyped(conn, PongResponse{Event: EventPong})
			}
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	require.NoError(t, conn.WriteJSON(RequestPayload{Action: ActionPing}))

	// Control frames are only handled while the client reads.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Event)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("server never pinged")
	}
}
