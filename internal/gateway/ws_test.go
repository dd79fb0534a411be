package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/satmarket/assistant-gateway/internal/catalog"
)

func dialWS(t *testing.T, env *testEnv, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(env.server.URL, "http://", "ws://", 1) + "/v1/assistant/chat/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []gjson.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frames []gjson.Result
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return frames
		}
		frames = append(frames, gjson.ParseBytes(data))
	}
}

func TestChatWS_FrameSequence(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.upstream.content = "Streamed over the socket in several small pieces."

	conn := dialWS(t, env, "tok-alice")
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	req, _ := json.Marshal(map[string]any{"message": "hi"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, req))

	frames := readFrames(t, conn)
	require.GreaterOrEqual(t, len(frames), 3)

	assert.Equal(t, catalog.DefaultFreeModel, frames[0].Get("model").String())

	var content strings.Builder
	for _, f := range frames[1 : len(frames)-1] {
		content.WriteString(f.Get("content").String())
	}
	assert.Equal(t, env.upstream.content, content.String())

	last := frames[len(frames)-1]
	assert.True(t, last.Get("done").Bool())
	assert.Equal(t, int64(15), last.Get("usage.totalTokens").Int())
}

func TestChatWS_InvalidRequestGetsErrorFrame(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	conn := dialWS(t, env, "tok-alice")
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"message": ""}`)))

	frames := readFrames(t, conn)
	require.NotEmpty(t, frames)
	assert.Equal(t, "invalid_request", frames[0].Get("code").String())
}
