package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(s.streamHandler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestStreamFrameResult(t *testing.T) {
	result := &pipeline.FrameResult{
		Width: 64, Height: 64, Detections: 1,
		Plates: []pipeline.PlateResult{{Text: "AB1234", Confidence: 0.9}},
	}
	conn := dialTestStream(t, newTestServer(&fakePipeline{result: result}))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, encodePNG(t, 64, 64)))

	var resp StreamResponse
	require.NoError(t, conn.ReadJSON(&resp))

	assert.Equal(t, "frame_result", resp.Type)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 1, resp.Frame)

	// Result round-trips through the generic payload as a map.
	payload, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var decoded pipeline.FrameResult
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded.Plates, 1)
	assert.Equal(t, "AB1234", decoded.Plates[0].Text)
}

func TestStreamMultipleFrames(t *testing.T) {
	conn := dialTestStream(t, newTestServer(&fakePipeline{}))

	for want := 1; want <= 3; want++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, encodePNG(t, 32, 32)))

		var resp StreamResponse
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, want, resp.Frame)
	}
}

func TestStreamRejectsTextMessage(t *testing.T) {
	conn := dialTestStream(t, newTestServer(&fakePipeline{}))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`)))

	var resp StreamResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "invalid_request", resp.ErrorType)
}

func TestStreamInvalidFrame(t *testing.T) {
	conn := dialTestStream(t, newTestServer(&fakePipeline{}))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("not an image")))

	var resp StreamResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "processing_error", resp.ErrorType)
	assert.Contains(t, resp.Error, "decode")
}
