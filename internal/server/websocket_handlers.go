package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamReadTimeout = 60 * time.Second
	streamPingPeriod  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are delegated to the deployment's proxy layer.
		return true
	},
}

// StreamResponse is sent for every frame received on the stream.
type StreamResponse struct {
	Type      string      `json:"type"` // "frame_result" or "error"
	Status    string      `json:"status"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Frame     int         `json:"frame"`
}

// streamHandler upgrades the connection and processes a stream of
// image frames: each binary message is one encoded image, each reply
// is a JSON frame result.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("Stream connection established", "remote_addr", r.RemoteAddr)
	s.handleStream(r.Context(), conn)
}

// handleStream reads frames from a WebSocket connection until it closes.
func (s *Server) handleStream(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return nil
	})

	// Keep the connection alive between frames.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	frame := 0
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("Stream read error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.BinaryMessage {
			s.sendStreamError(conn, frame, "invalid_request", "expected a binary image frame")
			continue
		}

		frame++
		s.processStreamFrame(ctx, conn, frame, data)
	}
}

// processStreamFrame decodes one frame and runs the pipeline on it.
func (s *Server) processStreamFrame(ctx context.Context, conn *websocket.Conn, frame int, data []byte) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.sendStreamError(conn, frame, "processing_error", fmt.Sprintf("failed to decode frame: %v", err))
		return
	}

	if s.pipeline == nil {
		s.sendStreamError(conn, frame, "processing_error", "plate pipeline not initialized")
		return
	}

	start := time.Now()
	res, err := s.pipeline.ProcessFrameContext(ctx, img)
	if err != nil {
		frameRequestsTotal.WithLabelValues("stream", "error").Inc()
		s.sendStreamError(conn, frame, "processing_error", fmt.Sprintf("plate processing failed: %v", err))
		return
	}

	frameRequestsTotal.WithLabelValues("stream", "success").Inc()
	frameProcessingDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	platesPerFrame.WithLabelValues("stream").Observe(float64(len(res.Plates)))

	s.sendStreamResponse(conn, StreamResponse{
		Type:   "frame_result",
		Status: "completed",
		Result: res,
		Frame:  frame,
	})
}

// sendStreamResponse sends a JSON message over the stream.
func (s *Server) sendStreamResponse(conn *websocket.Conn, response StreamResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal stream response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send stream message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendStreamError sends an error message over the stream.
func (s *Server) sendStreamError(conn *websocket.Conn, frame int, errorType, message string) {
	s.sendStreamResponse(conn, StreamResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		Frame:     frame,
	})
}
