package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartImageRequest(t *testing.T, url string, imageData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(imageData)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPlatesHandler(t *testing.T) {
	result := &pipeline.FrameResult{
		Width:      640,
		Height:     480,
		Detections: 1,
		Plates: []pipeline.PlateResult{
			{
				Text:                "AB1234",
				Confidence:          0.93,
				DetectionConfidence: 0.88,
				Region:              pipeline.RegionInfo{X: 100, Y: 200, Width: 160, Height: 40},
			},
		},
		Duration: 5 * time.Millisecond,
	}
	s := newTestServer(&fakePipeline{result: result})

	req := multipartImageRequest(t, "/v1/plates", encodePNG(t, 640, 480))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp PlatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	require.Len(t, resp.Result.Plates, 1)
	assert.Equal(t, "AB1234", resp.Result.Plates[0].Text)
}

func TestPlatesHandlerTextFormat(t *testing.T) {
	result := &pipeline.FrameResult{
		Width: 640, Height: 480, Detections: 1,
		Plates: []pipeline.PlateResult{{
			Text: "AB1234", Confidence: 0.93,
			Region: pipeline.RegionInfo{X: 1, Y: 2, Width: 3, Height: 4},
		}},
	}
	s := newTestServer(&fakePipeline{result: result})

	req := multipartImageRequest(t, "/v1/plates?format=text", encodePNG(t, 640, 480))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "AB1234")
}

func TestPlatesHandlerCSVFormat(t *testing.T) {
	result := &pipeline.FrameResult{
		Width: 640, Height: 480, Detections: 1,
		Plates: []pipeline.PlateResult{{Text: "AB1234", Confidence: 0.93}},
	}
	s := newTestServer(&fakePipeline{result: result})

	req := multipartImageRequest(t, "/v1/plates?format=csv", encodePNG(t, 640, 480))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "AB1234,"))
}

func TestPlatesHandlerRejectsGet(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/v1/plates", nil)
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPlatesHandlerNoFile(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("unrelated", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/plates", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "No image file")
}

func TestPlatesHandlerInvalidImage(t *testing.T) {
	s := newTestServer(&fakePipeline{})

	req := multipartImageRequest(t, "/v1/plates", []byte("not an image"))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid image format")
}

func TestPlatesHandlerPipelineError(t *testing.T) {
	s := newTestServer(&fakePipeline{err: errors.New("model exploded")})

	req := multipartImageRequest(t, "/v1/plates", encodePNG(t, 32, 32))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Plate processing failed")
}

func TestPlatesHandlerNoPipeline(t *testing.T) {
	s := newServerWith(nil, Config{CORSOrigin: "*", MaxUploadMB: 10})

	req := multipartImageRequest(t, "/v1/plates", encodePNG(t, 32, 32))
	rec := httptest.NewRecorder()
	s.platesHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerClose(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(fake)
	require.NoError(t, s.Close())
	assert.True(t, fake.closed)
}
