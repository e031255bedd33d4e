package server

import (
	"context"
	"image"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
)

// fakePipeline is a canned frameProcessor for handler tests.
type fakePipeline struct {
	result *pipeline.FrameResult
	err    error
	closed bool
}

func (f *fakePipeline) ProcessFrameContext(_ context.Context, img image.Image) (*pipeline.FrameResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	bounds := img.Bounds()
	return &pipeline.FrameResult{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

func (f *fakePipeline) Close() error {
	f.closed = true
	return nil
}

// newTestServer builds a server around a fake pipeline with defaults
// suitable for handler tests.
func newTestServer(p frameProcessor) *Server {
	return newServerWith(p, Config{
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		TimeoutSec:  5,
	})
}
