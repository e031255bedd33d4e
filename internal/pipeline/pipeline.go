// Package pipeline wires the plate detection and recognition stages into
// a per-frame processing pipeline.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/platekit/internal/crop"
	"github.com/MeKo-Tech/platekit/internal/detector"
	"github.com/MeKo-Tech/platekit/internal/models"
	"github.com/MeKo-Tech/platekit/internal/recognizer"
)

// Config holds configuration for the plate pipeline and its components.
type Config struct {
	ModelsDir    string
	Detector     detector.Config
	Recognizer   recognizer.Config
	TargetWidth  int // recognition model crop width
	TargetHeight int // recognition model crop height
	Parallel     ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir:    models.GetModelsDir(""),
		Detector:     detector.DefaultConfig(),
		Recognizer:   recognizer.DefaultConfig(),
		TargetWidth:  crop.DefaultTargetWidth,
		TargetHeight: crop.DefaultTargetHeight,
		Parallel:     DefaultParallelConfig(),
	}
}

// plateDetector is the detection stage seam; satisfied by *detector.Detector.
type plateDetector interface {
	Detect(img image.Image) (*detector.Result, error)
	Close() error
}

// plateReader is the recognition stage seam; satisfied by *recognizer.Recognizer.
type plateReader interface {
	Recognize(crop image.Image) (*recognizer.Result, error)
	Close() error
}

// Pipeline processes frames end to end: detect, suppress, crop,
// recognize, validate.
type Pipeline struct {
	config     Config
	detector   plateDetector
	recognizer plateReader
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithModelsDir sets the models directory and updates component model paths.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	b.cfg.Detector.UpdateModelPath(b.cfg.ModelsDir)
	b.cfg.Recognizer.UpdateModelPath(b.cfg.ModelsDir)
	return b
}

// WithDetectorModelPath overrides the detector model path directly.
func (b *Builder) WithDetectorModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Detector.ModelPath = path
	}
	return b
}

// WithRecognizerModelPath overrides the recognizer model path directly.
func (b *Builder) WithRecognizerModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Recognizer.ModelPath = path
	}
	return b
}

// WithCharsetPath overrides the recognition dictionary path.
func (b *Builder) WithCharsetPath(path string) *Builder {
	if path != "" {
		b.cfg.Recognizer.CharsetPath = path
	}
	return b
}

// WithConfidenceThreshold sets the detector confidence threshold.
func (b *Builder) WithConfidenceThreshold(thresh float64) *Builder {
	b.cfg.Detector.ConfThreshold = thresh
	return b
}

// WithNMSThreshold sets the duplicate suppression IoU threshold.
func (b *Builder) WithNMSThreshold(thresh float64) *Builder {
	b.cfg.Detector.NMSThreshold = thresh
	return b
}

// WithDecodeMethod sets the CTC decoding method and beam width.
func (b *Builder) WithDecodeMethod(method string, beamWidth int) *Builder {
	if method != "" {
		b.cfg.Recognizer.Method = method
	}
	if beamWidth > 0 {
		b.cfg.Recognizer.BeamWidth = beamWidth
	}
	return b
}

// WithParallel sets the per-frame region worker configuration.
func (b *Builder) WithParallel(cfg ParallelConfig) *Builder {
	b.cfg.Parallel = cfg
	return b
}

// WithConfig replaces the entire pipeline configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// Build validates the configuration and constructs the pipeline,
// loading both ONNX models.
func (b *Builder) Build() (*Pipeline, error) {
	det, err := detector.New(b.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	rec, err := recognizer.New(b.cfg.Recognizer)
	if err != nil {
		if cerr := det.Close(); cerr != nil {
			slog.Warn("Failed to close detector during build rollback", "error", cerr)
		}
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	slog.Info("Plate pipeline ready",
		"detector_model", b.cfg.Detector.ModelPath,
		"recognizer_model", b.cfg.Recognizer.ModelPath,
		"decode_method", b.cfg.Recognizer.Method)

	return newPipelineWith(det, rec, b.cfg), nil
}

// newPipelineWith assembles a pipeline from stage implementations.
// Split out so tests can inject fakes.
func newPipelineWith(det plateDetector, rec plateReader, cfg Config) *Pipeline {
	return &Pipeline{config: cfg, detector: det, recognizer: rec}
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config { return p.config }

// Close releases both model sessions.
func (p *Pipeline) Close() error {
	var errs []error
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.recognizer != nil {
		if err := p.recognizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
