// Package recognizer decodes sequence-classifier output into plate text
// with confidence scores and rejects implausible results.
package recognizer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/platekit/internal/mempool"
	"github.com/MeKo-Tech/platekit/internal/models"
	"github.com/MeKo-Tech/platekit/internal/onnx"
	"github.com/yalue/onnxruntime_go"
)

// Config holds configuration for the plate recognizer.
type Config struct {
	ModelPath     string         // Path to ONNX recognition model
	CharsetPath   string         // Path to dictionary file ("" = built-in plate charset)
	Method        string         // "greedy" (default) or "beam_search"
	BeamWidth     int            // Beam width for beam search decoding
	MinConfidence float64        // Minimum aggregate confidence to accept (default: 0.6)
	MinLength     int            // Minimum plate length (default: 4)
	MaxLength     int            // Maximum plate length (default: 8)
	ImageWidth    int            // Model input width (default: 200)
	ImageHeight   int            // Model input height (default: 64)
	NumThreads    int            // CPU threads for inference (0 = auto)
	GPU           onnx.GPUConfig // GPU acceleration configuration
}

// DefaultConfig returns a default recognizer configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:     models.GetRecognitionModelPath(""),
		CharsetPath:   "",
		Method:        "greedy",
		BeamWidth:     5,
		MinConfidence: 0.6,
		MinLength:     DefaultMinLength,
		MaxLength:     DefaultMaxLength,
		ImageWidth:    200,
		ImageHeight:   64,
		NumThreads:    0,
		GPU:           onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath updates model and charset paths based on modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetRecognitionModelPath(modelsDir)
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if _, err := ParseStrategy(c.Method, c.BeamWidth); err != nil {
		return err
	}
	if c.Method == "beam_search" && c.BeamWidth < 2 {
		return fmt.Errorf("beam width must be >= 2, got %d", c.BeamWidth)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %g", c.MinConfidence)
	}
	if c.MinLength < 1 || c.MaxLength < c.MinLength {
		return fmt.Errorf("invalid plate length range [%d,%d]", c.MinLength, c.MaxLength)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("invalid model input size %dx%d", c.ImageWidth, c.ImageHeight)
	}
	return nil
}

// Result is a validated recognition outcome for one plate crop.
// RawText preserves the pre-validation decode for diagnostics.
type Result struct {
	Text            string
	RawText         string
	Confidence      float64
	CharConfidences []float64
	ProcessingTime  time.Duration
}

// Recognizer runs the plate OCR model and decodes its CTC output.
type Recognizer struct {
	config    Config
	strategy  Strategy
	charset   *Charset
	validator *Validator
	session   *onnxruntime_go.DynamicAdvancedSession
	mu        sync.RWMutex
}

// New creates a plate recognizer with the given configuration.
func New(config Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateModelExists(config.ModelPath); err != nil {
		return nil, err
	}

	charset := DefaultCharset()
	if config.CharsetPath != "" {
		var err error
		charset, err = LoadCharset(config.CharsetPath)
		if err != nil {
			return nil, err
		}
	}

	validator, err := NewValidator(charset, config.MinLength, config.MaxLength)
	if err != nil {
		return nil, err
	}

	strategy, err := ParseStrategy(config.Method, config.BeamWidth)
	if err != nil {
		return nil, err
	}

	slog.Debug("Initializing plate recognizer",
		"model_path", config.ModelPath,
		"charset_size", charset.Size(),
		"method", config.Method,
		"min_confidence", config.MinConfidence)

	if err := onnx.InitializeEnvironment(); err != nil {
		return nil, err
	}

	inputInfo, outputInfo, err := validateRecognitionModel(config.ModelPath)
	if err != nil {
		return nil, err
	}

	session, err := createRecognitionSession(config.ModelPath, inputInfo, outputInfo, config)
	if err != nil {
		return nil, err
	}

	return &Recognizer{
		config:    config,
		strategy:  strategy,
		charset:   charset,
		validator: validator,
		session:   session,
	}, nil
}

// Close releases the ONNX session.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		if err := r.session.Destroy(); err != nil {
			slog.Warn("Failed to destroy recognizer session", "error", err)
		}
		r.session = nil
	}
	return nil
}

// Charset returns the recognizer's character set.
func (r *Recognizer) Charset() *Charset { return r.charset }

// Recognize runs inference on a pre-sized plate crop and returns the
// validated text, or nil when the decode fails validation or falls below
// the confidence floor (an expected empty outcome).
func (r *Recognizer) Recognize(crop image.Image) (*Result, error) {
	r.mu.RLock()
	session := r.session
	config := r.config
	r.mu.RUnlock()

	if session == nil {
		return nil, errors.New("recognizer is closed")
	}

	start := time.Now()

	data, err := preprocessCrop(crop, config.ImageWidth, config.ImageHeight)
	if err != nil {
		return nil, fmt.Errorf("recognizer preprocess failed: %w", err)
	}
	defer mempool.PutFloat32(data)

	inputTensor, err := onnxruntime_go.NewTensor(
		onnxruntime_go.NewShape(1, 3, int64(config.ImageHeight), int64(config.ImageWidth)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxruntime_go.Value{nil}
	if err := session.Run([]onnxruntime_go.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("recognition inference failed: %w", err)
	}
	outTensor, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected recognizer output tensor type")
	}
	defer func() { _ = outTensor.Destroy() }()

	timesteps, classes, err := interpretRecognitionShape(outTensor.GetShape(), r.charset.Size()+1)
	if err != nil {
		return nil, err
	}

	seq, err := Decode(r.strategy, outTensor.GetData(), timesteps, classes, r.charset)
	if err != nil {
		return nil, err
	}

	raw := seq.Text
	validated, ok := r.validator.Validate(seq)
	if !ok || validated.Confidence < config.MinConfidence {
		return nil, nil
	}

	return &Result{
		Text:            validated.Text,
		RawText:         raw,
		Confidence:      validated.Confidence,
		CharConfidences: validated.CharConfidences,
		ProcessingTime:  time.Since(start),
	}, nil
}

// interpretRecognitionShape determines (timesteps, classes) from a
// recognition output shape, matching the class axis against the charset.
func interpretRecognitionShape(shape []int64, wantClasses int) (int, int, error) {
	dims := make([]int64, 0, len(shape))
	for _, d := range shape {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("unexpected recognition output shape %v", shape)
	}
	switch {
	case int(dims[1]) == wantClasses:
		return int(dims[0]), int(dims[1]), nil
	case int(dims[0]) == wantClasses:
		// Class-major layout is not produced by supported models.
		return 0, 0, fmt.Errorf("class-major recognition output %v is not supported", shape)
	default:
		return 0, 0, fmt.Errorf("recognition output shape %v does not match %d classes", shape, wantClasses)
	}
}
