package detector

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/platekit/internal/models"
	"github.com/MeKo-Tech/platekit/internal/onnx"
)

// Config holds configuration for the plate detector.
type Config struct {
	ModelPath     string         // Path to ONNX detection model
	InputSize     int            // Square model input size in pixels (default: 640)
	ConfThreshold float64        // Minimum combined confidence (default: 0.5)
	NMSThreshold  float64        // IoU threshold for duplicate suppression (default: 0.45)
	NumClasses    int            // Detector class count (default: 1, license plate only)
	NumThreads    int            // CPU threads for inference (0 = auto)
	GPU           onnx.GPUConfig // GPU acceleration configuration
}

// DefaultConfig returns a default detector configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:     models.GetDetectionModelPath(""),
		InputSize:     640,
		ConfThreshold: 0.5,
		NMSThreshold:  0.45,
		NumClasses:    1,
		NumThreads:    0,
		GPU:           onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath updates the ModelPath based on modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetDetectionModelPath(modelsDir)
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %g", c.ConfThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS threshold must be in [0,1], got %g", c.NMSThreshold)
	}
	if c.NumClasses < 1 {
		return fmt.Errorf("num classes must be >= 1, got %d", c.NumClasses)
	}
	return nil
}
