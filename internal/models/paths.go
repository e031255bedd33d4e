package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file name constants to avoid typos and ensure consistency.
const (
	// PlateDetection is the YOLO-style plate detector model.
	PlateDetection = "plate_det.onnx"

	// PlateRecognition is the CTC sequence OCR model.
	PlateRecognition = "plate_rec.onnx"

	// PlateCharset is the recognition dictionary (one token per line).
	PlateCharset = "plate_charset.txt"
)

// Default models directory.
const DefaultModelsDir = "models"

// EnvModelsDir is the environment variable for models directory override.
const EnvModelsDir = "PLATEKIT_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path.
// Priority: explicit modelsDir parameter, environment variable,
// project root + default, plain default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// GetDetectionModelPath returns the path to the plate detector model.
func GetDetectionModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), PlateDetection)
}

// GetRecognitionModelPath returns the path to the plate OCR model.
func GetRecognitionModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), PlateRecognition)
}

// GetCharsetPath returns the path to the recognition dictionary.
func GetCharsetPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), PlateCharset)
}

// ValidateModelExists checks that a model file is present and readable.
func ValidateModelExists(modelPath string) error {
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	if err != nil {
		return fmt.Errorf("cannot access model file %s: %w", modelPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", modelPath)
	}
	return nil
}
