package pipeline

import (
	"time"

	"github.com/MeKo-Tech/platekit/internal/crop"
)

// PlateResult is one recognized license plate within a frame.
// RawText preserves the pre-validation decode; Text is the validated
// plate string.
type PlateResult struct {
	Text            string    `json:"text"`
	RawText         string    `json:"raw_text,omitempty"`
	Confidence      float64   `json:"confidence"`
	CharConfidences []float64 `json:"char_confidences,omitempty"`

	// Detection metadata.
	DetectionConfidence float64    `json:"detection_confidence"`
	Region              RegionInfo `json:"region"`
}

// RegionInfo is the absolute-pixel crop rectangle of a plate.
type RegionInfo struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FrameResult aggregates all plates recognized in one frame.
type FrameResult struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Detections int           `json:"detections"`
	Plates     []PlateResult `json:"plates"`
	Duration   time.Duration `json:"duration_ns"`
}

func regionInfo(r crop.Region) RegionInfo {
	return RegionInfo{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
