package pipeline

import (
	"github.com/MeKo-Tech/platekit/internal/crop"
	"github.com/MeKo-Tech/platekit/internal/detector"
	"github.com/MeKo-Tech/platekit/internal/recognizer"
)

// The functions below expose the numeric post-processing core over raw
// tensors, without any inference sessions. The serving pipeline and the
// decode CLI share them.

// RegionConfig parameterizes raw detector tensor decoding.
type RegionConfig struct {
	ConfThreshold float64
	NMSThreshold  float64
	NumClasses    int
	FrameWidth    int
	FrameHeight   int
	TargetWidth   int
	TargetHeight  int
}

// DefaultRegionConfig returns decode defaults matching the detector and
// crop stage defaults.
func DefaultRegionConfig(frameW, frameH int) RegionConfig {
	return RegionConfig{
		ConfThreshold: 0.5,
		NMSThreshold:  0.45,
		NumClasses:    1,
		FrameWidth:    frameW,
		FrameHeight:   frameH,
		TargetWidth:   crop.DefaultTargetWidth,
		TargetHeight:  crop.DefaultTargetHeight,
	}
}

// DetectRegions decodes a flat detector output tensor (rows x stride)
// into pixel crop regions: threshold, duplicate suppression, projection
// onto the frame. Detections whose crop falls outside the frame are
// dropped silently.
func DetectRegions(data []float32, rows, stride int, cfg RegionConfig) ([]crop.Region, error) {
	detections, err := detector.DecodeDetections(data, rows, stride, detector.DecodeOptions{
		ConfThreshold: cfg.ConfThreshold,
		NumClasses:    cfg.NumClasses,
	})
	if err != nil {
		return nil, err
	}
	detections = detector.NonMaxSuppression(detections, cfg.NMSThreshold)

	regions := make([]crop.Region, 0, len(detections))
	for _, det := range detections {
		region, ok := crop.Transform(det, cfg.FrameWidth, cfg.FrameHeight, cfg.TargetWidth, cfg.TargetHeight)
		if !ok {
			continue
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// PlateConfig parameterizes raw recognition tensor decoding.
type PlateConfig struct {
	Strategy      recognizer.Strategy
	Charset       *recognizer.Charset
	MinConfidence float64
	MinLength     int
	MaxLength     int
}

// DefaultPlateConfig returns decode defaults matching the recognizer
// defaults: greedy decoding over the built-in plate charset.
func DefaultPlateConfig() PlateConfig {
	return PlateConfig{
		Strategy:      recognizer.GreedyStrategy(),
		Charset:       recognizer.DefaultCharset(),
		MinConfidence: 0.6,
		MinLength:     recognizer.DefaultMinLength,
		MaxLength:     recognizer.DefaultMaxLength,
	}
}

// ReadPlate decodes a flat recognition output tensor (timesteps x
// classes) into a validated plate. A nil result with nil error means the
// decode was rejected by validation or the confidence floor — an
// expected empty outcome, not an error.
func ReadPlate(data []float32, timesteps, classes int, cfg PlateConfig) (*PlateResult, error) {
	seq, err := recognizer.Decode(cfg.Strategy, data, timesteps, classes, cfg.Charset)
	if err != nil {
		return nil, err
	}

	validator, err := recognizer.NewValidator(cfg.Charset, cfg.MinLength, cfg.MaxLength)
	if err != nil {
		return nil, err
	}

	validated, ok := validator.Validate(seq)
	if !ok || validated.Confidence < cfg.MinConfidence {
		return nil, nil
	}

	return &PlateResult{
		Text:            validated.Text,
		RawText:         seq.Text,
		Confidence:      validated.Confidence,
		CharConfidences: validated.CharConfidences,
	}, nil
}
