package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/platekit/internal/crop"
)

// ParallelConfig controls the per-frame region worker pool.
type ParallelConfig struct {
	MaxWorkers int // concurrent region recognitions (0 = runtime.NumCPU())
}

// DefaultParallelConfig returns sensible defaults.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// ProcessFrame runs the full pipeline on one frame.
func (p *Pipeline) ProcessFrame(img image.Image) (*FrameResult, error) {
	return p.ProcessFrameContext(context.Background(), img)
}

// ProcessFrameContext runs the full pipeline on one frame with
// cancellation support: detect plates, suppress duplicates, crop each
// survivor, recognize and validate its text.
func (p *Pipeline) ProcessFrameContext(ctx context.Context, img image.Image) (*FrameResult, error) {
	if img == nil {
		return nil, errors.New("nil frame")
	}
	if p.detector == nil || p.recognizer == nil {
		return nil, errors.New("pipeline not initialized")
	}

	start := time.Now()
	bounds := img.Bounds()
	frameW, frameH := bounds.Dx(), bounds.Dy()

	detResult, err := p.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	regions := make([]crop.Region, 0, len(detResult.Detections))
	for _, det := range detResult.Detections {
		region, ok := crop.Transform(det, frameW, frameH, p.config.TargetWidth, p.config.TargetHeight)
		if !ok {
			// Expected outcome for boxes outside the frame.
			continue
		}
		regions = append(regions, region)
	}

	plates, err := p.recognizeRegions(ctx, img, regions)
	if err != nil {
		return nil, err
	}

	result := &FrameResult{
		Width:      frameW,
		Height:     frameH,
		Detections: len(detResult.Detections),
		Plates:     plates,
		Duration:   time.Since(start),
	}

	slog.Debug("Frame processed",
		"detections", result.Detections,
		"plates", len(result.Plates),
		"duration", result.Duration)

	return result, nil
}

// recognizeRegions runs recognition over crop regions, in parallel when
// more than one worker is configured. Result order follows region order.
func (p *Pipeline) recognizeRegions(ctx context.Context, frame image.Image, regions []crop.Region) ([]PlateResult, error) {
	if len(regions) == 0 {
		return nil, nil
	}

	workers := p.config.Parallel.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(regions) {
		workers = len(regions)
	}

	results := make([]*PlateResult, len(regions))
	errs := make([]error, len(regions))

	if workers == 1 {
		for i, region := range regions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i], errs[i] = p.recognizeRegion(frame, region)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i], errs[i] = p.recognizeRegion(frame, regions[i])
				}
			}()
		}
	send:
		for i := range regions {
			select {
			case <-ctx.Done():
				break send
			case jobs <- i:
			}
		}
		close(jobs)
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	plates := make([]PlateResult, 0, len(regions))
	for i, r := range results {
		if errs[i] != nil {
			return nil, fmt.Errorf("recognition failed for region %d: %w", i, errs[i])
		}
		if r != nil {
			plates = append(plates, *r)
		}
	}
	return plates, nil
}

// recognizeRegion crops one region and recognizes its text. A nil result
// means the plate was rejected (validation or confidence floor).
func (p *Pipeline) recognizeRegion(frame image.Image, region crop.Region) (*PlateResult, error) {
	plateImg, err := crop.Extract(frame, region)
	if err != nil {
		return nil, err
	}

	recResult, err := p.recognizer.Recognize(plateImg)
	if err != nil {
		return nil, err
	}
	if recResult == nil {
		return nil, nil
	}

	return &PlateResult{
		Text:                recResult.Text,
		RawText:             recResult.RawText,
		Confidence:          recResult.Confidence,
		CharConfidences:     recResult.CharConfidences,
		DetectionConfidence: region.Detection.Confidence,
		Region:              regionInfo(region),
	}, nil
}
