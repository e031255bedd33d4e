package detector

import (
	"sort"

	"github.com/MeKo-Tech/platekit/internal/geometry"
)

// NonMaxSuppression removes duplicate detections using greedy NMS.
//
// Detections are visited in order of descending confidence, with the
// original relative order preserved for equal confidence. Each accepted
// detection suppresses every later detection whose IoU with it exceeds
// iouThreshold. O(n^2) in the candidate count, which is acceptable since
// candidates are pre-filtered by confidence. The surviving set is
// pairwise below the threshold, so re-running suppression on it is a
// no-op.
func NonMaxSuppression(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) <= 1 {
		return detections
	}

	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Confidence > detections[order[b]].Confidence
	})

	suppressed := make([]bool, len(detections))
	kept := make([]Detection, 0, len(detections))

	for i, a := range order {
		if suppressed[a] {
			continue
		}
		kept = append(kept, detections[a])

		for _, b := range order[i+1:] {
			if suppressed[b] {
				continue
			}
			if geometry.IoU(detections[a].Box, detections[b].Box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}

	return kept
}
