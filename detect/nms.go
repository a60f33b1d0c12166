package detect

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"
)

// IoU returns the intersection over union of two boxes.
func IoU(a, b Box) float32 {
	iw := math32.Max(0, math32.Min(a.X2, b.X2)-math32.Max(a.X1, b.X1))
	ih := math32.Max(0, math32.Min(a.Y2, b.Y2)-math32.Max(a.Y1, b.Y1))
	inter := iw * ih
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b Box) float32 {
	return math32.Max(0, b.X2-b.X1) * math32.Max(0, b.Y2-b.Y1)
}

// NMS performs greedy, class-aware non-maximum suppression. Detections are
// visited by descending confidence; a detection is dropped when it overlaps a
// kept detection of the same class by more than iouThreshold.
func NMS(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) == 0 {
		return nil
	}

	sorted := slices.Clone(dets)
	slices.SortStableFunc(sorted, func(a, b Detection) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	kept := make([]Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i, d := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, d)
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].Class != d.Class {
				continue
			}
			if IoU(d.Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
