package detect

import (
	"errors"
	"fmt"
)

// ErrOutputShape indicates the model output is not a YOLO detection head.
var ErrOutputShape = errors.New("detect: unexpected output shape")

// Box is an axis-aligned box in source image pixels.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// Detection is one decoded object.
type Detection struct {
	Box        Box
	Class      int
	Confidence float32
}

// Decode converts a YOLOv8/YOLO11 detection head into boxes above threshold.
//
// The head is [1, 4+classes, anchors] (channels first, the Ultralytics export
// default) or [1, anchors, 4+classes]. The first four channels are the box
// centre and size in input pixels, the rest are per-class scores.
func Decode(out []float32, shape []int64, lb Letterbox, threshold float32) ([]Detection, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("%w: %v", ErrOutputShape, shape)
	}

	channels, anchors := int(shape[1]), int(shape[2])
	channelsFirst := true
	if channels > anchors {
		channels, anchors = anchors, channels
		channelsFirst = false
	}
	if channels < 5 || len(out) < channels*anchors {
		return nil, fmt.Errorf("%w: %v with %d values", ErrOutputShape, shape, len(out))
	}

	at := func(c, a int) float32 {
		if channelsFirst {
			return out[c*anchors+a]
		}
		return out[a*channels+c]
	}

	var dets []Detection
	for a := 0; a < anchors; a++ {
		best, class := float32(0), -1
		for c := 4; c < channels; c++ {
			if s := at(c, a); s > best {
				best, class = s, c-4
			}
		}
		if class < 0 || best < threshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		x1, y1 := lb.Unmap(cx-w/2, cy-h/2)
		x2, y2 := lb.Unmap(cx+w/2, cy+h/2)
		dets = append(dets, Detection{
			Box:        Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
			Class:      class,
			Confidence: best,
		})
	}

	return dets, nil
}
