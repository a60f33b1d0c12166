// Package detect holds the pre- and post-processing around a YOLO detection
// model: letterboxing images into input tensors, decoding raw output into
// boxes, and non-maximum suppression.
package detect

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// padColor is the letterbox fill used by Ultralytics exports.
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox records how a source image was fitted into the model input, so
// boxes can be mapped back to source coordinates.
type Letterbox struct {
	Scale      float64
	PadX, PadY int
	SrcWidth   int
	SrcHeight  int
}

// Prepare scales img to fit width x height keeping its aspect ratio, pads the
// remainder, and returns the CHW float32 tensor with values in [0,1].
func Prepare(img image.Image, width, height int) ([]float32, Letterbox) {
	b := img.Bounds()
	lb := Letterbox{SrcWidth: b.Dx(), SrcHeight: b.Dy()}
	if lb.SrcWidth == 0 || lb.SrcHeight == 0 {
		return make([]float32, 3*width*height), lb
	}

	lb.Scale = math.Min(float64(width)/float64(lb.SrcWidth), float64(height)/float64(lb.SrcHeight))
	newW := int(math.Round(float64(lb.SrcWidth) * lb.Scale))
	newH := int(math.Round(float64(lb.SrcHeight) * lb.Scale))
	lb.PadX = (width - newW) / 2
	lb.PadY = (height - newH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, xdraw.Src)
	dst := image.Rect(lb.PadX, lb.PadY, lb.PadX+newW, lb.PadY+newH)
	xdraw.BiLinear.Scale(canvas, dst, img, b, xdraw.Over, nil)

	return toCHW(canvas), lb
}

func toCHW(img *image.RGBA) []float32 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := w * h
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*w]
		for x := 0; x < w; x++ {
			i := y*w + x
			out[i] = float32(row[4*x]) / 255
			out[plane+i] = float32(row[4*x+1]) / 255
			out[2*plane+i] = float32(row[4*x+2]) / 255
		}
	}
	return out
}

// Unmap converts a point in model input coordinates back to the source image.
func (lb Letterbox) Unmap(x, y float32) (float32, float32) {
	if lb.Scale == 0 {
		return x, y
	}
	sx := (float64(x) - float64(lb.PadX)) / lb.Scale
	sy := (float64(y) - float64(lb.PadY)) / lb.Scale
	return float32(clamp(sx, 0, float64(lb.SrcWidth))), float32(clamp(sy, 0, float64(lb.SrcHeight)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
