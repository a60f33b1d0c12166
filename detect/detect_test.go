package detect

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPrepare_Letterbox(t *testing.T) {
	img := solid(100, 50, color.RGBA{R: 255, A: 255})

	tensor, lb := Prepare(img, 64, 64)
	require.Len(t, tensor, 3*64*64)

	assert.InDelta(t, 0.64, lb.Scale, 1e-9)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 16, lb.PadY)

	plane := 64 * 64
	// Padding rows carry the fill colour.
	assert.InDelta(t, 114.0/255, tensor[0], 1e-6)
	assert.InDelta(t, 114.0/255, tensor[plane], 1e-6)
	// Image centre is red.
	centre := 32*64 + 32
	assert.InDelta(t, 1.0, tensor[centre], 1e-2)
	assert.InDelta(t, 0.0, tensor[plane+centre], 1e-2)
	assert.InDelta(t, 0.0, tensor[2*plane+centre], 1e-2)
}

func TestLetterbox_Unmap(t *testing.T) {
	lb := Letterbox{Scale: 0.64, PadY: 16, SrcWidth: 100, SrcHeight: 50}

	x, y := lb.Unmap(32, 32)
	assert.InDelta(t, 50, x, 1e-4)
	assert.InDelta(t, 25, y, 1e-4)

	// Points in the padding clamp to the image.
	x, y = lb.Unmap(-10, 5)
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(0), y)
}

func TestDecode(t *testing.T) {
	// Two classes, six anchors, channels first. Only the first two anchors
	// score above threshold.
	// Rows: cx, cy, w, h, class 0 score, class 1 score.
	out := []float32{
		10, 40, 20, 0, 0, 0,
		10, 40, 20, 0, 0, 0,
		4, 8, 6, 0, 0, 0,
		4, 8, 6, 0, 0, 0,
		0.9, 0.1, 0.2, 0, 0, 0,
		0.05, 0.7, 0.1, 0, 0, 0,
	}
	lb := Letterbox{Scale: 1, SrcWidth: 64, SrcHeight: 64}

	dets, err := Decode(out, []int64{1, 6, 6}, lb, 0.25)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, 0, dets[0].Class)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, Box{X1: 8, Y1: 8, X2: 12, Y2: 12}, dets[0].Box)

	assert.Equal(t, 1, dets[1].Class)
	assert.Equal(t, Box{X1: 36, Y1: 36, X2: 44, Y2: 44}, dets[1].Box)
}

func TestDecode_AnchorsFirst(t *testing.T) {
	// One class, anchors first: six anchors of five channels.
	out := []float32{
		10, 10, 4, 4, 0.9, // anchor 0
		40, 40, 8, 8, 0.1, // anchor 1
	}
	for i := 0; i < 4; i++ {
		out = append(out, 0, 0, 0, 0, 0)
	}
	lb := Letterbox{Scale: 1, SrcWidth: 64, SrcHeight: 64}

	dets, err := Decode(out, []int64{1, 6, 5}, lb, 0.5)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, Box{X1: 8, Y1: 8, X2: 12, Y2: 12}, dets[0].Box)
}

func TestDecode_BadShape(t *testing.T) {
	_, err := Decode(make([]float32, 8), []int64{1, 8}, Letterbox{}, 0.5)
	require.ErrorIs(t, err, ErrOutputShape)

	_, err = Decode(make([]float32, 4), []int64{1, 4, 1}, Letterbox{}, 0.5)
	require.ErrorIs(t, err, ErrOutputShape)
}

func TestIoU(t *testing.T) {
	a := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.InDelta(t, 0.0, IoU(a, Box{X1: 20, Y1: 20, X2: 30, Y2: 30}), 1e-6)
	// 50 overlap, 150 union.
	assert.InDelta(t, 1.0/3, IoU(a, Box{X1: 5, Y1: 0, X2: 15, Y2: 10}), 1e-6)
	assert.InDelta(t, 0.0, IoU(Box{}, Box{}), 1e-6)
}

func TestNMS(t *testing.T) {
	dets := []Detection{
		{Box: Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Class: 0, Confidence: 0.6},
		{Box: Box{X1: 1, Y1: 1, X2: 11, Y2: 11}, Class: 0, Confidence: 0.9},
		{Box: Box{X1: 1, Y1: 1, X2: 11, Y2: 11}, Class: 1, Confidence: 0.5},
		{Box: Box{X1: 50, Y1: 50, X2: 60, Y2: 60}, Class: 0, Confidence: 0.7},
	}

	kept := NMS(dets, 0.45)
	require.Len(t, kept, 3)
	assert.InDelta(t, 0.9, kept[0].Confidence, 1e-6)
	assert.InDelta(t, 0.7, kept[1].Confidence, 1e-6)
	assert.Equal(t, 1, kept[2].Class)

	assert.Nil(t, NMS(nil, 0.45))
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), solid(4, 3, color.RGBA{A: 255}))
	writePNG(t, filepath.Join(dir, "b.png"), solid(5, 2, color.RGBA{A: 255}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"), []byte("0 0.5 0.5 1 1\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	imgs, err := LoadImages(context.Background(), dir, 0)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, 4, imgs[0].Bounds().Dx())
	assert.Equal(t, 5, imgs[1].Bounds().Dx())

	imgs, err = LoadImages(context.Background(), dir, 1)
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
}

func TestLoadImages_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("not a jpeg"), 0o644))

	_, err := LoadImages(context.Background(), dir, 0)
	assert.Error(t, err)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("x/IMG_001.JPG"))
	assert.True(t, IsImage("a.webp"))
	assert.False(t, IsImage("a.txt"))
	assert.False(t, IsImage("noext"))
}
