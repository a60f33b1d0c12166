package detect

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// LoadImage decodes a single image file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// LoadImages decodes up to limit images (all when limit <= 0) from dir, in
// file name order. Decoding runs in parallel.
func LoadImages(ctx context.Context, dir string, limit int) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
		if limit > 0 && len(paths) == limit {
			break
		}
	}

	imgs := make([]image.Image, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := LoadImage(p)
			if err != nil {
				return err
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return imgs, nil
}
