// Package report renders rankings and evaluation tables for the console and as
// derived CSV files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Derived CSV suffixes, appended to the base name of the input table.
const (
	SuffixPairwise  = "_pairwise_ranking"
	SuffixDistances = "_PCA_distances"
	SuffixPC1       = "_PC1_ranking"
)

// DerivedPath returns the output path for a table derived from input: the
// input's extension is replaced by suffix + ".csv".
func DerivedPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix + ".csv"
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return write(f)
}

// grid is a plain-text table. The first column is left-aligned, the rest are
// right-aligned.
type grid struct {
	header []string
	rows   [][]string

	// left marks extra columns to left-align.
	left map[int]bool
}

func newGrid(header ...string) *grid {
	return &grid{header: header, left: map[int]bool{0: true}}
}

func (g *grid) alignLeft(cols ...int) *grid {
	for _, c := range cols {
		g.left[c] = true
	}
	return g
}

func (g *grid) add(cells ...string) {
	g.rows = append(g.rows, cells)
}

func (g *grid) render(w io.Writer) error {
	widths := make([]int, len(g.header))
	for i, h := range g.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range g.rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			if g.left[i] {
				parts[i] = runewidth.FillRight(c, widths[i])
			} else {
				parts[i] = runewidth.FillLeft(c, widths[i])
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	if _, err := fmt.Fprintln(w, line(g.header)); err != nil {
		return err
	}
	for _, row := range g.rows {
		if _, err := fmt.Fprintln(w, line(row)); err != nil {
			return err
		}
	}
	return nil
}
