package rank

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler standardizes features with the population mean and standard
// deviation. Constant features keep a scale of 1.
type scaler struct {
	mean  []float64
	scale []float64
}

func fitScaler(x *mat.Dense) scaler {
	_, c := x.Dims()
	s := scaler{mean: make([]float64, c), scale: make([]float64, c)}
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		s.mean[j] = mean
		s.scale[j] = std
		if std == 0 || math.IsNaN(std) {
			s.scale[j] = 1
		}
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.scale[j]
	}
	return out
}

func (s scaler) transformAll(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, s.transform(x.RawRowView(i)))
	}
	return out
}

// projection is a fitted principal component transform.
type projection struct {
	mean []float64
	// vectors holds one component direction per column.
	vectors *mat.Dense
}

// fitPCA fits k principal components to the rows of x. Each component's sign
// is fixed so that its largest-magnitude loading is positive, which keeps
// scores deterministic across runs.
func fitPCA(x *mat.Dense, k int) (*projection, error) {
	r, c := x.Dims()
	if r < 2 || c < k || r < k {
		return nil, fmt.Errorf("%w: %d rows, %d features, %d components", ErrInsufficientData, r, c, k)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("%w: decomposition failed", ErrInsufficientData)
	}
	var all mat.Dense
	pc.VectorsTo(&all)

	vectors := mat.DenseCopyOf(all.Slice(0, c, 0, k))
	for j := 0; j < k; j++ {
		flipSign(vectors, j)
	}

	p := &projection{mean: make([]float64, c), vectors: vectors}
	for j := 0; j < c; j++ {
		p.mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	return p, nil
}

func flipSign(v *mat.Dense, col int) {
	r, _ := v.Dims()
	best, idx := -1.0, 0
	for i := 0; i < r; i++ {
		if a := math.Abs(v.At(i, col)); a > best {
			best, idx = a, i
		}
	}
	if v.At(idx, col) >= 0 {
		return
	}
	for i := 0; i < r; i++ {
		v.Set(i, col, -v.At(i, col))
	}
}

// transform projects one row onto the fitted components.
func (p *projection) transform(row []float64) []float64 {
	centered := make([]float64, len(row))
	for j, v := range row {
		centered[j] = v - p.mean[j]
	}
	var out mat.VecDense
	out.MulVec(p.vectors.T(), mat.NewVecDense(len(centered), centered))
	return mat.Col(nil, 0, &out)
}
