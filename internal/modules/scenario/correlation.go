package scenario

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/stresscore/internal/domain"
)

// ErrIllConditionedMatrix is matched by errors returned when a correlation
// matrix is not positive semi-definite and cannot drive a Cholesky
// factorization. Those errors are also validation errors.
var ErrIllConditionedMatrix = errors.New("matrix is not positive semi-definite")

func illConditioned() error {
	return domain.InvalidBecause("correlation", ErrIllConditionedMatrix)
}

const (
	symmetryTolerance = 1e-9
	psdTolerance      = -1e-10
	eigenFloor        = 1e-8
)

// CorrelationMatrix holds pairwise correlations between the four macro factors.
type CorrelationMatrix [Dimensions][Dimensions]float64

// DefaultCorrelation is the fixed cross-factor structure: GDP moves against
// unemployment and with house prices, rates lean against growth.
func DefaultCorrelation() CorrelationMatrix {
	return CorrelationMatrix{
		{1, -0.7, 0.6, -0.3},
		{-0.7, 1, -0.5, 0.2},
		{0.6, -0.5, 1, -0.4},
		{-0.3, 0.2, -0.4, 1},
	}
}

// Identity returns an uncorrelated matrix.
func Identity() CorrelationMatrix {
	var c CorrelationMatrix
	for i := 0; i < Dimensions; i++ {
		c[i][i] = 1
	}
	return c
}

// Rows converts the matrix into nested slices for JSON output.
func (c CorrelationMatrix) Rows() [][]float64 {
	rows := make([][]float64, Dimensions)
	for i := range c {
		rows[i] = append([]float64(nil), c[i][:]...)
	}
	return rows
}

// FromRows builds a matrix from nested slices, checking the shape.
func FromRows(rows [][]float64) (CorrelationMatrix, error) {
	var c CorrelationMatrix
	if len(rows) != Dimensions {
		return c, domain.Invalid("correlation", "expected %d rows, got %d", Dimensions, len(rows))
	}
	for i, row := range rows {
		if len(row) != Dimensions {
			return c, domain.Invalid("correlation", "row %d has %d columns, expected %d", i, len(row), Dimensions)
		}
		copy(c[i][:], row)
	}
	return c, nil
}

func (c CorrelationMatrix) sym() *mat.SymDense {
	data := make([]float64, 0, Dimensions*Dimensions)
	for i := range c {
		data = append(data, c[i][:]...)
	}
	return mat.NewSymDense(Dimensions, data)
}

// Eigenvalues returns the eigenvalues in ascending order.
func (c CorrelationMatrix) Eigenvalues() ([]float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(c.sym(), false); !ok {
		return nil, fmt.Errorf("eigen decomposition of correlation matrix failed")
	}
	return es.Values(nil), nil
}

// MinEigenvalue returns the smallest eigenvalue; negative means not PSD.
func (c CorrelationMatrix) MinEigenvalue() (float64, error) {
	vals, err := c.Eigenvalues()
	if err != nil {
		return 0, err
	}
	lowest := math.Inf(1)
	for _, v := range vals {
		lowest = math.Min(lowest, v)
	}
	return lowest, nil
}

// ValidateShape checks symmetry, unit diagonal and the [-1, 1] range without
// looking at definiteness.
func (c CorrelationMatrix) ValidateShape() error {
	for i := 0; i < Dimensions; i++ {
		if math.Abs(c[i][i]-1) > symmetryTolerance {
			return domain.Invalid("correlation", "diagonal entry %d is %v, expected 1", i, c[i][i])
		}
		for j := 0; j < Dimensions; j++ {
			v := c[i][j]
			if math.IsNaN(v) || v < -1 || v > 1 {
				return domain.Invalid("correlation", "entry [%d][%d]=%v outside [-1, 1]", i, j, v)
			}
			if math.Abs(v-c[j][i]) > symmetryTolerance {
				return domain.Invalid("correlation", "matrix is not symmetric at [%d][%d]", i, j)
			}
		}
	}
	return nil
}

// Validate runs the shape checks and rejects matrices that are not positive
// semi-definite with ErrIllConditionedMatrix.
func (c CorrelationMatrix) Validate() error {
	if err := c.ValidateShape(); err != nil {
		return err
	}
	lowest, err := c.MinEigenvalue()
	if err != nil {
		return err
	}
	if lowest < psdTolerance {
		return fmt.Errorf("minimum eigenvalue %.6g: %w", lowest, illConditioned())
	}
	return nil
}

// NearestPSD clamps negative eigenvalues to a small floor and rescales the
// result back to a unit diagonal. Valid matrices come back unchanged up to
// floating error.
func (c CorrelationMatrix) NearestPSD() (CorrelationMatrix, error) {
	var es mat.EigenSym
	if ok := es.Factorize(c.sym(), true); !ok {
		return c, fmt.Errorf("eigen decomposition of correlation matrix failed")
	}

	vals := es.Values(nil)
	for i, v := range vals {
		if v < eigenFloor {
			vals[i] = eigenFloor
		}
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)

	var scaled, rebuilt mat.Dense
	scaled.Mul(&vecs, mat.NewDiagDense(Dimensions, vals))
	rebuilt.Mul(&scaled, vecs.T())

	var out CorrelationMatrix
	for i := 0; i < Dimensions; i++ {
		for j := 0; j < Dimensions; j++ {
			norm := math.Sqrt(rebuilt.At(i, i) * rebuilt.At(j, j))
			out[i][j] = rebuilt.At(i, j) / norm
		}
		out[i][i] = 1
	}
	// Symmetrize away rounding noise.
	for i := 0; i < Dimensions; i++ {
		for j := i + 1; j < Dimensions; j++ {
			avg := (out[i][j] + out[j][i]) / 2
			out[i][j], out[j][i] = avg, avg
		}
	}
	return out, nil
}

// CholeskyFactor returns the lower-triangular L with L·Lᵀ = c.
func (c CorrelationMatrix) CholeskyFactor() ([Dimensions][Dimensions]float64, error) {
	var out [Dimensions][Dimensions]float64

	var chol mat.Cholesky
	if ok := chol.Factorize(c.sym()); !ok {
		return out, illConditioned()
	}

	var l mat.TriDense
	chol.LTo(&l)
	for i := 0; i < Dimensions; i++ {
		for j := 0; j <= i; j++ {
			out[i][j] = l.At(i, j)
		}
	}
	return out, nil
}
