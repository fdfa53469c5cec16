package scoring

import (
	"math"

	"MacroPull/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Composite score methods.
const (
	MethodZAverage = "z_average"
	MethodPCA      = "pca"
)

// Standardize z-scores each indicator over the full sample using the
// sample standard deviation. A constant column cannot be standardized
// and fails with SingularMatrixError.
func Standardize(ip *IndicatorPanel) (*IndicatorPanel, error) {
	out := &IndicatorPanel{
		Index: ip.Index,
		Names: append([]string(nil), ip.Names...),
	}
	for j, col := range ip.Columns {
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			return nil, &models.SingularMatrixError{Stage: Stage, Detail: "constant indicator column " + ip.Names[j]}
		}
		z := make([]float64, len(col))
		for i, v := range col {
			z[i] = (v - mean) / std
		}
		out.Columns = append(out.Columns, z)
	}
	return out, nil
}

// ZAverage reduces the standardized indicators to one composite by
// averaging them per month.
func ZAverage(ip *IndicatorPanel) *models.CompositeScore {
	n := len(ip.Index)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, col := range ip.Columns {
			sum += col[i]
		}
		values[i] = sum / float64(len(ip.Columns))
	}
	return &models.CompositeScore{Method: MethodZAverage, Index: ip.Index, Values: values}
}
