package scoring

import (
	"MacroPull/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultVarianceThreshold retains components until this cumulative
// explained-variance fraction is reached.
const DefaultVarianceThreshold = 0.95

// FitPCA fits principal components on the standardized indicator matrix
// over the full sample and retains components cumulatively explaining at
// least the given variance threshold (at least one). Component signs are
// whatever the decomposition produced; they carry no economic meaning.
func FitPCA(ip *IndicatorPanel, varianceThreshold float64) (*models.PCAResult, error) {
	n := len(ip.Index)
	k := len(ip.Columns)
	if k == 0 || n <= k {
		return nil, &models.DataInsufficientError{Stage: Stage, Months: n, Min: k + 1}
	}
	if varianceThreshold <= 0 || varianceThreshold > 1 {
		varianceThreshold = DefaultVarianceThreshold
	}

	data := make([]float64, n*k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			data[i*k+j] = ip.Columns[j][i]
		}
	}
	m := mat.NewDense(n, k, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, &models.SingularMatrixError{Stage: Stage, Detail: "principal component decomposition failed"}
	}

	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if total <= 0 {
		return nil, &models.SingularMatrixError{Stage: Stage, Detail: "indicator matrix has zero variance"}
	}
	fractions := make([]float64, len(vars))
	for i, v := range vars {
		fractions[i] = v / total
	}

	retained := 1
	cum := fractions[0]
	for retained < k && cum < varianceThreshold {
		cum += fractions[retained]
		retained++
	}

	var vec mat.Dense
	pc.VectorsTo(&vec)

	var proj mat.Dense
	proj.Mul(m, vec.Slice(0, k, 0, retained))

	res := &models.PCAResult{
		Indicators:        append([]string(nil), ip.Names...),
		Index:             ip.Index,
		VarianceFractions: fractions,
		Retained:          retained,
	}
	for c := 0; c < retained; c++ {
		loading := make([]float64, k)
		for j := 0; j < k; j++ {
			loading[j] = vec.At(j, c)
		}
		score := make([]float64, n)
		for i := 0; i < n; i++ {
			score[i] = proj.At(i, c)
		}
		res.Loadings = append(res.Loadings, loading)
		res.Scores = append(res.Scores, score)
	}
	return res, nil
}

// PCAComposite exposes the first component's scores as a composite.
func PCAComposite(res *models.PCAResult) *models.CompositeScore {
	return &models.CompositeScore{
		Method: MethodPCA,
		Index:  res.Index,
		Values: append([]float64(nil), res.Scores[0]...),
	}
}
