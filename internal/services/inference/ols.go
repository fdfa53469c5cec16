package inference

import (
	"math"

	"MacroPull/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stage name reported in inference errors.
const Stage = "inference"

// InterceptName is the constant term in every fitted regression.
const InterceptName = "const"

// Regressors are exogenous columns aligned to the study frame index.
type Regressors struct {
	Names   []string
	Columns [][]float64
}

type fitResult struct {
	names []string
	beta  []float64
	se    []float64
	tstat []float64
	pval  []float64
	r2    float64
	n     int
	dof   float64
}

// fit estimates y[from:to] on an intercept plus the regressor columns by
// OLS, with Newey-West standard errors using hacLags Bartlett-weighted
// autocovariance lags.
func fit(y []float64, reg Regressors, from, to, hacLags int) (*fitResult, error) {
	n := to - from
	k := len(reg.Columns) + 1
	if n <= k {
		return nil, &models.DataInsufficientError{Stage: Stage, Months: n, Min: k + 1}
	}

	X := mat.NewDense(n, k, nil)
	yv := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range reg.Columns {
			X.Set(i, j+1, col[from+i])
		}
		yv.SetVec(i, y[from+i])
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, &models.SingularMatrixError{Stage: Stage, Detail: "design matrix is rank-deficient"}
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), yv)
	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	// residuals and score rows u_t = x_t * e_t
	resid := make([]float64, n)
	u := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += X.At(i, j) * beta.AtVec(j)
		}
		resid[i] = yv.AtVec(i) - pred
		for j := 0; j < k; j++ {
			u.Set(i, j, X.At(i, j)*resid[i])
		}
	}

	S := newWeightedScoreCov(u, hacLags)
	var cov, tmp mat.Dense
	tmp.Mul(&xtxInv, S)
	cov.Mul(&tmp, &xtxInv)

	dof := float64(n - k)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}

	res := &fitResult{
		names: append([]string{InterceptName}, reg.Names...),
		n:     n,
		dof:   dof,
	}
	for j := 0; j < k; j++ {
		b := beta.AtVec(j)
		v := cov.At(j, j)
		if v < 0 {
			v = 0
		}
		se := math.Sqrt(v)
		var t, p float64
		if se > 0 {
			t = b / se
			p = 2 * (1 - tdist.CDF(math.Abs(t)))
		}
		res.beta = append(res.beta, b)
		res.se = append(res.se, se)
		res.tstat = append(res.tstat, t)
		res.pval = append(res.pval, p)
	}

	// R^2 against the sample mean
	ybar := stat.Mean(y[from:to], nil)
	var sst, sse float64
	for i := 0; i < n; i++ {
		d := y[from+i] - ybar
		sst += d * d
		sse += resid[i] * resid[i]
	}
	if sst > 0 {
		res.r2 = 1 - sse/sst
	}
	return res, nil
}

// newWeightedScoreCov builds the Newey-West long-run covariance of the
// score rows: S = Gamma_0 + sum_l w_l (Gamma_l + Gamma_l') with Bartlett
// weights w_l = 1 - l/(L+1).
func newWeightedScoreCov(u *mat.Dense, lags int) *mat.Dense {
	n, k := u.Dims()
	S := mat.NewDense(k, k, nil)

	// Gamma_0
	for t := 0; t < n; t++ {
		row := u.RawRowView(t)
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				S.Set(a, b, S.At(a, b)+row[a]*row[b])
			}
		}
	}

	if lags >= n {
		lags = n - 1
	}
	for l := 1; l <= lags; l++ {
		w := 1 - float64(l)/float64(lags+1)
		for t := l; t < n; t++ {
			rt := u.RawRowView(t)
			rl := u.RawRowView(t - l)
			for a := 0; a < k; a++ {
				for b := 0; b < k; b++ {
					S.Set(a, b, S.At(a, b)+w*(rt[a]*rl[b]+rl[a]*rt[b]))
				}
			}
		}
	}
	return S
}
