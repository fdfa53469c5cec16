package models

import (
	"fmt"
	"time"
)

// Study pipeline errors. Each names the failing stage and the variable or
// month that triggered it; stages abort on these rather than substituting
// placeholder values.

// DataInsufficientError reports an absent, empty, or too-short series or
// common window during alignment.
type DataInsufficientError struct {
	Stage  string
	Series string
	Months int
	Min    int
}

func (e *DataInsufficientError) Error() string {
	if e.Series != "" && e.Months == 0 {
		return fmt.Sprintf("%s: series %q absent or empty", e.Stage, e.Series)
	}
	return fmt.Sprintf("%s: common window too short: %d months, need %d", e.Stage, e.Months, e.Min)
}

// InvalidPriceError reports a non-positive price that breaks the
// log-return definition.
type InvalidPriceError struct {
	Stage  string
	Series string
	Month  time.Time
	Value  float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%s: non-positive price %g for %s at %s",
		e.Stage, e.Value, e.Series, e.Month.Format("2006-01"))
}

// SingularMatrixError reports a rank-deficient PCA or OLS matrix, e.g.
// from a constant indicator column.
type SingularMatrixError struct {
	Stage  string
	Detail string
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("%s: singular matrix: %s", e.Stage, e.Detail)
}
