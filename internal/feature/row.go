// Package feature provides the shared feature-row utilities used to
// turn a request record into the ordered numeric vector a model
// expects.
package feature

import (
	"fmt"

	"github.com/opensource-finance/bankmind/internal/domain"
)

// Row is a named feature row. Column order is imposed only at
// vectorization time, against a model's column list.
type Row map[string]float64

// Vector builds the ordered vector for the given columns. A missing
// column is an internal defect: the request schema and the trained
// column list have drifted.
func (r Row) Vector(columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for i, col := range columns {
		v, ok := r[col]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrColumnMissing, col)
		}
		out[i] = v
	}
	return out, nil
}

// VectorFill builds the ordered vector for the given columns, filling
// any column absent from the row with fill. This is the reindex
// safety default used by the churn service, not data-driven
// imputation.
func (r Row) VectorFill(columns []string, fill float64) []float64 {
	out := make([]float64, len(columns))
	for i, col := range columns {
		if v, ok := r[col]; ok {
			out[i] = v
		} else {
			out[i] = fill
		}
	}
	return out
}

// Without returns the columns list minus the named column, preserving
// order. Used to strip the anomaly-score column from a classifier's
// trained column list.
func Without(columns []string, drop string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
