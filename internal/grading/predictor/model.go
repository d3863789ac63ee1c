package predictor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardises features to zero mean and unit variance.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and standard deviation of rows.
// Constant columns get a scale of 1.
func FitScaler(rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, errors.New("no rows to fit scaler")
	}
	cols := len(rows[0])
	s := Scaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			if len(row) != cols {
				return Scaler{}, fmt.Errorf("row %d has %d features, want %d", i, len(row), cols)
			}
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform scales one feature vector.
func (s Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(x) != len(s.Scale) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// Regressor is a linear model over scaled features.
type Regressor struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Predict returns the raw linear prediction for scaled features x.
func (r Regressor) Predict(x []float64) (float64, error) {
	if len(x) != len(r.Weights) {
		return 0, fmt.Errorf("regressor expects %d features, got %d", len(r.Weights), len(x))
	}
	y := r.Intercept
	for i, w := range r.Weights {
		y += w * x[i]
	}
	return y, nil
}

// FitRidge solves (XᵀX + αI)w = Xᵀ(y - ȳ) for standardised X; the intercept
// is the mean of y.
func FitRidge(x [][]float64, y []float64, alpha float64) (Regressor, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return Regressor{}, fmt.Errorf("ridge: %d rows and %d targets", n, len(y))
	}
	p := len(x[0])

	data := make([]float64, 0, n*p)
	for _, row := range x {
		data = append(data, row...)
	}
	design := mat.NewDense(n, p, data)

	intercept := stat.Mean(y, nil)
	centered := make([]float64, n)
	for i, v := range y {
		centered[i] = v - intercept
	}
	target := mat.NewVecDense(n, centered)

	var gram mat.Dense
	gram.Mul(design.T(), design)
	for i := 0; i < p; i++ {
		gram.Set(i, i, gram.At(i, i)+alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return Regressor{}, fmt.Errorf("ridge solve: %w", err)
		}
	}

	weights := make([]float64, p)
	for i := range weights {
		weights[i] = w.AtVec(i)
	}
	return Regressor{Weights: weights, Intercept: intercept}, nil
}
