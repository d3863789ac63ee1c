package predictor

import (
	"errors"
	"fmt"
	"time"
)

const (
	MinTrainingSamples = 50
	MaxTrainingSamples = 1000
	DefaultAlpha       = 1.0
)

// ErrInsufficientData is returned when fewer than MinTrainingSamples are given.
var ErrInsufficientData = errors.New("insufficient training data")

// Sample is one graded submission used for training.
type Sample struct {
	Code        string
	Correctness float64
	Logic       float64
	Syntax      float64
}

// Train fits a new bundle. samples should be ordered most recent first; only
// the first MaxTrainingSamples are used.
func Train(samples []Sample, alpha float64, now time.Time) (*Bundle, error) {
	if len(samples) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientData, len(samples), MinTrainingSamples)
	}
	if len(samples) > MaxTrainingSamples {
		samples = samples[:MaxTrainingSamples]
	}
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	rows := make([][]float64, len(samples))
	correctness := make([]float64, len(samples))
	logic := make([]float64, len(samples))
	syntax := make([]float64, len(samples))
	for i, s := range samples {
		rows[i] = Extract(s.Code)
		correctness[i] = s.Correctness
		logic[i] = s.Logic
		syntax[i] = s.Syntax
	}

	scaler, err := FitScaler(rows)
	if err != nil {
		return nil, err
	}
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		if scaled[i], err = scaler.Transform(row); err != nil {
			return nil, err
		}
	}

	b := &Bundle{
		Version:      BundleVersion,
		FeatureNames: FeatureNames(),
		Scaler:       scaler,
		Alpha:        alpha,
		Samples:      len(samples),
		TrainedAt:    now.UTC(),
	}
	if b.Correctness, err = FitRidge(scaled, correctness, alpha); err != nil {
		return nil, fmt.Errorf("fit correctness: %w", err)
	}
	if b.Logic, err = FitRidge(scaled, logic, alpha); err != nil {
		return nil, fmt.Errorf("fit logic: %w", err)
	}
	if b.Syntax, err = FitRidge(scaled, syntax, alpha); err != nil {
		return nil, fmt.Errorf("fit syntax: %w", err)
	}
	return b, nil
}
