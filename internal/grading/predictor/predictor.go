package predictor

import (
	"errors"
	"fmt"
	"math"
)

// ErrPredictorUnavailable is returned by Predict when no bundle is loaded.
var ErrPredictorUnavailable = errors.New("predictor unavailable")

// Blend weights of the model against the heuristic score.
const (
	CorrectnessModelWeight = 0.7
	SyntaxModelWeight      = 0.6
)

// Prediction holds the three regressor outputs, each clamped to [0,100].
type Prediction struct {
	Correctness float64 `json:"correctness"`
	Logic       float64 `json:"logic"`
	Syntax      float64 `json:"syntax"`
}

// Predictor runs a loaded bundle. A Predictor without a bundle is valid and
// always reports ErrPredictorUnavailable. It is safe for concurrent use.
type Predictor struct {
	bundle *Bundle
}

// New wraps b, which may be nil.
func New(b *Bundle) *Predictor {
	return &Predictor{bundle: b}
}

// Load reads the bundle at path. A missing or incompatible bundle gives a
// Predictor without a model together with the reason.
func Load(path string) (*Predictor, error) {
	b, err := LoadBundle(path)
	if err != nil {
		return New(nil), err
	}
	return New(b), nil
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool {
	return p != nil && p.bundle != nil
}

// Bundle returns the loaded bundle, or nil.
func (p *Predictor) Bundle() *Bundle {
	if p == nil {
		return nil
	}
	return p.bundle
}

// Predict extracts features from code and runs the three regressors.
func (p *Predictor) Predict(code string) (pred Prediction, err error) {
	if !p.Available() {
		return Prediction{}, ErrPredictorUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predict: %v", r)
		}
	}()

	scaled, err := p.bundle.Scaler.Transform(Extract(code))
	if err != nil {
		return Prediction{}, err
	}

	outputs := make([]float64, 3)
	for i, r := range []Regressor{p.bundle.Correctness, p.bundle.Logic, p.bundle.Syntax} {
		y, err := r.Predict(scaled)
		if err != nil {
			return Prediction{}, err
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return Prediction{}, errors.New("predict: non-finite output")
		}
		outputs[i] = clampScore(y)
	}
	return Prediction{Correctness: outputs[0], Logic: outputs[1], Syntax: outputs[2]}, nil
}

// Blended is the combination of a prediction with heuristic scores.
type Blended struct {
	Correctness int  `json:"correctness"`
	Syntax      int  `json:"syntax"`
	Logic       int  `json:"logic"`
	UsedModel   bool `json:"used_model"`
}

// Blend combines pred with the heuristic scores. Logic always stays
// heuristic. When err is non-nil the heuristic scores are returned unchanged.
func Blend(pred Prediction, err error, heuristicCorrectness, heuristicSyntax, heuristicLogic int) Blended {
	if err != nil {
		return Blended{Correctness: heuristicCorrectness, Syntax: heuristicSyntax, Logic: heuristicLogic}
	}
	return Blended{
		Correctness: int(math.Round(clampScore(CorrectnessModelWeight*pred.Correctness + (1-CorrectnessModelWeight)*float64(heuristicCorrectness)))),
		Syntax:      int(math.Round(clampScore(SyntaxModelWeight*pred.Syntax + (1-SyntaxModelWeight)*float64(heuristicSyntax)))),
		Logic:       heuristicLogic,
		UsedModel:   true,
	}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
