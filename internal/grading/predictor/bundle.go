package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/zstd"
)

// BundleVersion is bumped whenever the feature set or layout changes.
const BundleVersion = 1

// ErrModelUnavailable means no usable bundle exists at the configured path.
var ErrModelUnavailable = errors.New("model bundle unavailable")

// Bundle holds three regressors sharing one scaler, plus the feature order
// they were trained with.
type Bundle struct {
	Version      int       `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Scaler       Scaler    `json:"scaler"`
	Correctness  Regressor `json:"correctness"`
	Logic        Regressor `json:"logic"`
	Syntax       Regressor `json:"syntax"`
	Alpha        float64   `json:"alpha"`
	Samples      int       `json:"samples"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Validate checks the bundle matches the current feature extractor.
func (b *Bundle) Validate() error {
	if b.Version != BundleVersion {
		return fmt.Errorf("bundle version %d, want %d", b.Version, BundleVersion)
	}
	if !slices.Equal(b.FeatureNames, featureNames) {
		return errors.New("bundle feature names do not match extractor")
	}
	for name, r := range map[string]Regressor{"correctness": b.Correctness, "logic": b.Logic, "syntax": b.Syntax} {
		if len(r.Weights) != NumFeatures {
			return fmt.Errorf("%s regressor has %d weights, want %d", name, len(r.Weights), NumFeatures)
		}
	}
	if len(b.Scaler.Mean) != NumFeatures || len(b.Scaler.Scale) != NumFeatures {
		return errors.New("scaler size does not match feature count")
	}
	return nil
}

// LoadBundle reads a zstd-compressed JSON bundle. A missing file yields
// ErrModelUnavailable.
func LoadBundle(path string) (*Bundle, error) {
	if path == "" {
		return nil, ErrModelUnavailable
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrModelUnavailable
		}
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var b Bundle
	if err := json.NewDecoder(dec).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return &b, nil
}

// SaveBundle writes b next to path and renames it into place, so readers see
// either the old or the new file.
func SaveBundle(path string, b *Bundle) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bundle-*.zst")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(b); err != nil {
		enc.Close()
		tmp.Close()
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp bundle: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install bundle: %w", err)
	}
	return nil
}
