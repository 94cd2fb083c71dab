package heat

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/watchheat/pkg/config"
)

// WeightsError names the offending weight
type WeightsError struct {
	Field   string
	Message string
}

func (e WeightsError) Error() string {
	return fmt.Sprintf("heat weights %s: %s", e.Field, e.Message)
}

// LoadWeights reads a YAML weights file. Keys left out keep their default;
// unknown keys fail.
//
//	delta_14: 0.35
//	delta_30: 0.25
//	dom: 0.2
//	supply: 0.2
//	z90: 0.1
//	demand: 0.1
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, err
	}

	w := DefaultWeights()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return Weights{}, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate requires finite, non-negative weights with a positive sum
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"delta_14", w.Delta14},
		{"delta_30", w.Delta30},
		{"dom", w.DOM},
		{"supply", w.Supply},
		{"z90", w.Z90},
		{"demand", w.Demand},
	}

	var sum float64
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return WeightsError{f.name, "must be finite"}
		}
		if f.v < 0 {
			return WeightsError{f.name, "must be >= 0"}
		}
		sum += f.v
	}
	if sum == 0 {
		return WeightsError{"*", "at least one weight must be > 0"}
	}
	return nil
}

// ScoringHash fingerprints every input that changes a score: the heat
// settings, the weights and the profit model. Structs marshal in field
// order, so equal inputs give equal hashes.
func ScoringHash(cfg config.HeatConfig, w Weights, profit config.ProfitConfig) string {
	b, _ := json.Marshal(struct {
		Heat    config.HeatConfig
		Weights Weights
		Profit  config.ProfitConfig
	}{cfg, w, profit})

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
