package vision

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"harmonia/internal/domain"
)

func TestSeededGenerator_Deterministic(t *testing.T) {
	g1 := NewSeededGenerator(42)
	g2 := NewSeededGenerator(42)

	signal := make([]float32, domain.FeatureDim)
	for i := range signal {
		signal[i] = float32(i%10) * 0.1
	}

	out1, err := g1.Transform(signal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	out2, err := g2.Transform(signal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	if len(out1) != domain.FeatureDim {
		t.Fatalf("expected %d dims, got %d", domain.FeatureDim, len(out1))
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("outputs differ at %d: %f vs %f", i, out1[i], out2[i])
		}
		if math.IsNaN(float64(out1[i])) || math.IsInf(float64(out1[i]), 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
}

func TestSeededGenerator_DifferentSeedsDiffer(t *testing.T) {
	signal := make([]float32, domain.FeatureDim)
	for i := range signal {
		signal[i] = 0.5
	}

	out1, err := NewSeededGenerator(1).Transform(signal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	out2, err := NewSeededGenerator(2).Transform(signal)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	same := true
	for i := range out1 {
		if out1[i] != out2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different weight bundles to produce different outputs")
	}
}

func TestGenerator_ParamsSplit(t *testing.T) {
	g := NewSeededGenerator(7)
	signal := make([]float32, domain.FeatureDim)
	signal[0] = 1

	weight, bias, err := g.Params(signal)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if len(weight) != domain.FeatureDim || len(bias) != domain.FeatureDim {
		t.Fatalf("expected D weights and D biases, got %d/%d", len(weight), len(bias))
	}
}

func TestGenerator_NonFiniteSignal(t *testing.T) {
	g := NewSeededGenerator(7)
	signal := make([]float32, domain.FeatureDim)
	signal[3] = float32(math.Inf(1))

	if _, err := g.Transform(signal); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
}

func TestGenerator_RejectsWrongSignalDim(t *testing.T) {
	g := NewSeededGenerator(7)
	if _, _, err := g.Params(make([]float32, 10)); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestLoadGenerator_RoundTrip(t *testing.T) {
	const hidden = 2
	in := domain.FeatureDim
	bundle := generatorBundle{
		InDim:     in,
		HiddenDim: hidden,
		W1:        make([]float32, hidden*in),
		B1:        []float32{0.1, -0.2},
		W2:        make([]float32, 2*in*hidden),
		B2:        make([]float32, 2*in),
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	g, err := LoadGenerator(path)
	if err != nil {
		t.Fatalf("load generator: %v", err)
	}
	if g.hiddenDim != hidden {
		t.Fatalf("unexpected hidden dim %d", g.hiddenDim)
	}
}

func TestLoadGenerator_InvalidShapes(t *testing.T) {
	bundle := generatorBundle{InDim: domain.FeatureDim, HiddenDim: 4, W1: []float32{1}}
	raw, _ := json.Marshal(bundle)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	if _, err := LoadGenerator(path); err == nil {
		t.Fatalf("expected shape validation error")
	}
}
