package service

import "testing"

func TestRatingDispersion(t *testing.T) {
	if got := ratingDispersion(nil); got != 0 {
		t.Fatalf("empty dispersion = %f", got)
	}
	if got := ratingDispersion([]int{3, 3, 3}); got != 0 {
		t.Fatalf("uniform dispersion = %f", got)
	}
	// Varianza poblacional de {1,5} = 4, capado a 1 tras dividir por 2... 4/2=2 -> 1.
	if got := ratingDispersion([]int{1, 5}); got != 1 {
		t.Fatalf("max dispersion = %f, want 1", got)
	}
	mixed := ratingDispersion([]int{1, 2, 4, 5})
	if mixed <= 0 || mixed > 1 {
		t.Fatalf("mixed dispersion out of range: %f", mixed)
	}
}

func TestConfidenceScore_Bounds(t *testing.T) {
	cases := []struct {
		coverage, dispersion float64
		fallbacks            int
	}{
		{0, 0, 0},
		{1, 1, 0},
		{0.5, 0.8, 1},
		{1.5, 2, 0}, // entradas fuera de rango igual quedan en [0,1]
		{-1, 0.5, 0},
	}
	for _, c := range cases {
		got := confidenceScore(c.coverage, c.dispersion, c.fallbacks)
		if got < 0 || got > 1 {
			t.Fatalf("confidence(%v) = %f out of [0,1]", c, got)
		}
	}
}

func TestConfidenceScore_Monotonic(t *testing.T) {
	base := confidenceScore(0.8, 0.6, 0)
	if confidenceScore(1.0, 0.6, 0) < base {
		t.Fatalf("higher coverage must not lower confidence")
	}
	if confidenceScore(0.8, 0.9, 0) < base {
		t.Fatalf("higher dispersion must not lower confidence")
	}
	if confidenceScore(0.8, 0.6, 1) >= base {
		t.Fatalf("a fallback must strictly penalize confidence")
	}
	if confidenceScore(0.8, 0.6, 2) >= confidenceScore(0.8, 0.6, 1) {
		t.Fatalf("more fallbacks must penalize more")
	}
}

func TestConfidenceScore_UniformBelowMixed(t *testing.T) {
	// Sesion con todo 1 estrella (dispersion 0, dos fallbacks) contra una
	// identica con ratings mezclados.
	uniform := confidenceScore(1.0, ratingDispersion([]int{1, 1, 1, 1}), 2)
	mixed := confidenceScore(1.0, ratingDispersion([]int{1, 3, 5, 4}), 0)
	if uniform >= mixed {
		t.Fatalf("all-1-star confidence (%f) must be strictly below mixed (%f)", uniform, mixed)
	}
}
