package service

import "math"

// ratingDispersion calcula la varianza poblacional de las estrellas
// normalizada a [0,1]. Ratings casi uniformes tienen poca senal
// discriminativa; la varianza maxima util en escala 1-5 ronda 4, y se
// normaliza dividiendo por 2 igual que el servicio original.
func ratingDispersion(stars []int) float64 {
	if len(stars) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stars {
		sum += float64(s)
	}
	mean := sum / float64(len(stars))

	var variance float64
	for _, s := range stars {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(stars))

	return math.Min(variance/2.0, 1.0)
}

// confidenceScore combina cobertura de extraccion, dispersion de ratings y
// cantidad de fallbacks disparados en un puntaje [0,1]. Es pura y
// determinista; monotona creciente en cobertura y dispersion, decreciente en
// fallbacks.
func confidenceScore(coverage, dispersion float64, fallbacks int) float64 {
	score := coverage * dispersion
	for i := 0; i < fallbacks; i++ {
		score *= 0.5
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
