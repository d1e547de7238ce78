package service

// RatingWeight mapea estrellas (1-5) a un peso continuo en [0,1]. Es el unico
// lugar donde se codifica la intensidad de atraccion; cambiar esta formula
// cambia todas las magnitudes downstream y debe versionarse.
func RatingWeight(stars int) float64 {
	return float64(stars-1) / 4.0
}

// ratedFeature es un vector extraido junto con el peso de su rating.
type ratedFeature struct {
	imageID  string
	stars    int
	weight   float64
	features []float32
}

// aggregation es la salida del agregador de preferencias.
type aggregation struct {
	selfSignal  []float32
	idealVector []float32

	// Flags de fallback; cada uno penaliza la confianza de la sesion.
	zeroWeightFallback bool
	likedFallback      bool
}

// aggregate combina features y pesos en el self-signal (promedio ponderado) y
// el vector ideal (centroide del subset con peso >= likedThreshold). Los
// items deben venir en orden estable; la reduccion es asociativa/conmutativa
// para un orden fijo y toda division esta protegida contra denominador cero.
func aggregate(items []ratedFeature, likedThreshold float64) aggregation {
	var agg aggregation
	if len(items) == 0 {
		return agg
	}

	dim := len(items[0].features)
	weightedSum := make([]float64, dim)
	plainSum := make([]float64, dim)
	likedSum := make([]float64, dim)
	var totalWeight float64
	var likedCount int

	for _, item := range items {
		for i, v := range item.features {
			weightedSum[i] += item.weight * float64(v)
			plainSum[i] += float64(v)
		}
		totalWeight += item.weight

		if item.weight >= likedThreshold {
			for i, v := range item.features {
				likedSum[i] += float64(v)
			}
			likedCount++
		}
	}

	agg.selfSignal = make([]float32, dim)
	if totalWeight > 0 {
		for i := range agg.selfSignal {
			agg.selfSignal[i] = float32(weightedSum[i] / totalWeight)
		}
	} else {
		// Todos los ratings mapean a peso 0: media sin ponderar.
		agg.zeroWeightFallback = true
		count := float64(len(items))
		for i := range agg.selfSignal {
			agg.selfSignal[i] = float32(plainSum[i] / count)
		}
	}

	agg.idealVector = make([]float32, dim)
	if likedCount > 0 {
		for i := range agg.idealVector {
			agg.idealVector[i] = float32(likedSum[i] / float64(likedCount))
		}
	} else {
		// Ninguna imagen supera el umbral: el ideal cae al self-signal.
		agg.likedFallback = true
		copy(agg.idealVector, agg.selfSignal)
	}

	return agg
}

// unweightedMean es la media simple de los features; existe para verificar en
// tests que el self-signal ponderado difiere de la media ingenua.
func unweightedMean(items []ratedFeature) []float32 {
	if len(items) == 0 {
		return nil
	}
	dim := len(items[0].features)
	sum := make([]float64, dim)
	for _, item := range items {
		for i, v := range item.features {
			sum[i] += float64(v)
		}
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = float32(sum[i] / float64(len(items)))
	}
	return out
}
