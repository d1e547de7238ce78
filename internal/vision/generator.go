package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"harmonia/internal/domain"
)

// ErrNonFinite indica NaN/Inf en parametros generados o en la salida.
var ErrNonFinite = errors.New("non-finite value in generated parameters")

// Generator es la red hiper-generadora: dado el self-signal de un usuario
// sintetiza una transformacion afin por dimension (peso y sesgo de largo D)
// y la aplica sobre el mismo self-signal. Dos capas densas:
//
//	h = relu(W1*s + b1)        (D -> hidden)
//	p = W2*h + b2              (hidden -> 2D, peso || sesgo)
//
// Los pesos son inmutables despues de cargarse; solo se hace inferencia.
type Generator struct {
	inDim     int
	hiddenDim int
	w1        []float32 // hiddenDim x inDim, row-major
	b1        []float32 // hiddenDim
	w2        []float32 // 2*inDim x hiddenDim, row-major
	b2        []float32 // 2*inDim
}

type generatorBundle struct {
	InDim     int       `json:"in_dim"`
	HiddenDim int       `json:"hidden_dim"`
	W1        []float32 `json:"w1"`
	B1        []float32 `json:"b1"`
	W2        []float32 `json:"w2"`
	B2        []float32 `json:"b2"`
}

// LoadGenerator carga un bundle de pesos pre-entrenados desde un archivo JSON.
func LoadGenerator(path string) (*Generator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read generator weights: %w", err)
	}
	var bundle generatorBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("parse generator weights: %w", err)
	}
	return newGenerator(bundle)
}

// NewSeededGenerator construye un bundle determinista para desarrollo y tests
// cuando no hay pesos pre-entrenados configurados.
func NewSeededGenerator(seed int64) *Generator {
	const hidden = 256
	in := domain.FeatureDim
	rng := rand.New(rand.NewSource(seed))

	initLayer := func(rows, cols int) []float32 {
		scale := float32(1.0 / math.Sqrt(float64(cols)))
		w := make([]float32, rows*cols)
		for i := range w {
			w[i] = (rng.Float32()*2 - 1) * scale
		}
		return w
	}

	gen, err := newGenerator(generatorBundle{
		InDim:     in,
		HiddenDim: hidden,
		W1:        initLayer(hidden, in),
		B1:        make([]float32, hidden),
		W2:        initLayer(2*in, hidden),
		B2:        make([]float32, 2*in),
	})
	if err != nil {
		// Imposible con las dimensiones construidas arriba.
		panic(err)
	}
	return gen
}

func newGenerator(bundle generatorBundle) (*Generator, error) {
	if bundle.InDim != domain.FeatureDim {
		return nil, fmt.Errorf("generator in_dim %d, expected %d", bundle.InDim, domain.FeatureDim)
	}
	if bundle.HiddenDim <= 0 {
		return nil, fmt.Errorf("generator hidden_dim %d invalid", bundle.HiddenDim)
	}
	if len(bundle.W1) != bundle.HiddenDim*bundle.InDim ||
		len(bundle.B1) != bundle.HiddenDim ||
		len(bundle.W2) != 2*bundle.InDim*bundle.HiddenDim ||
		len(bundle.B2) != 2*bundle.InDim {
		return nil, errors.New("generator weight bundle has inconsistent shapes")
	}
	return &Generator{
		inDim:     bundle.InDim,
		hiddenDim: bundle.HiddenDim,
		w1:        bundle.W1,
		b1:        bundle.B1,
		w2:        bundle.W2,
		b2:        bundle.B2,
	}, nil
}

// Params ejecuta el forward del generador y devuelve el par (peso, sesgo) por
// dimension sintetizado para este self-signal.
func (g *Generator) Params(signal []float32) (weight, bias []float32, err error) {
	if len(signal) != g.inDim {
		return nil, nil, fmt.Errorf("signal has %d dims, expected %d", len(signal), g.inDim)
	}

	hidden := make([]float32, g.hiddenDim)
	for i := 0; i < g.hiddenDim; i++ {
		row := g.w1[i*g.inDim : (i+1)*g.inDim]
		sum := float64(g.b1[i])
		for j, v := range row {
			sum += float64(v) * float64(signal[j])
		}
		if sum < 0 { // ReLU
			sum = 0
		}
		// La conversion a float32 tambien puede desbordar a Inf.
		hidden[i] = float32(sum)
		if !isFinite32(hidden[i]) {
			return nil, nil, ErrNonFinite
		}
	}

	params := make([]float32, 2*g.inDim)
	for i := range params {
		row := g.w2[i*g.hiddenDim : (i+1)*g.hiddenDim]
		sum := float64(g.b2[i])
		for j, v := range row {
			sum += float64(v) * float64(hidden[j])
		}
		params[i] = float32(sum)
		if !isFinite32(params[i]) {
			return nil, nil, ErrNonFinite
		}
	}

	return params[:g.inDim], params[g.inDim:], nil
}

// Transform produce el embedding personalizado aplicando la transformacion
// afin generada elemento a elemento sobre el self-signal.
func (g *Generator) Transform(signal []float32) ([]float32, error) {
	weight, bias, err := g.Params(signal)
	if err != nil {
		return nil, err
	}

	out := make([]float32, g.inDim)
	for i := range out {
		v := float64(weight[i])*float64(signal[i]) + float64(bias[i])
		out[i] = float32(v)
		if !isFinite32(out[i]) {
			return nil, ErrNonFinite
		}
	}
	return out, nil
}

func isFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
