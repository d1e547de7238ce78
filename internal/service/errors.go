package service

import "errors"

// Taxonomia de errores del motor de calibracion. Los handlers los traducen a
// codigos HTTP via errors.Is.
var (
	// ErrValidation: mapa de ratings malformado (set de imagenes equivocado,
	// estrellas fuera de rango). Se rechaza antes de extraer nada.
	ErrValidation = errors.New("invalid calibration request")

	// ErrExtraction: una imagen puntual no se pudo extraer. No es fatal; se
	// absorbe localmente y cuenta contra la cobertura.
	ErrExtraction = errors.New("image extraction failed")

	// ErrInsufficientData: menos imagenes extraidas que el minimo configurado.
	// Fatal para la sesion; el usuario puede reintentar.
	ErrInsufficientData = errors.New("insufficient extracted images")

	// ErrExtractionTimeout: el pool no completo dentro del presupuesto de
	// tiempo. Fatal pero reintentable.
	ErrExtractionTimeout = errors.New("extraction timed out")

	// ErrGeneration: valores no finitos durante la personalizacion. Fatal, no
	// se reintenta automaticamente.
	ErrGeneration = errors.New("personalization generation failed")
)
