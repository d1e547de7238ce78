package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// FeatureDim es la dimension fija de los vectores producidos por el backbone.
// Todo el sistema asume este valor; cambiarlo invalida perfiles persistidos.
const FeatureDim = 512

// Dimensiones de entrada del backbone (alto x ancho, 3 canales RGB).
const (
	InputHeight = 224
	InputWidth  = 224
)

// ImageAsset es una imagen ya decodificada y normalizada, lista para el
// backbone. Inmutable una vez construida.
type ImageAsset struct {
	ID     string
	Tensor []float32 // CHW, 3*InputHeight*InputWidth, normalizado ImageNet
}

// Rating asocia una imagen con la puntuacion (1-5 estrellas) de un usuario.
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageID   string    `json:"image_id"`
	Stars     int       `json:"stars"`
	CreatedAt time.Time `json:"created_at"`
}

// CalibrationRequest es el contrato de entrada del motor: un usuario y su
// mapa imagen -> estrellas. Las claves deben coincidir exactamente con el set
// de imagenes asignado al usuario.
type CalibrationRequest struct {
	UserID           string
	Gender           string
	PreferenceTarget string
	Ratings          map[string]int
}

// SessionState modela el ciclo de vida de una sesion de calibracion.
// Las transiciones son unidireccionales.
type SessionState string

const (
	SessionCreated     SessionState = "created"
	SessionExtracting  SessionState = "extracting"
	SessionAggregating SessionState = "aggregating"
	SessionGenerating  SessionState = "generating"
	SessionAssembled   SessionState = "assembled"
	SessionPersisted   SessionState = "persisted"
	SessionFailed      SessionState = "failed"
)

// VisualVectorMeta es la seccion meta del documento p1_visual_vector.
type VisualVectorMeta struct {
	UserID               string `json:"user_id"`
	Gender               string `json:"gender"`
	PreferenceTarget     string `json:"preference_target"`
	CalibrationTimestamp string `json:"calibration_timestamp"`
	ImagesRated          int    `json:"images_rated"`
}

type DetectedTraits struct {
	FacialLandmarks   []string `json:"facial_landmarks"`
	StylePresentation []string `json:"style_presentation"`
	VibeTags          []string `json:"vibe_tags"`
}

type SelfAnalysis struct {
	EmbeddingVector []float32      `json:"embedding_vector"`
	DetectedTraits  DetectedTraits `json:"detected_traits"`
}

type AttractionTriggers struct {
	MandatoryTraits []string `json:"mandatory_traits"`
	NegativeTraits  []string `json:"negative_traits"`
}

type PreferenceModel struct {
	IdealVector           []float32          `json:"ideal_vector"`
	AttractionTriggers    AttractionTriggers `json:"attraction_triggers"`
	CalibrationConfidence float64            `json:"calibration_confidence"`
}

// VisualVector es el artefacto de personalizacion completo. Los nombres de
// campo son contrato externo y no deben cambiar.
type VisualVector struct {
	Meta            VisualVectorMeta `json:"meta"`
	SelfAnalysis    SelfAnalysis     `json:"self_analysis"`
	PreferenceModel PreferenceModel  `json:"preference_model"`
}

// PreferenceProfile es la fila persistida: el documento completo mas las
// columnas vectoriales para busqueda por similitud.
type PreferenceProfile struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Document  VisualVector    `json:"document"`
	Embedding pgvector.Vector `json:"-"`
	Ideal     pgvector.Vector `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// CalibrationImage describe una imagen del catalogo de calibracion.
type CalibrationImage struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
