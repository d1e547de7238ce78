package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"harmonia/internal/domain"
	"harmonia/internal/vision"
)

// Vocabulario fijo de rasgos del MVP. El clasificador real de rasgos llega en
// una fase posterior; el contrato exige que las listas siempre esten presentes
// y tipadas.
var (
	placeholderDetectedTraits = domain.DetectedTraits{
		FacialLandmarks:   []string{"placeholder"},
		StylePresentation: []string{"placeholder"},
		VibeTags:          []string{"placeholder"},
	}
	placeholderAttractionTriggers = domain.AttractionTriggers{
		MandatoryTraits: []string{"placeholder_positive_trait"},
		NegativeTraits:  []string{"placeholder_negative_trait"},
	}
)

// CalibrationService orquesta una sesion completa de calibracion visual:
// extraccion, agregacion, generacion dinamica y ensamblado del perfil. La
// sesion es sincrona de punta a punta y no retiene estado mutable.
type CalibrationService struct {
	logger         *zap.Logger
	extractor      *ExtractionService
	generator      *vision.Generator
	likedThreshold float64
	nowFn          func() time.Time
}

func NewCalibrationService(
	logger *zap.Logger,
	extractor *ExtractionService,
	generator *vision.Generator,
	likedThreshold float64,
) *CalibrationService {
	if likedThreshold <= 0 || likedThreshold > 1 {
		likedThreshold = 0.5
	}
	return &CalibrationService{
		logger:         logger,
		extractor:      extractor,
		generator:      generator,
		likedThreshold: likedThreshold,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}

// calibrationSession lleva el estado de la maquina por sesion. Las
// transiciones son unidireccionales; Failed es alcanzable desde Extracting y
// Generating.
type calibrationSession struct {
	userID string
	state  domain.SessionState
	logger *zap.Logger
}

func (s *calibrationSession) to(next domain.SessionState) {
	if s.logger != nil {
		s.logger.Debug("calibration session transition",
			zap.String("user_id", s.userID),
			zap.String("from", string(s.state)),
			zap.String("to", string(next)),
		)
	}
	s.state = next
}

func (s *calibrationSession) fail(err error) error {
	s.to(domain.SessionFailed)
	if s.logger != nil {
		s.logger.Warn("calibration session failed",
			zap.String("user_id", s.userID),
			zap.Error(err),
		)
	}
	return err
}

// Calibrate consume una CalibrationRequest y produce el documento
// p1_visual_vector, o una falla tipada. Nunca devuelve un perfil parcial.
// assignedSet es el set de imagenes previamente asignado al usuario; las
// claves del request deben coincidir exactamente.
func (s *CalibrationService) Calibrate(ctx context.Context, req domain.CalibrationRequest, assignedSet []string) (domain.VisualVector, error) {
	session := &calibrationSession{userID: req.UserID, state: domain.SessionCreated, logger: s.logger}

	if err := validateRequest(req, assignedSet); err != nil {
		return domain.VisualVector{}, session.fail(err)
	}

	// Orden estable de procesamiento: el resultado no depende del orden de
	// iteracion del mapa.
	imageIDs := make([]string, 0, len(req.Ratings))
	for id := range req.Ratings {
		imageIDs = append(imageIDs, id)
	}
	sort.Strings(imageIDs)

	session.to(domain.SessionExtracting)
	features, err := s.extractor.ExtractAll(ctx, imageIDs)
	if err != nil {
		return domain.VisualVector{}, session.fail(err)
	}

	session.to(domain.SessionAggregating)
	items := make([]ratedFeature, 0, len(features))
	stars := make([]int, 0, len(features))
	for _, id := range imageIDs {
		vec, ok := features[id]
		if !ok {
			continue
		}
		rating := req.Ratings[id]
		items = append(items, ratedFeature{
			imageID:  id,
			stars:    rating,
			weight:   RatingWeight(rating),
			features: vec,
		})
		stars = append(stars, rating)
	}
	agg := aggregate(items, s.likedThreshold)

	session.to(domain.SessionGenerating)
	embedding, err := s.generator.Transform(agg.selfSignal)
	if err != nil {
		if errors.Is(err, vision.ErrNonFinite) {
			return domain.VisualVector{}, session.fail(fmt.Errorf("%w: %v", ErrGeneration, err))
		}
		return domain.VisualVector{}, session.fail(err)
	}

	session.to(domain.SessionAssembled)
	coverage := float64(len(items)) / float64(len(req.Ratings))
	fallbacks := 0
	if agg.zeroWeightFallback {
		fallbacks++
	}
	if agg.likedFallback {
		fallbacks++
	}
	confidence := confidenceScore(coverage, ratingDispersion(stars), fallbacks)

	doc := domain.VisualVector{
		Meta: domain.VisualVectorMeta{
			UserID:               req.UserID,
			Gender:               orUnspecified(req.Gender),
			PreferenceTarget:     orUnspecified(req.PreferenceTarget),
			CalibrationTimestamp: s.nowFn().Format(time.RFC3339),
			ImagesRated:          len(req.Ratings),
		},
		SelfAnalysis: domain.SelfAnalysis{
			EmbeddingVector: embedding,
			DetectedTraits:  placeholderDetectedTraits,
		},
		PreferenceModel: domain.PreferenceModel{
			IdealVector:           agg.idealVector,
			AttractionTriggers:    placeholderAttractionTriggers,
			CalibrationConfidence: confidence,
		},
	}

	if s.logger != nil {
		s.logger.Info("calibration session assembled",
			zap.String("user_id", req.UserID),
			zap.Int("images_rated", len(req.Ratings)),
			zap.Int("images_extracted", len(items)),
			zap.Float64("confidence", confidence),
		)
	}

	return doc, nil
}

// validateRequest rechaza requests malformados antes de cualquier extraccion.
func validateRequest(req domain.CalibrationRequest, assignedSet []string) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrValidation)
	}
	if len(req.Ratings) == 0 {
		return fmt.Errorf("%w: no ratings provided", ErrValidation)
	}
	for imageID, starsVal := range req.Ratings {
		if imageID == "" {
			return fmt.Errorf("%w: empty image id", ErrValidation)
		}
		if starsVal < 1 || starsVal > 5 {
			return fmt.Errorf("%w: rating for %s must be 1-5, got %d", ErrValidation, imageID, starsVal)
		}
	}
	if assignedSet != nil {
		if len(req.Ratings) != len(assignedSet) {
			return fmt.Errorf("%w: expected %d ratings, got %d", ErrValidation, len(assignedSet), len(req.Ratings))
		}
		for _, id := range assignedSet {
			if _, ok := req.Ratings[id]; !ok {
				return fmt.Errorf("%w: missing rating for assigned image %s", ErrValidation, id)
			}
		}
	}
	return nil
}

func orUnspecified(v string) string {
	if v == "" {
		return "unspecified"
	}
	return v
}
