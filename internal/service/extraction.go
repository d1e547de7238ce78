package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"harmonia/internal/domain"
	"harmonia/internal/vision"
)

// AssetLoader entrega tensores de imagen ya decodificados; la adquisicion de
// bytes es un colaborador externo al motor.
type AssetLoader interface {
	LoadAsset(id string) (domain.ImageAsset, error)
}

// ExtractionService corre el backbone sobre un pool acotado de workers con un
// cache read-through por image id. Las fallas por imagen se absorben y se
// cuentan; la sesion solo sigue si la cobertura alcanza el minimo.
type ExtractionService struct {
	logger      *zap.Logger
	backbone    vision.Backbone
	cache       vision.FeatureCache
	assets      AssetLoader
	workers     int
	timeout     time.Duration
	minCoverage float64
}

func NewExtractionService(
	logger *zap.Logger,
	backbone vision.Backbone,
	cache vision.FeatureCache,
	assets AssetLoader,
	workers int,
	timeout time.Duration,
	minCoverage float64,
) *ExtractionService {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if minCoverage <= 0 || minCoverage > 1 {
		minCoverage = 0.8
	}
	if cache == nil {
		cache = vision.NewMemoryFeatureCache()
	}
	return &ExtractionService{
		logger:      logger,
		backbone:    backbone,
		cache:       cache,
		assets:      assets,
		workers:     workers,
		timeout:     timeout,
		minCoverage: minCoverage,
	}
}

// ExtractAll extrae features para los ids pedidos. Devuelve un mapa con los
// exitos; los errores por imagen quedan logueados y contados. Si el contexto
// del llamador se cancela o se agota el presupuesto, los resultados parciales
// se descartan.
func (s *ExtractionService) ExtractAll(ctx context.Context, imageIDs []string) (map[string][]float32, error) {
	if len(imageIDs) == 0 {
		return nil, fmt.Errorf("%w: empty image set", ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		features = make(map[string][]float32, len(imageIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, imageID := range imageIDs {
		imageID := imageID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			vec, err := s.extractOne(gctx, imageID)
			if err != nil {
				// La cancelacion aborta la sesion; una imagen corrupta no.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if s.logger != nil {
					s.logger.Warn("image extraction failed",
						zap.String("image_id", imageID),
						zap.Error(err),
					)
				}
				return nil
			}

			mu.Lock()
			features[imageID] = vec
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrExtractionTimeout, s.timeout)
		}
		// Cancelado por el llamador: nunca se devuelve un perfil parcial.
		return nil, err
	}

	required := int(s.minCoverage * float64(len(imageIDs)))
	if required < 1 {
		required = 1
	}
	if len(features) < required {
		return nil, fmt.Errorf("%w: %d of %d images extracted, need %d",
			ErrInsufficientData, len(features), len(imageIDs), required)
	}

	return features, nil
}

// extractOne resuelve una imagen contra el cache y, si falta, computa y
// guarda. Escritores concurrentes para la misma clave convergen porque la
// extraccion es pura para pesos fijos.
func (s *ExtractionService) extractOne(ctx context.Context, imageID string) ([]float32, error) {
	if vec, ok := s.cache.Get(ctx, imageID); ok {
		return vec, nil
	}

	asset, err := s.assets.LoadAsset(imageID)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrExtraction, imageID, err)
	}

	vec, err := s.backbone.Extract(ctx, asset)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, imageID, err)
	}
	if len(vec) != domain.FeatureDim {
		return nil, fmt.Errorf("%w: %s: got %d dims, expected %d",
			ErrExtraction, imageID, len(vec), domain.FeatureDim)
	}

	s.cache.Put(ctx, imageID, vec)
	return vec, nil
}
