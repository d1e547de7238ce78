package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"harmonia/internal/domain"
)

// ErrExtractorUnavailable indica que el circuit breaker esta abierto y el
// sidecar de extraccion no recibe trafico.
var ErrExtractorUnavailable = errors.New("extractor unavailable")

// HTTPBackbone implementa Backbone contra un sidecar de inferencia que aloja
// el backbone convolucional congelado. El breaker evita castigar al sidecar
// cuando encadena fallas.
type HTTPBackbone struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHTTPBackbone construye el cliente apuntando al endpoint de embeddings.
func NewHTTPBackbone(baseURL, apiKey string, logger *zap.Logger) *HTTPBackbone {
	settings := gobreaker.Settings{
		Name:        "extractor",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("extractor breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &HTTPBackbone{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

type embedRequest struct {
	ImageID string    `json:"image_id"`
	Tensor  []float32 `json:"tensor"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (b *HTTPBackbone) Extract(ctx context.Context, asset domain.ImageAsset) ([]float32, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.extract(ctx, asset)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrExtractorUnavailable, asset.ID)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (b *HTTPBackbone) extract(ctx context.Context, asset domain.ImageAsset) ([]float32, error) {
	bodyBytes, err := json.Marshal(embedRequest{ImageID: asset.ID, Tensor: asset.Tensor})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embeddings", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if b.logger != nil {
			b.logger.Warn("extractor error", zap.Int("status", resp.StatusCode), zap.String("image_id", asset.ID))
		}
		return nil, fmt.Errorf("extractor http error: status=%d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if er.Error != nil {
		return nil, fmt.Errorf("extractor api error: %s", er.Error.Message)
	}
	if len(er.Embedding) != domain.FeatureDim {
		return nil, fmt.Errorf("extractor returned %d dims, expected %d", len(er.Embedding), domain.FeatureDim)
	}

	return er.Embedding, nil
}
