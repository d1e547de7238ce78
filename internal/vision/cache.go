package vision

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FeatureCache guarda vectores de features por image id. El contrato es
// append-only e idempotente: la primera escritura gana y las concurrentes
// convergen porque la extraccion es pura para pesos fijos.
type FeatureCache interface {
	Get(ctx context.Context, imageID string) ([]float32, bool)
	Put(ctx context.Context, imageID string, features []float32)
}

type memoryFeatureCache struct {
	mu    sync.RWMutex
	items map[string][]float32
}

// NewMemoryFeatureCache crea el cache en memoria usado por defecto.
func NewMemoryFeatureCache() FeatureCache {
	return &memoryFeatureCache{items: make(map[string][]float32)}
}

func (c *memoryFeatureCache) Get(_ context.Context, imageID string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.items[imageID]
	return vec, ok
}

func (c *memoryFeatureCache) Put(_ context.Context, imageID string, features []float32) {
	if imageID == "" || len(features) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[imageID]; ok {
		return
	}
	stored := make([]float32, len(features))
	copy(stored, features)
	c.items[imageID] = stored
}

type redisFeatureCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisFeatureCache crea un cache compartido entre instancias del servicio.
func NewRedisFeatureCache(client *redis.Client, ttl time.Duration) FeatureCache {
	if client == nil {
		return nil
	}
	return &redisFeatureCache{
		client: client,
		prefix: "vision:feature:",
		ttl:    ttl,
	}
}

func (c *redisFeatureCache) Get(ctx context.Context, imageID string) ([]float32, bool) {
	if imageID == "" {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.prefix+imageID).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *redisFeatureCache) Put(ctx context.Context, imageID string, features []float32) {
	if imageID == "" || len(features) == 0 {
		return
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return
	}
	// SetNX preserva la semantica de primera-escritura-gana.
	c.client.SetNX(ctx, c.prefix+imageID, raw, c.ttl)
}
