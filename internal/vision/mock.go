package vision

import (
	"context"
	"sync"

	"harmonia/internal/domain"
)

// MockBackbone permite tests sin un sidecar de inferencia real.
type MockBackbone struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	FailIDs map[string]bool
	Err     error
	Calls   map[string]int
}

func (m *MockBackbone) Extract(ctx context.Context, asset domain.ImageAsset) ([]float32, error) {
	m.mu.Lock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[asset.ID]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailIDs[asset.ID] {
		return nil, ErrExtractorUnavailable
	}
	if vec, ok := m.Vectors[asset.ID]; ok {
		return vec, nil
	}

	// Vector determinista derivado del id para tests que no fijan valores.
	vec := make([]float32, domain.FeatureDim)
	var seed float32
	for _, r := range asset.ID {
		seed += float32(r)
	}
	for i := range vec {
		vec[i] = seed + float32(i%7)
	}
	return vec, nil
}

// CallCount devuelve cuantas veces se pidio la extraccion de un id.
func (m *MockBackbone) CallCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[id]
}
