package vision

import (
	"context"

	"harmonia/internal/domain"
)

// Backbone define la interfaz de extraccion de features: un tensor de imagen
// normalizado entra, un vector de dimension fija sale. Las implementaciones
// deben ser deterministas para pesos fijos: mismo tensor, mismo vector.
type Backbone interface {
	Extract(ctx context.Context, asset domain.ImageAsset) ([]float32, error)
}
