package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"harmonia/internal/domain"
)

// Estadisticas de normalizacion del backbone (ImageNet). Deben coincidir con
// las usadas durante el entrenamiento de los pesos congelados.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// DecodeAsset decodifica bytes crudos (jpeg/png) y los convierte en un
// ImageAsset normalizado listo para el backbone.
func DecodeAsset(id string, raw []byte) (domain.ImageAsset, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.ImageAsset{}, fmt.Errorf("decode image %q: %w", id, err)
	}
	return NormalizeImage(id, img), nil
}

// NormalizeImage reescala a la resolucion de entrada del backbone y aplica la
// normalizacion por canal, produciendo un tensor CHW.
func NormalizeImage(id string, img image.Image) domain.ImageAsset {
	dst := image.NewRGBA(image.Rect(0, 0, domain.InputWidth, domain.InputHeight))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	plane := domain.InputHeight * domain.InputWidth
	tensor := make([]float32, 3*plane)
	for y := 0; y < domain.InputHeight; y++ {
		for x := 0; x < domain.InputWidth; x++ {
			offset := dst.PixOffset(x, y)
			idx := y*domain.InputWidth + x
			for c := 0; c < 3; c++ {
				v := float32(dst.Pix[offset+c]) / 255.0
				tensor[c*plane+idx] = (v - channelMean[c]) / channelStd[c]
			}
		}
	}

	return domain.ImageAsset{ID: id, Tensor: tensor}
}
