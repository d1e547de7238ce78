package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"harmonia/internal/domain"
)

var ErrImageNotFound = errors.New("image not found")

// Catalog expone el directorio de imagenes de calibracion. El set asignado a
// cada usuario sale de aqui; el motor valida los ratings contra ese set.
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// List devuelve hasta count imagenes del catalogo en orden estable.
func (c *Catalog) List(count int) ([]domain.CalibrationImage, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var images []domain.CalibrationImage
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		name := entry.Name()
		images = append(images, domain.CalibrationImage{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Filename: name,
			URL:      "/api/calibration/images/" + name,
		})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })
	if count > 0 && len(images) > count {
		images = images[:count]
	}
	return images, nil
}

// AssignedSet devuelve los ids del set fijo de calibracion (las primeras size
// imagenes en orden estable).
func (c *Catalog) AssignedSet(size int) ([]string, error) {
	images, err := c.List(size)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids, nil
}

// ResolvePath valida el nombre de archivo y devuelve la ruta absoluta dentro
// del catalogo. Rechaza cualquier intento de salir del directorio.
func (c *Catalog) ResolvePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || !isImageFile(filename) {
		return "", ErrImageNotFound
	}
	path := filepath.Join(c.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrImageNotFound
	}
	return path, nil
}

// LoadAsset lee y normaliza la imagen identificada por id, probando las
// extensiones soportadas como hace el servicio original.
func (c *Catalog) LoadAsset(id string) (domain.ImageAsset, error) {
	if id == "" || id != filepath.Base(id) {
		return domain.ImageAsset{}, ErrImageNotFound
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		path := filepath.Join(c.dir, id+ext)
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return DecodeAsset(id, raw)
	}
	return domain.ImageAsset{}, fmt.Errorf("%w: %s", ErrImageNotFound, id)
}
