package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"harmonia/internal/domain"
	"harmonia/internal/imaging"
	"harmonia/internal/repository"
	"harmonia/internal/service"
	"harmonia/internal/vision"
)

// CalibrationHandler mantiene dependencias para endpoints de calibracion.
type CalibrationHandler struct {
	logger       *zap.Logger
	calibration  *service.CalibrationService
	catalog      *imaging.Catalog
	ratings      repository.RatingRepository
	profiles     repository.ProfileRepository
	users        repository.UserRepository
	imageSetSize int
}

func NewCalibrationHandler(
	logger *zap.Logger,
	calibration *service.CalibrationService,
	catalog *imaging.Catalog,
	ratings repository.RatingRepository,
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	imageSetSize int,
) *CalibrationHandler {
	return &CalibrationHandler{
		logger:       logger,
		calibration:  calibration,
		catalog:      catalog,
		ratings:      ratings,
		profiles:     profiles,
		users:        users,
		imageSetSize: imageSetSize,
	}
}

// Images maneja GET /api/calibration/images. Devuelve el set asignado.
func (h *CalibrationHandler) Images(c *gin.Context) {
	images, err := h.catalog.List(h.imageSetSize)
	if err != nil {
		h.logger.Error("list calibration images failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list images"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images, "total": len(images)})
}

// ImageFile maneja GET /api/calibration/images/:filename.
func (h *CalibrationHandler) ImageFile(c *gin.Context) {
	path, err := h.catalog.ResolvePath(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	c.File(path)
}

// Submit maneja POST /api/calibration/submit: corre la sesion completa y
// persiste ratings y perfil de forma atomica desde la vista del cliente.
func (h *CalibrationHandler) Submit(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Ratings map[string]int `json:"ratings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid calibration request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("load user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	assignedSet, err := h.catalog.AssignedSet(h.imageSetSize)
	if err != nil {
		h.logger.Error("load assigned set failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load image set"})
		return
	}

	doc, err := h.calibration.Calibrate(c.Request.Context(), domain.CalibrationRequest{
		UserID:           user.ID,
		Gender:           user.Gender,
		PreferenceTarget: user.PreferenceTarget,
		Ratings:          req.Ratings,
	}, assignedSet)
	if err != nil {
		h.writeCalibrationError(c, err)
		return
	}

	now := time.Now().UTC()
	ratings := make([]domain.Rating, 0, len(req.Ratings))
	for imageID, stars := range req.Ratings {
		ratings = append(ratings, domain.Rating{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			ImageID:   imageID,
			Stars:     stars,
			CreatedAt: now,
		})
	}
	if err := h.ratings.CreateBatch(c.Request.Context(), ratings); err != nil {
		h.logger.Error("persist ratings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist ratings"})
		return
	}

	profile := domain.PreferenceProfile{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Document:  doc,
		Embedding: pgvector.NewVector(doc.SelfAnalysis.EmbeddingVector),
		Ideal:     pgvector.NewVector(doc.PreferenceModel.IdealVector),
		CreatedAt: now,
	}
	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		h.logger.Error("persist profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist profile"})
		return
	}

	if err := h.users.SetCalibrationComplete(c.Request.Context(), user.ID, now); err != nil {
		h.logger.Error("mark calibration complete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"visual_vector": doc,
		"confidence":    doc.PreferenceModel.CalibrationConfidence,
	})
}

// Vector maneja GET /api/calibration/vector. Devuelve el documento persistido.
func (h *CalibrationHandler) Vector(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	profile, err := h.profiles.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "calibration not completed"})
			return
		}
		h.logger.Error("load profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visual_vector": profile.Document})
}

// Matches maneja GET /api/calibration/matches: perfiles cuyo embedding propio
// esta mas cerca del vector ideal del usuario.
func (h *CalibrationHandler) Matches(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	profile, err := h.profiles.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "calibration not completed"})
			return
		}
		h.logger.Error("load profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}

	matches, err := h.profiles.Nearest(c.Request.Context(), profile.Ideal, claims.UserID, 5)
	if err != nil {
		h.logger.Error("nearest profiles failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not find matches"})
		return
	}

	results := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		results = append(results, gin.H{
			"user_id":    m.UserID,
			"confidence": m.Document.PreferenceModel.CalibrationConfidence,
		})
	}
	c.JSON(http.StatusOK, gin.H{"matches": results})
}

func (h *CalibrationHandler) writeCalibrationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExtractionTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "feature extraction timed out"})
	case errors.Is(err, vision.ErrExtractorUnavailable), errors.Is(err, service.ErrExtraction):
		c.JSON(http.StatusBadGateway, gin.H{"error": "feature extractor unavailable"})
	case errors.Is(err, service.ErrGeneration):
		h.logger.Error("profile generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate profile"})
	default:
		h.logger.Error("calibration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calibration failed"})
	}
}
