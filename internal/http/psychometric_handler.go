package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"harmonia/internal/domain"
	"harmonia/internal/service"
)

// PsychometricHandler mantiene dependencias para endpoints del cuestionario.
type PsychometricHandler struct {
	logger  *zap.Logger
	psyServ *service.PsychometricService
}

func NewPsychometricHandler(logger *zap.Logger, psyServ *service.PsychometricService) *PsychometricHandler {
	return &PsychometricHandler{logger: logger, psyServ: psyServ}
}

// Questions maneja GET /api/psychometric/questions.
func (h *PsychometricHandler) Questions(c *gin.Context) {
	questions := h.psyServ.Questions()
	c.JSON(http.StatusOK, gin.H{"questions": questions, "total": len(questions)})
}

// Submit maneja POST /api/psychometric/submit.
func (h *PsychometricHandler) Submit(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Answers []domain.QuestionAnswer `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid psychometric request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	scores, err := h.psyServ.Submit(c.Request.Context(), claims.UserID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizIncomplete), errors.Is(err, service.ErrQuizInvalidOption):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		default:
			h.logger.Error("psychometric submit failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process answers"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"traits": scores})
}

// Status maneja GET /api/psychometric/status.
func (h *PsychometricHandler) Status(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	answered, total, err := h.psyServ.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("psychometric status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answered": answered,
		"total":    total,
		"complete": answered >= total,
	})
}
