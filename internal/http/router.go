package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"harmonia/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	calH *CalibrationHandler,
	psyH *PsychometricHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)
	auth.GET("/me", JWTAuthMiddleware(jwtSvc), userH.Me)

	calibration := api.Group("/calibration", JWTAuthMiddleware(jwtSvc))
	calibration.GET("/images", calH.Images)
	calibration.GET("/images/:filename", calH.ImageFile)
	calibration.POST("/submit", calH.Submit)
	calibration.GET("/vector", calH.Vector)
	calibration.GET("/matches", calH.Matches)

	psychometric := api.Group("/psychometric", JWTAuthMiddleware(jwtSvc))
	psychometric.GET("/questions", psyH.Questions)
	psychometric.POST("/submit", psyH.Submit)
	psychometric.GET("/status", psyH.Status)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
