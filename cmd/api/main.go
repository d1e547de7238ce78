package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"harmonia/internal/config"
	"harmonia/internal/db"
	apihttp "harmonia/internal/http"
	"harmonia/internal/imaging"
	"harmonia/internal/repository"
	"harmonia/internal/service"
	"harmonia/internal/vision"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	ratingRepo := repository.NewPgRatingRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	psychometricRepo := repository.NewPgPsychometricRepository(pool)

	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
		featureCache vision.FeatureCache
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, time.Minute, 5)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			featureCache = vision.NewRedisFeatureCache(redisClient, 24*time.Hour)
		}
		cancel()
	}
	if featureCache == nil {
		featureCache = vision.NewMemoryFeatureCache()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	generator := vision.NewSeededGenerator(1)
	if cfg.GeneratorWeights == "" {
		logger.Warn("generator weights not configured, using dev bundle")
	} else if loaded, err := vision.LoadGenerator(cfg.GeneratorWeights); err != nil {
		logger.Warn("generator weights unavailable, using dev bundle", zap.Error(err))
	} else {
		generator = loaded
	}

	catalog := imaging.NewCatalog(cfg.ImageDir)
	backbone := vision.NewHTTPBackbone(cfg.ExtractorBaseURL, cfg.ExtractorAPIKey, logger)
	extractor := service.NewExtractionService(
		logger,
		backbone,
		featureCache,
		catalog,
		cfg.ExtractionWorkers,
		time.Duration(cfg.ExtractionTimeout)*time.Second,
		cfg.MinCoverage,
	)
	calibrationSvc := service.NewCalibrationService(logger, extractor, generator, cfg.LikedThreshold)
	userSvc := service.NewUserService(logger, userRepo, loginLimiter)
	psychometricSvc := service.NewPsychometricService(logger, psychometricRepo, userRepo)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	calibrationHandler := apihttp.NewCalibrationHandler(
		logger,
		calibrationSvc,
		catalog,
		ratingRepo,
		profileRepo,
		userRepo,
		cfg.ImageSetSize,
	)
	psychometricHandler := apihttp.NewPsychometricHandler(logger, psychometricSvc)
	router := apihttp.NewRouter(logger, jwtSvc, userHandler, calibrationHandler, psychometricHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
