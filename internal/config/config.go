package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuracion del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Sidecar de extraccion de features (backbone congelado).
	ExtractorBaseURL string `env:"EXTRACTOR_BASE_URL" envDefault:"http://localhost:8501"`
	ExtractorAPIKey  string `env:"EXTRACTOR_API_KEY"`

	// Catalogo de imagenes de calibracion.
	ImageDir     string `env:"IMAGE_DIR" envDefault:"./data/global_calibration"`
	ImageSetSize int    `env:"IMAGE_SET_SIZE" envDefault:"10"`

	// Pesos pre-entrenados del generador dinamico; si falta se usa un bundle
	// determinista de desarrollo.
	GeneratorWeights string `env:"GENERATOR_WEIGHTS"`

	// Parametros del motor de calibracion.
	MinCoverage       float64 `env:"CALIBRATION_MIN_COVERAGE" envDefault:"0.8"`
	LikedThreshold    float64 `env:"CALIBRATION_LIKED_THRESHOLD" envDefault:"0.5"`
	ExtractionWorkers int     `env:"EXTRACTION_WORKERS" envDefault:"4"`
	ExtractionTimeout int     `env:"EXTRACTION_TIMEOUT_SECONDS" envDefault:"30"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
