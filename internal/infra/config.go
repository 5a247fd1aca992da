package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	ServiceName string
	Port        string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	JWTSecret   string
	GeoIPDBPath string
	LogLevel    string

	RedisURL     string
	RedisTimeout time.Duration

	StorageBackend   string
	StoragePath      string
	S3Endpoint       string
	S3Bucket         string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3ForcePathStyle bool

	InferenceAPIToken string
	VisionBaseURL     string
	VisionModel       string
	ReasoningBaseURL  string
	ReasoningModel    string
	CodegenBaseURL    string
	CodegenModel      string
	LLMTimeout        time.Duration
	LLMMaxRPS         float64
	LLMCacheEnabled   bool
	CodegenLanguage   string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	CacheTTLActiveJob    time.Duration
	CacheTTLCompletedJob time.Duration
	CacheTTLLLM          time.Duration

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	JobTimeout         time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	MaxUploadBytes   int64

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "multimodal-agent"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 0)),
		DBMinConns:  int32(getEnvInt("DB_MIN_CONNS", 1)),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTimeout: time.Millisecond * time.Duration(getEnvInt("REDIS_TIMEOUT_MS", 500)),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", "filesystem")),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Bucket:         getEnv("S3_BUCKET", "agent-files"),
		S3Region:         os.Getenv("S3_REGION"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", true),

		InferenceAPIToken: os.Getenv("INFERENCE_API_TOKEN"),
		VisionBaseURL:     os.Getenv("VISION_BASE_URL"),
		VisionModel:       getEnv("VISION_MODEL", "Qwen/Qwen2.5-VL-7B-Instruct"),
		ReasoningBaseURL:  os.Getenv("REASONING_BASE_URL"),
		ReasoningModel:    getEnv("REASONING_MODEL", "meta-llama/Llama-3.1-8B-Instruct"),
		CodegenBaseURL:    os.Getenv("CODEGEN_BASE_URL"),
		CodegenModel:      getEnv("CODEGEN_MODEL", "deepseek-ai/deepseek-coder-7b-instruct-v1.5"),
		LLMTimeout:        time.Second * time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)),
		LLMMaxRPS:         getEnvFloat("LLM_MAX_RPS", 0),
		LLMCacheEnabled:   getEnvBool("LLM_CACHE_ENABLED", true),
		CodegenLanguage:   strings.ToLower(getEnv("CODEGEN_LANGUAGE", "python")),

		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)),

		CacheTTLActiveJob:    time.Second * time.Duration(getEnvInt("CACHE_TTL_ACTIVE_JOB_SECONDS", 10)),
		CacheTTLCompletedJob: time.Second * time.Duration(getEnvInt("CACHE_TTL_COMPLETED_JOB_SECONDS", 3600)),
		CacheTTLLLM:          time.Second * time.Duration(getEnvInt("CACHE_TTL_LLM_SECONDS", 3600)),

		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: time.Millisecond * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_MS", 2000)),
		JobTimeout:         time.Second * time.Duration(getEnvInt("JOB_TIMEOUT_SECONDS", 600)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	switch cfg.StorageBackend {
	case "filesystem", "s3":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
