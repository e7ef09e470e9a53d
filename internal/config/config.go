package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	ConverterURL            string
	ConverterTimeoutSeconds int

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int
	BreakerHalfOpenMaxCalls   int

	ExportInferNumbers bool
	ExportStorage      string
	ExportDir          string
	ExportArchive      bool

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool

	SessionCacheSize  int
	MaxUploadMB       int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWaitMS    int
	APIMaxConnections int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; CONFIG_FILE may point at a flat YAML document
// whose keys are the same variable names. Real environment variables win over both.
func Load() (Config, error) {
	_ = godotenv.Load()

	var file map[string]string
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = values
	}
	src := source{file: file}

	return Config{
		APIPort:  src.mustEnv("API_PORT", "8080"),
		LogLevel: src.mustEnv("LOG_LEVEL", "info"),

		ConverterURL:            src.mustEnv("CONVERTER_URL", "https://jpg-2-excel.onrender.com/api/convert"),
		ConverterTimeoutSeconds: src.mustEnvInt("CONVERTER_TIMEOUT_SECONDS", 60),

		BreakerEnabled:            src.mustEnvBool("CONVERTER_BREAKER_ENABLED", true),
		BreakerMinRequests:        src.mustEnvInt("CONVERTER_BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:       src.mustEnvFloat("CONVERTER_BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeoutSeconds: src.mustEnvInt("CONVERTER_BREAKER_OPEN_TIMEOUT_SECONDS", 30),
		BreakerHalfOpenMaxCalls:   src.mustEnvInt("CONVERTER_BREAKER_HALF_OPEN_MAX_CALLS", 1),

		ExportInferNumbers: src.mustEnvBool("EXPORT_INFER_NUMBERS", true),
		ExportStorage:      strings.ToLower(src.mustEnv("EXPORT_STORAGE", "local")),
		ExportDir:          src.mustEnv("EXPORT_DIR", "./data/exports"),
		ExportArchive:      src.mustEnvBool("EXPORT_ARCHIVE", false),

		S3Endpoint:  src.mustEnv("S3_ENDPOINT", "localhost:9000"),
		S3Region:    src.mustEnv("S3_REGION", "us-east-1"),
		S3AccessKey: src.mustEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: src.mustEnv("S3_SECRET_KEY", ""),
		S3Bucket:    src.mustEnv("S3_BUCKET", "exports"),
		S3Prefix:    src.mustEnv("S3_PREFIX", ""),
		S3UseSSL:    src.mustEnvBool("S3_USE_SSL", false),

		SessionCacheSize:  src.mustEnvInt("SESSION_CACHE_SIZE", 256),
		MaxUploadMB:       src.mustEnvInt("MAX_UPLOAD_MB", 10),
		APIRateLimitRPS:   src.mustEnvFloat("API_RATE_LIMIT_RPS", 2),
		APIRateLimitBurst: src.mustEnvInt("API_RATE_LIMIT_BURST", 4),
		APIMaxInFlight:    src.mustEnvInt("API_MAX_IN_FLIGHT", 16),
		APIQueueWaitMS:    src.mustEnvInt("API_QUEUE_WAIT_MS", 250),
		APIMaxConnections: src.mustEnvInt("API_MAX_CONNECTIONS", 256),
	}, nil
}

// LoadFile parses a flat YAML mapping of variable name to scalar value.
func LoadFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar", path, key)
		default:
			values[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(v)
		}
	}
	return values, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
