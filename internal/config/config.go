package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Remote    RemoteConfig
	Discovery DiscoveryConfig
	Storage   StorageConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables the cross-process relay
	RedisURL           string
	BridgeJWTSecret    string // empty leaves the local bridge open
}

type RemoteConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type DiscoveryConfig struct {
	LocationShortTimeout  time.Duration // cached coordinates exist
	LocationLongTimeout   time.Duration // first run, nothing cached
	SafetyReportThreshold int
	ComplimentMaxLength   int
	SessionIdleTTL        time.Duration
	DemoMode              bool
}

type StorageConfig struct {
	Driver       string // "memory" or "redis"
	SnapshotPath string // memory driver only, empty keeps it in RAM
}

// TracingConfig drives the OTLP exporter. Tracing is off unless Enabled.
type TracingConfig struct {
	Enabled        bool
	Endpoint       string // host:port of the OTLP HTTP collector
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
}

const (
	StorageDriverMemory = "memory"
	StorageDriverRedis  = "redis"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/discovery.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			BridgeJWTSecret:    getEnv("BRIDGE_JWT_SECRET", ""),
		},
		Remote: RemoteConfig{
			BaseURL: getEnv("MATCH_API_BASE_URL", "http://localhost:3000/api"),
			Token:   getEnv("MATCH_API_TOKEN", ""),
			Timeout: getEnvAsDuration("MATCH_API_TIMEOUT", 15*time.Second),
		},
		Discovery: DiscoveryConfig{
			LocationShortTimeout:  getEnvAsDuration("LOCATION_SHORT_TIMEOUT", 6*time.Second),
			LocationLongTimeout:   getEnvAsDuration("LOCATION_LONG_TIMEOUT", 10*time.Second),
			SafetyReportThreshold: getEnvAsInt("SAFETY_REPORT_THRESHOLD", 3),
			ComplimentMaxLength:   getEnvAsInt("COMPLIMENT_MAX_LENGTH", 150),
			SessionIdleTTL:        getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
			DemoMode:              getEnvAsBool("DEMO_MODE", false),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", StorageDriverMemory),
			SnapshotPath: getEnv("STORAGE_SNAPSHOT_PATH", "data/device-store.gob"),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "discovery-client"),
			ServiceVersion: getEnv("APP_VERSION", "dev"),
			SampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("6s", "1500ms").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
