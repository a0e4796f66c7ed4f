package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"fatigue-detector/internal/classifier"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	GRPCPort     string `validate:"required,numeric"`
	HTTPPort     string `validate:"required,numeric"`
	ExtractorURL string
	CORSOrigins  string

	BackendURL    string `validate:"omitempty,url"`
	BackendAPIKey string
	// APIKey or APIKeyHash (bcrypt) guards the REST surface; both empty
	// disables the check.
	APIKey     string
	APIKeyHash string

	MaxMessageSizeMB int    `validate:"gte=1,lte=512"`
	RateLimitPerMin  int    `validate:"gte=0"`
	LogLevel         string `validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	LogFile          string
	Environment      string `validate:"required"`

	DBName     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisChannel  string `validate:"required_with=RedisAddr"`

	SessionIdleTTL time.Duration `validate:"gte=0"`
	SinkBufferSize int           `validate:"gte=1"`

	Detection DetectionConfig
}

// DetectionConfig mirrors classifier.Config in environment form.
type DetectionConfig struct {
	EyeARThreshold         float64 `validate:"gt=0,lt=1"`
	MARThreshold           float64 `validate:"gt=0"`
	EARConsecutiveFrames   int     `validate:"gte=1"`
	MARConsecutiveFrames   int     `validate:"gte=1"`
	DrowsinessThreshold    float64 `validate:"gte=0,lte=1"`
	CriticalThreshold      float64 `validate:"gte=0,lte=1,gtefield=DrowsinessThreshold"`
	HeadAngleThreshold     float64 `validate:"gt=0,lt=90"`
	HistoryWindow          int     `validate:"gte=1"`
	BlinkVarianceWindow    int     `validate:"gte=2,ltefield=HistoryWindow"`
	BlinkVarianceThreshold float64 `validate:"gte=0"`
	LandmarkCount          int     `validate:"gte=1"`
}

func (p *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBPassword, p.DBName, p.DBSSLMode)
}

// DSNForLog hides the password.
func (p *Config) DSNForLog() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBName, p.DBSSLMode)
}

func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// DatabaseEnabled reports whether events should be persisted.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

func (c *Config) MaxMessageSize() int {
	return c.MaxMessageSizeMB * 1024 * 1024
}

// Classifier builds the classifier configuration for the MediaPipe Face
// Mesh layout with the configured point count.
func (c *Config) Classifier() classifier.Config {
	d := c.Detection
	layout := classifier.MediaPipeFaceMesh
	layout.PointCount = d.LandmarkCount
	return classifier.Config{
		EyeARThreshold:            d.EyeARThreshold,
		MARThreshold:              d.MARThreshold,
		EARConsecutiveFrames:      d.EARConsecutiveFrames,
		MARConsecutiveFrames:      d.MARConsecutiveFrames,
		DrowsinessThreshold:       d.DrowsinessThreshold,
		CriticalThreshold:         d.CriticalThreshold,
		HeadAngleThresholdDegrees: d.HeadAngleThreshold,
		HistoryWindow:             d.HistoryWindow,
		BlinkVarianceWindow:       d.BlinkVarianceWindow,
		BlinkVarianceThreshold:    d.BlinkVarianceThreshold,
		Layout:                    layout,
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Classifier().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func LoadConfig() (*Config, error) {
	// .env is optional, the process environment always wins
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	defaults := classifier.DefaultConfig()

	cfg := &Config{
		GRPCPort:         getEnv("GRPC_PORT", "50051"),
		HTTPPort:         getEnv("HTTP_PORT", "8081"),
		ExtractorURL:     getEnv("EXTRACTOR_URL", ""),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		BackendURL:       getEnv("BACKEND_URL", ""),
		BackendAPIKey:    getEnv("BACKEND_API_KEY", ""),
		APIKey:           getEnv("API_KEY", ""),
		APIKeyHash:       getEnv("API_KEY_HASH", ""),
		MaxMessageSizeMB: getEnvInt("MAX_MESSAGE_SIZE_MB", 50),
		RateLimitPerMin:  getEnvInt("RATE_PER_MIN", 1000),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		LogFile:          getEnv("LOG_FILE", ""),
		Environment:      getEnv("ENVIRONMENT", "production"),
		DBHost:           getEnv("DB_HOST", ""),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", "fatigue_detector"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisChannel:     getEnv("REDIS_CHANNEL", "fatigue:events"),
		SessionIdleTTL:   getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SinkBufferSize:   getEnvInt("SINK_BUFFER_SIZE", 256),
		Detection: DetectionConfig{
			EyeARThreshold:         getEnvFloat("EYE_AR_THRESHOLD", defaults.EyeARThreshold),
			MARThreshold:           getEnvFloat("MAR_THRESHOLD", defaults.MARThreshold),
			EARConsecutiveFrames:   getEnvInt("EAR_CONSECUTIVE_FRAMES", defaults.EARConsecutiveFrames),
			MARConsecutiveFrames:   getEnvInt("MAR_CONSECUTIVE_FRAMES", defaults.MARConsecutiveFrames),
			DrowsinessThreshold:    getEnvFloat("DROWSINESS_THRESHOLD", defaults.DrowsinessThreshold),
			CriticalThreshold:      getEnvFloat("CRITICAL_THRESHOLD", defaults.CriticalThreshold),
			HeadAngleThreshold:     getEnvFloat("HEAD_ANGLE_THRESHOLD", defaults.HeadAngleThresholdDegrees),
			HistoryWindow:          getEnvInt("HISTORY_WINDOW", defaults.HistoryWindow),
			BlinkVarianceWindow:    getEnvInt("BLINK_VARIANCE_WINDOW", defaults.BlinkVarianceWindow),
			BlinkVarianceThreshold: getEnvFloat("BLINK_VARIANCE_THRESHOLD", defaults.BlinkVarianceThreshold),
			LandmarkCount:          getEnvInt("LANDMARK_COUNT", defaults.Layout.PointCount),
		},
	}

	if cfg.DBHost != "" && cfg.DBPassword == "" {
		log.Println("WARNING: DB_PASSWORD is not set!")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
