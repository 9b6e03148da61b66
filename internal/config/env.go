package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	JWTSecret    string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	Port         string
	CORSOrigins  []string

	// OCR and rendering
	OCREngine       string // tesseract | gemini
	OCRLanguage     string
	OCRMode         int
	RenderScale     float64
	Contrast        float64
	Binarize        bool
	PreviewMaxWidth int
	AIAPIKey        string
	GenModel        string

	// Narration
	TTSAPIKey    string
	TTSLanguage  string
	TTSRate      float64
	DefaultVoice string

	// Auto-read
	MinTextLength  int
	EmptyPageDelay time.Duration
	PrefetchPages  int

	// Page cache
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration
	CacheSize     int

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "readaloud-docs"),
		Port:         getEnv("PORT", "8080"),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),

		OCREngine:       getEnv("OCR_ENGINE", "tesseract"),
		OCRLanguage:     getEnv("OCR_LANGUAGE", "vie"),
		OCRMode:         getEnvInt("OCR_PSM", 6),
		RenderScale:     getEnvFloat("RENDER_SCALE", 2.0),
		Contrast:        getEnvFloat("CONTRAST", 2.0),
		Binarize:        getEnvBool("BINARIZE", false),
		PreviewMaxWidth: getEnvInt("PREVIEW_MAX_WIDTH", 1400),
		AIAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GenModel:        getEnv("GEN_MODEL", "gemini-1.5-flash"),

		TTSAPIKey:    getEnv("GOOGLE_TTS_API_KEY", ""),
		TTSLanguage:  getEnv("TTS_LANGUAGE", "vi-VN"),
		TTSRate:      getEnvFloat("TTS_RATE", 1.15),
		DefaultVoice: getEnv("DEFAULT_VOICE", "female"),

		MinTextLength:  getEnvInt("MIN_TEXT_LENGTH", 2),
		EmptyPageDelay: getEnvDuration("EMPTY_PAGE_DELAY", time.Second),
		PrefetchPages:  getEnvInt("PREFETCH_PAGES", 1),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getEnvDuration("CACHE_TTL", 6*time.Hour),
		CacheSize:     getEnvInt("CACHE_SIZE", 512),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
