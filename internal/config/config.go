// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, upstream API credentials, pipeline
// tuning, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-review-responder")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GMBConfig defines access to the business-profile reviews API.
type GMBConfig struct {
	BaseURL      string        // GMB_BASE_URL
	AccessToken  string        // GMB_ACCESS_TOKEN (OAuth bearer token)
	CallTimeout  time.Duration // GMB_CALL_TIMEOUT per-request deadline
	PageInterval time.Duration // GMB_PAGE_INTERVAL pause between review pages
}

// OpenAIConfig defines access to the completion API used for reply drafting.
type OpenAIConfig struct {
	BaseURL             string        // OPENAI_BASE_URL
	APIKey              string        // OPENAI_API_KEY
	Model               string        // OPENAI_MODEL
	Temperature         float64       // OPENAI_TEMPERATURE
	MaxCompletionTokens int           // OPENAI_MAX_COMPLETION_TOKENS
	CallTimeout         time.Duration // OPENAI_CALL_TIMEOUT per-request deadline
}

// PipelineConfig tunes the review-reply pipeline.
type PipelineConfig struct {
	BatchSize          int    // PIPELINE_BATCH_SIZE reviews per completion call
	BatchConcurrency   int    // PIPELINE_BATCH_CONCURRENCY parallel completion calls
	PublishConcurrency int    // PIPELINE_PUBLISH_CONCURRENCY parallel reply publishes
	PersonaPrompt      string // PERSONA_PROMPT overrides the built-in persona
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 120s; a run spans many upstream calls
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Upstreams
	GMB    GMBConfig
	OpenAI OpenAIConfig

	// Pipeline
	Pipeline PipelineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		// The trigger endpoint blocks for the whole run (pagination pacing
		// plus completion and publish calls), so the write timeout is long.
		WriteTimeout:   getdur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:    getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:        strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/")),

		// Upstreams
		GMB: GMBConfig{
			BaseURL:      getenv("GMB_BASE_URL", "https://mybusiness.googleapis.com/v4"),
			AccessToken:  getenv("GMB_ACCESS_TOKEN", ""),
			CallTimeout:  getdur("GMB_CALL_TIMEOUT", 30*time.Second),
			PageInterval: getdur("GMB_PAGE_INTERVAL", 2*time.Second),
		},
		OpenAI: OpenAIConfig{
			BaseURL:             getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:              getenv("OPENAI_API_KEY", ""),
			Model:               getenv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:         getfloat("OPENAI_TEMPERATURE", 0.7),
			MaxCompletionTokens: getint("OPENAI_MAX_COMPLETION_TOKENS", 2500),
			CallTimeout:         getdur("OPENAI_CALL_TIMEOUT", 30*time.Second),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			BatchSize:          getint("PIPELINE_BATCH_SIZE", 10),
			BatchConcurrency:   getint("PIPELINE_BATCH_CONCURRENCY", 2),
			PublishConcurrency: getint("PIPELINE_PUBLISH_CONCURRENCY", 4),
			PersonaPrompt:      getenv("PERSONA_PROMPT", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-review-responder"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.GMB.BaseURL) == "" {
		return cfg, errors.New("GMB_BASE_URL must not be empty")
	}
	if cfg.GMB.CallTimeout <= 0 {
		return cfg, errors.New("GMB_CALL_TIMEOUT must be > 0")
	}
	if cfg.GMB.PageInterval < 0 {
		return cfg, errors.New("GMB_PAGE_INTERVAL must be >= 0")
	}
	if strings.TrimSpace(cfg.OpenAI.BaseURL) == "" {
		return cfg, errors.New("OPENAI_BASE_URL must not be empty")
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		return cfg, errors.New("OPENAI_TEMPERATURE must be in [0,2]")
	}
	if cfg.OpenAI.MaxCompletionTokens < 1 {
		return cfg, errors.New("OPENAI_MAX_COMPLETION_TOKENS must be >= 1")
	}
	if cfg.OpenAI.CallTimeout <= 0 {
		return cfg, errors.New("OPENAI_CALL_TIMEOUT must be > 0")
	}
	if cfg.Pipeline.BatchSize < 1 {
		return cfg, errors.New("PIPELINE_BATCH_SIZE must be >= 1")
	}
	if cfg.Pipeline.BatchConcurrency < 1 {
		return cfg, errors.New("PIPELINE_BATCH_CONCURRENCY must be >= 1")
	}
	if cfg.Pipeline.PublishConcurrency < 1 {
		return cfg, errors.New("PIPELINE_PUBLISH_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
