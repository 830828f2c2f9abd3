package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string   `env:"APP_PORT"`
	AppEnv             string   `env:"APP_ENV"`
	JWTSecret          string   `env:"JWT_SECRET"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS"`
	// Gin framework configuration
	GinMode string `env:"GIN_MODE"`
	GinPath string `env:"GIN_PATH"`
	// Upload storage
	UploadRoot          string        `env:"UPLOAD_ROOT"`
	UploadTempMaxAge    time.Duration `env:"UPLOAD_TEMP_MAX_AGE"`
	UploadSweepInterval time.Duration `env:"UPLOAD_SWEEP_INTERVAL"`
	// Redis for token revocation
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `env:"LOG_COMPRESS"`
	// Development reverse proxy
	DevProxyPort   string `env:"DEV_PROXY_PORT"`
	DevProxyTarget string `env:"DEV_PROXY_TARGET"`
}

// IsDevelopment reports whether internals such as stack traces may be exposed to clients.
func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := Read()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Read builds a configuration without caching or validating it.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Read() (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &c); err != nil {
		return c, fmt.Errorf("config/config.json: %w", err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, fmt.Errorf("environment: %w", err)
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

type fileConfig struct {
	App struct {
		AppPort            string
		AppEnv             string
		JWTSecret          string
		RateLimitPerMinute int
		AllowedOrigins     []string
	} `json:"app"`
	Gin struct {
		Mode    string
		LogPath string
	} `json:"gin"`
	Upload struct {
		Root          string
		TempMaxAge    string
		SweepInterval string
	} `json:"upload"`
	Redis struct {
		RedisHost     string
		RedisPort     int
		RedisDB       int
		RedisPassword string
	} `json:"redis"`
	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	DevProxy struct {
		Port   string
		Target string
	} `json:"devproxy"`
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid content.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw fileConfig
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	out.AppPort = raw.App.AppPort
	out.AppEnv = raw.App.AppEnv
	out.JWTSecret = raw.App.JWTSecret
	out.RateLimitPerMinute = raw.App.RateLimitPerMinute
	out.AllowedOrigins = raw.App.AllowedOrigins

	out.GinMode = raw.Gin.Mode
	out.GinPath = raw.Gin.LogPath

	out.UploadRoot = raw.Upload.Root
	if out.UploadTempMaxAge, err = parseDuration(raw.Upload.TempMaxAge); err != nil {
		return err
	}
	if out.UploadSweepInterval, err = parseDuration(raw.Upload.SweepInterval); err != nil {
		return err
	}

	out.RedisHost = raw.Redis.RedisHost
	out.RedisPort = raw.Redis.RedisPort
	out.RedisDB = raw.Redis.RedisDB
	out.RedisPassword = raw.Redis.RedisPassword

	out.LogLevel = raw.Log.Level
	out.LogPath = raw.Log.Path
	out.LogMaxSizeMB = raw.Log.MaxSizeMB
	out.LogMaxBackups = raw.Log.MaxBackups
	out.LogMaxAgeDays = raw.Log.MaxAgeDays
	out.LogCompress = raw.Log.Compress

	out.DevProxyPort = raw.DevProxy.Port
	out.DevProxyTarget = raw.DevProxy.Target
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3001"
	}
	if c.AppEnv == "" {
		c.AppEnv = "production"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.UploadRoot == "" {
		c.UploadRoot = "uploads"
	}
	if c.UploadTempMaxAge == 0 {
		c.UploadTempMaxAge = time.Hour
	}
	if c.UploadSweepInterval == 0 {
		c.UploadSweepInterval = 5 * time.Minute
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.DevProxyPort == "" {
		c.DevProxyPort = "3000"
	}
	if c.DevProxyTarget == "" {
		c.DevProxyTarget = "http://localhost:3001/"
	}
}

// applyEnvOverrides maps environment variables (and an optional .env file) onto config values when present.
// Unset variables leave the file/default values untouched.
func applyEnvOverrides(c *AppConfig) error {
	_ = godotenv.Load()
	return env.ParseWithOptions(c, env.Options{})
}
