package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

// Reference sources
const (
	SourceLocal = "local"
	SourceAzure = "azure"
	SourceMinIO = "minio"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AuthTimeout        time.Duration
	MaxRequestBodySize int64
	RateLimitRPS       float64
	RateLimitBurst     int
	// Restrictions on URLs fetched by /authenticate/url
	FetchAllowedHosts []string
	FetchDenyPrivate  bool

	Log        LogConfig
	References ReferenceConfig
	History    HistoryConfig
	Engine     engine.Config
}

type LogConfig struct {
	Level  string
	File   string
	MaxAge time.Duration
}

// ReferenceConfig selects where reference notes are read from and how
// the extracted set is cached
type ReferenceConfig struct {
	Source          string
	Dir             string
	Prefix          string
	RefreshInterval time.Duration
	SnapshotPath    string
	// Extensions of reference objects to read; empty means png and jpeg
	Extensions []string

	AzureAccount   string
	AzureKey       string
	AzureContainer string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

// HistoryConfig selects the verdict history backend. An empty DatabaseURL
// keeps history in memory.
type HistoryConfig struct {
	DatabaseURL string
	Capacity    int
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads .env when present, then the process environment
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "5003"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AuthTimeout:        parseDurationOrDefault("AUTH_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		RateLimitRPS:       parseFloatOrDefault("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     int(parseIntOrDefault("RATE_LIMIT_BURST", 20)),
		FetchAllowedHosts:  splitList(os.Getenv("FETCH_ALLOWED_HOSTS")),
		FetchDenyPrivate:   parseBoolOrDefault("FETCH_DENY_PRIVATE", false),
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			File:   os.Getenv("LOG_FILE"),
			MaxAge: parseDurationOrDefault("LOG_MAX_AGE", 7*24*time.Hour),
		},
		References: ReferenceConfig{
			Source:          strings.ToLower(getEnvOrDefault("REFERENCE_SOURCE", SourceLocal)),
			Dir:             getEnvOrDefault("REFERENCE_DIR", "reference_notes"),
			Prefix:          os.Getenv("REFERENCE_PREFIX"),
			RefreshInterval: parseDurationOrDefault("REFERENCE_REFRESH_INTERVAL", 30*time.Second),
			SnapshotPath:    os.Getenv("REFERENCE_SNAPSHOT_PATH"),
			Extensions:      splitList(os.Getenv("REFERENCE_EXTENSIONS")),
			AzureAccount:    os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureKey:        os.Getenv("AZURE_STORAGE_KEY"),
			AzureContainer:  os.Getenv("AZURE_CONTAINER"),
			MinIOEndpoint:   os.Getenv("MINIO_ENDPOINT"),
			MinIOAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
			MinIOSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			MinIOBucket:     os.Getenv("MINIO_BUCKET"),
			MinIOUseSSL:     parseBoolOrDefault("MINIO_USE_SSL", true),
		},
		History: HistoryConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Capacity:    int(parseIntOrDefault("HISTORY_CAPACITY", 1000)),
		},
	}

	engineCfg, err := LoadEngineConfig(os.Getenv("ENGINE_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Engine = engineCfg

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks server, reference and history settings
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AuthTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, auth=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AuthTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive (got rps=%v, burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("HISTORY_CAPACITY must be > 0 (got %d)", c.History.Capacity)
	}

	refs := c.References
	switch refs.Source {
	case SourceLocal:
		if strings.TrimSpace(refs.Dir) == "" {
			return errors.New("REFERENCE_DIR must be set for local references")
		}
	case SourceAzure:
		if refs.AzureAccount == "" || refs.AzureKey == "" || refs.AzureContainer == "" {
			return errors.New("AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_CONTAINER are required for azure references")
		}
	case SourceMinIO:
		if refs.MinIOEndpoint == "" || refs.MinIOBucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio references")
		}
	default:
		return fmt.Errorf("unsupported REFERENCE_SOURCE: %q", refs.Source)
	}
	if refs.RefreshInterval <= 0 {
		return fmt.Errorf("REFERENCE_REFRESH_INTERVAL must be > 0 (got %s)", refs.RefreshInterval)
	}

	return c.Engine.Validate()
}

// LoadEngineConfig starts from the engine defaults, overlays the optional
// TOML file at path, then the engine environment variables. When no
// acceptance threshold is given anywhere the mode's default applies.
func LoadEngineConfig(path string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	thresholdSet := false

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("failed to read engine config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("unknown keys in engine config %s: %v", path, undecoded)
		}
		thresholdSet = md.IsDefined("acceptance_threshold")
	}

	cfg.MaxKeypoints = int(parseIntOrDefault("MAX_KEYPOINTS", int64(cfg.MaxKeypoints)))
	cfg.UseCrossCheck = parseBoolOrDefault("USE_CROSS_CHECK", cfg.UseCrossCheck)
	cfg.GoodMatchDistanceThreshold = int(parseIntOrDefault("GOOD_MATCH_DISTANCE_THRESHOLD", int64(cfg.GoodMatchDistanceThreshold)))
	cfg.ScoringMode = strategy.Mode(strings.ToLower(getEnvOrDefault("SCORING_MODE", string(cfg.ScoringMode))))
	cfg.NormalizeBy = strategy.Normalization(strings.ToLower(getEnvOrDefault("NORMALIZE_BY", string(cfg.NormalizeBy))))
	cfg.PyramidLevels = int(parseIntOrDefault("PYRAMID_LEVELS", int64(cfg.PyramidLevels)))
	cfg.FastThreshold = int(parseIntOrDefault("FAST_THRESHOLD", int64(cfg.FastThreshold)))
	cfg.MaxImageDimension = int(parseIntOrDefault("MAX_IMAGE_DIMENSION", int64(cfg.MaxImageDimension)))
	cfg.Workers = int(parseIntOrDefault("ENGINE_WORKERS", int64(cfg.Workers)))

	if value := strings.TrimSpace(os.Getenv("ACCEPTANCE_THRESHOLD")); value != "" {
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid ACCEPTANCE_THRESHOLD: %q", value)
		}
		cfg.AcceptanceThreshold = threshold
		thresholdSet = true
	}

	if !thresholdSet && cfg.ScoringMode == strategy.ModeNormalizedPercent {
		cfg.AcceptanceThreshold = engine.DefaultPercentThreshold
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
