package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Ledger   LedgerConfig
	Wallet   WalletConfig
	Cache    CacheConfig
	Metadata MetadataConfig
	Graph    GraphConfig
	Logging  LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// LedgerConfig points at the remote belt ledger backend. Credentials stay server side.
type LedgerConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// WalletConfig carries the values every wallet-bound flow checks against.
type WalletConfig struct {
	ExpectedNetworkID  int
	IssuingAuthorityID string
	BridgeURL          string
	ConnectAttempts    int
}

// CacheConfig sizes the profile caches.
type CacheConfig struct {
	Backend    string // lru|ttl
	MaxEntries int
	TTL        time.Duration
}

// MetadataConfig locates the profile metadata database.
type MetadataConfig struct {
	DBPath string
}

// GraphConfig describes connectivity to the lineage graph (Neo4j).
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 35 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLedgerTimeout    = 30 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultCacheBackend     = "lru"
	defaultCacheEntries     = 512
	defaultCacheTTL         = 24 * time.Hour
	defaultConnectAttempts  = 3
	defaultMetadataDBPath   = "data/metadata.db"
)

// Load reads configuration from environment variables, applying defaults.
// A .env file in the working directory is read first when present; variables
// already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled:    parseBoolWithDefault("SERVER_METRICS_ENABLED", true),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Ledger: LedgerConfig{
			BaseURL:  strings.TrimRight(os.Getenv("LEDGER_BASE_URL"), "/"),
			Username: os.Getenv("LEDGER_USERNAME"),
			Password: os.Getenv("LEDGER_PASSWORD"),
		},
		Wallet: WalletConfig{
			IssuingAuthorityID: strings.ToLower(strings.TrimSpace(os.Getenv("WALLET_ISSUING_AUTHORITY_ID"))),
			BridgeURL:          os.Getenv("WALLET_BRIDGE_URL"),
			ConnectAttempts:    parseIntWithDefault("WALLET_CONNECT_ATTEMPTS", defaultConnectAttempts),
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(valueOrDefault("CACHE_BACKEND", defaultCacheBackend)),
			MaxEntries: parseIntWithDefault("CACHE_MAX_ENTRIES", defaultCacheEntries),
		},
		Metadata: MetadataConfig{
			DBPath: valueOrDefault("METADATA_DB_PATH", defaultMetadataDBPath),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		dst      *time.Duration
		fallback time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout, defaultReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout, defaultWriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout, defaultIdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout, defaultShutdownTimeout},
		{"LEDGER_TIMEOUT", &cfg.Ledger.Timeout, defaultLedgerTimeout},
		{"CACHE_TTL", &cfg.Cache.TTL, defaultCacheTTL},
	}
	for _, d := range durations {
		val, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = val
	}

	if v := os.Getenv("WALLET_EXPECTED_NETWORK_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WALLET_EXPECTED_NETWORK_ID value %q: %w", v, err)
		}
		cfg.Wallet.ExpectedNetworkID = id
	}

	switch cfg.Cache.Backend {
	case "lru", "ttl":
	default:
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// AllowedOrigins splits the CORS origin list, dropping blanks.
func (c HTTPConfig) AllowedOrigins() []string {
	if c.AllowedOriginsCSV == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(c.AllowedOriginsCSV, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
