package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through SHELF_STORE.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout for non-streaming routes

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store      string // "memory" | "redis" | "sqlite"
	SQLitePath string // path to the sqlite database file (store=sqlite)
	SeedFile   string // optional YAML file imported at startup

	PrincipalHeader string        // header carrying the authenticated user id, set by the auth proxy
	EventBuffer     int           // per-subscriber queue capacity
	StatsCacheTTL   time.Duration // max age of a cached statistics entry
	StatsCacheSize  int           // number of principals kept in the statistics cache

	RateBurst     int // mutation burst per principal (or client IP when anonymous)
	RatePerMinute int // mutation refill per principal per minute

	SSEKeepAlive time.Duration // comment line interval on idle event streams
	CORSOrigins  []string      // optional, browser origins allowed to call the API ("*" for any)

	MetricsEnabled bool

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to ops endpoints (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("SHELF_REQUEST_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		// Storage
		Store:      strings.ToLower(getenv("SHELF_STORE", StoreMemory)),
		SQLitePath: getenv("SHELF_SQLITE_PATH", "/data/shelf.db"),
		SeedFile:   getenv("SHELF_SEED_FILE", ""), // Optional, empty = no import

		// Read/notification core
		PrincipalHeader: getenv("SHELF_PRINCIPAL_HEADER", "X-User-ID"),
		EventBuffer:     getenvInt("SHELF_EVENT_BUFFER", 256),
		StatsCacheTTL:   mustDuration("SHELF_STATS_CACHE_TTL", 5*time.Minute),
		StatsCacheSize:  getenvInt("SHELF_STATS_CACHE_SIZE", 1000),

		RateBurst:     getenvInt("SHELF_RATE_BURST", 30),
		RatePerMinute: getenvInt("SHELF_RATE_PER_MIN", 60),

		SSEKeepAlive: mustDuration("SHELF_SSE_KEEPALIVE", 30*time.Second),
		CORSOrigins:  splitAndTrim(getenv("SHELF_CORS_ORIGINS", "")),

		MetricsEnabled: mustBool("SHELF_METRICS_ENABLED", true),

		// Redis settings
		RedisAddr:             getenv("SHELF_REDIS_ADDR", ""),
		RedisUser:             getenv("SHELF_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SHELF_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("SHELF_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SHELF_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("SHELF_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SHELF_TRUST_PROXY", true),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("SHELF_REDIS_ADDR is required when SHELF_STORE=%s", StoreRedis)
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			return fmt.Errorf("SHELF_REDIS_PASSWORD is required when SHELF_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		return fmt.Errorf("unknown SHELF_STORE %q (want memory, redis or sqlite)", c.Store)
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SHELF_SQLITE_PATH must not be empty when SHELF_STORE=%s", StoreSQLite)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("SHELF_EVENT_BUFFER must be >= 1, got %d", c.EventBuffer)
	}
	if c.PrincipalHeader == "" {
		return fmt.Errorf("SHELF_PRINCIPAL_HEADER must not be empty")
	}
	if c.StatsCacheSize < 1 {
		return fmt.Errorf("SHELF_STATS_CACHE_SIZE must be >= 1, got %d", c.StatsCacheSize)
	}
	if c.SSEKeepAlive <= 0 {
		return fmt.Errorf("SHELF_SSE_KEEPALIVE must be > 0, got %v", c.SSEKeepAlive)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
