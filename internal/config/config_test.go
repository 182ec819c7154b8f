package config

import (
	"os"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Store:           StoreMemory,
			SQLitePath:      "/tmp/shelf.db",
			EventBuffer:     256,
			PrincipalHeader: "X-User-ID",
			StatsCacheSize:  1000,
			SSEKeepAlive:    30 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "memory store is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "sqlite store is valid",
			mutate:  func(c *Config) { c.Store = StoreSQLite },
			wantErr: false,
		},
		{
			name:    "sqlite store without path",
			mutate:  func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" },
			wantErr: true,
		},
		{
			name:    "redis store without address",
			mutate:  func(c *Config) { c.Store = StoreRedis },
			wantErr: true,
		},
		{
			name: "redis store with required password missing",
			mutate: func(c *Config) {
				c.Store = StoreRedis
				c.RedisAddr = "localhost:6379"
				c.RedisPasswordRequired = true
			},
			wantErr: true,
		},
		{
			name: "redis store without password requirement",
			mutate: func(c *Config) {
				c.Store = StoreRedis
				c.RedisAddr = "localhost:6379"
			},
			wantErr: false,
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store = "postgres" },
			wantErr: true,
		},
		{
			name:    "zero event buffer",
			mutate:  func(c *Config) { c.EventBuffer = 0 },
			wantErr: true,
		},
		{
			name:    "empty principal header",
			mutate:  func(c *Config) { c.PrincipalHeader = "" },
			wantErr: true,
		},
		{
			name:    "zero stats cache size",
			mutate:  func(c *Config) { c.StatsCacheSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero keepalive",
			mutate:  func(c *Config) { c.SSEKeepAlive = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Errorf("validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validate() = %v, want nil", err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELF_STORE", "")
	t.Setenv("SHELF_EVENT_BUFFER", "")
	t.Setenv("SHELF_PRINCIPAL_HEADER", "")

	cfg := Load()
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
	if cfg.EventBuffer != 256 {
		t.Errorf("EventBuffer = %d, want 256", cfg.EventBuffer)
	}
	if cfg.PrincipalHeader != "X-User-ID" {
		t.Errorf("PrincipalHeader = %q, want X-User-ID", cfg.PrincipalHeader)
	}
	if cfg.StatsCacheTTL != 5*time.Minute {
		t.Errorf("StatsCacheTTL = %v, want 5m", cfg.StatsCacheTTL)
	}
}

func TestLoadPanicsOnInvalidStore(t *testing.T) {
	t.Setenv("SHELF_STORE", "cassandra")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked")
		}
	}()
	_ = Load()
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{
			name:     "single value",
			value:    "value1",
			expected: []string{"value1"},
		},
		{
			name:     "multiple values",
			value:    "value1, value2, value3",
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "quoted values and blanks",
			value:    `"a.example.com", , 'b.example.com'`,
			expected: []string{"a.example.com", "b.example.com"},
		},
		{
			name:     "empty string",
			value:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.value)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() length = %v, want %v", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_INVALID", "not_a_number")

	if got := getenvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getenvInt() = %v, want 42", got)
	}
	if got := getenvInt("TEST_INT_INVALID", 7); got != 7 {
		t.Errorf("getenvInt() invalid = %v, want default 7", got)
	}
	if got := getenvInt("TEST_INT_MISSING", 9); got != 9 {
		t.Errorf("getenvInt() missing = %v, want default 9", got)
	}
}
