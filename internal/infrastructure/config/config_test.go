package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "backoffice", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 5, cfg.Dashboard.TopN)
	assert.Equal(t, 1000, cfg.Dashboard.FetchPageSize)
	assert.Equal(t, "Asia/Riyadh", cfg.Dashboard.Timezone)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RETAIL_APP_PORT", "9090")
	t.Setenv("RETAIL_DASHBOARD_TOP_N", "10")
	t.Setenv("RETAIL_CACHE_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 10, cfg.Dashboard.TopN)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 100 }, true},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"negative top n", func(c *Config) { c.Dashboard.TopN = -1 }, true},
		{"zero page size", func(c *Config) { c.Dashboard.FetchPageSize = 0 }, true},
		{"production without password", func(c *Config) { c.App.Env = "production" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "retail",
		Password: "p@ss/word",
		DBName:   "backoffice",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word", "password must be escaped")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}

func TestDashboardConfig_Location(t *testing.T) {
	d := DashboardConfig{Timezone: "not-a-zone"}
	assert.Equal(t, time.UTC, d.Location())
}
