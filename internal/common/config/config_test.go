package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "giveaway-join", cfg.Discord.JoinButtonID)
	assert.Equal(t, "@every 30m", cfg.Workers.CleanSchedule)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "json", mutate: func(c *Config) { c.Storage.Driver = DriverJSON }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: true},
		{name: "mongodb with uri", mutate: func(c *Config) {
			c.Storage.Driver = DriverMongoDB
			c.Storage.MongoURI = "mongodb://localhost"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "etcd" }, wantErr: true},
		{name: "negative burst", mutate: func(c *Config) {
			c.Storage.Driver = DriverSQLite
			c.Discord.InteractionBurst = -1
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
