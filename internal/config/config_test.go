package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "negative shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = Duration(-time.Second) },
			wantErr: "shutdown timeout",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid logging level",
		},
		{
			name: "telemetry requires service name",
			mutate: func(c *Config) {
				c.Observability.EnableTelemetry = true
				c.Observability.ServiceName = ""
			},
			wantErr: "service name is required",
		},
		{
			name: "bad telemetry protocol",
			mutate: func(c *Config) {
				c.Observability.EnableTelemetry = true
				c.Observability.Protocol = "smtp"
			},
			wantErr: "invalid telemetry protocol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "serviced", cfg.Observability.ServiceName)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.Host)
	assert.Equal(t, 27017, cfg.DocumentStore.Port)
	assert.Equal(t, "serviced", cfg.DocumentStore.Database)
	assert.Equal(t, 6379, cfg.CacheStore.Port)
	assert.Equal(t, "api_keys", cfg.CredentialStore.Collection)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.DocumentStore.Port = 27018
	cfg.CacheStore.DB = 3
	cfg.Embedding.Provider = "openai"

	applyDefaults(cfg)

	assert.Equal(t, 27018, cfg.DocumentStore.Port)
	assert.Equal(t, 3, cfg.CacheStore.DB)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", string(text))
}

func TestSecret_Empty(t *testing.T) {
	var s Secret

	assert.Equal(t, "", s.String())
	assert.False(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestSecret_Unmarshal(t *testing.T) {
	var s Secret
	require.NoError(t, json.Unmarshal([]byte(`"swordfish"`), &s))
	assert.Equal(t, "swordfish", s.Value())

	var fromText Secret
	require.NoError(t, fromText.UnmarshalText([]byte("swordfish")))
	assert.Equal(t, "swordfish", fromText.Value())
}

func TestDuration_Unmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
