package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, 250.0, cfg.FieldWidth)
	assert.Equal(t, 50.0, cfg.FieldHeight)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, "mcp-pdf-signer", cfg.ServerName)
	assert.NotEmpty(t, cfg.DocumentDirectory)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.DocumentDirectory = dir
		cfg.OutputDirectory = filepath.Join(dir, "out")
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid stdio", mutate: func(*Config) {}},
		{name: "valid server", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "port ignored in stdio", mutate: func(c *Config) { c.Port = 0 }},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "grpc" }, wantErr: "mode must be"},
		{name: "bad port", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port must be"},
		{name: "bad metrics path", mutate: func(c *Config) { c.Mode = ModeServer; c.MetricsPath = "metrics" }, wantErr: "must start with /"},
		{name: "empty directory", mutate: func(c *Config) { c.DocumentDirectory = "" }, wantErr: "cannot be empty"},
		{name: "zero file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size"},
		{name: "zero field width", mutate: func(c *Config) { c.FieldWidth = 0 }, wantErr: "field width"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
		{name: "missing roster", mutate: func(c *Config) { c.RosterFile = filepath.Join(dir, "none.yaml") }, wantErr: "roster"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.DocumentDirectory = filepath.Join(base, "docs", "nested")
	cfg.OutputDirectory = filepath.Join(base, "out")

	require.NoError(t, cfg.Validate())
	assert.DirExists(t, cfg.DocumentDirectory)
	assert.DirExists(t, cfg.OutputDirectory)
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "0.0.0.0"
	cfg.Port = 9090

	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
	assert.False(t, cfg.IsDebug())
	assert.True(t, cfg.IsStdioMode())
	assert.False(t, cfg.IsServerMode())
	assert.Contains(t, cfg.String(), "Port: 9090")

	cfg.LogLevel = "debug"
	cfg.Mode = ModeServer
	assert.True(t, cfg.IsDebug())
	assert.True(t, cfg.IsServerMode())
}
