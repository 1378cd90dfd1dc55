package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultFieldWidth   = 250.0
	DefaultFieldHeight  = 50.0
	DefaultMetricsPath  = "/metrics"
	DefaultCurrentUser  = "preparer"
	DefaultOutputSubdir = "signed"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MCP_SIGN"
)

// ErrVersionRequested is returned by Load when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the signing server
type Config struct {
	// Server configuration
	Mode        string // "server" or "stdio"
	Host        string
	Port        int
	MetricsPath string

	// Document configuration
	DocumentDirectory string
	OutputDirectory   string
	RosterFile        string
	ConfigFile        string
	MaxFileSize       int64 // Maximum PDF file size in bytes

	// Placement configuration
	FieldWidth  float64
	FieldHeight float64
	CurrentUser string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		Host:              DefaultHost,
		Port:              DefaultPort,
		MetricsPath:       DefaultMetricsPath,
		DocumentDirectory: currentDir,
		MaxFileSize:       DefaultMaxFileSize,
		FieldWidth:        DefaultFieldWidth,
		FieldHeight:       DefaultFieldHeight,
		CurrentUser:       DefaultCurrentUser,
		Version:           "1.0.0",
		ServerName:        "mcp-pdf-signer",
		LogLevel:          DefaultLogLevel,
	}
}

// LoadFromFlags parses the process command line and environment
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a configuration from defaults, an optional config file, the
// environment (MCP_SIGN_*) and args, in increasing order of precedence
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	if checkVersionFlag(args) {
		return nil, ErrVersionRequested
	}

	v := viper.New()
	flags := pflag.NewFlagSet("mcp-pdf-signer", pflag.ContinueOnError)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(flags, cfg)
	bindFlagsToViper(v, flags)
	setupUsageMessage(flags)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	populateConfigFromViper(v, cfg)

	// Downloads default to a folder next to the documents
	if cfg.OutputDirectory == "" && cfg.DocumentDirectory != "" {
		cfg.OutputDirectory = filepath.Join(cfg.DocumentDirectory, DefaultOutputSubdir)
	}

	for _, dir := range []*string{&cfg.DocumentDirectory, &cfg.OutputDirectory} {
		if *dir == "" {
			continue
		}
		if expanded, err := filepath.Abs(*dir); err == nil {
			*dir = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("metrics-path", cfg.MetricsPath)
	v.SetDefault("dir", cfg.DocumentDirectory)
	v.SetDefault("output-dir", cfg.OutputDirectory)
	v.SetDefault("roster", cfg.RosterFile)
	v.SetDefault("config", cfg.ConfigFile)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("field-width", cfg.FieldWidth)
	v.SetDefault("field-height", cfg.FieldHeight)
	v.SetDefault("user", cfg.CurrentUser)
	v.SetDefault("log-level", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("metrics-path", cfg.MetricsPath, "Path serving Prometheus metrics (server mode only)")
	flags.String("dir", cfg.DocumentDirectory, "Directory documents are loaded from")
	flags.String("output-dir", cfg.OutputDirectory, "Directory downloads are written to (default <dir>/signed)")
	flags.String("roster", cfg.RosterFile, "YAML file listing assignees")
	flags.String("config", cfg.ConfigFile, "Optional YAML config file")
	flags.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	flags.Float64("field-width", cfg.FieldWidth, "On-screen width of a new field at zoom 1")
	flags.Float64("field-height", cfg.FieldHeight, "On-screen height of a new field at zoom 1")
	flags.String("user", cfg.CurrentUser, "Author stamped on placed fields")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(flags *pflag.FlagSet) {
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Signer - prepare, sign and view PDF documents over the Model Context Protocol\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/contracts --roster=team.yaml  "+
			"# stdio mode with a roster\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # SSE server with /metrics\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_MODE           Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_DIR            Document directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_OUTPUT_DIR     Download directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_ROSTER         Assignee roster file\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_LOG_LEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_SIGN_MAX_FILE_SIZE  Maximum file size\n")
	}
}

// checkVersionFlag reports whether a version flag was requested
func checkVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.MetricsPath = v.GetString("metrics-path")
	cfg.DocumentDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("output-dir")
	cfg.RosterFile = v.GetString("roster")
	cfg.ConfigFile = v.GetString("config")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.FieldWidth = v.GetFloat64("field-width")
	cfg.FieldHeight = v.GetFloat64("field-height")
	cfg.CurrentUser = v.GetString("user")
	cfg.LogLevel = v.GetString("log-level")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port and metrics path only matter when serving HTTP
	if c.Mode == ModeServer {
		if c.Port < 1 || c.Port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.MetricsPath, "/") {
			return fmt.Errorf("metrics path %q must start with /", c.MetricsPath)
		}
	}

	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}
	if err := ensureDirectory(c.DocumentDirectory, "document"); err != nil {
		return err
	}
	if c.OutputDirectory != "" {
		if err := ensureDirectory(c.OutputDirectory, "output"); err != nil {
			return err
		}
	}

	if c.RosterFile != "" {
		if _, err := os.Stat(c.RosterFile); err != nil {
			return fmt.Errorf("cannot access roster file %s: %w", c.RosterFile, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.FieldWidth <= 0 || c.FieldHeight <= 0 {
		return errors.New("field width and height must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDirectory creates dir if it does not exist yet
func ensureDirectory(dir, what string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", what, dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", what, dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, OutputDirectory: %s, "+
		"RosterFile: %s, LogLevel: %s, MaxFileSize: %d, Field: %gx%g}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.OutputDirectory,
		c.RosterFile, c.LogLevel, c.MaxFileSize, c.FieldWidth, c.FieldHeight)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
