package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Export     ExportConfig     `mapstructure:"export"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ExtractionConfig selects and parameterizes the vision extraction backend
type ExtractionConfig struct {
	Backend     string        `mapstructure:"backend"`
	Normalize   bool          `mapstructure:"normalize"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// BatchConfig holds batch coordinator configuration
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// ExportConfig holds workbook export configuration
type ExportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment
// variables alone are enough to run.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file if present
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 120*time.Second)

	// Extraction defaults
	viper.SetDefault("extraction.backend", "openai")
	viper.SetDefault("extraction.normalize", false)
	viper.SetDefault("extraction.call_timeout", 60*time.Second)
	viper.SetDefault("extraction.openai.model", "gpt-4o")
	viper.SetDefault("extraction.gemini.model", "gemini-1.5-flash")

	// Batch defaults
	viper.SetDefault("batch.workers", 3)

	// Export defaults
	viper.SetDefault("export.enabled", false)
	viper.SetDefault("export.path", "data/invoices.xlsx")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("extraction.openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("extraction.gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("extraction.backend", "EXTRACTION_BACKEND")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Extraction.Backend {
	case "openai":
		if c.Extraction.OpenAI.APIKey == "" {
			return fmt.Errorf("extraction.openai.api_key is required")
		}
	case "gemini":
		if c.Extraction.Gemini.APIKey == "" {
			return fmt.Errorf("extraction.gemini.api_key is required")
		}
	default:
		return fmt.Errorf("unknown extraction backend %q", c.Extraction.Backend)
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	if c.Export.Enabled && c.Export.Path == "" {
		return fmt.Errorf("export.path is required when export is enabled")
	}

	return nil
}
