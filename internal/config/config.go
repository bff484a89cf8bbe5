// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`

	// Model files per pipeline branch; an empty path disables the branch
	FaceModel    string `mapstructure:"face_model"`
	PlateModel   string `mapstructure:"plate_model"`
	VehicleModel string `mapstructure:"vehicle_model"`

	// Batch capacities
	DetectionBatch   int `mapstructure:"detection_batch"`
	RecognitionBatch int `mapstructure:"recognition_batch"`

	// Detection confidence threshold
	Confidence float64 `mapstructure:"confidence"`

	// Result publishing; empty disables the Redis observer
	Redis string `mapstructure:"redis"`

	// OpenTelemetry configuration
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Feature flags
	UseMockBackend bool `mapstructure:"use_mock_backend"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("metrics_port", 9100)
	v.SetDefault("face_model", "face-detection-retail-0004.onnx")
	v.SetDefault("plate_model", "")
	v.SetDefault("vehicle_model", "")
	v.SetDefault("detection_batch", 1)
	v.SetDefault("recognition_batch", 4)
	v.SetDefault("confidence", 0.6)
	v.SetDefault("redis", "")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("use_mock_backend", false)
}

// Load loads configuration from environment variables and an optional
// config file. Priority (highest to lowest): env vars > config file >
// defaults; flags are layered on top by the caller.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("INFERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/inferd/")
	v.AddConfigPath("$HOME/.inferd")

	// Read config file if present (ignore error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithConfigFile loads configuration from a specific config file
func LoadWithConfigFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INFERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.Port == c.MetricsPort {
		return fmt.Errorf("port and metrics_port must be different")
	}
	if c.FaceModel == "" {
		return fmt.Errorf("face_model is required: the pipeline needs a primary detection branch")
	}
	if c.DetectionBatch < 1 || c.RecognitionBatch < 1 {
		return fmt.Errorf("batch sizes must be at least 1 (detection=%d, recognition=%d)",
			c.DetectionBatch, c.RecognitionBatch)
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be in (0, 1]: %f", c.Confidence)
	}
	return nil
}
