package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/calidata/opsaudit/internal/health"
)

// Global configuration structure.
type Global struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Cleaning policy
	CostOutlierPolicy string  `mapstructure:"cost_outlier_policy" yaml:"cost_outlier_policy"`
	IQRFactor         float64 `mapstructure:"iqr_factor" yaml:"iqr_factor"`
	MaxDeliveryDays   float64 `mapstructure:"max_delivery_days" yaml:"max_delivery_days"`

	// Health score weights
	HealthWeights health.Weights `mapstructure:"health_weights" yaml:"health_weights"`

	// Run cache
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.opsaudit/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".opsaudit")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is picked up when present so the
// API key never has to live in the shell profile.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("OPSAUDIT")
	v.AutomaticEnv()
	// api_key has no default, and AutomaticEnv only resolves keys viper
	// already knows about. Bind it so OPSAUDIT_API_KEY works.
	_ = v.BindEnv("api_key")

	// Defaults
	v.SetDefault("model", "llama-3.1-8b-instant")
	v.SetDefault("base_url", "")
	v.SetDefault("cost_outlier_policy", "median")
	v.SetDefault("iqr_factor", 1.5)
	v.SetDefault("max_delivery_days", 180.0)
	v.SetDefault("health_weights.null", 0.4)
	v.SetDefault("health_weights.duplicate", 0.2)
	v.SetDefault("health_weights.outlier", 0.4)
	v.SetDefault("cache_dir", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".opsaudit")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// GROQ_API_KEY is the name the provider documents; accept it when the
	// prefixed variable is absent.
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GROQ_API_KEY")
	}
	// Resolve cache_dir default: ~/.opsaudit/cache
	if c.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.CacheDir = filepath.Join(home, ".opsaudit", "cache")
	}
	return &c, nil
}
