package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Storage struct {
		MaxUploadMB int64 `yaml:"max_upload_mb"`
	} `yaml:"storage"`
	Training struct {
		HoldoutFraction        float64 `yaml:"holdout_fraction"`
		LightningBudgetMinutes float64 `yaml:"lightning_budget_minutes"`
		TuneFolds              int     `yaml:"tune_folds"`
		Seed                   int64   `yaml:"seed"`
	} `yaml:"training"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 50
	}
	if c.Training.HoldoutFraction <= 0 || c.Training.HoldoutFraction >= 1 {
		c.Training.HoldoutFraction = 0.7
	}
	if c.Training.LightningBudgetMinutes <= 0 {
		c.Training.LightningBudgetMinutes = 2.0
	}
	if c.Training.TuneFolds < 2 {
		c.Training.TuneFolds = 3
	}
}
