package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration, loaded from YAML with env-var
// fallbacks for deployment-specific values.
type Config struct {
	API struct {
		BaseURL   string `yaml:"base_url" validate:"required,url"`
		AuthToken string `yaml:"auth_token"`
	} `yaml:"api"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Engine struct {
		FrameRate int `yaml:"frame_rate" validate:"omitempty,min=1,max=240"`
	} `yaml:"engine"`

	Audio struct {
		ClickAsset   string `yaml:"click_asset"`
		SettingsPath string `yaml:"settings_path"`
	} `yaml:"audio"`
}

// FrameInterval converts the configured frame rate to a tick interval.
// Zero means the default 60 fps.
func (c *Config) FrameInterval() time.Duration {
	if c.Engine.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Engine.FrameRate)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Env vars win over file values.
	config.API.BaseURL = getEnv("WHEEL_API_URL", config.API.BaseURL)
	config.API.AuthToken = getEnv("WHEEL_API_TOKEN", config.API.AuthToken)
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Engine.FrameRate = getEnvAsInt("FRAME_RATE", config.Engine.FrameRate)
	config.Audio.ClickAsset = getEnv("CLICK_ASSET", config.Audio.ClickAsset)
	config.Audio.SettingsPath = getEnv("SETTINGS_PATH", config.Audio.SettingsPath)

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Audio.SettingsPath == "" {
		config.Audio.SettingsPath = "wheel-settings.db"
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}
