package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Realtime Configuration
	BroadcastDebounceMS int `mapstructure:"BROADCAST_DEBOUNCE_MS" validate:"gte=0"`
	SSEKeepaliveSeconds int `mapstructure:"SSE_KEEPALIVE_SECONDS" validate:"gt=0"`

	// Admin Configuration
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string `mapstructure:"SESSION_SECRET"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("BROADCAST_DEBOUNCE_MS", 1000)
	viper.SetDefault("SSE_KEEPALIVE_SECONDS", 60)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "port", cfg.WebServerPort, "db_retries", cfg.DatabaseRetries, "debounce_ms", cfg.BroadcastDebounceMS)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
