package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/validator"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"` // Logging level (debug, info, warn, error)

	CoordinatorAddress string `mapstructure:"COORDINATOR_ADDRESS"` // listen address of the coordinator
	CoordinatorURL     string `mapstructure:"COORDINATOR_URL"`     // websocket URL satellites dial
	SatelliteTags      string `mapstructure:"SATELLITE_TAGS"`      // comma-separated directory
	SatelliteTag       string `mapstructure:"SATELLITE_TAG"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	FanOutPolicy    string        `mapstructure:"FANOUT_POLICY"`
	UniqueListeners bool          `mapstructure:"UNIQUE_LISTENERS"`

	HTTPClientTimeout   time.Duration `mapstructure:"HTTP_CLIENT_TIMEOUT"`
	SatelliteRequestURL string        `mapstructure:"SATELLITE_REQUEST_URL"`
}

// LoadCoordinatorConfig loads and validates the coordinator's configuration.
func LoadCoordinatorConfig(bootstrapLogger *logger.BootstrapLogger) (Config, error) {
	return loadConfig(eventbus.RoleCoordinator, bootstrapLogger)
}

// LoadSatelliteConfig loads and validates a satellite's configuration.
func LoadSatelliteConfig(bootstrapLogger *logger.BootstrapLogger) (Config, error) {
	return loadConfig(eventbus.RoleSatellite, bootstrapLogger)
}

func loadConfig(role eventbus.Role, bootstrapLogger *logger.BootstrapLogger) (Config, error) {
	ctx := context.Background()

	// It's okay if the file doesn't exist - we'll use environment variables
	if err := godotenv.Load(); err != nil {
		bootstrapLogger.Info(ctx, "no .env file found, using environment variables only")
	} else {
		bootstrapLogger.Info(ctx, "loaded .env file")
	}

	v := viper.New()

	// Every key needs a default so that Unmarshal sees it.
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("COORDINATOR_ADDRESS", ":8090")
	v.SetDefault("COORDINATOR_URL", "ws://localhost:8090/ws")
	v.SetDefault("SATELLITE_TAGS", "window1,window2")
	v.SetDefault("SATELLITE_TAG", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("FANOUT_POLICY", eventbus.ExcludeOrigin.String())
	v.SetDefault("UNIQUE_LISTENERS", false)
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "15s")
	v.SetDefault("SATELLITE_REQUEST_URL", "")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		bootstrapLogger.Error(ctx, "failed to unmarshal configuration", "error", err)
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	bootstrapLogger.Info(ctx, "configuration loaded",
		"role", role.String(),
		"environment", config.Environment,
		"log_level", config.LogLevel,
		"coordinator_address", config.CoordinatorAddress,
		"coordinator_url", config.CoordinatorURL,
		"satellite_tags", config.Tags(),
		"satellite_tag", config.SatelliteTag,
	)

	if err := config.Validate(role); err != nil {
		bootstrapLogger.Error(ctx, "configuration validation failed", "error", err)
		return Config{}, err
	}

	bootstrapLogger.Info(ctx, "configuration validated successfully")
	return config, nil
}

// Tags returns the satellite directory tags, trimmed, without empties.
func (c Config) Tags() []string {
	var tags []string
	for _, t := range strings.Split(c.SatelliteTags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Validate checks the settings the given role depends on.
func (c Config) Validate(role eventbus.Role) error {
	if _, err := eventbus.ParseFanOutPolicy(c.FanOutPolicy); err != nil {
		return err
	}
	if c.RequestTimeout < 0 {
		return errors.New("REQUEST_TIMEOUT must not be negative")
	}

	switch role {
	case eventbus.RoleCoordinator:
		if c.CoordinatorAddress == "" {
			return errors.New("COORDINATOR_ADDRESS is required")
		}
		tags := c.Tags()
		if len(tags) == 0 {
			return errors.New("SATELLITE_TAGS must name at least one satellite")
		}
		seen := make(map[string]bool, len(tags))
		for _, t := range tags {
			if err := validator.ValidateTag(t, validator.MaxTagLength); err != nil {
				return fmt.Errorf("SATELLITE_TAGS entry %q: %w", t, err)
			}
			if seen[t] {
				return fmt.Errorf("SATELLITE_TAGS lists %q twice", t)
			}
			seen[t] = true
		}
	case eventbus.RoleSatellite:
		if c.SatelliteTag == "" {
			return errors.New("SATELLITE_TAG is required")
		}
		if err := validator.ValidateTag(c.SatelliteTag, validator.MaxTagLength); err != nil {
			return fmt.Errorf("SATELLITE_TAG: %w", err)
		}
		if c.CoordinatorURL == "" {
			return errors.New("COORDINATOR_URL is required")
		}
	}
	return nil
}

// BusOptions translates the bus settings into eventbus options.
func (c Config) BusOptions() []eventbus.Option {
	// Validate has already rejected unknown policies.
	policy, _ := eventbus.ParseFanOutPolicy(c.FanOutPolicy)
	opts := []eventbus.Option{
		eventbus.WithFanOutPolicy(policy),
		eventbus.WithRequestTimeout(c.RequestTimeout),
	}
	if c.UniqueListeners {
		opts = append(opts, eventbus.WithUniqueListeners())
	}
	return opts
}
