package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. PATHWISE_DATABASE_URL.
const EnvPrefix = "PATHWISE"

// keys without a default still need explicit env bindings to be unmarshalled.
var requiredKeys = []string{
	"database.url",
	"auth.jwt_secret",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("engine.hearts.max", 5)
	v.SetDefault("engine.hearts.regen_interval", "30m")

	v.SetDefault("engine.srs.growth_factor", 2.0)
	v.SetDefault("engine.srs.first_interval_days", 1)
	v.SetDefault("engine.srs.max_interval_days", 180)
	v.SetDefault("engine.srs.struggling_exit_streak", 2)

	v.SetDefault("engine.xp.review_correct", 10)
	v.SetDefault("engine.xp.flashcard_correct", 5)
	v.SetDefault("engine.xp.struggling_correct", 15)
	v.SetDefault("engine.xp.lesson_complete", 50)

	v.SetDefault("engine.streak.time_zone", "UTC")

	v.SetDefault("engine.sessions.default_limit", 20)
	v.SetDefault("engine.sessions.max_limit", 100)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.channel", "pathwise:invalidations")
	v.SetDefault("cache.publish_workers", 2)
	v.SetDefault("cache.publish_queue_size", 256)

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file instead of
// searching for config.yaml in the working directory.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
