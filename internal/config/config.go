package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Engine    EngineConfig    `mapstructure:"engine" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
}

// EngineConfig groups the tunables of the progression engine.
type EngineConfig struct {
	Hearts   HeartsConfig   `mapstructure:"hearts" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs" validate:"required"`
	XP       XPConfig       `mapstructure:"xp" validate:"required"`
	Streak   StreakConfig   `mapstructure:"streak" validate:"required"`
	Sessions SessionsConfig `mapstructure:"sessions" validate:"required"`
}

// HeartsConfig configures the per-path hearts resource.
type HeartsConfig struct {
	Max           int           `mapstructure:"max" validate:"required,gt=0,lte=100"`
	RegenInterval time.Duration `mapstructure:"regen_interval" validate:"required,gt=0"`
}

// SRSConfig configures the spaced repetition scheduler.
type SRSConfig struct {
	GrowthFactor         float64 `mapstructure:"growth_factor" validate:"required,gt=1"`
	FirstIntervalDays    int     `mapstructure:"first_interval_days" validate:"required,gt=0"`
	MaxIntervalDays      int     `mapstructure:"max_interval_days" validate:"required,gtefield=FirstIntervalDays"`
	StrugglingExitStreak int     `mapstructure:"struggling_exit_streak" validate:"required,gt=0"`
}

// XPConfig sets the XP awarded per learner action.
type XPConfig struct {
	ReviewCorrect     int `mapstructure:"review_correct" validate:"gte=0"`
	FlashcardCorrect  int `mapstructure:"flashcard_correct" validate:"gte=0"`
	StrugglingCorrect int `mapstructure:"struggling_correct" validate:"gte=0"`
	LessonComplete    int `mapstructure:"lesson_complete" validate:"gte=0"`
}

// StreakConfig selects the calendar used for day boundaries.
type StreakConfig struct {
	// TimeZone must be an IANA name; "Local" has no meaning to the database.
	TimeZone string `mapstructure:"time_zone" validate:"required,timezone,ne=Local"`
}

// SessionsConfig bounds review session size.
type SessionsConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"required,gt=0,ltefield=MaxLimit"`
	MaxLimit     int `mapstructure:"max_limit" validate:"required,gt=0"`
}

// CacheConfig configures where cache invalidation tags are published.
// An empty RedisAddr disables publishing.
type CacheConfig struct {
	RedisAddr     string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	Channel       string `mapstructure:"channel" validate:"required_with=RedisAddr"`
	// PublishWorkers and PublishQueueSize size the asynchronous publisher.
	PublishWorkers   int `mapstructure:"publish_workers" validate:"gte=0,lte=64"`
	PublishQueueSize int `mapstructure:"publish_queue_size" validate:"gte=0"`
}

// RateLimitConfig configures per-user request throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	Burst             int     `mapstructure:"burst" validate:"required,gt=0"`
}

// Location resolves the configured streak time zone.
func (c StreakConfig) Location() (*time.Location, error) {
	if c.TimeZone == "Local" {
		return nil, fmt.Errorf("time zone %q is not an IANA name", c.TimeZone)
	}
	return time.LoadLocation(c.TimeZone)
}
