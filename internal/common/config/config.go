package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
	DriverRedis    = "redis"
)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"giveaways"`

	Discord struct {
		Token            string  `env:"DISCORD_TOKEN"`
		JoinButtonID     string  `env:"GIVEAWAY_JOIN_BUTTON_ID" envDefault:"giveaway-join"`
		InteractionRate  float64 `env:"INTERACTION_RATE" envDefault:"1"`
		InteractionBurst int     `env:"INTERACTION_BURST" envDefault:"3"`
	}

	Storage Storage

	HTTP struct {
		Addr               string        `env:"HTTP_ADDR" envDefault:":8080"`
		AdminToken         string        `env:"ADMIN_TOKEN"`
		CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
		ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Workers struct {
		CleanSchedule      string `env:"CLEAN_SCHEDULE" envDefault:"@every 30m"`
		EventStreamEnabled bool   `env:"EVENT_STREAM_ENABLED" envDefault:"false"`
		EventStreamKey     string `env:"EVENT_STREAM_KEY" envDefault:"bot:events"`
		EventStreamGroup   string `env:"EVENT_STREAM_GROUP" envDefault:"giveaways"`
	}
}

// Storage selects and configures the persistence backend.
type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"json"`

	JSONFile    string `env:"STORAGE_JSON_FILE" envDefault:".cache/giveaways.json"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:".cache/giveaways.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"giveaways"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"giveaways:"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	case DriverMongoDB:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongodb driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Discord.InteractionRate < 0 || c.Discord.InteractionBurst < 0 {
		return fmt.Errorf("interaction rate and burst must not be negative")
	}
	return nil
}
