package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const envPrefix = "VISITOR"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Notification NotificationConfig `mapstructure:"notification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Seed         SeedConfig         `mapstructure:"seed"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" split_words:"true"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host" envconfig:"DB_HOST"`
	Port            int           `mapstructure:"port" envconfig:"DB_PORT"`
	User            string        `mapstructure:"user" envconfig:"DB_USER"`
	Password        string        `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name            string        `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode         string        `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type AuthConfig struct {
	Required bool   `mapstructure:"required"`
	Issuer   string `mapstructure:"issuer" envconfig:"JWT_ISSUER"`
	Audience string `mapstructure:"audience" envconfig:"JWT_AUDIENCE"`
	Key      string `mapstructure:"key" envconfig:"JWT_KEY"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port        int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	User        string `mapstructure:"user" envconfig:"SMTP_USER"`
	Password    string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	SenderEmail string `mapstructure:"sender_email" envconfig:"SENDER_EMAIL"`
	SenderName  string `mapstructure:"sender_name" envconfig:"SENDER_NAME"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

type NotificationConfig struct {
	Driver          string        `mapstructure:"driver"`
	Workers         int           `mapstructure:"workers"`
	BufferSize      int           `mapstructure:"buffer_size" split_words:"true"`
	MaxAttempts     int           `mapstructure:"max_attempts" split_words:"true"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff" split_words:"true"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" split_words:"true"`
	QueueKey        string        `mapstructure:"queue_key" split_words:"true"`
	DeadLetterKey   string        `mapstructure:"dead_letter_key" split_words:"true"`
	WorkerAddr      string        `mapstructure:"worker_addr" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"LOG_LEVEL"`
	Format string `mapstructure:"format"`
}

type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// flatKeys maps the single-word keys used by existing deployments onto the
// nested configuration paths.
var flatKeys = map[string]string{
	"dbHost":       "database.host",
	"dbName":       "database.name",
	"dbUser":       "database.user",
	"dbPassword":   "database.password",
	"jwtIssuer":    "auth.issuer",
	"jwtAudience":  "auth.audience",
	"jwtKey":       "auth.key",
	"smtpHost":     "smtp.host",
	"smtpPort":     "smtp.port",
	"smtpUser":     "smtp.user",
	"smtpPassword": "smtp.password",
	"senderEmail":  "smtp.sender_email",
	"senderName":   "smtp.sender_name",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sfscheduler")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("auth.required", false)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.key", "")

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender_email", "no-reply@localhost")
	v.SetDefault("smtp.sender_name", "SFS Scheduling")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("notification.driver", "inline")
	v.SetDefault("notification.workers", 2)
	v.SetDefault("notification.buffer_size", 100)
	v.SetDefault("notification.max_attempts", 5)
	v.SetDefault("notification.initial_backoff", time.Second)
	v.SetDefault("notification.dispatch_timeout", 5*time.Second)
	v.SetDefault("notification.queue_key", "visitor:mail:queue")
	v.SetDefault("notification.dead_letter_key", "visitor:mail:dead")
	v.SetDefault("notification.worker_addr", ":8081")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.client_ttl", 10*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("seed.enabled", false)
}

// LoadConfig reads config.yaml from the usual locations, then applies .env
// and environment overrides. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/visitor-api")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for flat, path := range flatKeys {
		if v.InConfig(strings.ToLower(flat)) {
			v.Set(path, v.Get(flat))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("config: database host and name are required")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}

	switch c.Notification.Driver {
	case "inline", "redis", "none":
	default:
		return fmt.Errorf("config: unknown notification driver %q", c.Notification.Driver)
	}

	if c.Auth.Required && c.Auth.Key == "" {
		return errors.New("config: auth.required needs a jwt key")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: unknown server mode %q", c.Server.Mode)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	return nil
}

// DSN returns the lib/pq connection string. Values are quoted so empty
// strings and spaces survive parsing.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(c.Host),
		c.Port,
		quoteDSN(c.User),
		quoteDSN(c.Password),
		quoteDSN(c.Name),
		quoteDSN(c.SSLMode),
	)
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteDSN(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}
