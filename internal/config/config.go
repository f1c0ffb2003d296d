// Package config loads service settings from an optional YAML file, a .env file
// and the process environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string        `yaml:"port"`
	LogLevel  string        `yaml:"logLevel"`
	LogFormat string        `yaml:"logFormat"`
	Database  DatabaseConf  `yaml:"database"`
	Redis     RedisConf     `yaml:"redis"`
	MQTT      MQTTConf      `yaml:"mqtt"`
	Auth      AuthConf      `yaml:"auth"`
	RateLimit RateLimitConf `yaml:"rateLimit"`
}

type DatabaseConf struct {
	PostgresURL string `yaml:"postgresUrl"`
	MongoURI    string `yaml:"mongoUri"`
	MongoDB     string `yaml:"mongoDb"`
	Migrate     bool   `yaml:"migrate"`
	Migrations  string `yaml:"migrations"`
}

type RedisConf struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

type MQTTConf struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
}

type AuthConf struct {
	Mode        string `yaml:"mode"`
	HMACSecret  string `yaml:"hmacSecret"`
	JWKSURL     string `yaml:"jwksUrl"`
	TenantClaim string `yaml:"tenantClaim"`
	RoleClaim   string `yaml:"roleClaim"`
}

type RateLimitConf struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "text",
		Database:  DatabaseConf{MongoDB: "donationroute", Migrate: true, Migrations: "db/migrations"},
		Redis:     RedisConf{CacheTTL: 10 * time.Minute},
		MQTT:      MQTTConf{ClientID: "donationroute-api", Topic: "catalog/+/stops"},
		Auth:      AuthConf{Mode: "dev", TenantClaim: "tenant", RoleClaim: "role"},
	}
}

// Load builds the configuration. path may be empty; CONFIG_FILE is used then.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.Port, "PORT")
	setStr(&c.LogLevel, "LOG_LEVEL")
	setStr(&c.LogFormat, "LOG_FORMAT")
	setStr(&c.Database.PostgresURL, "DATABASE_URL")
	setStr(&c.Database.MongoURI, "MONGO_URI")
	setStr(&c.Database.MongoDB, "MONGO_DB")
	setStr(&c.Redis.URL, "REDIS_URL")
	setStr(&c.MQTT.Broker, "MQTT_BROKER")
	setStr(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	setStr(&c.MQTT.Topic, "MQTT_TOPIC")
	setStr(&c.Auth.Mode, "AUTH_MODE")
	setStr(&c.Auth.HMACSecret, "AUTH_HMAC_SECRET")
	setStr(&c.Auth.JWKSURL, "AUTH_JWKS_URL")
	setStr(&c.Auth.TenantClaim, "AUTH_TENANT_CLAIM")
	setStr(&c.Auth.RoleClaim, "AUTH_ROLE_CLAIM")
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		c.Database.Migrate = v != "false"
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Redis.CacheTTL = d
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.RateLimit.Burst = n
	}
	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
