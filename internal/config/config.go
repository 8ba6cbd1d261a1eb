package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects and addresses the backing store.
// Driver "postgres" uses the host fields; "sqlite" uses Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// GetDSN returns the driver-specific connection string.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// FlagStream is the stream abuse flags are published to. Empty disables the feed.
	FlagStream string `yaml:"flag_stream"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// AdvocateConfig points at the elder-rights advocate webhook.
type AdvocateConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// Retries covers transport errors only and is 0 unless configured.
	Retries int `yaml:"retries"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ElderConfig describes the protected user this instance guards.
type ElderConfig struct {
	UserID          string `yaml:"user_id"`
	Timezone        string `yaml:"timezone"`
	AdvocateName    string `yaml:"advocate_name"`
	AdvocatePhone   string `yaml:"advocate_phone"`
	EmergencyNumber string `yaml:"emergency_number"`
	// Location is the elder's address or region, sent with emergency alerts.
	Location string `yaml:"location"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WorkerConfig struct {
	PoolSize  int `yaml:"pool_size"`
	QueueSize int `yaml:"queue_size"`
}

// Config guardian service configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Advocate AdvocateConfig `yaml:"advocate"`
	HTTP     HTTPConfig     `yaml:"http"`
	Elder    ElderConfig    `yaml:"elder"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

// Load builds the configuration: defaults, then the optional CONFIG_FILE yaml
// overlay, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "memory" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if _, err := time.LoadLocation(cfg.Elder.Timezone); err != nil {
		return nil, fmt.Errorf("invalid elder timezone %q: %w", cfg.Elder.Timezone, err)
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}

	cfg.Database.Driver = "postgres"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "naviya"
	cfg.Database.SSLMode = "disable"
	cfg.Database.Path = "naviya-guardian.db"
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.FlagStream = "guardian:flags"

	cfg.MQTT.ClientID = "naviya-guardian"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "naviya/device"

	cfg.Advocate.Timeout = 10 * time.Second

	cfg.HTTP.Addr = ":8080"

	cfg.Elder.UserID = "elder"
	cfg.Elder.Timezone = "UTC"
	cfg.Elder.AdvocateName = "Elder Rights Advocate"
	cfg.Elder.AdvocatePhone = "+49800111222"
	cfg.Elder.EmergencyNumber = "112"

	cfg.Worker.PoolSize = 4
	cfg.Worker.QueueSize = 256

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.FlagStream = getEnv("REDIS_FLAG_STREAM", cfg.Redis.FlagStream)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	cfg.Advocate.BaseURL = getEnv("ADVOCATE_URL", cfg.Advocate.BaseURL)
	cfg.Advocate.Token = getEnv("ADVOCATE_TOKEN", cfg.Advocate.Token)
	cfg.Advocate.Timeout = getEnvDuration("ADVOCATE_TIMEOUT", cfg.Advocate.Timeout)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Elder.UserID = getEnv("ELDER_USER_ID", cfg.Elder.UserID)
	cfg.Elder.Timezone = getEnv("ELDER_TIMEZONE", cfg.Elder.Timezone)
	cfg.Elder.AdvocateName = getEnv("ADVOCATE_NAME", cfg.Elder.AdvocateName)
	cfg.Elder.AdvocatePhone = getEnv("ADVOCATE_PHONE", cfg.Elder.AdvocatePhone)
	cfg.Elder.EmergencyNumber = getEnv("EMERGENCY_NUMBER", cfg.Elder.EmergencyNumber)
	cfg.Elder.Location = getEnv("ELDER_LOCATION", cfg.Elder.Location)

	cfg.Worker.PoolSize = getEnvInt("WORKER_POOL_SIZE", cfg.Worker.PoolSize)
	cfg.Worker.QueueSize = getEnvInt("WORKER_QUEUE_SIZE", cfg.Worker.QueueSize)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
