package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server     ServerConfig
	Redis      RedisConfig
	SMS        SMSConfig
	Cloudinary CloudinaryConfig
	Kafka      KafkaConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	URL      string
	DB       int
	PoolSize int
}

// SMSConfig carries Twilio credentials. When any of the three values is
// empty the gateway is treated as unconfigured and codes are not delivered.
// DemoExpose controls whether undelivered codes are echoed back in API
// responses; it must stay off in production.
type SMSConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string
	DemoExpose       bool
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig reads configuration from the environment, loading a .env file
// first if one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("ENVIRONMENT", "development"))

	return &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		SMS: SMSConfig{
			TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber:       getEnv("TWILIO_PHONE_NUMBER", ""),
			// Demo exposure is an explicit flag, not an implicit
			// consequence of missing credentials.
			DemoExpose: getEnvBool("OTP_DEMO_EXPOSE", env != "production"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "eventconnect/avatars"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "auth-events"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// SMSConfigured reports whether all Twilio credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.SMS.TwilioAccountSID != "" && c.SMS.TwilioAuthToken != "" && c.SMS.FromNumber != ""
}

func (c *Config) CloudinaryConfigured() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.APIKey != "" && c.Cloudinary.APISecret != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
