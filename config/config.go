package config

import (
	"os"
	"strconv"
	"strings"
)

// Config структура конфигурации приложения
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Provider ProviderConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Checkout CheckoutConfig
	Logging  LoggingConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// BackendConfig конфигурация клиента контент-бэкенда
type BackendConfig struct {
	BaseURL string
	Timeout int
}

// ProviderConfig конфигурация платежного провайдера
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	IsTest  bool
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig конфигурация Kafka
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// CheckoutConfig конфигурация потока оформления
type CheckoutConfig struct {
	ProvisionTimeout int
	CommitTimeout    int
	CacheTTLMinutes  int
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:5000"),
			Timeout: getEnvAsInt("BACKEND_TIMEOUT", 15),
		},
		Provider: ProviderConfig{
			APIKey:  getEnv("PROVIDER_API_KEY", ""),
			BaseURL: getEnv("PROVIDER_BASE_URL", ""),
			IsTest:  getEnvAsBool("PROVIDER_IS_TEST", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "enrollment_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "checkout.events"),
		},
		Checkout: CheckoutConfig{
			ProvisionTimeout: getEnvAsInt("CHECKOUT_PROVISION_TIMEOUT", 15),
			CommitTimeout:    getEnvAsInt("CHECKOUT_COMMIT_TIMEOUT", 15),
			CacheTTLMinutes:  getEnvAsInt("ENROLLMENT_CACHE_TTL", 15),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int или возвращает значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSlice получает значение переменной окружения как список через запятую
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
