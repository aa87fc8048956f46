package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	API        APIConfig
	Storage    StorageConfig
	Classifier ClassifierConfig
	Triage     TriageConfig
	Queue      QueueConfig
	Cache      CacheConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name        string
	Environment string
	Port        string
	Debug       bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxIdle  int
	MaxOpen  int
	MaxLife  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
	Enabled  bool
}

// AuthConfig holds authentication related configuration
type AuthConfig struct {
	AccessSecret   string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
}

// APIConfig holds API configuration
type APIConfig struct {
	TimeoutSeconds int
	MaxUploadBytes int64
}

// StorageConfig holds artifact object-storage configuration
type StorageConfig struct {
	BaseURL      string
	APIKey       string
	Bucket       string
	AllowedTypes []string
}

// ClassifierConfig holds the external inference service configuration
type ClassifierConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// TriageConfig holds severity tier boundaries on the 0..10 score scale
type TriageConfig struct {
	LowMax    float64
	MediumMax float64
}

// QueueConfig holds queue assigner tuning
type QueueConfig struct {
	LockWait       time.Duration
	AssignAttempts int
	AssignBackoff  time.Duration
}

// CacheConfig holds read-path cache tuning
type CacheConfig struct {
	TTL time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file not found, continue with environment variables
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "MediQueue"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Debug:       getEnvBool("APP_DEBUG", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "mediqueue_db"),
			User:     getEnv("DB_USER", "mediqueue_user"),
			Password: getEnv("DB_PASSWORD", "mediqueue_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxIdle:  getEnvInt("DB_MAX_IDLE", 10),
			MaxOpen:  getEnvInt("DB_MAX_OPEN", 100),
			MaxLife:  getEnvDuration("DB_MAX_LIFE", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Auth: AuthConfig{
			AccessSecret:   getEnv("AUTH_ACCESS_SECRET", "your-secret-key"),
			Issuer:         getEnv("AUTH_ISSUER", "mediqueue"),
			Audience:       getEnv("AUTH_AUDIENCE", "mediqueue-clients"),
			AccessTokenTTL: getEnvDuration("AUTH_ACCESS_TTL", 24*time.Hour),
		},
		API: APIConfig{
			TimeoutSeconds: getEnvInt("API_TIMEOUT", 30),
			MaxUploadBytes: getEnvInt64("API_MAX_UPLOAD_BYTES", 5*1024*1024), // 5MB
		},
		Storage: StorageConfig{
			BaseURL:      getEnv("STORAGE_BASE_URL", ""),
			APIKey:       getEnv("STORAGE_API_KEY", ""),
			Bucket:       getEnv("STORAGE_BUCKET", "receipts"),
			AllowedTypes: getEnvSlice("STORAGE_ALLOWED_TYPES", []string{"image/png", "image/jpeg", "image/webp", "application/pdf"}),
		},
		Classifier: ClassifierConfig{
			BaseURL:        getEnv("CLASSIFIER_BASE_URL", ""),
			APIKey:         getEnv("CLASSIFIER_API_KEY", ""),
			TimeoutSeconds: getEnvInt("CLASSIFIER_TIMEOUT", 10),
		},
		Triage: TriageConfig{
			LowMax:    getEnvFloat("TRIAGE_LOW_MAX", 3.0),
			MediumMax: getEnvFloat("TRIAGE_MEDIUM_MAX", 7.0),
		},
		Queue: QueueConfig{
			LockWait:       getEnvDuration("QUEUE_LOCK_WAIT", 2*time.Second),
			AssignAttempts: getEnvInt("QUEUE_ASSIGN_ATTEMPTS", 3),
			AssignBackoff:  getEnvDuration("QUEUE_ASSIGN_BACKOFF", 100*time.Millisecond),
		},
		Cache: CacheConfig{
			TTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
	}

	return config, nil
}

// GetDSN returns database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// GetRedisAddr returns Redis connection address
func (r *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsDevelopment returns true if environment is development
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if environment is production
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// Validate validates configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Auth.AccessSecret == "" || c.Auth.AccessSecret == "your-secret-key" {
		return fmt.Errorf("auth secret must be set and not use default value")
	}
	if c.Triage.LowMax >= c.Triage.MediumMax {
		return fmt.Errorf("triage tier boundaries must satisfy low < medium")
	}
	if c.API.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	return nil
}

// Print prints configuration (excluding sensitive data)
func (c *Config) Print() {
	fmt.Printf("=== Configuration ===\n")
	fmt.Printf("App Name: %s\n", c.App.Name)
	fmt.Printf("Environment: %s\n", c.App.Environment)
	fmt.Printf("Port: %s\n", c.App.Port)
	fmt.Printf("Debug: %v\n", c.App.Debug)
	fmt.Printf("Database: %s:%s/%s\n", c.Database.Host, c.Database.Port, c.Database.Name)
	fmt.Printf("Redis: %s:%s/%d (enabled=%v)\n", c.Redis.Host, c.Redis.Port, c.Redis.DB, c.Redis.Enabled)
	fmt.Printf("Cache TTL: %v\n", c.Cache.TTL)
	fmt.Printf("Triage tiers: low<=%.1f medium<=%.1f\n", c.Triage.LowMax, c.Triage.MediumMax)
	fmt.Printf("====================\n")
}
