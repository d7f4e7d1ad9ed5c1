package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Index modes for the doctor n-gram index
const (
	IndexModeIsolated = "isolated"
	IndexModeMerged   = "merged"
)

// Cache backends for memoized engine results
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTEL     OTELConfig
	Matching MatchingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// MatchingConfig holds search and patient-matching engine configuration
type MatchingConfig struct {
	IndexMode                 string
	CacheBackend              string
	SearchCacheTTL            time.Duration
	MatchCacheTTL             time.Duration
	AlwaysRebuildOnMatch      bool
	SimilarDoctorThreshold    float64
	SpecialityInferenceCutoff float64
	DefaultLimit              int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "doctor_directory"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "doctor-directory"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Matching: MatchingConfig{
			IndexMode:                 getEnv("MATCHING_INDEX_MODE", IndexModeIsolated),
			CacheBackend:              getEnv("MATCHING_CACHE_BACKEND", CacheBackendMemory),
			SearchCacheTTL:            getEnvAsDuration("MATCHING_SEARCH_CACHE_TTL", 15*time.Minute),
			MatchCacheTTL:             getEnvAsDuration("MATCHING_MATCH_CACHE_TTL", 10*time.Minute),
			AlwaysRebuildOnMatch:      getEnvAsBool("MATCHING_ALWAYS_REBUILD", true),
			SimilarDoctorThreshold:    getEnvAsFloat("MATCHING_SIMILAR_DOCTOR_THRESHOLD", 0.6),
			SpecialityInferenceCutoff: getEnvAsFloat("MATCHING_SPECIALITY_THRESHOLD", 0.3),
			DefaultLimit:              getEnvAsInt("MATCHING_DEFAULT_LIMIT", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var err error

	if c.Server.Port <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid server port %d", c.Server.Port))
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns && c.Database.MaxOpenConns > 0 {
		err = multierror.Append(err, fmt.Errorf("db idle connections (%d) exceed open connections (%d)", c.Database.MaxIdleConns, c.Database.MaxOpenConns))
	}

	m := c.Matching
	if m.IndexMode != IndexModeIsolated && m.IndexMode != IndexModeMerged {
		err = multierror.Append(err, fmt.Errorf("unknown index mode %q", m.IndexMode))
	}
	if m.CacheBackend != CacheBackendMemory && m.CacheBackend != CacheBackendRedis {
		err = multierror.Append(err, fmt.Errorf("unknown cache backend %q", m.CacheBackend))
	}
	if m.SearchCacheTTL <= 0 {
		err = multierror.Append(err, fmt.Errorf("search cache ttl must be positive"))
	}
	if m.MatchCacheTTL <= 0 {
		err = multierror.Append(err, fmt.Errorf("match cache ttl must be positive"))
	}
	if m.SimilarDoctorThreshold < 0 || m.SimilarDoctorThreshold > 1 {
		err = multierror.Append(err, fmt.Errorf("similar doctor threshold must be within [0,1]"))
	}
	if m.SpecialityInferenceCutoff < 0 || m.SpecialityInferenceCutoff > 1 {
		err = multierror.Append(err, fmt.Errorf("speciality threshold must be within [0,1]"))
	}
	if m.DefaultLimit <= 0 {
		err = multierror.Append(err, fmt.Errorf("default limit must be positive"))
	}

	return err
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
