package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Search    SearchConfig
	Solr      SolrConfig
	Typesense TypesenseConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OTEL      OTELConfig
	Log       LogConfig
	Facets    *FacetsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	// RateLimitRPS caps search requests per second per client; 0 disables it
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are honoured
	TrustedProxies []string
}

// SearchConfig selects and tunes the search backend
type SearchConfig struct {
	// Backend is "solr" or "typesense"
	Backend        string
	TimeoutSeconds int
}

// SolrConfig holds Solr configuration
type SolrConfig struct {
	URL  string
	Core string
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
	// QueryBy lists the fields searched by keywords, comma separated
	QueryBy string
}

// DatabaseConfig holds the analytics database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	CacheTTLSeconds int
	// MemoryCacheSize bounds the in-process cache used when Redis is disabled
	MemoryCacheSize int
	// WarmIntervalSeconds re-warms top keywords periodically; 0 disables warming
	WarmIntervalSeconds int
	WarmKeywords        int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Environment string
	Level       string
}

// Search backends
const (
	BackendSolr      = "solr"
	BackendTypesense = "typesense"
)

// Load loads configuration from environment variables. Facet tables come from
// the YAML file named by FACETS_CONFIG_PATH, or the built-in defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Search: SearchConfig{
			Backend:        getEnv("SEARCH_BACKEND", BackendSolr),
			TimeoutSeconds: getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 10),
		},
		Solr: SolrConfig{
			URL:  getEnv("SOLR_URL", "http://localhost:8983/solr"),
			Core: getEnv("SOLR_CORE", "trips"),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "trips"),
			QueryBy:    getEnv("TYPESENSE_QUERY_BY", "text"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "faceted_search"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:         getEnvAsBool("REDIS_ENABLED", false),
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnvAsInt("REDIS_PORT", 6379),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			CacheTTLSeconds: getEnvAsInt("REDIS_CACHE_TTL_SECONDS", 300),
			MemoryCacheSize: getEnvAsInt("MEMORY_CACHE_SIZE", 1024),

			WarmIntervalSeconds: getEnvAsInt("CACHE_WARM_INTERVAL_SECONDS", 0),
			WarmKeywords:        getEnvAsInt("CACHE_WARM_KEYWORDS", 20),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "faceted-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Environment: getEnv("ENV", "development"),
			Level:       getEnv("LOG_LEVEL", "info"),
		},
	}

	switch cfg.Search.Backend {
	case BackendSolr, BackendTypesense:
	default:
		return nil, fmt.Errorf("unsupported SEARCH_BACKEND %q", cfg.Search.Backend)
	}

	if path := os.Getenv("FACETS_CONFIG_PATH"); path != "" {
		facets, err := LoadFacetsConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Facets = facets
	} else {
		cfg.Facets = DefaultFacetsConfig()
	}

	return cfg, nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
