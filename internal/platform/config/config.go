// Package config loads per-service configuration from the environment, the
// way the rest of this codebase always has: no config file format, no
// remote config service, just getenv with defaults baked in at the call
// site so a service can run with zero setup in a dev shell.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Database holds the connection settings for a service's private Postgres
// pool. Every service owns exactly one of these.
type Database struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int32
	MaxIdleConns    int32
	ConnMaxLifetime time.Duration
}

func (d Database) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func LoadDatabase(prefix string) Database {
	return Database{
		Host:            getEnv(prefix+"_DB_HOST", "localhost"),
		Port:            getEnv(prefix+"_DB_PORT", "5432"),
		Name:            getEnv(prefix+"_DB_NAME", strings.ToLower(prefix)),
		User:            getEnv(prefix+"_DB_USER", "postgres"),
		Password:        getEnv(prefix+"_DB_PASSWORD", "postgres"),
		SSLMode:         getEnv(prefix+"_DB_SSLMODE", "disable"),
		MaxOpenConns:    int32(getEnvAsInt(prefix+"_DB_MAX_OPEN_CONNS", 10)),
		MaxIdleConns:    int32(getEnvAsInt(prefix+"_DB_MAX_IDLE_CONNS", 5)),
		ConnMaxLifetime: getEnvAsDuration(prefix+"_DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

// Broker holds the Kafka connection settings shared by every consumer and
// producer in the platform.
type Broker struct {
	Brokers      []string
	ClientID     string
	GroupID      string
	Version      string
	RequiredAcks string
}

func LoadBroker(service string) Broker {
	return Broker{
		Brokers:      getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		ClientID:     getEnv("KAFKA_CLIENT_ID", service),
		GroupID:      getEnv("KAFKA_GROUP_ID", service+"-group"),
		Version:      getEnv("KAFKA_VERSION", "3.0.0"),
		RequiredAcks: getEnv("KAFKA_REQUIRED_ACKS", "all"),
	}
}

// Cache holds the Redis connection settings used for idempotency fast-path
// lookups and risk velocity counters.
type Cache struct {
	Addr     string
	Password string
	DB       int
}

func LoadCache() Cache {
	return Cache{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// Server holds the HTTP listener settings for services that expose one.
type Server struct {
	Host string
	Port string
}

func LoadServer(defaultPort string) Server {
	return Server{
		Host: getEnv("SERVER_HOST", "0.0.0.0"),
		Port: getEnv("SERVER_PORT", defaultPort),
	}
}

func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}

// Logging holds the hand-rolled logger's level/format knobs.
type Logging struct {
	Level  string
	Format string
}

func LoadLogging() Logging {
	return Logging{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(name string, defaultVal []string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, ",")
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	return defaultVal
}

// GetEnvAsBool exposes the bool helper to service-level config packages that
// need a knob getEnv/getEnvAsInt/getEnvAsSlice above don't cover.
func GetEnvAsBool(name string, defaultVal bool) bool {
	return getEnvAsBool(name, defaultVal)
}

// GetEnv exposes the string helper to service-level config packages.
func GetEnv(key, defaultValue string) string {
	return getEnv(key, defaultValue)
}

// GetEnvAsInt exposes the int helper to service-level config packages.
func GetEnvAsInt(name string, defaultVal int) int {
	return getEnvAsInt(name, defaultVal)
}

// GetEnvAsDuration exposes the duration helper to service-level config packages.
func GetEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	return getEnvAsDuration(name, defaultVal)
}
