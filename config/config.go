package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DBPostgres = "postgres"
	DBSQLite   = "sqlite3"
	DBMongo    = "mongo"
	DBMemory   = "memory"
)

type Config struct {
	Port   string `yaml:"port"`
	DBType string `yaml:"db_type"`

	PostgresURL   string `yaml:"postgres_url"`
	SQLitePath    string `yaml:"sqlite_path"`
	MongoURL      string `yaml:"mongo_url"`
	MongoDatabase string `yaml:"mongo_database"`

	SessionSecret        string `yaml:"session_secret"`
	SessionEncryptionKey string `yaml:"session_encryption_key"`
	// SessionMaxAge is in seconds.
	SessionMaxAge int  `yaml:"session_max_age"`
	SessionSecure bool `yaml:"session_secure"`

	BcryptCost             int `yaml:"bcrypt_cost"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

func Defaults() *Config {
	return &Config{
		Port:                   "8080",
		DBType:                 DBSQLite,
		SQLitePath:             "usermanagement.db",
		MongoDatabase:          "usermanagement",
		SessionMaxAge:          1209600,
		ShutdownTimeoutSeconds: 5,
	}
}

// LoadConfig reads .env (if present), then the YAML file named by
// CONFIG_FILE (if set), then environment variables. Later sources win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DBType, "DB_TYPE")
	setString(&c.PostgresURL, "POSTGRES_URL")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.MongoURL, "MONGO_URL")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.SessionEncryptionKey, "SESSION_ENCRYPTION_KEY")

	if err := setInt(&c.SessionMaxAge, "SESSION_MAX_AGE"); err != nil {
		return err
	}
	if err := setInt(&c.BcryptCost, "BCRYPT_COST"); err != nil {
		return err
	}
	if err := setInt(&c.ShutdownTimeoutSeconds, "SHUTDOWN_TIMEOUT_SECONDS"); err != nil {
		return err
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SESSION_SECURE: %w", err)
		}
		c.SessionSecure = b
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBType {
	case DBPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL not set for DB_TYPE=%s", c.DBType)
		}
	case DBSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH not set for DB_TYPE=%s", c.DBType)
		}
	case DBMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL not set for DB_TYPE=%s", c.DBType)
		}
	case DBMemory:
	default:
		return fmt.Errorf("DB_TYPE %q not supported", c.DBType)
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET not set")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 bytes")
	}
	switch len(c.SessionEncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return fmt.Errorf("BCRYPT_COST %d out of range", c.BcryptCost)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
