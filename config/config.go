package config

import (
	"fmt"
	"os"
)

// Config collects every environment-provided setting in one place. The
// .env file is loaded by main before FromEnv runs.
type Config struct {
	ServerPort string

	MongoURI    string
	MongoDBName string

	// Issue tracker credential. TrackerUsername empty means bearer auth
	// with TrackerToken only.
	TrackerUsername string
	TrackerToken    string

	// Spreadsheet access: an API key for public sheets, or a service
	// account credentials file. One of the two must be set.
	SheetsAPIKey          string
	SheetsCredentialsFile string

	// Cache backend: "memory" (default), "file" or "cassandra".
	CacheBackend  string
	CacheDir      string
	CassandraHost string

	// Optional YAML override for the status classification taxonomy.
	StatusRulesFile string
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerPort:            os.Getenv("SERVER_PORT"),
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDBName:           os.Getenv("MONGO_DB_NAME"),
		TrackerUsername:       os.Getenv("TRACKER_USERNAME"),
		TrackerToken:          os.Getenv("TRACKER_TOKEN"),
		SheetsAPIKey:          os.Getenv("SHEETS_API_KEY"),
		SheetsCredentialsFile: os.Getenv("SHEETS_CREDENTIALS_FILE"),
		CacheBackend:          os.Getenv("CACHE_BACKEND"),
		CacheDir:              os.Getenv("CACHE_DIR"),
		CassandraHost:         os.Getenv("CASS_DB"),
		StatusRulesFile:       os.Getenv("STATUS_RULES_FILE"),
	}

	if cfg.ServerPort == "" {
		return nil, fmt.Errorf("SERVER_PORT is not set in the environment variables")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is not set in the environment variables")
	}
	if cfg.MongoDBName == "" {
		cfg.MongoDBName = "dashboard_db"
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "memory"
	}
	if cfg.CacheBackend == "file" && cfg.CacheDir == "" {
		cfg.CacheDir = "cache"
	}
	if cfg.CacheBackend == "cassandra" && cfg.CassandraHost == "" {
		cfg.CassandraHost = "127.0.0.1"
	}
	return cfg, nil
}
