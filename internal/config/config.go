package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Host        string
	Port        int
	LogLevel    string
	LogFile     string
	MaxUploadMB int

	DBPath            string
	MatchProfile      string // built-in profile name or path to a YAML profile
	ReferenceRetailer string // overrides the profile's reference retailer when set
	Workers           int
	BlockTimeout      time.Duration
}

func Load() Config {
	port, _ := strconv.Atoi(getenv("PORT", "8082"))
	mb, _ := strconv.Atoi(getenv("MAX_UPLOAD_MB", "64"))
	workers, _ := strconv.Atoi(getenv("MATCH_WORKERS", "0"))
	timeout, err := time.ParseDuration(getenv("BLOCK_TIMEOUT", "2m"))
	if err != nil {
		timeout = 2 * time.Minute
	}
	return Config{
		Host:              getenv("HOST", "127.0.0.1"),
		Port:              port,
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFile:           getenv("LOG_FILE", "logs/listing-match.log"),
		MaxUploadMB:       mb,
		DBPath:            getenv("DB_PATH", "data/listing-match.db"),
		MatchProfile:      getenv("MATCH_PROFILE", "default"),
		ReferenceRetailer: os.Getenv("REFERENCE_RETAILER"),
		Workers:           workers,
		BlockTimeout:      timeout,
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
