package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by VERITY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VERITY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL returns the Postgres connection string. Empty means the
// embedded SQLite store is used instead.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// SQLitePath returns the database file for the embedded store.
// Defaults to "verity.db".
func SQLitePath() string {
	p := os.Getenv("SQLITE_PATH")
	if p == "" {
		return "verity.db"
	}
	return p
}

// GateConfigPath returns the YAML file holding per-response-type gate
// thresholds. Empty means built-in defaults.
func GateConfigPath() string {
	return os.Getenv("GATE_CONFIG_PATH")
}

// ConfirmationChannel reports whether a user confirmation channel is
// available; it decides ask_user versus log_for_review in the yellow
// zone.
func ConfirmationChannel() bool {
	v, err := strconv.ParseBool(os.Getenv("CONFIRMATION_CHANNEL"))
	if err != nil {
		return true
	}
	return v
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
