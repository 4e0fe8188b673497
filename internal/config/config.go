package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from the environment.
type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	DB     DBConfig
	Notify NotifyConfig
}

type ServerConfig struct {
	Addr      string
	BaseURL   string // absolute base for deep links in labels/notifications
	JWTSecret string // empty = load or generate via the settings table
	DataDir   string // label artifacts live here
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type DBConfig struct {
	Path string
}

type NotifyConfig struct {
	WebhookURL string
	TimeoutSec int
}

// Load reads configuration from the environment, loading a .env file
// first if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Addr:      getEnv("LISTEN_ADDR", ":8080"),
			BaseURL:   getEnv("BASE_URL", "http://localhost:8080"),
			JWTSecret: getEnv("JWT_SECRET", ""),
			DataDir:   getEnv("DATA_DIR", "data"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "lagerdb.sqlite3"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSec: getEnvInt("NOTIFY_TIMEOUT", 6),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
