package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Port        int
	DownloadDir string
	Quality     string

	MaxConcurrent int
	SpeedLimit    int64 // bytes/sec, 0 = unlimited

	ProviderURL        string
	ProviderRateMax    int // max resolver calls per window
	ProviderRateWindow int // window length in seconds

	APIKey   string
	LogLevel string
	Dev      bool
}

func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		DownloadDir:        getEnv("DOWNLOAD_DIR", defaultDownloadDir()),
		Quality:            getEnv("QUALITY", "1080p"),
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 3),
		SpeedLimit:         int64(getEnvInt("SPEED_LIMIT", 0)),
		ProviderURL:        getEnv("PROVIDER_API_URL", ""),
		ProviderRateMax:    getEnvInt("PROVIDER_RATE_MAX", 5),
		ProviderRateWindow: getEnvInt("PROVIDER_RATE_WINDOW_SEC", 10),
		APIKey:             getEnv("API_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Dev:                getEnv("DEV", "") != "",
	}
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return filepath.Join(home, ".dramadl", "downloads")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
