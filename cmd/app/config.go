package main

import (
	"os"

	"github.com/joho/godotenv"
)

type config struct {
	MetricsAddr string
	HostsFile   string
	LogLevel    string
}

func loadConfig() config {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	return config{
		MetricsAddr: getEnv("ESPLORA_METRICS_ADDR", ""),
		HostsFile:   getEnv("ESPLORA_HOSTS_FILE", ""),
		LogLevel:    getEnv("ESPLORA_LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
