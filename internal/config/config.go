package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	UploadDir       string
	TreasureRadiusM float64 // fallback geofence radius when a treasure has none stored
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		TreasureRadiusM: getEnvFloat("TREASURE_RADIUS_M", 50),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
