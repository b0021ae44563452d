package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port              string
	Environment       string
	APIKey            string
	AdminUsername     string
	AdminPassword     string
	HistoryFile       string
	Timezone          string
	GrowthWindowDays  int
	StatsWindowDays   int
	CeilingWindowDays int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		APIKey:            getEnv("API_KEY", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		HistoryFile:       getEnv("HISTORY_FILE", ""),
		Timezone:          getEnv("TIMEZONE", "Asia/Tokyo"),
		GrowthWindowDays:  getEnvInt("GROWTH_WINDOW_DAYS", 5),
		StatsWindowDays:   getEnvInt("STATS_WINDOW_DAYS", 3),
		CeilingWindowDays: getEnvInt("CEILING_WINDOW_DAYS", 7),
	}
}

// Location 設定されたタイムゾーン。読み込めない場合はUTCにフォールバック
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("⚠️ [設定] タイムゾーン %q を読み込めません。UTCを使用します: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 正の整数の環境変数。未設定・不正値はデフォルト
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("⚠️ [設定] %s=%q は不正な値です。デフォルト %d を使用します", key, value, defaultValue)
		return defaultValue
	}
	return n
}
