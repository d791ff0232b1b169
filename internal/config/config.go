package config

import (
	"os"
	"strconv"
)

// DateLayouts holds the Go time layouts used when product option widgets
// convert submitted date/time values into timestamps.
type DateLayouts struct {
	Date  string
	Time  string
	Datim string
}

// AppConfig collects everything main needs to wire the application.
type AppConfig struct {
	DSN     string
	Addr    string
	StoreID int64
	Layouts DateLayouts
}

func Load() *AppConfig {
	return &AppConfig{
		DSN:     getEnv("DB_DSN", "storefront:storefront@tcp(127.0.0.1:3306)/storefront?parseTime=true"),
		Addr:    getEnv("HTTP_ADDR", ":8080"),
		StoreID: getEnvInt64("STORE_ID", 1),
		Layouts: DateLayouts{
			Date:  getEnv("DATE_FORMAT", "2006-01-02"),
			Time:  getEnv("TIME_FORMAT", "15:04"),
			Datim: getEnv("DATIM_FORMAT", "2006-01-02 15:04"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
