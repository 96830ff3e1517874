package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port          string
	Environment   string
	APIKey        string
	AdminUsername string
	AdminPassword string
	MaxUploadMB   int

	// 相関行列の計算設定
	ParallelThreshold   int
	SyntheticSampleSize int

	// リクエストで指定できる値の上限
	MaxSampleSize     int
	MaxImpurityPoints int

	Render            RenderConfig
	RenderPresetsPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		APIKey:              getEnv("API_KEY", ""),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 10),
		ParallelThreshold:   getEnvInt("PARALLEL_THRESHOLD", 16),
		SyntheticSampleSize: getEnvInt("SYNTHETIC_SAMPLE_SIZE", 100),
		MaxSampleSize:       getEnvInt("MAX_SAMPLE_SIZE", 10000),
		MaxImpurityPoints:   getEnvInt("MAX_IMPURITY_POINTS", 10000),
		Render:              LoadRenderConfig(),
		RenderPresetsPath:   getEnv("RENDER_PRESETS_PATH", DefaultRenderPresetsPath),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 整数の環境変数を取得（不正な値はデフォルト値を使用）
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ 環境変数 %s の値が不正です（%q）。デフォルト値 %d を使用します", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvFloat 実数の環境変数を取得（不正な値はデフォルト値を使用）
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️ 環境変数 %s の値が不正です（%q）。デフォルト値 %g を使用します", key, value, defaultValue)
		return defaultValue
	}
	return f
}
