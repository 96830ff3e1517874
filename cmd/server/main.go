package main

import (
	"log"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/handlers"

	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()
	presets := config.LoadRenderPresetsOrDefault(cfg.RenderPresetsPath)

	r := handlers.SetupRouter(cfg, presets)

	log.Printf("🚀 stats-lab-api を起動します（:%s, %s）", cfg.Port, cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
