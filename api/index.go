package handler

import (
	"log"
	"net/http"
	"sync"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/handlers"

	"github.com/gin-gonic/gin"
)

// backendVersion はデプロイ確認用にレスポンスヘッダーへ付与するバージョンです。
const backendVersion = "stats-lab-api-v1"

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		log.Printf("🟢 [setupApp] Initializing Gin application")

		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		// 関数のバンドルにYAMLが含まれない場合は埋め込みのプリセットを使う
		presets := config.LoadRenderPresetsOrDefault(cfg.RenderPresetsPath)

		app = handlers.SetupRouter(cfg, presets)
		log.Printf("🟢 [setupApp] Router ready")
	})
	return app
}

// Handler はVercelのエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Backend-Version", backendVersion)
	setupApp().ServeHTTP(w, r)
}
