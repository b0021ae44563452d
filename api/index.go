package handler

import (
	"log"
	"net/http"
	"sync"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/handlers"

	"github.com/gin-gonic/gin"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		log.Printf("🟢 [setupApp] Initializing Gin application")

		// .envファイルはデプロイ先の環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()
		gin.SetMode(gin.ReleaseMode)
		app = handlers.BuildRouter(cfg)

		log.Printf("🟢 [setupApp] Gin application initialized")
	})
	return app
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
