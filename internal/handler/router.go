package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jinro/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ゲーム
	GameService GameServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeadersMiddleware → LoggingMiddleware →
//	RecoveryMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェック（/health）はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	gameHandler := NewGameHandler(deps.GameService)

	// ヘルスチェック（レート制限の対象外）
	r.Get("/health", HealthCheck)

	// ゲームAPI
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/game", func(r chi.Router) {
			// POST /api/game/create - ゲーム作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.CreateGameMiddleware()).Post("/create", gameHandler.CreateGame)

			r.Route("/{gameID}", func(r chi.Router) {
				// GET /api/game/:gameID - 状態ポーリング（?version=で変更なし判定）
				r.Get("/", gameHandler.GetGameState)
				r.Get("/role", gameHandler.GetRole)

				r.Post("/join", gameHandler.JoinGame)
				r.Post("/leave", gameHandler.LeaveGame)
				r.Post("/remove", gameHandler.RemovePlayer)
				r.Post("/settings", gameHandler.UpdateSettings)
				r.Post("/name", gameHandler.UpdateGameName)
				r.Post("/player-name", gameHandler.UpdatePlayerName)
				r.Post("/start", gameHandler.StartGame)
				r.Post("/done", gameHandler.MarkDone)
				r.Post("/vote", gameHandler.CastVote)
				r.Post("/force-advance", gameHandler.ForceAdvance)
			})
		})
	})

	return r
}

// HealthCheck はヘルスチェックエンドポイントを処理する。
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
