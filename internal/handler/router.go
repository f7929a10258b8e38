package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalquiz/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker // nilの場合はDB疎通確認なしで200を返す
	MetricsHandler http.Handler  // nilの場合は/metricsを公開しない

	// 進行状況（XP付与・レベル・リーダーボード）
	ProgressionService ProgressionServiceInterface

	// デイリーチャレンジ
	ChallengeService   ChallengeServiceInterface
	ChallengeCompleter ChallengeCompleterInterface
	StreakReader       StreakReaderInterface
	GameResolver       GameResolverInterface

	// 実績
	AchievementService AchievementServiceInterface
	AchievementCatalog AchievementCatalogInterface

	// ユーザー管理（退会）
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェック（/healthz）はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	progressionHandler := NewProgressionHandler(deps.ProgressionService)
	challengeHandler := NewChallengeHandler(deps.ChallengeService, deps.ChallengeCompleter, deps.StreakReader, deps.GameResolver)
	achievementHandler := NewAchievementHandler(deps.AchievementService, deps.AchievementCatalog)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 進行状況
		r.Route("/api/progression", func(r chi.Router) {
			// POST /api/progression/xp - XP付与（付与専用レート制限を追加）
			r.With(deps.RateLimiter.XpAwardMiddleware()).Post("/xp", progressionHandler.AwardXp)
			r.Get("/level", progressionHandler.GetLevel)
		})

		// リーダーボード
		r.Get("/api/leaderboard", progressionHandler.GetLeaderboard)

		// デイリーチャレンジ
		r.Route("/api/challenges", func(r chi.Router) {
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/availability", challengeHandler.GetAvailability)
				r.Post("/start", challengeHandler.Start)
				r.Get("/streak", challengeHandler.GetStreak)
			})
			r.Post("/sessions/{id}/complete", challengeHandler.Complete)
		})

		// 実績
		r.Route("/api/achievements", func(r chi.Router) {
			r.Get("/", achievementHandler.ListCatalog)
			r.Get("/me", achievementHandler.ListMine)
			r.Post("/{code}/unlock", achievementHandler.Unlock)
		})

		// ユーザー管理
		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
