// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/goalquiz/internal/achievement"
	"github.com/hitoshi/goalquiz/internal/challenge"
	"github.com/hitoshi/goalquiz/internal/config"
	"github.com/hitoshi/goalquiz/internal/database"
	"github.com/hitoshi/goalquiz/internal/games"
	"github.com/hitoshi/goalquiz/internal/handler"
	"github.com/hitoshi/goalquiz/internal/level"
	"github.com/hitoshi/goalquiz/internal/logger"
	"github.com/hitoshi/goalquiz/internal/metrics"
	"github.com/hitoshi/goalquiz/internal/middleware"
	"github.com/hitoshi/goalquiz/internal/notify"
	"github.com/hitoshi/goalquiz/internal/progression"
	"github.com/hitoshi/goalquiz/internal/repository"
	"github.com/hitoshi/goalquiz/internal/security"
	"github.com/hitoshi/goalquiz/internal/streak"
	"github.com/hitoshi/goalquiz/internal/user"
	"github.com/hitoshi/goalquiz/internal/worker"
	"github.com/hitoshi/goalquiz/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newNotifier は設定に応じた通知実装を返す。
// webhook URLが未設定の場合は構造化ログへの通知のみを行う。
func newNotifier(cfg *config.Config, guard security.SSRFGuardService) (notify.Notifier, error) {
	if cfg.NotifyWebhookURL == "" {
		return notify.NewSlogNotifier(slog.Default()), nil
	}
	return notify.NewWebhookNotifier(cfg.NotifyWebhookURL, guard, slog.Default())
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	gameRepo := repository.NewPostgresGameRepo(db)
	gameSessionRepo := repository.NewPostgresGameSessionRepo(db)
	xpRepo := repository.NewPostgresXpEventRepo(db)
	thresholdRepo := repository.NewPostgresLevelThresholdRepo(db)
	achievementRepo := repository.NewPostgresAchievementRepo(db)
	userAchievementRepo := repository.NewPostgresUserAchievementRepo(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepo(db)

	// 3. セキュリティ・通知・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewMetaSanitizer()

	notifier, err := newNotifier(cfg, ssrfGuard)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	resolver := games.NewResolver(gameRepo)
	levelService := level.NewService(thresholdRepo, xpRepo, userRepo, notifier)
	tracker := streak.NewTracker(gameSessionRepo)
	catalog := achievement.NewCatalog(achievementRepo)
	engine := achievement.NewEngine(
		catalog, userAchievementRepo, gameSessionRepo, xpRepo,
		resolver, tracker, nil, notifier,
	)
	loginStreak := streak.NewLoginService(userRepo, engine)
	manager := challenge.NewManager(gameSessionRepo, resolver, sanitizer)
	progressionService := progression.NewService(
		xpRepo, leaderboardRepo, resolver, levelService, engine,
		manager, loginStreak, sanitizer, collector,
	)
	userService := user.NewService(userRepo, sessionRepo)

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.XpAwardRate = rate.Limit(float64(cfg.RateLimitXpAward) / 60.0)
	rateLimiterCfg.XpAwardBurst = cfg.RateLimitXpAward

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		ProgressionService: progressionService,

		ChallengeService:   manager,
		ChallengeCompleter: progressionService,
		StreakReader:       tracker,
		GameResolver:       resolver,

		AchievementService: engine,
		AchievementCatalog: catalog,

		UserService: userService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れセッションのクリーンアップスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブとスケジューラの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default())
	scheduler := worker.NewScheduler("session_cleanup", cleanupJob, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
