package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/fitlog/internal/activity"
	"github.com/hitoshi/fitlog/internal/auth"
	"github.com/hitoshi/fitlog/internal/config"
	"github.com/hitoshi/fitlog/internal/database"
	"github.com/hitoshi/fitlog/internal/food"
	"github.com/hitoshi/fitlog/internal/handler"
	"github.com/hitoshi/fitlog/internal/logger"
	"github.com/hitoshi/fitlog/internal/metrics"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/objectstore"
	"github.com/hitoshi/fitlog/internal/photo"
	"github.com/hitoshi/fitlog/internal/repository"
	"github.com/hitoshi/fitlog/internal/security"
	"github.com/hitoshi/fitlog/internal/worker/cleanup"
)

// connectTimeout は起動時の外部ストレージ接続タイムアウト。
const connectTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envファイルと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		PrintUsage(w)
		return err
	}

	switch cmd {
	case CommandHelp:
		PrintUsage(w)
		return nil
	case CommandHealthcheck:
		// 軽量サブコマンドのため、フル初期化をスキップする
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
		slog.String("storage_backend", cfg.StorageBackend),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// resources は起動時に開いた外部接続を保持する。
type resources struct {
	store    *repository.Store
	db       *sql.DB
	mongo    *mongo.Client
	redis    *redis.Client
	sessions auth.SessionStore
	sweeper  cleanup.Sweeper
	sweepTag string
}

// Close は開いた接続をすべて閉じる。
func (r *resources) Close() {
	if r.redis != nil {
		r.redis.Close()
	}
	if r.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.mongo.Disconnect(ctx)
	}
	if r.db != nil {
		r.db.Close()
	}
}

// openResources はSTORAGE_BACKENDとSESSION_STOREに従ってストレージ接続を開く。
// needStore=falseの場合、アクティビティ用のストアは開かない（worker用）。
func openResources(ctx context.Context, cfg *config.Config, needStore bool) (*resources, error) {
	res := &resources{}

	needPostgres := cfg.SessionStore == config.SessionStorePostgres ||
		(needStore && cfg.StorageBackend == config.StorageBackendPostgres)
	if needPostgres {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		res.db = db
		slog.Info("database connection established")
	}

	if needStore {
		switch cfg.StorageBackend {
		case config.StorageBackendMongo:
			client, err := database.ConnectMongo(ctx, cfg.MongoURI)
			if err != nil {
				res.Close()
				return nil, err
			}
			res.mongo = client
			mdb := client.Database(cfg.MongoDB)
			if err := repository.EnsureMongoIndexes(ctx, mdb); err != nil {
				res.Close()
				return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
			}
			res.store = repository.NewMongoStore(mdb)
			slog.Info("mongo connection established", slog.String("database", cfg.MongoDB))
		default:
			res.store = repository.NewPostgresStore(res.db)
		}
	}

	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		res.sessions = repository.NewPostgresSessionRepo(res.db)
		res.sweeper = cleanup.NewSQLSweeper(res.db)
		res.sweepTag = config.SessionStorePostgres
	case config.SessionStoreRedis:
		rdb, err := database.ConnectRedis(ctx, database.RedisOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		if err != nil {
			res.Close()
			return nil, err
		}
		res.redis = rdb
		res.sessions = auth.NewRedisSessionStore(rdb)
		slog.Info("redis connection established")
	default:
		mem := auth.NewMemorySessionStore()
		res.sessions = mem
		res.sweeper = mem
		res.sweepTag = config.SessionStoreMemory
	}

	return res, nil
}

// newRegistry はGo/プロセスのコレクターを登録したPrometheusレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// rateLimiterConfig はreq/min単位の設定からRateLimiterConfigを組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate, rl.GeneralBurst = middleware.PerMinute(cfg.RateLimitGeneral)
	}
	if cfg.RateLimitAuth > 0 {
		rl.AuthRate, rl.AuthBurst = middleware.PerMinute(cfg.RateLimitAuth)
	}
	return rl
}

// newPhotoService はMinIOが設定されている場合のみ写真サービスを生成する。
// 未設定の場合はnilインターフェースを返し、写真ルートとオブジェクトストレージのヘルスチェックを登録しない。
func newPhotoService(ctx context.Context, cfg *config.Config, photos repository.PhotoRepository, sanitizer security.TextSanitizer) (handler.PhotoServiceInterface, repository.Pinger, error) {
	if !cfg.MinioEnabled() {
		slog.Info("object storage not configured, photo routes disabled")
		return nil, nil, nil
	}

	store, err := objectstore.NewMinioStore(ctx, objectstore.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}

	slog.Info("object storage connection established", slog.String("bucket", cfg.MinioBucket))
	return photo.NewService(photos, store, sanitizer, cfg.StorageTimeout), store, nil
}

// runServe はAPIサーバーモードで起動する。
// ストレージ接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelConnect()

	// 1. ストレージ接続
	res, err := openResources(connectCtx, cfg, true)
	if err != nil {
		return err
	}
	defer res.Close()

	// 2. メトリクス
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	authService := auth.NewService(
		res.store.Users,
		res.sessions,
		auth.NewArgon2Hasher(auth.DefaultArgon2Params()),
		auth.ServiceConfig{
			SessionTTL:     cfg.SessionTTL,
			StorageTimeout: cfg.StorageTimeout,
			Recorder:       collector,
		},
	)

	activityService := activity.NewService(
		res.store.Meals, res.store.Workouts, res.store.Weights, sanitizer,
		activity.ServiceConfig{
			Location:       cfg.Location,
			StorageTimeout: cfg.StorageTimeout,
			Recorder:       collector,
		},
	)

	photoService, objectStoreHealth, err := newPhotoService(connectCtx, cfg, res.store.Photos, sanitizer)
	if err != nil {
		return err
	}

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionResolver:   authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			TokenTTL:     cfg.SessionTTL,
		},
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     res.store.Pinger,
		ObjectStoreHealth: objectStoreHealth,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		ActivityService: activityService,
		FoodCatalog:     food.NewCatalog(),
		PhotoService:    photoService,
	}

	router := handler.NewRouter(deps)

	// 5. シグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// インメモリセッションはAPIプロセス内でしか掃除できないため、ここで定期削除する
	if cfg.SessionStore == config.SessionStoreMemory && res.sweeper != nil {
		job := cleanup.NewCleanupJob(res.sweepTag, res.sweeper, slog.Default(), collector)
		go job.Start(ctx, cfg.CleanupInterval)
	}

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("photos_enabled", photoService != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLセッションストアの期限切れ行を定期削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore != config.SessionStorePostgres {
		// memoryはAPIプロセス内で、redisはキーの有効期限で削除される
		slog.Info("no session cleanup required for session store",
			slog.String("session_store", cfg.SessionStore),
		)
		return nil
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelConnect()

	res, err := openResources(connectCtx, cfg, false)
	if err != nil {
		return err
	}
	defer res.Close()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)
	job := cleanup.NewCleanupJob(res.sweepTag, res.sweeper, slog.Default(), collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WorkerMetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           metrics.SetupMetricsRoute(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("worker metrics server starting", slog.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("worker metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("worker starting", slog.Duration("cleanup_interval", cfg.CleanupInterval))

	// クリーンアップをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	healthURL := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はログ出力用にデータベースURLからユーザー情報とクエリを取り除く。
// URLとして解釈できない値（key=value形式のDSNなど）は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	userinfo := ""
	if u.User != nil {
		userinfo = "***@"
	}
	return u.Scheme + "://" + userinfo + u.Host + u.EscapedPath()
}
