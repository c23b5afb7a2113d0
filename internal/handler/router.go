package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hitoshi/fitlog/internal/metrics"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger // nilの場合はslog.Default()
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Metrics           *metrics.Collector // nilの場合はHTTPメトリクスを記録しない
	MetricsHandler    http.Handler       // nilの場合は/metricsを公開しない
	HealthChecker     repository.Pinger
	ObjectStoreHealth repository.Pinger // nilの場合は/healthで確認しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 活動記録・ダッシュボード
	ActivityService ActivityServiceInterface

	// 食品カタログ
	FoodCatalog FoodSearcher

	// 経過写真（オブジェクトストレージ未設定の場合nil）
	PhotoService PhotoServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → SecurityHeaders → CORS → Metrics
//	  認証済みグループ: Session → RateLimit(General) → CSRF
//
// signup/login/logout・食品カタログ・ヘルスチェックは認可ゲートの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{
		HSTS: deps.CSRFConfig.CookieSecure,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	activityHandler := NewActivityHandler(deps.ActivityService)
	foodHandler := NewFoodHandler(deps.FoodCatalog)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(
		HealthCheck{Name: "storage", Pinger: deps.HealthChecker},
		HealthCheck{Name: "object_storage", Pinger: deps.ObjectStoreHealth},
	))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/signup", authHandler.Signup)
		r.Post("/api/login", authHandler.Login)
	})
	r.With(middleware.NewSessionCookieCSRFMiddleware(deps.CSRFConfig)).Post("/api/logout", authHandler.Logout)
	r.Get("/api/foods", foodHandler.Search)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/me", authHandler.Me)

		r.Route("/api/meals", func(r chi.Router) {
			r.Post("/", activityHandler.LogMeal)
			r.Get("/", activityHandler.ListMeals)
		})
		r.Route("/api/workouts", func(r chi.Router) {
			r.Post("/", activityHandler.LogWorkout)
			r.Get("/", activityHandler.ListWorkouts)
		})
		r.Route("/api/weight", func(r chi.Router) {
			r.Post("/", activityHandler.LogWeight)
			r.Get("/", activityHandler.ListWeights)
		})
		r.Get("/api/dashboard", activityHandler.Dashboard)

		if deps.PhotoService != nil {
			photoHandler := NewPhotoHandler(deps.PhotoService)
			r.Route("/api/photos", func(r chi.Router) {
				r.Post("/", photoHandler.Upload)
				r.Get("/", photoHandler.List)
				r.Get("/{id}", photoHandler.Get)
			})
		}
	})

	return r
}
