package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/shortpost/internal/metrics"
	"github.com/hitoshi/shortpost/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger // nilの場合はslog.Default()
	AuthGate          middleware.AuthGate
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string // カンマ区切りで複数指定可
	HSTSEnabled       bool
	CSRFEnabled       bool
	CSRFConfig        middleware.CSRFConfig

	// 監視
	HealthChecker HealthChecker
	Metrics       middleware.HTTPMetricsRecorder // nilの場合は記録しない
	Gatherer      prometheus.Gatherer            // nilの場合は/metricsを公開しない

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface
	PostService PostServiceInterface
	FeedConfig  FeedConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Metrics → CSRF(有効時)
//
// 認証ゲートとレート制限はルート単位で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.HSTSEnabled}))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	requireAuth := middleware.NewRequireAuthMiddleware(deps.AuthGate)
	optionalAuth := middleware.NewOptionalAuthMiddleware(deps.AuthGate)

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	postHandler := NewPostHandler(deps.PostService)
	feedHandler := NewFeedHandler(deps.PostService, deps.FeedConfig)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		if deps.CSRFEnabled {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		}
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		// ユーザー
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Get("/{id}", userHandler.GetUser)
		})

		// 投稿
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.Get("/feed.xml", feedHandler.Feed)
			r.With(deps.RateLimiter.APIMiddleware(), optionalAuth).Post("/", postHandler.CreatePost)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/", postHandler.UpdatePost)
				r.Delete("/", postHandler.DeletePost)
			})
		})
	})

	return r
}
