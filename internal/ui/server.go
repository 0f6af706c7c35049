package ui

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nao1215/localservices/internal/bootstrap"
	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/config"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/middleware"
	"github.com/nao1215/localservices/pkg/session"
)

// Server はUIホストのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// store は利用者のセッション。
	store *session.Store
	// client はマーケットプレイスAPIのクライアント。
	client *apiclient.Client
	// views はAPIの読み取り結果のキャッシュ。
	views *viewCache
	// registry は /metrics で公開するPrometheusレジストリ。
	registry *prometheus.Registry
	// logger はログの出力先。
	logger *zap.Logger
	// closers は終了時に呼び出す後処理。
	closers []func() error
}

// Deps はServerが使用する依存オブジェクト。
type Deps struct {
	// Store は利用者のセッション。Clientと同じものを渡す。
	Store *session.Store
	// Client はマーケットプレイスAPIのクライアント。
	Client *apiclient.Client
	// Bus はClientが変更通知を発行する先。nilの場合はキャッシュが破棄されない。
	Bus *event.Bus
	// Registry は /metrics で公開するレジストリ。nilの場合は空のレジストリ。
	Registry *prometheus.Registry
	// Logger はログの出力先。
	Logger *zap.Logger
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// NewServer は設定からセッションストア・APIクライアントを組み立ててUIホストを生成する。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, closeStorage, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := event.NewBus()
	nav := apiclient.NavigatorFunc(func(path string) {
		logger.Info("セッションが無効になったため画面を遷移します", zap.String("to", path))
	})
	client := apiclient.New(cfg.APIBaseURL, store, bootstrap.ClientOptions(cfg, bus, registry, nav, logger)...)

	s := New(cfg.Addr(), Deps{
		Store:          store,
		Client:         client,
		Bus:            bus,
		Registry:       registry,
		Logger:         logger,
		AllowedOrigins: []string{cfg.FrontendURL},
	})
	s.closers = append(s.closers, closeStorage)
	return s, nil
}

// New は依存オブジェクトからUIホストを生成する。
func New(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := d.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.CORS(d.AllowedOrigins))

	s := &Server{
		router:   router,
		addr:     addr,
		store:    d.Store,
		client:   d.Client,
		views:    newViewCache(defaultViewTTL),
		registry: registry,
		logger:   logger,
	}
	if d.Bus != nil {
		unsubscribe := s.views.subscribe(d.Bus)
		s.closers = append(s.closers, func() error {
			unsubscribe()
			return nil
		})
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(s.addr)
}

// Close は永続化先などの後処理を行う。
func (s *Server) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("後処理に失敗: %w", err)
		}
	}
	return firstErr
}

// guard はルート表の定義に従ってゲートを適用するハンドラを返す。
// 保護されていないルートはゲートを参照しない。
func (s *Server) guard(path string) gin.HandlerFunc {
	route, ok := gate.Lookup(path)
	if !ok || !route.Protected {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RequireRole(s.store, route.Required)
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "marketplace-ui"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// 認証（ゲート対象外）
	s.router.GET("/session", s.handleSession())
	s.router.POST("/login", s.handleLogin())
	s.router.POST("/register", s.handleRegister())
	s.router.POST("/logout", s.handleLogout())

	// 公開画面
	s.router.GET("/", s.guard(gate.HomePath), s.handleHome())
	s.router.GET("/services", s.guard("/services"), s.handleServices())
	s.router.GET("/services/:id", s.guard("/services/:id"), s.handleServiceDetail())
	s.router.POST("/services/:id/orders", s.guard("/orders"), s.handleCreateOrder())

	// 認証済み利用者の画面
	orders := s.router.Group("/orders", s.guard("/orders"))
	{
		orders.GET("", s.handleOrders())
		orders.POST("/:id/cancel", s.handleCancelOrder())
		orders.POST("/:id/reviews", s.handleCreateReview())
	}
	s.router.GET("/profile", s.guard("/profile"), s.handleProfile())

	// 事業者ダッシュボード
	provider := s.router.Group("/provider", s.guard("/provider"))
	{
		provider.GET("", s.handleProviderDashboard())
		provider.POST("/services", s.handleProviderCreateService())
		provider.PUT("/services/:id", s.handleProviderUpdateService())
		provider.DELETE("/services/:id", s.handleProviderDeleteService())
		provider.PUT("/orders/:id/status", s.handleProviderUpdateOrderStatus())
	}

	// 管理者ダッシュボード
	admin := s.router.Group("/admin", s.guard("/admin"))
	{
		admin.GET("", s.handleAdminDashboard())
		admin.POST("/users", s.handleAdminCreateUser())
		admin.PUT("/users/:id/status", s.handleAdminUserStatus())
		admin.PUT("/users/:id/role", s.handleAdminUserRole())
		admin.DELETE("/users/:id", s.handleAdminDeleteUser())
		admin.POST("/services", s.handleAdminCreateService())
		admin.PUT("/services/:id/status", s.handleAdminServiceStatus())
		admin.DELETE("/services/:id", s.handleAdminDeleteService())
		admin.POST("/orders", s.handleAdminCreateOrder())
		admin.PUT("/orders/:id/status", s.handleAdminOrderStatus())
		admin.DELETE("/orders/:id", s.handleAdminDeleteOrder())
	}
}
