package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"github.com/nao1215/gearboard/internal/config"
	"github.com/nao1215/gearboard/internal/metrics"
	"github.com/nao1215/gearboard/internal/routegate"
	"github.com/nao1215/gearboard/pkg/httpclient"
	"github.com/nao1215/gearboard/pkg/middleware"
)

// proxyTimeout は上流1リクエストあたりのタイムアウト。
const proxyTimeout = 60 * time.Second

// Server はフロントエンドのHTTPサーバー。
type Server struct {
	// router は公開リスナーのGinルーター。全ルートがルートゲートの後ろにある。
	router *gin.Engine
	// ops はヘルスチェックとメトリクスを提供する運用リスナーのルーター。
	ops *gin.Engine
	// cfg はサーバーの設定。
	cfg *config.Config
	// store はユーザー情報のストア。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
	// credentialCookies はログアウト時に削除するCookie名。
	credentialCookies []string
	// registry はこのサーバーのメトリクスを保持するレジストリ。
	registry *prometheus.Registry
	// metrics はゲートとプロキシのメトリクス。
	metrics *metrics.Recorder
	// proxyClient は上流へのプロキシに使うHTTPクライアント。
	proxyClient *http.Client
	// guildAPI と renderer は準備状態の確認に使うクライアント。
	guildAPI *httpclient.Client
	renderer *httpclient.Client
	// publicFS はルート直下で配信する公開ファイル。
	publicFS http.FileSystem
}

// NewServer は新しいサーバーを生成する。
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	s, err := newServer(ctx, cfg, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// newServer は接続済みのデータベースからサーバーを組み立てる。
func newServer(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (*Server, error) {
	store, err := NewStore(ctx, sqlDB)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:      cfg,
		store:    store,
		db:       sqlDB,
		registry: registry,
		metrics:  metrics.New(registry),
		// ゲートが無効でも、ログアウトでは認証Cookieの別名をすべて削除する
		credentialCookies: routegate.New(cfg.RouteGate.Table).CredentialCookies(),
		proxyClient:       newProxyClient(),
		guildAPI:          httpclient.New(cfg.GuildAPIURL),
		renderer:          httpclient.New(cfg.RenderURL),
		publicFS:          http.Dir(cfg.PublicDir),
	}
	s.router = s.newRouter()
	s.ops = s.newOpsRouter()
	return s, nil
}

// newProxyClient は上流のリダイレクトを追わないHTTPクライアントを生成する。
func newProxyClient() *http.Client {
	return &http.Client{
		Timeout: proxyTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Handler は公開リスナーのハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// OpsHandler は運用リスナーのハンドラを返す。
func (s *Server) OpsHandler() http.Handler {
	return s.ops
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// newRouter は公開リスナーのルーターを構築する。
func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{s.cfg.FrontendURL}))
	router.Use(middleware.RouteGate(s.cfg.RouteGate.NewGate(), s.metrics))

	// ビルド済みアセット
	router.Static("/_next/static", s.cfg.StaticDir)

	// ギルドAPI（認証はAPI側で検証される）
	router.Any("/api/*path", s.handleProxy(targetGuildAPI, s.cfg.GuildAPIURL))

	auth := router.Group("/auth")
	{
		if s.cfg.DevLogin {
			auth.POST("/dev-login", s.handleDevLogin())
		}
		auth.GET("/session", middleware.JWTAuth(s.cfg.JWTSecret), s.handleSession())
		auth.GET("/logout", s.handleLogout())
	}

	// それ以外のページは公開ファイルか描画サーバー
	router.NoRoute(s.handlePage())
	return router
}

// handlePage は公開ファイルがあればそれを返し、無ければ描画サーバーへ転送するハンドラを返す。
func (s *Server) handlePage() gin.HandlerFunc {
	proxy := s.handleProxy(targetRenderer, s.cfg.RenderURL)
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) &&
			strings.Contains(p, ".") && s.publicFileExists(p) {
			c.FileFromFS(p, s.publicFS)
			return
		}
		proxy(c)
	}
}

// publicFileExists は公開ディレクトリに通常ファイルとして存在するかを返す。
func (s *Server) publicFileExists(name string) bool {
	f, err := s.publicFS.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
