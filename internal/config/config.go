package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nao1215/gearboard/internal/routegate"
)

// Config はwebサービス全体の設定。
type Config struct {
	// Port は公開リスナーのポート。
	Port string
	// OpsAddr はヘルスチェックとメトリクスを提供する運用リスナーのアドレス。
	OpsAddr string
	// StaticDir はフロントエンドのビルド済み静的ファイルのディレクトリ。
	StaticDir string
	// PublicDir はファビコンや画像など、ルート直下で配信する公開ファイルのディレクトリ。
	PublicDir string
	// GuildAPIURL は /api 配下のリクエストを転送する上流APIのURL。
	GuildAPIURL string
	// RenderURL はページを描画する上流サーバーのURL。
	RenderURL string
	// FrontendURL はCORSで許可するオリジン。
	FrontendURL string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// DevLogin が真の場合、開発用ログインエンドポイントを有効にする。
	DevLogin bool
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string
	// CookieSecure が真の場合、発行するCookieにSecure属性を付ける。
	CookieSecure bool
	// RouteGate はルートアクセスゲートの設定。
	RouteGate RouteGateConfig
}

// RouteGateConfig はルートアクセスゲートの設定。
type RouteGateConfig struct {
	// Enabled が偽の場合、ゲートは判定を行わず全リクエストを通す。
	Enabled bool
	// TablePath はルート分類テーブルのYAMLファイル。空の場合は既定のテーブルを使う。
	TablePath string
	// Table は読み込まれたルート分類テーブル。
	Table routegate.Table
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	devLogin, err := getEnvBool("DEV_LOGIN", false)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := getEnvBool("COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}
	gateEnabled, err := getEnvBool("ROUTE_GATE_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:         getEnvOr("PORT", "3000"),
		OpsAddr:      getEnvOr("OPS_ADDR", ":9090"),
		StaticDir:    getEnvOr("STATIC_DIR", "/app/.next/static"),
		PublicDir:    getEnvOr("PUBLIC_DIR", "/app/public"),
		GuildAPIURL:  getEnvOr("GUILD_API_URL", "http://localhost:5000"),
		RenderURL:    getEnvOr("RENDER_URL", "http://localhost:3001"),
		FrontendURL:  getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:    getEnvOr("JWT_SECRET", "dev-secret-key"),
		DevLogin:     devLogin,
		DatabasePath: getEnvOr("DATABASE_PATH", "/data/web.db"),
		CookieSecure: cookieSecure,
		RouteGate: RouteGateConfig{
			Enabled:   gateEnabled,
			TablePath: os.Getenv("ROUTE_TABLE_PATH"),
			Table:     routegate.DefaultTable(),
		},
	}

	if cfg.RouteGate.TablePath != "" {
		table, err := routegate.LoadTable(cfg.RouteGate.TablePath)
		if err != nil {
			return nil, fmt.Errorf("ルートゲート設定の読み込みに失敗: %w", err)
		}
		cfg.RouteGate.Table = table
	}
	return cfg, nil
}

// NewGate は設定からルートアクセスゲートを構築する。
// ゲートが無効な場合はnilを返し、nilのGateは常に Continue を返す。
func (c RouteGateConfig) NewGate() *routegate.Gate {
	if !c.Enabled {
		return nil
	}
	return routegate.New(c.Table)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvBool は環境変数を真偽値として取得する。未設定の場合はデフォルト値を返す。
func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("環境変数 %s の値 %q が不正です: %w", key, v, err)
	}
	return b, nil
}
