package routegate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTable はルート分類テーブルの内容が不正な場合に返される。
var ErrInvalidTable = errors.New("routegate: invalid route table")

// Table はルート分類テーブル。起動時に一度だけ構築し、New でGateに変換する。
// YAMLで省略されたキーは DefaultTable の値で補われる。
type Table struct {
	// BypassPrefixes はゲートを通さないパスの接頭辞（静的アセット、APIルート）。
	BypassPrefixes []string `yaml:"bypass_prefixes"`
	// BypassDotted が真の場合、"." を含むパスを静的ファイルとみなしてバイパスする。
	BypassDotted *bool `yaml:"bypass_dotted"`
	// PublicPaths は完全一致で公開とみなすパス。
	PublicPaths []string `yaml:"public_paths"`
	// PublicPrefixes は接頭辞一致で公開とみなす名前空間。
	PublicPrefixes []string `yaml:"public_prefixes"`
	// AccessCookies はアクセストークンを運ぶCookie名の別名。
	AccessCookies []string `yaml:"access_cookies"`
	// RefreshCookies はリフレッシュトークンを運ぶCookie名の別名。
	RefreshCookies []string `yaml:"refresh_cookies"`
	// LoginPath は未認証時のリダイレクト先。
	LoginPath string `yaml:"login_path"`
	// ReturnParam は元のパスを載せるクエリパラメータ名。
	ReturnParam string `yaml:"return_param"`
	// LegacyRedirects は認証済みの訪問者を新しいページへ送る旧パスの対応表。
	LegacyRedirects map[string]string `yaml:"legacy_redirects"`
}

// DefaultTable はフロントエンドの既定ルート分類テーブルを返す。
func DefaultTable() Table {
	dotted := true
	return Table{
		BypassPrefixes: []string{"/_next", "/api"},
		BypassDotted:   &dotted,
		PublicPaths:    []string{"/", "/auth/login", "/auth/callback", "/auth/logout"},
		PublicPrefixes: []string{"/auth/"},
		AccessCookies:  []string{"access_token", "access_token_cookie", "jwt", "session"},
		RefreshCookies: []string{"refresh_token", "refresh_token_cookie"},
		LoginPath:      "/auth/login",
		ReturnParam:    "redirect",
		LegacyRedirects: map[string]string{
			"/guilds":  "/roster",
			"/guilds/": "/roster",
		},
	}
}

// LoadTable はYAMLファイルからルート分類テーブルを読み込む。
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("ルートテーブルの読み込みに失敗: %w", err)
	}
	return ParseTable(data)
}

// ParseTable はYAMLを解釈し、省略されたキーを既定値で補って検証する。
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("ルートテーブルのパースに失敗: %w", err)
	}
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// withDefaults は未設定のフィールドを DefaultTable の値で埋めたコピーを返す。
func (t Table) withDefaults() Table {
	d := DefaultTable()
	if t.BypassPrefixes == nil {
		t.BypassPrefixes = d.BypassPrefixes
	}
	if t.BypassDotted == nil {
		t.BypassDotted = d.BypassDotted
	}
	if t.PublicPaths == nil {
		t.PublicPaths = d.PublicPaths
	}
	if t.PublicPrefixes == nil {
		t.PublicPrefixes = d.PublicPrefixes
	}
	if t.AccessCookies == nil {
		t.AccessCookies = d.AccessCookies
	}
	if t.RefreshCookies == nil {
		t.RefreshCookies = d.RefreshCookies
	}
	if t.LoginPath == "" {
		t.LoginPath = d.LoginPath
	}
	if t.ReturnParam == "" {
		t.ReturnParam = d.ReturnParam
	}
	if t.LegacyRedirects == nil {
		t.LegacyRedirects = d.LegacyRedirects
	}
	return t
}

// Validate はテーブルの整合性を検証する。
// ログインページ自体が保護ルートに分類される設定はリダイレクトループになるため拒否する。
func (t Table) Validate() error {
	if t.LoginPath == "" {
		return fmt.Errorf("%w: login_path が空です", ErrInvalidTable)
	}
	if t.ReturnParam == "" {
		return fmt.Errorf("%w: return_param が空です", ErrInvalidTable)
	}

	groups := []struct {
		name  string
		paths []string
	}{
		{"bypass_prefixes", t.BypassPrefixes},
		{"public_paths", t.PublicPaths},
		{"public_prefixes", t.PublicPrefixes},
		{"login_path", []string{t.LoginPath}},
	}
	for _, g := range groups {
		for _, p := range g.paths {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("%w: %s の %q は / で始まる必要があります", ErrInvalidTable, g.name, p)
			}
		}
	}
	for from, to := range t.LegacyRedirects {
		if !strings.HasPrefix(from, "/") || !strings.HasPrefix(to, "/") {
			return fmt.Errorf("%w: legacy_redirects の %q -> %q は / で始まる必要があります", ErrInvalidTable, from, to)
		}
	}
	for _, names := range [][]string{t.AccessCookies, t.RefreshCookies} {
		for _, n := range names {
			if n == "" {
				return fmt.Errorf("%w: 空のCookie名は指定できません", ErrInvalidTable)
			}
		}
	}

	if class := New(t).Classify(t.LoginPath); class == ClassProtected {
		return fmt.Errorf("%w: login_path %q が保護ルートに分類されます", ErrInvalidTable, t.LoginPath)
	}
	return nil
}
