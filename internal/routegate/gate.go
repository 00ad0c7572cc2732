package routegate

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Request はゲートが判定に使うリクエストの記述子。
// 1回の判定の間は変更しない。
type Request struct {
	// Path はリクエスト先のパス。クエリ文字列を含んでもよい。
	Path string
	// Cookies はリクエストに付いていたCookie名の集合。値は参照しない。
	Cookies map[string]struct{}
}

// NewRequest はパスとCookie名の一覧からRequestを生成する。
func NewRequest(target string, cookieNames ...string) Request {
	cookies := make(map[string]struct{}, len(cookieNames))
	for _, name := range cookieNames {
		cookies[name] = struct{}{}
	}
	return Request{Path: target, Cookies: cookies}
}

// FromHTTPRequest はHTTPリクエストからRequestを生成する。
// パスはエスケープされた形のまま使い、ログイン後に戻れるようクエリ文字列も保持する。
// "." や ".." を含むパスは、エンコードされたものも含めて解決した形に置き換える。
func FromHTTPRequest(r *http.Request) Request {
	p := r.URL.EscapedPath()
	if clean := cleanPath(r.URL.Path); clean != r.URL.Path {
		p = (&url.URL{Path: clean}).EscapedPath()
	}
	if r.URL.RawQuery != "" {
		p += "?" + r.URL.RawQuery
	}
	cookies := r.Cookies()
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	return NewRequest(p, names...)
}

// Gate はテーブルから構築した不変のルートアクセスゲート。
// 生成後は読み取り専用なので、ロックなしで並行に Decide を呼べる。
type Gate struct {
	bypassPrefixes  []string
	bypassDotted    bool
	publicPaths     map[string]struct{}
	publicPrefixes  []string
	accessCookies   map[string]struct{}
	refreshCookies  map[string]struct{}
	loginPath       string
	returnParam     string
	legacyRedirects map[string]string
}

// New はテーブルからGateを構築する。テーブルのスライスやマップはコピーされる。
func New(t Table) *Gate {
	g := &Gate{
		bypassPrefixes:  append([]string(nil), t.BypassPrefixes...),
		bypassDotted:    t.BypassDotted != nil && *t.BypassDotted,
		publicPaths:     toSet(t.PublicPaths),
		publicPrefixes:  append([]string(nil), t.PublicPrefixes...),
		accessCookies:   toSet(t.AccessCookies),
		refreshCookies:  toSet(t.RefreshCookies),
		loginPath:       t.LoginPath,
		returnParam:     t.ReturnParam,
		legacyRedirects: make(map[string]string, len(t.LegacyRedirects)),
	}
	for from, to := range t.LegacyRedirects {
		g.legacyRedirects[from] = to
	}
	return g
}

// Decide はリクエストを分類し、転送・リダイレクトのいずれかを決定する。
// nilのGateは無効なゲートとして扱い、常に Continue を返す。
func (g *Gate) Decide(req Request) Decision {
	if g == nil {
		return Decision{Kind: Continue, Class: ClassNone}
	}

	class := g.Classify(req.Path)
	if class != ClassProtected {
		return Decision{Kind: Forward, Class: class}
	}

	if !hasAny(req.Cookies, g.accessCookies) && !hasAny(req.Cookies, g.refreshCookies) {
		return Decision{
			Kind:       RedirectToLogin,
			Class:      class,
			ReturnPath: req.Path,
			Location:   g.LoginURL(req.Path),
		}
	}

	if to, ok := g.legacyRedirects[cleanPath(pathOnly(req.Path))]; ok {
		return Decision{Kind: Redirect, Class: class, Location: to}
	}
	return Decision{Kind: Forward, Class: class}
}

// Classify はパスをバイパス・公開・保護のいずれかに分類する。
// クエリ文字列は分類に影響しない。ドットセグメントは解決してから分類する。
func (g *Gate) Classify(target string) Class {
	p := cleanPath(pathOnly(target))

	for _, prefix := range g.bypassPrefixes {
		if strings.HasPrefix(p, prefix) {
			return ClassBypass
		}
	}
	if g.bypassDotted && strings.Contains(p, ".") {
		return ClassBypass
	}

	if _, ok := g.publicPaths[p]; ok {
		return ClassPublic
	}
	for _, prefix := range g.publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return ClassPublic
		}
	}
	return ClassProtected
}

// LoginURL は元のパスをクエリパラメータに載せたログインページのURLを返す。
func (g *Gate) LoginURL(returnPath string) string {
	q := url.Values{}
	q.Set(g.returnParam, returnPath)
	return g.loginPath + "?" + q.Encode()
}

// CredentialCookies はゲートが認証の痕跡とみなすCookie名をすべて返す。
// ログアウト時の削除対象として使う。
func (g *Gate) CredentialCookies() []string {
	names := make([]string, 0, len(g.accessCookies)+len(g.refreshCookies))
	for n := range g.accessCookies {
		names = append(names, n)
	}
	for n := range g.refreshCookies {
		names = append(names, n)
	}
	return names
}

// hasAny はCookie名の集合と別名の集合が交わるかを返す。
func hasAny(cookies, aliases map[string]struct{}) bool {
	small, large := cookies, aliases
	if len(small) > len(large) {
		small, large = large, small
	}
	for name := range small {
		if _, ok := large[name]; ok {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// cleanPath は "." と ".." を解決し、連続したスラッシュをまとめる。
// 末尾のスラッシュは残す。
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean
}

// pathOnly はクエリ文字列とフラグメントを取り除いたパスを返す。
func pathOnly(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i]
	}
	return target
}
