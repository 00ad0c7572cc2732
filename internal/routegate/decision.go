package routegate

// Kind はゲートの判定結果の種類。
type Kind int

const (
	// Continue はゲートが無効で、何も判定しなかったことを表す。
	Continue Kind = iota
	// Forward はリクエストをそのまま次の段へ渡すことを表す。
	Forward
	// RedirectToLogin は元のパスを付けてログインページへリダイレクトすることを表す。
	RedirectToLogin
	// Redirect は認証済みの訪問者を旧パスから新しいページへ送ることを表す。
	Redirect
)

// String はメトリクスやログで使うラベルを返す。
func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case Forward:
		return "forward"
	case RedirectToLogin:
		return "redirect_to_login"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Class はパスの分類。Cookieの内容には依存しない。
type Class int

const (
	// ClassNone はゲートが無効で分類していないことを表す。
	ClassNone Class = iota
	// ClassBypass は静的アセットやAPIなど、別のパイプラインが扱うパス。
	ClassBypass
	// ClassPublic は認証なしで到達できるパス。
	ClassPublic
	// ClassProtected は認証の痕跡が必要なパス。
	ClassProtected
)

// String はメトリクスやログで使うラベルを返す。
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassBypass:
		return "bypass"
	case ClassPublic:
		return "public"
	case ClassProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// Decision は1リクエストに対するゲートの判定。
type Decision struct {
	// Kind は判定の種類。
	Kind Kind
	// Class はパスの分類。
	Class Class
	// ReturnPath はログイン後に戻るための元のパス。RedirectToLogin のときのみ設定される。
	ReturnPath string
	// Location はリダイレクト先URL。RedirectToLogin と Redirect のときのみ設定される。
	Location string
}

// IsRedirect はレスポンスとしてリダイレクトを返すべきかを返す。
func (d Decision) IsRedirect() bool {
	return d.Kind == RedirectToLogin || d.Kind == Redirect
}
