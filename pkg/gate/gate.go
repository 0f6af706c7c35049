// Package gate はロール制限のある画面を描画してよいかを判定する。
//
// 判定はサーバーに拒否される前に画面遷移を止めるための利便機能であり、
// セキュリティ境界ではない。サーバーはすべての特権呼び出しで認可を再確認する。
package gate

import "github.com/nao1215/localservices/pkg/session"

const (
	// LoginPath はログイン画面のパス。
	LoginPath = "/login"
	// HomePath は既定の遷移先（トップ画面）のパス。
	HomePath = "/"
)

// Reason は判定結果の理由。
type Reason string

const (
	// ReasonAllowed は描画を許可したことを表す。
	ReasonAllowed Reason = "allowed"
	// ReasonUnauthenticated は未認証のため拒否したことを表す。
	ReasonUnauthenticated Reason = "unauthenticated"
	// ReasonForbiddenRole は認証済みだがロールが一致しないため拒否したことを表す。
	ReasonForbiddenRole Reason = "forbidden-role"
)

// Decision は判定結果。
type Decision struct {
	// Allowed は描画してよいかを表す。
	Allowed bool
	// Redirect は拒否した場合の遷移先。許可した場合は空文字列。
	Redirect string
	// Reason は判定の理由。
	Reason Reason
}

// Decide は現在のセッションと要求ロールから描画の可否を判定する。
// requiredがRoleNoneの場合は認証済みであれば許可する。
// ロールは完全一致で比較し、階層は持たない（ADMINはPROVIDERの要求を満たさない）。
func Decide(s session.Session, required session.Role) Decision {
	if !s.Authenticated() {
		return Decision{Redirect: LoginPath, Reason: ReasonUnauthenticated}
	}
	if required != session.RoleNone && s.Role != required {
		return Decision{Redirect: HomePath, Reason: ReasonForbiddenRole}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// Route は画面のパスとアクセス条件。
type Route struct {
	// Path は画面のパス。
	Path string
	// Protected は認証が必要かを表す。
	Protected bool
	// Required は要求ロール。RoleNoneの場合はロールを問わない。
	Required session.Role
}

// Check はルートの描画可否を判定する。保護されていないルートは常に許可する。
func (r Route) Check(s session.Session) Decision {
	if !r.Protected {
		return Decision{Allowed: true, Reason: ReasonAllowed}
	}
	return Decide(s, r.Required)
}

// Routes は画面の一覧。
var Routes = []Route{
	{Path: LoginPath},
	{Path: "/register"},
	{Path: HomePath},
	{Path: "/services"},
	{Path: "/services/:id"},
	{Path: "/orders", Protected: true},
	{Path: "/profile", Protected: true},
	{Path: "/provider", Protected: true, Required: session.RoleProvider},
	{Path: "/admin", Protected: true, Required: session.RoleAdmin},
}

// Lookup はパスに一致するルートを返す。
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}
