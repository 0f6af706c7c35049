package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/session"
)

// contextKeySession はゲートを通過したセッションを格納するコンテキストキー。
const contextKeySession = "session"

// RequireRole はセッションストアの現在の状態でルートへの到達可否を判定するGinミドルウェアを返す。
// requiredがRoleNoneの場合は認証済みであることだけを要求する。
// 拒否した場合は判定結果のリダイレクト先へ303で遷移させる。
func RequireRole(store *session.Store, required session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Snapshot()
		d := gate.Decide(snap, required)
		if !d.Allowed {
			c.Header("X-Gate-Reason", string(d.Reason))
			c.Redirect(http.StatusSeeOther, d.Redirect)
			c.Abort()
			return
		}
		c.Set(contextKeySession, snap)
		c.Next()
	}
}

// GetSession はRequireRoleを通過したときのセッションを取得する。
// RequireRoleが適用されていない場合は未認証のセッションを返す。
func GetSession(c *gin.Context) session.Session {
	v, _ := c.Get(contextKeySession)
	if s, ok := v.(session.Session); ok {
		return s
	}
	return session.Session{}
}
