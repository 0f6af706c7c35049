package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// corsAllowHeaders はクロスオリジンで受け付けるリクエストヘッダー。
	corsAllowHeaders = strings.Join([]string{"Authorization", "Content-Type", "X-Request-ID"}, ", ")
	// corsExposeHeaders はフロントエンドから読み取れるレスポンスヘッダー。
	// ゲートの拒否理由と遷移先を画面側で扱うために公開する。
	corsExposeHeaders = strings.Join([]string{"Location", "X-Gate-Reason"}, ", ")
)

// CORS はフロントエンド（FRONTEND_URL）からUIホストのビューを取得するための
// Ginミドルウェアを返す。オリジンの末尾の "/" と空文字列は無視する。
//
// 許可されていないオリジンからのプリフライトは403で拒否する。
// Originを伴わないOPTIONSはCORSと無関係なので204で終える。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		ok := allowed[origin]
		if ok {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if origin != "" && !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if ok {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", "86400")
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
