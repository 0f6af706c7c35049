package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newCORSRouter はCORSミドルウェアを適用したテスト用ルーターを生成する。
func newCORSRouter(origins []string, called *bool) *gin.Engine {
	router := gin.New()
	router.Use(CORS(origins))
	handler := func(c *gin.Context) {
		if called != nil {
			*called = true
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/services", handler)
	router.OPTIONS("/services", handler)
	return router
}

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	const front = "http://localhost:3000"

	t.Run("フロントエンドのオリジンに単純リクエスト用のヘッダーが設定されること", func(t *testing.T) {
		t.Parallel()

		router := newCORSRouter([]string{front + "/"}, nil)
		req := httptest.NewRequest(http.MethodGet, "/services", nil)
		req.Header.Set("Origin", front)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		want := map[string]string{
			"Access-Control-Allow-Origin":      front,
			"Access-Control-Allow-Credentials": "true",
			"Access-Control-Expose-Headers":    "Location, X-Gate-Reason",
			"Access-Control-Allow-Methods":     "",
			"Vary":                             "Origin",
		}
		for k, v := range want {
			if got := w.Header().Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	})

	t.Run("許可されていないオリジンやOriginなしではCORSヘッダーが設定されないこと", func(t *testing.T) {
		t.Parallel()

		router := newCORSRouter([]string{front, ""}, nil)
		for _, origin := range []string{"https://evil.example", ""} {
			req := httptest.NewRequest(http.MethodGet, "/services", nil)
			if origin != "" {
				req.Header.Set("Origin", origin)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Errorf("Origin %q: Access-Control-Allow-Origin = %q, want empty string", origin, got)
			}
		}
	})

	t.Run("プリフライトは204で中断されハンドラーが呼ばれないこと", func(t *testing.T) {
		t.Parallel()

		called := false
		router := newCORSRouter([]string{front}, &called)
		req := httptest.NewRequest(http.MethodOptions, "/services", nil)
		req.Header.Set("Origin", front)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
		want := map[string]string{
			"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
			"Access-Control-Allow-Headers": "Authorization, Content-Type, X-Request-ID",
			"Access-Control-Max-Age":       "86400",
		}
		for k, v := range want {
			if got := w.Header().Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if called {
			t.Error("OPTIONSリクエストでハンドラーが呼ばれるべきではない")
		}
	})

	t.Run("許可されていないオリジンのプリフライトは403になること", func(t *testing.T) {
		t.Parallel()

		called := false
		router := newCORSRouter([]string{front}, &called)
		req := httptest.NewRequest(http.MethodOptions, "/services", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		if called {
			t.Error("拒否したプリフライトでハンドラーが呼ばれるべきではない")
		}
	})

	t.Run("Originを伴わないOPTIONSは204になること", func(t *testing.T) {
		t.Parallel()

		router := newCORSRouter(nil, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/services", nil))

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
	})

	t.Run("GETリクエストではハンドラーが実行されること", func(t *testing.T) {
		t.Parallel()

		called := false
		router := newCORSRouter(nil, &called)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services", nil))

		if !called {
			t.Error("GETリクエストでハンドラーが呼ばれるべき")
		}
	})
}
