package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/config"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// backend はマーケットプレイスAPIのモック。パターンごとの呼び出し回数を記録する。
type backend struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]string
	server *httptest.Server
}

// hit はパターンの呼び出し回数を返す。
func (b *backend) hit(pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[pattern]
}

// body はパターンに最後に送られたリクエストボディとクエリを返す。
func (b *backend) body(pattern string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[pattern]
}

// testUI はテスト用のUIホスト一式。
type testUI struct {
	server  *Server
	store   *session.Store
	backend *backend
}

// newTestUI はroutesで応答するモックAPIとUIホストを生成する。
// routesのキーはhttp.ServeMuxのパターン（例: "GET /api/categories"）。
func newTestUI(t *testing.T, routes map[string]http.HandlerFunc) *testUI {
	t.Helper()

	b := &backend{hits: map[string]int{}, bodies: map[string]string{}}
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			b.mu.Lock()
			b.hits[pattern]++
			b.bodies[pattern] = string(body) + "?" + r.URL.RawQuery
			b.mu.Unlock()
			h(w, r)
		})
	}
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)

	store := session.Open(session.NewMemoryStorage())
	bus := event.NewBus()
	registry := prometheus.NewRegistry()
	client := apiclient.New(b.server.URL+"/api", store,
		apiclient.WithBus(bus),
		apiclient.WithMetrics(registry),
	)
	srv := New(":0", Deps{Store: store, Client: client, Bus: bus, Registry: registry})
	t.Cleanup(func() { _ = srv.Close() })

	return &testUI{server: srv, store: store, backend: b}
}

// do はUIホストにリクエストを送信する。
func (u *testUI) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	u.server.Handler().ServeHTTP(w, req)
	return w
}

// reply は固定のJSONを返すハンドラ。
func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// decode はレスポンスボディをvにデシリアライズする。
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v (%s)", err, w.Body.String())
	}
}

// TestHealth はヘルスチェックを検証する。
func TestHealth(t *testing.T) {
	t.Parallel()

	u := newTestUI(t, nil)
	w := u.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["service"] != "marketplace-ui" {
		t.Errorf("service = %q", body["service"])
	}
}

// TestGate は画面のゲートを検証する。
func TestGate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		role     session.Role
		path     string
		location string
	}{
		{name: "未認証で注文一覧はログイン画面へ遷移すること", path: "/orders", location: gate.LoginPath},
		{name: "未認証でプロフィールはログイン画面へ遷移すること", path: "/profile", location: gate.LoginPath},
		{name: "未認証で事業者ダッシュボードはログイン画面へ遷移すること", path: "/provider", location: gate.LoginPath},
		{name: "顧客で事業者ダッシュボードはホームへ遷移すること", role: session.RoleCustomer, path: "/provider", location: gate.HomePath},
		{name: "顧客で管理者ダッシュボードはホームへ遷移すること", role: session.RoleCustomer, path: "/admin", location: gate.HomePath},
		{name: "管理者で事業者ダッシュボードはホームへ遷移すること", role: session.RoleAdmin, path: "/provider", location: gate.HomePath},
		{name: "事業者で管理者の変更操作はホームへ遷移すること", role: session.RoleProvider, path: "/admin/users/1", location: gate.HomePath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			u := newTestUI(t, nil)
			if tc.role != session.RoleNone {
				u.store.SetAuth("t1", "someone", tc.role)
			}
			method := http.MethodGet
			if strings.HasPrefix(tc.path, "/admin/") {
				method = http.MethodDelete
			}
			w := u.do(method, tc.path, "")
			if w.Code != http.StatusSeeOther {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusSeeOther)
			}
			if got := w.Header().Get("Location"); got != tc.location {
				t.Errorf("Location = %q, want %q", got, tc.location)
			}
		})
	}

	t.Run("公開画面は未認証でも表示できること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/categories": reply(http.StatusOK, `[{"id":1,"name":"Cleaning"}]`),
		})
		w := u.do(http.MethodGet, "/", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var view homeView
		decode(t, w, &view)
		if len(view.Categories) != 1 || view.Session.Authenticated {
			t.Errorf("view = %+v", view)
		}
	})
}

// TestLogin はログインとログアウトを検証する。
func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("ログイン成功でホームへ遷移しセッションが設定されること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": reply(http.StatusOK, `{"token":"t1","username":"alice","role":"CUSTOMER"}`),
		})
		w := u.do(http.MethodPost, "/login", `{"username":"alice","password":"pw"}`)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != gate.HomePath {
			t.Fatalf("ステータスコード = %d, Location = %q", w.Code, w.Header().Get("Location"))
		}

		var view sessionView
		decode(t, u.do(http.MethodGet, "/session", ""), &view)
		if !view.Authenticated || view.Username != "alice" || view.Role != "CUSTOMER" {
			t.Errorf("session = %+v", view)
		}
	})

	t.Run("ログイン失敗ではサーバーのメッセージが返ること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": reply(http.StatusBadRequest, `{"message":"Invalid username or password"}`),
		})
		w := u.do(http.MethodPost, "/login", `{"username":"alice","password":"wrong"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var body map[string]string
		decode(t, w, &body)
		if body["error"] != "Invalid username or password" {
			t.Errorf("error = %q", body["error"])
		}
		if u.store.IsAuthenticated() {
			t.Error("失敗したログインでセッションが設定された")
		}
	})

	t.Run("入力が欠けている場合はAPIを呼ばずに400が返ること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"POST /api/auth/login": reply(http.StatusOK, `{}`),
		})
		w := u.do(http.MethodPost, "/login", `{"username":"alice"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if u.backend.hit("POST /api/auth/login") != 0 {
			t.Error("APIが呼ばれた")
		}
	})

	t.Run("ログアウトでセッションが破棄されログイン画面へ遷移すること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, nil)
		u.store.SetAuth("t1", "alice", session.RoleCustomer)
		w := u.do(http.MethodPost, "/logout", "")
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != gate.LoginPath {
			t.Errorf("ステータスコード = %d, Location = %q", w.Code, w.Header().Get("Location"))
		}
		if u.store.IsAuthenticated() {
			t.Error("セッションが破棄されていない")
		}
	})
}

// TestOrders は注文一覧と注文操作を検証する。
func TestOrders(t *testing.T) {
	t.Parallel()

	const myOrders = `[
		{"id":1,"serviceId":3,"status":"PENDING","totalPrice":50},
		{"id":2,"serviceId":3,"status":"CONFIRMED","totalPrice":50},
		{"id":3,"serviceId":3,"status":"COMPLETED","totalPrice":50}
	]`

	t.Run("APIが401を返すとセッションが破棄されログイン画面へ遷移すること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/my-orders": reply(http.StatusUnauthorized, ``),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodGet, "/orders", "")
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != gate.LoginPath {
			t.Errorf("ステータスコード = %d, Location = %q", w.Code, w.Header().Get("Location"))
		}
		if u.store.IsAuthenticated() {
			t.Error("セッションが破棄されていない")
		}
	})

	t.Run("キャンセル操作はPENDINGの注文にだけ提示されること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/my-orders": reply(http.StatusOK, myOrders),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodGet, "/orders", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var view ordersView
		decode(t, w, &view)
		if len(view.Orders) != 3 {
			t.Fatalf("注文件数 = %d, want 3", len(view.Orders))
		}
		for _, o := range view.Orders {
			if o.CanCancel != (o.Status == apiclient.StatusPending) {
				t.Errorf("注文%d (%s): canCancel = %v", o.ID, o.Status, o.CanCancel)
			}
			if o.CanReview != (o.Status == apiclient.StatusCompleted) {
				t.Errorf("注文%d (%s): canReview = %v", o.ID, o.Status, o.CanReview)
			}
		}
	})

	t.Run("提示する操作は応答時点のセッションのロールに従うこと", func(t *testing.T) {
		t.Parallel()

		var u *testUI
		u = newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/my-orders": func(w http.ResponseWriter, r *http.Request) {
				// 応答待ちの間に別の利用者でログインし直した状態
				u.store.SetAuth("t2", "bob", session.RoleProvider)
				reply(http.StatusOK, myOrders)(w, r)
			},
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodGet, "/orders", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var view ordersView
		decode(t, w, &view)
		if len(view.Orders) != 3 {
			t.Fatalf("注文件数 = %d, want 3", len(view.Orders))
		}
		if view.Session.Username != "bob" || view.Session.Role != "PROVIDER" {
			t.Errorf("session = %+v", view.Session)
		}
		for _, o := range view.Orders {
			if o.CanCancel || o.CanReview {
				t.Errorf("注文%d (%s): 事業者に顧客向けの操作が提示された", o.ID, o.Status)
			}
		}
		if got := view.Orders[0].NextStatuses; len(got) == 0 {
			t.Errorf("PENDINGの注文にnextStatusesがない")
		}
	})

	t.Run("PENDING以外の注文のキャンセルは送信されないこと", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/{id}":    reply(http.StatusOK, `{"id":2,"status":"CONFIRMED","totalPrice":50}`),
			"DELETE /api/orders/{id}": reply(http.StatusNoContent, ``),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodPost, "/orders/2/cancel", "")
		if w.Code != http.StatusConflict {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}
		if u.backend.hit("DELETE /api/orders/{id}") != 0 {
			t.Error("キャンセルが送信された")
		}
	})

	t.Run("PENDINGの注文はキャンセルでき一覧が読み直されること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/my-orders": reply(http.StatusOK, myOrders),
			"GET /api/orders/{id}":      reply(http.StatusOK, `{"id":1,"status":"PENDING","totalPrice":50}`),
			"DELETE /api/orders/{id}":   reply(http.StatusNoContent, ``),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		u.do(http.MethodGet, "/orders", "")
		u.do(http.MethodGet, "/orders", "")
		if got := u.backend.hit("GET /api/orders/my-orders"); got != 1 {
			t.Errorf("キャッシュされていない: 呼び出し回数 = %d, want 1", got)
		}

		w := u.do(http.MethodPost, "/orders/1/cancel", "")
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/orders" {
			t.Errorf("ステータスコード = %d, Location = %q", w.Code, w.Header().Get("Location"))
		}
		if u.backend.hit("DELETE /api/orders/{id}") != 1 {
			t.Error("キャンセルが送信されていない")
		}

		u.do(http.MethodGet, "/orders", "")
		if got := u.backend.hit("GET /api/orders/my-orders"); got != 2 {
			t.Errorf("変更後に読み直されていない: 呼び出し回数 = %d, want 2", got)
		}
	})

	t.Run("完了した注文にレビューを投稿できること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/{id}": reply(http.StatusOK, `{"id":3,"status":"COMPLETED","totalPrice":50}`),
			"POST /api/reviews":    reply(http.StatusCreated, `{"id":9,"orderId":3,"rating":5,"comment":"great"}`),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodPost, "/orders/3/reviews", `{"rating":5,"comment":"great"}`)
		if w.Code != http.StatusSeeOther {
			t.Errorf("ステータスコード = %d, want %d (%s)", w.Code, http.StatusSeeOther, w.Body.String())
		}
		if !strings.Contains(u.backend.body("POST /api/reviews"), `"orderId":3`) {
			t.Errorf("body = %s", u.backend.body("POST /api/reviews"))
		}
	})

	t.Run("評価が範囲外のレビューはAPIを呼ばずに400が返ること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/orders/{id}": reply(http.StatusOK, `{"id":3,"status":"COMPLETED","totalPrice":50}`),
			"POST /api/reviews":    reply(http.StatusCreated, `{}`),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodPost, "/orders/3/reviews", `{"rating":9,"comment":"great"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if u.backend.hit("POST /api/reviews") != 0 {
			t.Error("APIが呼ばれた")
		}
	})

	t.Run("サービス詳細から注文できること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"POST /api/orders": reply(http.StatusCreated, `{"id":12,"status":"PENDING","totalPrice":"80.00"}`),
		})
		u.store.SetAuth("t1", "alice", session.RoleCustomer)

		w := u.do(http.MethodPost, "/services/4/orders", `{"scheduledDateTime":"2026-11-02T10:30","address":"1 Main St"}`)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/orders" {
			t.Errorf("ステータスコード = %d, Location = %q (%s)", w.Code, w.Header().Get("Location"), w.Body.String())
		}
		body := u.backend.body("POST /api/orders")
		if !strings.Contains(body, `"serviceId":4`) || !strings.Contains(body, `"scheduledDateTime":"2026-11-02T10:30"`) {
			t.Errorf("body = %s", body)
		}
	})
}

// TestErrors はAPIエラーの応答への変換を検証する。
func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("5xxは502になり内部のメッセージを含まないこと", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/services": reply(http.StatusInternalServerError, `{"message":"stack trace here"}`),
		})
		w := u.do(http.MethodGet, "/services", "")
		if w.Code != http.StatusBadGateway {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadGateway)
		}
		if strings.Contains(w.Body.String(), "stack trace") {
			t.Errorf("内部のメッセージが含まれている: %s", w.Body.String())
		}
	})

	t.Run("4xxはステータスとメッセージをそのまま返すこと", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/services/{id}": reply(http.StatusNotFound, `{"error":"Not Found","message":"Service not found with id: 99"}`),
		})
		w := u.do(http.MethodGet, "/services/99", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		var body map[string]string
		decode(t, w, &body)
		if body["error"] != "Service not found with id: 99" {
			t.Errorf("error = %q", body["error"])
		}
	})

	t.Run("不正なIDは400になること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, nil)
		if w := u.do(http.MethodGet, "/services/abc", ""); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if w := u.do(http.MethodGet, "/services?categoryId=-1", ""); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestServiceViews はサービス一覧と詳細を検証する。
func TestServiceViews(t *testing.T) {
	t.Parallel()

	t.Run("カテゴリで絞り込めること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, map[string]http.HandlerFunc{
			"GET /api/services/category/{id}": reply(http.StatusOK, `[{"id":1,"name":"Clean","price":10,"categoryId":2}]`),
		})
		w := u.do(http.MethodGet, "/services?categoryId=2", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var view servicesView
		decode(t, w, &view)
		if view.CategoryID == nil || *view.CategoryID != 2 || len(view.Services) != 1 {
			t.Errorf("view = %+v", view)
		}
	})

	t.Run("注文操作は有効なサービスを顧客が見ている場合だけ提示されること", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			role    session.Role
			service string
			want    bool
		}{
			{role: session.RoleCustomer, service: `{"id":1,"name":"A","price":1,"categoryId":1}`, want: true},
			{role: session.RoleCustomer, service: `{"id":1,"name":"A","price":1,"categoryId":1,"active":false}`, want: false},
			{role: session.RoleProvider, service: `{"id":1,"name":"A","price":1,"categoryId":1}`, want: false},
			{role: session.RoleNone, service: `{"id":1,"name":"A","price":1,"categoryId":1}`, want: false},
		}
		for _, tc := range cases {
			u := newTestUI(t, map[string]http.HandlerFunc{
				"GET /api/services/{id}":        reply(http.StatusOK, tc.service),
				"GET /api/reviews/service/{id}": reply(http.StatusOK, `[{"id":5,"rating":4,"comment":"ok"}]`),
			})
			if tc.role != session.RoleNone {
				u.store.SetAuth("t1", "someone", tc.role)
			}
			var view serviceDetailView
			decode(t, u.do(http.MethodGet, "/services/1", ""), &view)
			if view.CanOrder != tc.want {
				t.Errorf("role=%v service=%s: canOrder = %v, want %v", tc.role, tc.service, view.CanOrder, tc.want)
			}
			if len(view.Reviews) != 1 {
				t.Errorf("reviews = %+v", view.Reviews)
			}
		}
	})
}

// TestProviderDashboard は事業者ダッシュボードを検証する。
func TestProviderDashboard(t *testing.T) {
	t.Parallel()

	routes := func() map[string]http.HandlerFunc {
		return map[string]http.HandlerFunc{
			"GET /api/services/my-services":      reply(http.StatusOK, `[{"id":4,"name":"Clean","price":10,"categoryId":1}]`),
			"GET /api/orders/my-provider-orders": reply(http.StatusOK, `[{"id":1,"status":"PENDING","totalPrice":10},{"id":2,"status":"IN_PROGRESS","totalPrice":10}]`),
			"GET /api/orders/provider/stats":     reply(http.StatusOK, `{"totalServices":1,"totalOrders":2,"totalRevenue":0}`),
			"POST /api/services":                 reply(http.StatusCreated, `{"id":5,"name":"New","price":20,"categoryId":1}`),
			"PUT /api/orders/{id}/status":        reply(http.StatusOK, `{"id":1,"status":"CONFIRMED","totalPrice":10}`),
		}
	}

	t.Run("提示してよい遷移先が注文ごとに返ること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes())
		u.store.SetAuth("t1", "bob", session.RoleProvider)

		w := u.do(http.MethodGet, "/provider", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
		}
		var view providerView
		decode(t, w, &view)
		if len(view.Services) != 1 || view.Stats == nil || view.Stats.TotalOrders != 2 {
			t.Errorf("view = %+v", view)
		}
		if len(view.Orders) != 2 {
			t.Fatalf("注文件数 = %d, want 2", len(view.Orders))
		}
		if got := view.Orders[0].NextStatuses; len(got) != 2 || got[0] != apiclient.StatusConfirmed {
			t.Errorf("PENDINGの遷移先 = %v", got)
		}
		if got := view.Orders[1].NextStatuses; len(got) != 1 || got[0] != apiclient.StatusCompleted {
			t.Errorf("IN_PROGRESSの遷移先 = %v", got)
		}
		if view.Orders[0].CanCancel {
			t.Error("事業者にキャンセル操作が提示された")
		}
	})

	t.Run("サービス作成で一覧と集計値が読み直されること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes())
		u.store.SetAuth("t1", "bob", session.RoleProvider)

		u.do(http.MethodGet, "/provider", "")
		w := u.do(http.MethodPost, "/provider/services", `{"name":"New","price":"20.00","categoryId":1}`)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/provider" {
			t.Fatalf("ステータスコード = %d, Location = %q (%s)", w.Code, w.Header().Get("Location"), w.Body.String())
		}
		u.do(http.MethodGet, "/provider", "")

		if got := u.backend.hit("GET /api/services/my-services"); got != 2 {
			t.Errorf("サービス一覧の呼び出し回数 = %d, want 2", got)
		}
		if got := u.backend.hit("GET /api/orders/provider/stats"); got != 2 {
			t.Errorf("集計値の呼び出し回数 = %d, want 2", got)
		}
		if got := u.backend.hit("GET /api/orders/my-provider-orders"); got != 1 {
			t.Errorf("注文一覧の呼び出し回数 = %d, want 1", got)
		}
	})

	t.Run("ステータス変更がクエリパラメータで送られること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes())
		u.store.SetAuth("t1", "bob", session.RoleProvider)

		w := u.do(http.MethodPut, "/provider/orders/1/status", `{"status":"CONFIRMED"}`)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("ステータスコード = %d, want %d (%s)", w.Code, http.StatusSeeOther, w.Body.String())
		}
		if got := u.backend.body("PUT /api/orders/{id}/status"); got != "?status=CONFIRMED" {
			t.Errorf("request = %q", got)
		}
	})

	t.Run("未知のステータスはAPIを呼ばずに400が返ること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes())
		u.store.SetAuth("t1", "bob", session.RoleProvider)

		w := u.do(http.MethodPut, "/provider/orders/1/status", `{"status":"SHIPPED"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if u.backend.hit("PUT /api/orders/{id}/status") != 0 {
			t.Error("APIが呼ばれた")
		}
	})
}

// TestAdminDashboard は管理者ダッシュボードを検証する。
func TestAdminDashboard(t *testing.T) {
	t.Parallel()

	routes := map[string]http.HandlerFunc{
		"GET /api/admin/stats":             reply(http.StatusOK, `{"totalUsers":2}`),
		"GET /api/admin/users":             reply(http.StatusOK, `[{"id":1,"username":"a","role":"CUSTOMER"},{"id":2,"username":"b","role":"PROVIDER","active":false}]`),
		"GET /api/admin/services":          reply(http.StatusOK, `[]`),
		"GET /api/admin/orders":            reply(http.StatusOK, `[]`),
		"PUT /api/admin/users/{id}/status": reply(http.StatusOK, `{"id":2,"username":"b","role":"PROVIDER","active":false}`),
		"PUT /api/admin/users/{id}/role":   reply(http.StatusOK, `{"id":2,"username":"b","role":"ADMIN"}`),
	}

	t.Run("無効化されたユーザーも一覧に含まれること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes)
		u.store.SetAuth("t1", "root", session.RoleAdmin)

		w := u.do(http.MethodGet, "/admin", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
		}
		var view adminView
		decode(t, w, &view)
		if len(view.Users) != 2 || view.Users[1].IsActive() {
			t.Errorf("users = %+v", view.Users)
		}
	})

	t.Run("無効化で集計値が読み直されること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes)
		u.store.SetAuth("t1", "root", session.RoleAdmin)

		u.do(http.MethodGet, "/admin", "")
		w := u.do(http.MethodPut, "/admin/users/2/status", `{"active":false}`)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("ステータスコード = %d, want %d (%s)", w.Code, http.StatusSeeOther, w.Body.String())
		}
		if got := u.backend.body("PUT /api/admin/users/{id}/status"); got != "?active=false" {
			t.Errorf("request = %q", got)
		}
		u.do(http.MethodGet, "/admin", "")
		if got := u.backend.hit("GET /api/admin/stats"); got != 2 {
			t.Errorf("集計値の呼び出し回数 = %d, want 2", got)
		}
		if got := u.backend.hit("GET /api/admin/orders"); got != 1 {
			t.Errorf("注文一覧の呼び出し回数 = %d, want 1", got)
		}
	})

	t.Run("activeのない切り替えは400になること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes)
		u.store.SetAuth("t1", "root", session.RoleAdmin)

		if w := u.do(http.MethodPut, "/admin/users/2/status", `{}`); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if w := u.do(http.MethodPut, "/admin/users/2/role", `{"role":"ROOT"}`); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("ロール変更が送られること", func(t *testing.T) {
		t.Parallel()

		u := newTestUI(t, routes)
		u.store.SetAuth("t1", "root", session.RoleAdmin)

		if w := u.do(http.MethodPut, "/admin/users/2/role", `{"role":"ADMIN"}`); w.Code != http.StatusSeeOther {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusSeeOther)
		}
		if got := u.backend.body("PUT /api/admin/users/{id}/role"); got != "?role=ADMIN" {
			t.Errorf("request = %q", got)
		}
	})
}

// TestMetrics は /metrics でAPIクライアントのメトリクスが公開されることを検証する。
func TestMetrics(t *testing.T) {
	t.Parallel()

	u := newTestUI(t, map[string]http.HandlerFunc{
		"GET /api/categories": reply(http.StatusOK, `[]`),
	})
	u.do(http.MethodGet, "/", "")

	w := u.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `localservices_apiclient_requests_total{code="200",family="categories",method="GET"} 1`) {
		t.Errorf("メトリクスが公開されていない:\n%s", w.Body.String())
	}
}

// TestNewServer は設定からの生成を検証する。
func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("メモリストレージで生成できること", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			APIBaseURL:           "http://127.0.0.1:1/api",
			Port:                 "0",
			StorageDriver:        config.StorageMemory,
			RequestTimeout:       1e9,
			MaxRequestsPerSecond: 2.5,
			TracingEnabled:       true,
		}
		srv, err := NewServer(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("NewServer()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { _ = srv.Close() })

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusBadGateway {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("SQLiteストレージでセッションが再起動後も復元されること", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			APIBaseURL:     "http://127.0.0.1:1/api",
			StorageDriver:  config.StorageSQLite,
			StoragePath:    t.TempDir() + "/ui.db",
			RequestTimeout: 1e9,
		}
		srv, err := NewServer(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("NewServer()でエラーが発生: %v", err)
		}
		srv.store.SetAuth("t1", "alice", session.RoleCustomer)
		if err := srv.Close(); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}

		again, err := NewServer(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("NewServer()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { _ = again.Close() })
		if got := again.store.Snapshot(); got.Username != "alice" || got.Role != session.RoleCustomer {
			t.Errorf("Snapshot() = %+v", got)
		}
	})

	t.Run("未知のストレージドライバはエラーになること", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{StorageDriver: "tape", RequestTimeout: 1e9}
		if _, err := NewServer(context.Background(), cfg, nil); err == nil {
			t.Fatal("エラーが返るべきだが、nilが返った")
		}
	})
}
