package apiclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
)

// TestAuthAPI はログインと新規登録によるセッション更新を検証する。
func TestAuthAPI(t *testing.T) {
	t.Parallel()

	t.Run("ログイン成功でセッションが応答の3つの値に置き換わること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"token":"t1","username":"alice","role":"CUSTOMER"}`))
		res, err := env.client.Auth().Login(context.Background(), "alice", "pw")
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}
		if res.Token != "t1" {
			t.Errorf("Token = %q, want t1", res.Token)
		}

		snap := env.store.Snapshot()
		if !env.store.IsAuthenticated() || snap.Token != "t1" || snap.Username != "alice" || snap.Role != session.RoleCustomer {
			t.Errorf("Snapshot() = %+v", snap)
		}

		req := env.rec.last(t)
		if req.Method != http.MethodPost || req.Path != "/api/auth/login" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
		body := decodeBody(t, req.Body)
		if body["username"] != "alice" || body["password"] != "pw" {
			t.Errorf("body = %v", body)
		}
		if got := req.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
	})

	t.Run("ログイン失敗では既存のセッションが変わらないこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusBadRequest, `{"message":"Invalid username or password"}`))
		env.store.SetAuth("old", "bob", session.RoleProvider)
		_, err := env.client.Auth().Login(context.Background(), "alice", "wrong")
		if UserMessage(err) != "Invalid username or password" {
			t.Errorf("UserMessage() = %q", UserMessage(err))
		}
		if env.store.Token() != "old" || env.store.Role() != session.RoleProvider {
			t.Errorf("Snapshot() = %+v", env.store.Snapshot())
		}
	})

	t.Run("未知のロールを含む応答ではセッションが変わらないこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"token":"t1","username":"alice","role":"SUPERUSER"}`))
		_, err := env.client.Auth().Login(context.Background(), "alice", "pw")
		if KindOf(err) != KindDecode {
			t.Errorf("KindOf() = %q, want %q", KindOf(err), KindDecode)
		}
		if env.store.IsAuthenticated() {
			t.Error("不正な応答でセッションが設定された")
		}
	})

	t.Run("トークンのない応答ではセッションが変わらないこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"username":"alice","role":"CUSTOMER"}`))
		_, err := env.client.Auth().Login(context.Background(), "alice", "pw")
		if KindOf(err) != KindDecode {
			t.Errorf("KindOf() = %q, want %q", KindOf(err), KindDecode)
		}
		if env.store.IsAuthenticated() {
			t.Error("不完全な応答でセッションが設定された")
		}
	})

	t.Run("新規登録成功でログイン状態になること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"token":"t9","username":"carol","role":"PROVIDER"}`))
		_, err := env.client.Auth().Register(context.Background(), Registration{
			Username: "carol", Email: "carol@example.com", Password: "pw", FirstName: "Carol", LastName: "K",
		})
		if err != nil {
			t.Fatalf("Register()でエラーが発生: %v", err)
		}
		if env.store.Role() != session.RoleProvider || env.store.Username() != "carol" {
			t.Errorf("Snapshot() = %+v", env.store.Snapshot())
		}
		if got := env.rec.last(t).Path; got != "/api/auth/register" {
			t.Errorf("Path = %q", got)
		}
	})

	t.Run("ログアウトは通信せずにセッションを破棄すること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{}`))
		env.store.SetAuth("t1", "alice", session.RoleCustomer)
		env.client.Auth().Logout()
		if env.store.IsAuthenticated() {
			t.Error("セッションが破棄されていない")
		}
		if env.rec.count() != 0 {
			t.Errorf("ログアウトで通信が発生した: %d件", env.rec.count())
		}
	})
}

// TestOrderAPI は注文の操作を検証する。
func TestOrderAPI(t *testing.T) {
	t.Parallel()

	t.Run("ステータス変更はクエリパラメータで送られること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"id":5,"status":"CONFIRMED","totalPrice":80}`))
		var got []event.Mutation
		env.bus.Subscribe(func(m event.Mutation) { got = append(got, m) })

		order, err := env.client.Orders().UpdateStatus(context.Background(), 5, StatusConfirmed)
		if err != nil {
			t.Fatalf("UpdateStatus()でエラーが発生: %v", err)
		}
		if order.Status != StatusConfirmed {
			t.Errorf("Status = %q", order.Status)
		}

		req := env.rec.last(t)
		if req.Method != http.MethodPut || req.Path != "/api/orders/5/status" || req.Query != "status=CONFIRMED" {
			t.Errorf("request = %s %s?%s", req.Method, req.Path, req.Query)
		}
		if len(req.Body) != 0 {
			t.Errorf("ボディが送信された: %s", req.Body)
		}
		if len(got) != 1 || got[0].Family != event.FamilyOrders || got[0].Operation != event.OperationStatusChanged || got[0].ResourceID != 5 {
			t.Errorf("mutations = %+v", got)
		}
	})

	t.Run("キャンセルはDELETEで空の応答を受け付けること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		if err := env.client.Orders().Cancel(context.Background(), 9); err != nil {
			t.Fatalf("Cancel()でエラーが発生: %v", err)
		}
		req := env.rec.last(t)
		if req.Method != http.MethodDelete || req.Path != "/api/orders/9" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
	})

	t.Run("注文作成で予約日時が分精度で送られること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusCreated, `{"id":11,"serviceId":3,"status":"PENDING","totalPrice":"120.50","scheduledDateTime":"2026-11-02T10:30:00"}`))
		var got []event.Mutation
		env.bus.Subscribe(func(m event.Mutation) { got = append(got, m) })

		order, err := env.client.Orders().Create(context.Background(), OrderInput{
			ServiceID:         3,
			ScheduledDateTime: ScheduleTime{Time: time.Date(2026, 11, 2, 10, 30, 45, 0, time.UTC)},
			Address:           "1 Main St",
		})
		if err != nil {
			t.Fatalf("Create()でエラーが発生: %v", err)
		}
		body := decodeBody(t, env.rec.last(t).Body)
		if body["scheduledDateTime"] != "2026-11-02T10:30" {
			t.Errorf("scheduledDateTime = %v", body["scheduledDateTime"])
		}
		if _, ok := body["totalPrice"]; ok {
			t.Error("合計金額がクライアントから送信された")
		}
		if !order.TotalPrice.Equal(decimal.RequireFromString("120.50")) {
			t.Errorf("TotalPrice = %s", order.TotalPrice)
		}
		if !order.Status.Cancellable() {
			t.Error("PENDINGの注文がキャンセル不可になっている")
		}
		if len(got) != 1 || got[0].ResourceID != 11 || got[0].Operation != event.OperationCreated {
			t.Errorf("mutations = %+v", got)
		}
	})

	t.Run("一覧系のパスが正しいこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `[]`))
		ctx := context.Background()
		cases := []struct {
			call func() error
			path string
		}{
			{func() error { _, err := env.client.Orders().ListMine(ctx); return err }, "/api/orders/my-orders"},
			{func() error { _, err := env.client.Orders().ListMineAsProvider(ctx); return err }, "/api/orders/my-provider-orders"},
			{func() error { _, err := env.client.Orders().ListByCustomer(ctx, 2); return err }, "/api/orders/customer/2"},
			{func() error { _, err := env.client.Orders().ListByProvider(ctx, 4); return err }, "/api/orders/provider/4"},
			{func() error { _, err := env.client.Orders().ListByStatus(ctx, StatusInProgress); return err }, "/api/orders/status/IN_PROGRESS"},
			{func() error { _, err := env.client.Services().ListByCategory(ctx, 7); return err }, "/api/services/category/7"},
			{func() error { _, err := env.client.Services().ListMine(ctx); return err }, "/api/services/my-services"},
			{func() error { _, err := env.client.Reviews().ListByService(ctx, 3); return err }, "/api/reviews/service/3"},
			{func() error { _, err := env.client.Reviews().ListByProvider(ctx, 8); return err }, "/api/reviews/provider/8"},
			{func() error { _, err := env.client.Users().GetByUsername(ctx, "a b"); return err }, "/api/users/username/a b"},
		}
		for _, c := range cases {
			if err := c.call(); err != nil {
				t.Fatalf("%sでエラーが発生: %v", c.path, err)
			}
			if got := env.rec.last(t).Path; got != c.path {
				t.Errorf("Path = %q, want %q", got, c.path)
			}
		}
	})

	t.Run("事業者の集計値を取得できること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"totalServices":3,"totalOrders":10,"totalRevenue":1234.5,"ordersByStatus":{"PENDING":2}}`))
		stats, err := env.client.Orders().ProviderStatistics(context.Background())
		if err != nil {
			t.Fatalf("ProviderStatistics()でエラーが発生: %v", err)
		}
		if stats.TotalOrders != 10 || stats.OrdersByStatus["PENDING"] != 2 {
			t.Errorf("stats = %+v", stats)
		}
		if !stats.TotalRevenue.Equal(decimal.RequireFromString("1234.5")) {
			t.Errorf("TotalRevenue = %s", stats.TotalRevenue)
		}
		if got := env.rec.last(t).Path; got != "/api/orders/provider/stats" {
			t.Errorf("Path = %q", got)
		}
	})
}

// TestServiceAPI はサービスの操作を検証する。
func TestServiceAPI(t *testing.T) {
	t.Parallel()

	t.Run("更新ではnilのフィールドが送信されないこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"id":4,"name":"Deep clean","price":99.99,"categoryId":1}`))
		var got []event.Mutation
		env.bus.Subscribe(func(m event.Mutation) { got = append(got, m) })

		name := "Deep clean"
		svc, err := env.client.Services().Update(context.Background(), 4, ServiceUpdate{Name: &name})
		if err != nil {
			t.Fatalf("Update()でエラーが発生: %v", err)
		}
		if !svc.IsActive() {
			t.Error("activeのないサービスが無効として扱われた")
		}
		body := decodeBody(t, env.rec.last(t).Body)
		if len(body) != 1 || body["name"] != "Deep clean" {
			t.Errorf("body = %v", body)
		}
		if len(got) != 1 || got[0].Family != event.FamilyServices || got[0].Operation != event.OperationUpdated {
			t.Errorf("mutations = %+v", got)
		}
	})

	t.Run("削除失敗では変更通知が発行されないこと", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusForbidden, `{"message":"not the owner"}`))
		published := 0
		env.bus.Subscribe(func(event.Mutation) { published++ })
		if err := env.client.Services().Delete(context.Background(), 4); err == nil {
			t.Fatal("エラーが返るべきだが、nilが返った")
		}
		if published != 0 {
			t.Errorf("published = %d, want 0", published)
		}
	})

	t.Run("作成でサービスが返ること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusCreated, `{"id":12,"name":"Lawn","price":"45.00","categoryId":2,"active":false}`))
		svc, err := env.client.Services().Create(context.Background(), ServiceInput{
			Name: "Lawn", Price: decimal.RequireFromString("45.00"), CategoryID: 2,
		})
		if err != nil {
			t.Fatalf("Create()でエラーが発生: %v", err)
		}
		if svc.ID != 12 || svc.IsActive() {
			t.Errorf("service = %+v", svc)
		}
	})
}

// TestReviewAPI はレビューの操作を検証する。
func TestReviewAPI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, jsonHandler(http.StatusCreated, `{"id":21,"orderId":5,"providerId":2,"serviceId":3,"rating":5,"comment":"great","createdAt":"2026-10-01T09:00:00"}`))
	var got []event.Mutation
	env.bus.Subscribe(func(m event.Mutation) { got = append(got, m) })

	review, err := env.client.Reviews().Create(context.Background(), ReviewInput{OrderID: 5, Rating: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("Create()でエラーが発生: %v", err)
	}
	if review.CreatedAt.Year() != 2026 {
		t.Errorf("CreatedAt = %v", review.CreatedAt)
	}
	if len(got) != 1 || got[0].Family != event.FamilyReviews {
		t.Errorf("mutations = %+v", got)
	}
	invalidated := got[0].Invalidates()
	found := false
	for _, f := range invalidated {
		if f == event.FamilyServices {
			found = true
		}
	}
	if !found {
		t.Errorf("レビュー作成でサービス一覧が無効化されない: %v", invalidated)
	}
}

// TestAdminAPI は管理者向けの操作を検証する。
func TestAdminAPI(t *testing.T) {
	t.Parallel()

	t.Run("無効化と削除が別のリクエストになること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"id":3,"username":"bob","role":"PROVIDER","active":false}`))
		var got []event.Mutation
		env.bus.Subscribe(func(m event.Mutation) { got = append(got, m) })
		ctx := context.Background()

		user, err := env.client.Admin().UpdateUserStatus(ctx, 3, false)
		if err != nil {
			t.Fatalf("UpdateUserStatus()でエラーが発生: %v", err)
		}
		if user.IsActive() {
			t.Error("無効化したユーザーが有効として扱われた")
		}
		req := env.rec.last(t)
		if req.Method != http.MethodPut || req.Path != "/api/admin/users/3/status" || req.Query != "active=false" {
			t.Errorf("request = %s %s?%s", req.Method, req.Path, req.Query)
		}

		if err := env.client.Admin().DeleteUser(ctx, 3); err != nil {
			t.Fatalf("DeleteUser()でエラーが発生: %v", err)
		}
		req = env.rec.last(t)
		if req.Method != http.MethodDelete || req.Path != "/api/admin/users/3" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}

		if len(got) != 2 || got[0].Operation != event.OperationStatusChanged || got[1].Operation != event.OperationDeleted {
			t.Errorf("mutations = %+v", got)
		}
	})

	t.Run("ロール変更はクエリパラメータで送られること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"id":3,"username":"bob","role":"ADMIN"}`))
		user, err := env.client.Admin().UpdateUserRole(context.Background(), 3, session.RoleAdmin)
		if err != nil {
			t.Fatalf("UpdateUserRole()でエラーが発生: %v", err)
		}
		if user.Role != session.RoleAdmin {
			t.Errorf("Role = %v", user.Role)
		}
		if got := env.rec.last(t).Query; got != "role=ADMIN" {
			t.Errorf("Query = %q", got)
		}
	})

	t.Run("顧客の代わりの注文作成で顧客IDが送られること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusCreated, `{"id":30,"status":"PENDING","totalPrice":10}`))
		_, err := env.client.Admin().CreateOrder(context.Background(), 42, OrderInput{
			ServiceID:         1,
			ScheduledDateTime: ScheduleTime{Time: time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)},
		})
		if err != nil {
			t.Fatalf("CreateOrder()でエラーが発生: %v", err)
		}
		req := env.rec.last(t)
		if req.Path != "/api/admin/orders" || req.Query != "customerId=42" {
			t.Errorf("request = %s?%s", req.Path, req.Query)
		}
	})

	t.Run("全体の集計値を取得できること", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, jsonHandler(http.StatusOK, `{"totalUsers":5,"usersByRole":{"ADMIN":1},"totalRevenue":"10.10"}`))
		stats, err := env.client.Admin().Statistics(context.Background())
		if err != nil {
			t.Fatalf("Statistics()でエラーが発生: %v", err)
		}
		if stats.TotalUsers != 5 || stats.UsersByRole["ADMIN"] != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})
}
