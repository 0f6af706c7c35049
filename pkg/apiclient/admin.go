package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
)

// AdminAPI は管理者向けの操作。権限はサーバーが判断し、
// クライアントは管理者以外に到達できない画面からだけ呼び出す。
//
// 無効化（UpdateUserStatus、UpdateServiceStatus）と削除は別の操作として扱う。
// 無効化されたユーザー・サービスは一覧に含まれたまま返る。
type AdminAPI struct {
	c *Client
}

// Admin は管理者向けの操作を返す。
func (c *Client) Admin() *AdminAPI {
	return &AdminAPI{c: c}
}

// Statistics は全体の集計値を返す。
func (a *AdminAPI) Statistics(ctx context.Context) (*AdminStats, error) {
	var out AdminStats
	if err := a.c.get(ctx, "/admin/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers は全ユーザーを返す。
func (a *AdminAPI) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := a.c.get(ctx, "/admin/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser はユーザーを作成する。
func (a *AdminAPI) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	var out User
	if err := a.c.do(ctx, http.MethodPost, "/admin/users", nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyUsers, event.OperationCreated, out.ID)
	return &out, nil
}

// UpdateUserStatus はユーザーの有効・無効を切り替える。
func (a *AdminAPI) UpdateUserStatus(ctx context.Context, id int64, active bool) (*User, error) {
	var out User
	q := url.Values{"active": {strconv.FormatBool(active)}}
	if err := a.c.do(ctx, http.MethodPut, idPath("/admin/users", id, "/status"), q, nil, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyUsers, event.OperationStatusChanged, id)
	return &out, nil
}

// UpdateUserRole はユーザーのロールを変更する。
func (a *AdminAPI) UpdateUserRole(ctx context.Context, id int64, role session.Role) (*User, error) {
	var out User
	q := url.Values{"role": {role.String()}}
	if err := a.c.do(ctx, http.MethodPut, idPath("/admin/users", id, "/role"), q, nil, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyUsers, event.OperationRoleChanged, id)
	return &out, nil
}

// DeleteUser はユーザーを削除する。
func (a *AdminAPI) DeleteUser(ctx context.Context, id int64) error {
	if err := a.c.do(ctx, http.MethodDelete, idPath("/admin/users", id), nil, nil, nil); err != nil {
		return err
	}
	a.c.publish(event.FamilyUsers, event.OperationDeleted, id)
	return nil
}

// ListServices は無効なものを含む全サービスを返す。
func (a *AdminAPI) ListServices(ctx context.Context) ([]Service, error) {
	var out []Service
	if err := a.c.get(ctx, "/admin/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateService は任意の事業者のサービスを作成する。
func (a *AdminAPI) CreateService(ctx context.Context, in ServiceInput) (*Service, error) {
	var out Service
	if err := a.c.do(ctx, http.MethodPost, "/admin/services", nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyServices, event.OperationCreated, out.ID)
	return &out, nil
}

// UpdateServiceStatus はサービスの有効・無効を切り替える。
func (a *AdminAPI) UpdateServiceStatus(ctx context.Context, id int64, active bool) (*Service, error) {
	var out Service
	q := url.Values{"active": {strconv.FormatBool(active)}}
	if err := a.c.do(ctx, http.MethodPut, idPath("/admin/services", id, "/status"), q, nil, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyServices, event.OperationStatusChanged, id)
	return &out, nil
}

// DeleteService はサービスを削除する。
func (a *AdminAPI) DeleteService(ctx context.Context, id int64) error {
	if err := a.c.do(ctx, http.MethodDelete, idPath("/admin/services", id), nil, nil, nil); err != nil {
		return err
	}
	a.c.publish(event.FamilyServices, event.OperationDeleted, id)
	return nil
}

// ListOrders は全注文を返す。
func (a *AdminAPI) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := a.c.get(ctx, "/admin/orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder は顧客の代わりに注文を作成する。
func (a *AdminAPI) CreateOrder(ctx context.Context, customerID int64, in OrderInput) (*Order, error) {
	var out Order
	q := url.Values{"customerId": {strconv.FormatInt(customerID, 10)}}
	if err := a.c.do(ctx, http.MethodPost, "/admin/orders", q, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyOrders, event.OperationCreated, out.ID)
	return &out, nil
}

// UpdateOrderStatus は注文のステータスを変更する。
func (a *AdminAPI) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error) {
	var out Order
	q := url.Values{"status": {string(status)}}
	if err := a.c.do(ctx, http.MethodPut, idPath("/admin/orders", id, "/status"), q, nil, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyOrders, event.OperationStatusChanged, id)
	return &out, nil
}

// DeleteOrder は注文を削除する。
func (a *AdminAPI) DeleteOrder(ctx context.Context, id int64) error {
	if err := a.c.do(ctx, http.MethodDelete, idPath("/admin/orders", id), nil, nil, nil); err != nil {
		return err
	}
	a.c.publish(event.FamilyOrders, event.OperationDeleted, id)
	return nil
}
