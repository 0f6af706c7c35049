package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nao1215/localservices/pkg/event"
)

// OrderAPI は注文の操作。
type OrderAPI struct {
	c *Client
}

// Orders は注文の操作を返す。
func (c *Client) Orders() *OrderAPI {
	return &OrderAPI{c: c}
}

// List は全注文を返す。
func (a *OrderAPI) List(ctx context.Context) ([]Order, error) {
	return a.list(ctx, "/orders")
}

// Get は指定した注文を返す。
func (a *OrderAPI) Get(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := a.c.get(ctx, idPath("/orders", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMine は認証済み顧客自身の注文を返す。
func (a *OrderAPI) ListMine(ctx context.Context) ([]Order, error) {
	return a.list(ctx, "/orders/my-orders")
}

// ListMineAsProvider は認証済み事業者が受けた注文を返す。
func (a *OrderAPI) ListMineAsProvider(ctx context.Context) ([]Order, error) {
	return a.list(ctx, "/orders/my-provider-orders")
}

// ListByCustomer は顧客の注文を返す。
func (a *OrderAPI) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	return a.list(ctx, idPath("/orders/customer", customerID))
}

// ListByProvider は事業者が受けた注文を返す。
func (a *OrderAPI) ListByProvider(ctx context.Context, providerID int64) ([]Order, error) {
	return a.list(ctx, idPath("/orders/provider", providerID))
}

// ListByStatus は指定したステータスの注文を返す。
func (a *OrderAPI) ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	return a.list(ctx, "/orders/status/"+url.PathEscape(string(status)))
}

// Create は注文を作成する。合計金額はサーバーが計算する。
func (a *OrderAPI) Create(ctx context.Context, in OrderInput) (*Order, error) {
	var out Order
	if err := a.c.do(ctx, http.MethodPost, "/orders", nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyOrders, event.OperationCreated, out.ID)
	return &out, nil
}

// UpdateStatus は注文のステータスを変更する。新しいステータスはクエリパラメータで送る。
// 遷移の正当性はサーバーが判断する。
func (a *OrderAPI) UpdateStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error) {
	var out Order
	q := url.Values{"status": {string(status)}}
	if err := a.c.do(ctx, http.MethodPut, idPath("/orders", id, "/status"), q, nil, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyOrders, event.OperationStatusChanged, id)
	return &out, nil
}

// Cancel は注文をキャンセルする（DELETE）。画面ではPENDINGの注文にだけ提示する。
func (a *OrderAPI) Cancel(ctx context.Context, id int64) error {
	if err := a.c.do(ctx, http.MethodDelete, idPath("/orders", id), nil, nil, nil); err != nil {
		return err
	}
	a.c.publish(event.FamilyOrders, event.OperationDeleted, id)
	return nil
}

// ProviderStatistics は認証済み事業者の集計値を返す。
func (a *OrderAPI) ProviderStatistics(ctx context.Context) (*ProviderStats, error) {
	var out ProviderStats
	if err := a.c.get(ctx, "/orders/provider/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *OrderAPI) list(ctx context.Context, path string) ([]Order, error) {
	var out []Order
	if err := a.c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
