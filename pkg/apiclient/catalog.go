package apiclient

import (
	"context"
	"net/http"

	"github.com/nao1215/localservices/pkg/event"
)

// CategoryAPI はカテゴリの読み取り操作。
type CategoryAPI struct {
	c *Client
}

// Categories はカテゴリの操作を返す。
func (c *Client) Categories() *CategoryAPI {
	return &CategoryAPI{c: c}
}

// List は全カテゴリを返す。
func (a *CategoryAPI) List(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := a.c.get(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get は指定したカテゴリを返す。
func (a *CategoryAPI) Get(ctx context.Context, id int64) (*Category, error) {
	var out Category
	if err := a.c.get(ctx, idPath("/categories", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceAPI はサービスの操作。変更は所有する事業者または管理者に限られる（サーバー側で判断）。
type ServiceAPI struct {
	c *Client
}

// Services はサービスの操作を返す。
func (c *Client) Services() *ServiceAPI {
	return &ServiceAPI{c: c}
}

// List は全サービスを返す。
func (a *ServiceAPI) List(ctx context.Context) ([]Service, error) {
	return a.list(ctx, "/services")
}

// Get は指定したサービスを返す。
func (a *ServiceAPI) Get(ctx context.Context, id int64) (*Service, error) {
	var out Service
	if err := a.c.get(ctx, idPath("/services", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByCategory はカテゴリに属するサービスを返す。
func (a *ServiceAPI) ListByCategory(ctx context.Context, categoryID int64) ([]Service, error) {
	return a.list(ctx, idPath("/services/category", categoryID))
}

// ListByProvider は事業者が提供するサービスを返す。
func (a *ServiceAPI) ListByProvider(ctx context.Context, providerID int64) ([]Service, error) {
	return a.list(ctx, idPath("/services/provider", providerID))
}

// ListMine は認証済み事業者自身のサービスを返す。
func (a *ServiceAPI) ListMine(ctx context.Context) ([]Service, error) {
	return a.list(ctx, "/services/my-services")
}

// Create はサービスを作成する。
func (a *ServiceAPI) Create(ctx context.Context, in ServiceInput) (*Service, error) {
	var out Service
	if err := a.c.do(ctx, http.MethodPost, "/services", nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyServices, event.OperationCreated, out.ID)
	return &out, nil
}

// Update はサービスを更新する。
func (a *ServiceAPI) Update(ctx context.Context, id int64, in ServiceUpdate) (*Service, error) {
	var out Service
	if err := a.c.do(ctx, http.MethodPut, idPath("/services", id), nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyServices, event.OperationUpdated, id)
	return &out, nil
}

// Delete はサービスを削除する。
func (a *ServiceAPI) Delete(ctx context.Context, id int64) error {
	if err := a.c.do(ctx, http.MethodDelete, idPath("/services", id), nil, nil, nil); err != nil {
		return err
	}
	a.c.publish(event.FamilyServices, event.OperationDeleted, id)
	return nil
}

func (a *ServiceAPI) list(ctx context.Context, path string) ([]Service, error) {
	var out []Service
	if err := a.c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
