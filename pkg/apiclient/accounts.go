package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nao1215/localservices/pkg/event"
)

// ReviewAPI はレビューの操作。レビューは作成後に変更しない。
type ReviewAPI struct {
	c *Client
}

// Reviews はレビューの操作を返す。
func (c *Client) Reviews() *ReviewAPI {
	return &ReviewAPI{c: c}
}

// List は全レビューを返す。
func (a *ReviewAPI) List(ctx context.Context) ([]Review, error) {
	return a.list(ctx, "/reviews")
}

// Get は指定したレビューを返す。
func (a *ReviewAPI) Get(ctx context.Context, id int64) (*Review, error) {
	var out Review
	if err := a.c.get(ctx, idPath("/reviews", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByService はサービスに対するレビューを返す。
func (a *ReviewAPI) ListByService(ctx context.Context, serviceID int64) ([]Review, error) {
	return a.list(ctx, idPath("/reviews/service", serviceID))
}

// ListByProvider は事業者に対するレビューを返す。
func (a *ReviewAPI) ListByProvider(ctx context.Context, providerID int64) ([]Review, error) {
	return a.list(ctx, idPath("/reviews/provider", providerID))
}

// Create は完了した注文に対するレビューを作成する。
func (a *ReviewAPI) Create(ctx context.Context, in ReviewInput) (*Review, error) {
	var out Review
	if err := a.c.do(ctx, http.MethodPost, "/reviews", nil, in, &out); err != nil {
		return nil, err
	}
	a.c.publish(event.FamilyReviews, event.OperationCreated, out.ID)
	return &out, nil
}

func (a *ReviewAPI) list(ctx context.Context, path string) ([]Review, error) {
	var out []Review
	if err := a.c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserAPI はユーザー情報の読み取り操作。
type UserAPI struct {
	c *Client
}

// Users はユーザー情報の操作を返す。
func (c *Client) Users() *UserAPI {
	return &UserAPI{c: c}
}

// Me は認証済みユーザー自身の情報を返す。
func (a *UserAPI) Me(ctx context.Context) (*User, error) {
	return a.one(ctx, "/users/me")
}

// Get は指定したユーザーを返す。
func (a *UserAPI) Get(ctx context.Context, id int64) (*User, error) {
	return a.one(ctx, idPath("/users", id))
}

// GetByUsername はユーザー名でユーザーを返す。
func (a *UserAPI) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.one(ctx, "/users/username/"+url.PathEscape(username))
}

func (a *UserAPI) one(ctx context.Context, path string) (*User, error) {
	var out User
	if err := a.c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthAPI はログインと新規登録の操作。成功するとセッションストアを更新する。
type AuthAPI struct {
	c *Client
}

// Auth は認証の操作を返す。
func (c *Client) Auth() *AuthAPI {
	return &AuthAPI{c: c}
}

// Login はユーザー名とパスワードでログインし、応答の3つの値でセッションを置き換える。
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	return a.authenticate(ctx, "/auth/login", Credentials{Username: username, Password: password})
}

// Register は新規登録してログイン状態にする。
func (a *AuthAPI) Register(ctx context.Context, in Registration) (*AuthResponse, error) {
	return a.authenticate(ctx, "/auth/register", in)
}

// Logout はローカルのセッションを破棄する。サーバーへの通信は行わない。
func (a *AuthAPI) Logout() {
	if a.c.store != nil {
		a.c.store.ClearAuth()
	}
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.Username == "" || out.Role.String() == "" {
		return nil, &APIError{
			Kind:    KindDecode,
			Method:  http.MethodPost,
			Path:    path,
			Message: "認証応答にトークン・ユーザー名・ロールが揃っていません",
			Err:     fmt.Errorf("incomplete auth response: username=%q role=%q", out.Username, out.Role),
		}
	}
	if a.c.store != nil {
		a.c.store.SetAuth(out.Token, out.Username, out.Role)
	}
	return &out, nil
}
