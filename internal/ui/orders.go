package ui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
)

// orderItem は注文1件と、その注文に対して提示してよい操作。
type orderItem struct {
	apiclient.Order
	// CanCancel は顧客にキャンセル操作を提示してよいか。PENDINGのときだけtrue。
	CanCancel bool `json:"canCancel"`
	// CanReview は顧客にレビュー投稿を提示してよいか。COMPLETEDのときだけtrue。
	CanReview bool `json:"canReview"`
	// NextStatuses は事業者に提示してよい遷移先。
	NextStatuses []apiclient.OrderStatus `json:"nextStatuses"`
}

// ordersView は注文一覧画面のビューモデル。
type ordersView struct {
	Session sessionView `json:"session"`
	Orders  []orderItem `json:"orders"`
}

// profileView はプロフィール画面のビューモデル。
type profileView struct {
	Session sessionView     `json:"session"`
	User    *apiclient.User `json:"user"`
	// TokenExpiresAt はトークンの有効期限（表示用）。読み取れない場合は省略する。
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// reviewRequest はレビュー投稿の入力。
type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// newOrderItems はロールに応じた操作を付与する。
func newOrderItems(orders []apiclient.Order, role session.Role) []orderItem {
	items := make([]orderItem, 0, len(orders))
	for _, o := range orders {
		item := orderItem{Order: o, NextStatuses: []apiclient.OrderStatus{}}
		switch role {
		case session.RoleCustomer:
			item.CanCancel = o.Status.Cancellable()
			item.CanReview = o.Status.Reviewable()
		case session.RoleProvider, session.RoleAdmin:
			item.NextStatuses = o.Status.NextStatuses()
		}
		items = append(items, item)
	}
	return items
}

// listOrdersFor はロールに応じた注文一覧を返す。
// 顧客は自分の注文、事業者は受けた注文、管理者は全注文を見る。
func (s *Server) listOrdersFor(ctx context.Context, snap session.Session) ([]apiclient.Order, error) {
	key := fmt.Sprintf("user:%s:%s", snap.Username, snap.Role)
	return cached(s.views, event.FamilyOrders, key, func() ([]apiclient.Order, error) {
		switch snap.Role {
		case session.RoleProvider:
			return s.client.Orders().ListMineAsProvider(ctx)
		case session.RoleAdmin:
			return s.client.Orders().List(ctx)
		default:
			return s.client.Orders().ListMine(ctx)
		}
	})
}

// handleOrders は注文一覧を返すハンドラを返す。
// 提示する操作はAPI呼び出しの後に読み直したセッションのロールで決める。
func (s *Server) handleOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := s.listOrdersFor(c.Request.Context(), s.store.Snapshot())
		if err != nil {
			s.respondError(c, err)
			return
		}
		after := s.store.Snapshot()
		c.JSON(http.StatusOK, ordersView{
			Session: newSessionView(after),
			Orders:  newOrderItems(orders, after.Role),
		})
	}
}

// handleCancelOrder は注文をキャンセルするハンドラを返す。
// キャンセル操作はPENDINGの注文にだけ提示するため、それ以外は送信せずに409を返す。
func (s *Server) handleCancelOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		order, err := s.client.Orders().Get(ctx, id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !order.Status.Cancellable() {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("ステータスが%sの注文はキャンセルできません", order.Status),
			})
			return
		}
		if err := s.client.Orders().Cancel(ctx, id); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/orders")
	}
}

// handleCreateReview は完了した注文にレビューを投稿するハンドラを返す。
func (s *Server) handleCreateReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "評価とコメントを入力してください")
			return
		}
		ctx := c.Request.Context()
		order, err := s.client.Orders().Get(ctx, id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !order.Status.Reviewable() {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("ステータスが%sの注文にはレビューを投稿できません", order.Status),
			})
			return
		}
		_, err = s.client.Reviews().Create(ctx, apiclient.ReviewInput{
			OrderID: id,
			Rating:  req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/orders")
	}
}

// handleProfile は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := s.store.Snapshot()
		user, err := cached(s.views, event.FamilyUsers, "me:"+snap.Username, func() (*apiclient.User, error) {
			return s.client.Users().Me(c.Request.Context())
		})
		if err != nil {
			s.respondError(c, err)
			return
		}

		view := profileView{Session: s.currentSession(), User: user}
		if exp, ok := session.TokenExpiry(s.store.Token()); ok {
			view.TokenExpiresAt = &exp
		}
		c.JSON(http.StatusOK, view)
	}
}
