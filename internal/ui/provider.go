package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/event"
)

// providerView は事業者ダッシュボードのビューモデル。
type providerView struct {
	Session  sessionView              `json:"session"`
	Services []apiclient.Service      `json:"services"`
	Orders   []orderItem              `json:"orders"`
	Stats    *apiclient.ProviderStats `json:"stats"`
}

// statusRequest は注文ステータス変更の入力。
type statusRequest struct {
	Status apiclient.OrderStatus `json:"status" binding:"required"`
}

// handleProviderDashboard は事業者自身のサービス・受けた注文・集計値を返すハンドラを返す。
func (s *Server) handleProviderDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		snap := s.store.Snapshot()

		services, err := cached(s.views, event.FamilyServices, "mine:"+snap.Username, func() ([]apiclient.Service, error) {
			return s.client.Services().ListMine(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		orders, err := s.listOrdersFor(ctx, snap)
		if err != nil {
			s.respondError(c, err)
			return
		}
		stats, err := cached(s.views, event.FamilyProviderStats, snap.Username, func() (*apiclient.ProviderStats, error) {
			return s.client.Orders().ProviderStatistics(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}

		after := s.store.Snapshot()
		c.JSON(http.StatusOK, providerView{
			Session:  newSessionView(after),
			Services: services,
			Orders:   newOrderItems(orders, after.Role),
			Stats:    stats,
		})
	}
}

// handleProviderCreateService はサービスを作成するハンドラを返す。
func (s *Server) handleProviderCreateService() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.ServiceInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "サービスの入力内容を確認してください")
			return
		}
		if _, err := s.client.Services().Create(c.Request.Context(), req); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/provider")
	}
}

// handleProviderUpdateService はサービスを更新するハンドラを返す。
func (s *Server) handleProviderUpdateService() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req apiclient.ServiceUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "サービスの入力内容を確認してください")
			return
		}
		if _, err := s.client.Services().Update(c.Request.Context(), id, req); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/provider")
	}
}

// handleProviderDeleteService はサービスを削除するハンドラを返す。
func (s *Server) handleProviderDeleteService() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.client.Services().Delete(c.Request.Context(), id); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/provider")
	}
}

// handleProviderUpdateOrderStatus は受けた注文のステータスを変更するハンドラを返す。
// 遷移の正当性はサーバーが判断する。
func (s *Server) handleProviderUpdateOrderStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "ステータスが不正です")
			return
		}
		if _, err := s.client.Orders().UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/provider")
	}
}
