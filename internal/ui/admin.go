package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
)

// adminPath は管理者ダッシュボードのパス。
const adminPath = "/admin"

// adminView は管理者ダッシュボードのビューモデル。
// 無効化されたユーザー・サービスも含めて返し、activeで区別する。
type adminView struct {
	Session  sessionView           `json:"session"`
	Stats    *apiclient.AdminStats `json:"stats"`
	Users    []apiclient.User      `json:"users"`
	Services []apiclient.Service   `json:"services"`
	Orders   []orderItem           `json:"orders"`
}

// activeRequest は有効・無効の切り替えの入力。
type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// roleRequest はロール変更の入力。
type roleRequest struct {
	Role session.Role `json:"role"`
}

// adminOrderRequest は顧客の代わりに注文を作成する入力。
type adminOrderRequest struct {
	CustomerID int64 `json:"customerId" binding:"required"`
	apiclient.OrderInput
}

// handleAdminDashboard は全体の集計値・ユーザー・サービス・注文を返すハンドラを返す。
func (s *Server) handleAdminDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		admin := s.client.Admin()

		stats, err := cached(s.views, event.FamilyAdminStats, "all", func() (*apiclient.AdminStats, error) {
			return admin.Statistics(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		users, err := cached(s.views, event.FamilyUsers, "admin", func() ([]apiclient.User, error) {
			return admin.ListUsers(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		services, err := cached(s.views, event.FamilyServices, "admin", func() ([]apiclient.Service, error) {
			return admin.ListServices(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		orders, err := cached(s.views, event.FamilyOrders, "admin", func() ([]apiclient.Order, error) {
			return admin.ListOrders(ctx)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, adminView{
			Session:  s.currentSession(),
			Stats:    stats,
			Users:    users,
			Services: services,
			Orders:   newOrderItems(orders, session.RoleAdmin),
		})
	}
}

// handleAdminCreateUser はユーザーを作成するハンドラを返す。
func (s *Server) handleAdminCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.UserInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "ユーザーの入力内容を確認してください")
			return
		}
		if _, err := s.client.Admin().CreateUser(c.Request.Context(), req); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminUserStatus はユーザーの有効・無効を切り替えるハンドラを返す。
func (s *Server) handleAdminUserStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req activeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "activeを指定してください")
			return
		}
		if _, err := s.client.Admin().UpdateUserStatus(c.Request.Context(), id, *req.Active); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminUserRole はユーザーのロールを変更するハンドラを返す。
func (s *Server) handleAdminUserRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Role == session.RoleNone {
			badRequest(c, "ロールはCUSTOMER、PROVIDER、ADMINのいずれかを指定してください")
			return
		}
		if _, err := s.client.Admin().UpdateUserRole(c.Request.Context(), id, req.Role); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminDeleteUser はユーザーを削除するハンドラを返す。
func (s *Server) handleAdminDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.client.Admin().DeleteUser(c.Request.Context(), id); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminCreateService は任意の事業者のサービスを作成するハンドラを返す。
func (s *Server) handleAdminCreateService() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.ServiceInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "サービスの入力内容を確認してください")
			return
		}
		if _, err := s.client.Admin().CreateService(c.Request.Context(), req); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminServiceStatus はサービスの有効・無効を切り替えるハンドラを返す。
func (s *Server) handleAdminServiceStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req activeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "activeを指定してください")
			return
		}
		if _, err := s.client.Admin().UpdateServiceStatus(c.Request.Context(), id, *req.Active); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminDeleteService はサービスを削除するハンドラを返す。
func (s *Server) handleAdminDeleteService() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.client.Admin().DeleteService(c.Request.Context(), id); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminCreateOrder は顧客の代わりに注文を作成するハンドラを返す。
func (s *Server) handleAdminCreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "customerIdと注文内容を指定してください")
			return
		}
		if _, err := s.client.Admin().CreateOrder(c.Request.Context(), req.CustomerID, req.OrderInput); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminOrderStatus は注文のステータスを変更するハンドラを返す。
func (s *Server) handleAdminOrderStatus() gin.HandlerFunc {
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
		if _, err := s.client.Admin().UpdateOrderStatus(c.Request.Context(), id, req.Status); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}

// handleAdminDeleteOrder は注文を削除するハンドラを返す。
func (s *Server) handleAdminDeleteOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.client.Admin().DeleteOrder(c.Request.Context(), id); err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, adminPath)
	}
}
