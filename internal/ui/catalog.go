package ui

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
)

// homeView はホーム画面のビューモデル。
type homeView struct {
	Session    sessionView          `json:"session"`
	Categories []apiclient.Category `json:"categories"`
}

// servicesView はサービス一覧画面のビューモデル。
type servicesView struct {
	Session    sessionView         `json:"session"`
	CategoryID *int64              `json:"categoryId,omitempty"`
	Services   []apiclient.Service `json:"services"`
}

// serviceDetailView はサービス詳細画面のビューモデル。
type serviceDetailView struct {
	Session sessionView        `json:"session"`
	Service *apiclient.Service `json:"service"`
	Reviews []apiclient.Review `json:"reviews"`
	// CanOrder は注文操作を提示してよいか。有効なサービスを顧客が見ている場合だけtrue。
	CanOrder bool `json:"canOrder"`
}

// orderRequest はサービス詳細画面からの注文入力。
type orderRequest struct {
	ScheduledDateTime apiclient.ScheduleTime `json:"scheduledDateTime"`
	Address           string                 `json:"address"`
	Notes             string                 `json:"notes"`
}

// handleHome はカテゴリ一覧を返すハンドラを返す。
func (s *Server) handleHome() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := cached(s.views, event.FamilyCategories, "all", func() ([]apiclient.Category, error) {
			return s.client.Categories().List(c.Request.Context())
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, homeView{Session: s.currentSession(), Categories: categories})
	}
}

// handleServices はサービス一覧を返すハンドラを返す。categoryIdでカテゴリを絞り込める。
func (s *Server) handleServices() gin.HandlerFunc {
	return func(c *gin.Context) {
		view := servicesView{}
		key := "all"
		load := func() ([]apiclient.Service, error) {
			return s.client.Services().List(c.Request.Context())
		}

		if raw := c.Query("categoryId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "categoryIdが不正です")
				return
			}
			view.CategoryID = &id
			key = fmt.Sprintf("category:%d", id)
			load = func() ([]apiclient.Service, error) {
				return s.client.Services().ListByCategory(c.Request.Context(), id)
			}
		}

		services, err := cached(s.views, event.FamilyServices, key, load)
		if err != nil {
			s.respondError(c, err)
			return
		}
		view.Services = services
		view.Session = s.currentSession()
		c.JSON(http.StatusOK, view)
	}
}

// handleServiceDetail はサービスとそのレビューを返すハンドラを返す。
func (s *Server) handleServiceDetail() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		key := strconv.FormatInt(id, 10)

		svc, err := cached(s.views, event.FamilyServices, "id:"+key, func() (*apiclient.Service, error) {
			return s.client.Services().Get(ctx, id)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		reviews, err := cached(s.views, event.FamilyReviews, "service:"+key, func() ([]apiclient.Review, error) {
			return s.client.Reviews().ListByService(ctx, id)
		})
		if err != nil {
			s.respondError(c, err)
			return
		}

		snap := s.store.Snapshot()
		c.JSON(http.StatusOK, serviceDetailView{
			Session:  newSessionView(snap),
			Service:  svc,
			Reviews:  reviews,
			CanOrder: snap.Role == session.RoleCustomer && svc.IsActive(),
		})
	}
}

// handleCreateOrder はサービスを注文して注文一覧へ遷移するハンドラを返す。
func (s *Server) handleCreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req orderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "予約日時の形式が不正です")
			return
		}
		_, err := s.client.Orders().Create(c.Request.Context(), apiclient.OrderInput{
			ServiceID:         id,
			ScheduledDateTime: req.ScheduledDateTime,
			Address:           req.Address,
			Notes:             req.Notes,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		seeOther(c, "/orders")
	}
}
