package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/gate"
)

// loginRequest はログイン画面の入力。
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleSession は現在のセッション情報を返すハンドラを返す。
func (s *Server) handleSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.currentSession())
	}
}

// handleLogin はログインしてホームへ遷移するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "ユーザー名とパスワードを入力してください")
			return
		}
		if _, err := s.client.Auth().Login(c.Request.Context(), req.Username, req.Password); err != nil {
			s.respondError(c, err)
			return
		}
		s.views.purge()
		seeOther(c, gate.HomePath)
	}
}

// handleRegister は新規登録してホームへ遷移するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.Registration
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "入力内容を確認してください")
			return
		}
		if _, err := s.client.Auth().Register(c.Request.Context(), req); err != nil {
			s.respondError(c, err)
			return
		}
		s.views.purge()
		seeOther(c, gate.HomePath)
	}
}

// handleLogout はセッションを破棄してログイン画面へ遷移するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.client.Auth().Logout()
		s.views.purge()
		seeOther(c, gate.LoginPath)
	}
}
