package ui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/session"
)

// sessionView は画面に表示するセッション情報。トークンは含めない。
type sessionView struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

// newSessionView はセッションから表示用の情報を生成する。
func newSessionView(s session.Session) sessionView {
	return sessionView{
		Authenticated: s.Authenticated(),
		Username:      s.Username,
		Role:          s.Role.String(),
	}
}

// currentSession はAPI呼び出し後のセッションを読み直して返す。
// 呼び出し中に401で破棄されている可能性があるため、呼び出し前の値は使わない。
func (s *Server) currentSession() sessionView {
	return newSessionView(s.store.Snapshot())
}

// respondError はAPI呼び出しの失敗を応答に変換する。
// 401はセッションが破棄済みのためログイン画面へ遷移させ、
// 4xxはサーバーのメッセージをそのまま、5xxと通信失敗は502として返す。
func (s *Server) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusBadGateway
	switch apiclient.KindOf(err) {
	case apiclient.KindUnauthorized:
		s.views.purge()
		c.Redirect(http.StatusSeeOther, gate.LoginPath)
		c.Abort()
		return
	case apiclient.KindClient:
		status = apiclient.StatusOf(err)
	case apiclient.KindValidation:
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apiclient.UserMessage(err)})
}

// badRequest は画面からの入力が不正な場合の応答を返す。
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// seeOther は変更操作の後に表示する画面へ303で遷移させる。
func seeOther(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

// paramID はパスパラメータのIDを数値として取得する。
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "IDが不正です")
		return 0, false
	}
	return id, true
}
