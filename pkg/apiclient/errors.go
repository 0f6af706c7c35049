package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind はエラーの分類。
type Kind string

const (
	// KindUnauthorized は認可失敗（401）を表す。セッションは既に破棄されている。
	KindUnauthorized Kind = "unauthorized"
	// KindClient は401以外の4xx（入力検証・業務ルール違反）を表す。
	KindClient Kind = "client"
	// KindServer は5xxを表す。
	KindServer Kind = "server"
	// KindTransport は通信そのものの失敗を表す。
	KindTransport Kind = "transport"
	// KindValidation は送信前のリクエスト検証で失敗したことを表す。リクエストは送信されていない。
	KindValidation Kind = "validation"
	// KindDecode はレスポンスボディを解釈できなかったことを表す。
	KindDecode Kind = "decode"
)

// APIError はAPI呼び出しの失敗を表す。
type APIError struct {
	// Kind はエラーの分類。
	Kind Kind
	// StatusCode はHTTPステータスコード。応答がない場合は0。
	StatusCode int
	// Message はサーバーが返したメッセージ、またはクライアントが生成したメッセージ。
	Message string
	// Method はリクエストのHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Err は原因となったエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap は原因となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized はerrが認可失敗を表すかを返す。
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// KindOf はerrの分類を返す。APIErrorでない場合は空文字列。
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// StatusOf はerrのHTTPステータスコードを返す。応答がない場合は0。
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage は通知として表示する文言を返す。
// 4xxと検証エラーはサーバー（またはクライアント）のメッセージをそのまま使い、
// 5xxと通信失敗は構造化されたメッセージが保証されないため汎用の文言にする。
func UserMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "予期しないエラーが発生しました"
	}
	switch apiErr.Kind {
	case KindUnauthorized:
		return "セッションの有効期限が切れました。再度ログインしてください"
	case KindClient, KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "リクエストが受け付けられませんでした"
	case KindTransport:
		return "サーバーに接続できませんでした"
	default:
		return "サーバーでエラーが発生しました。時間をおいて再度お試しください"
	}
}

// errorBody はサーバーのエラーレスポンス形式。
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// kindForStatus はHTTPステータスコードに対応する分類を返す。
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status >= 400 && status < 500:
		return KindClient
	default:
		return KindServer
	}
}

// newStatusError は非2xx応答からAPIErrorを生成する。
// ボディが {"message": ...} 形式であればそのメッセージを使う。
func newStatusError(method, path string, status int, body []byte) *APIError {
	msg := ""
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		msg = eb.Message
		if msg == "" {
			msg = eb.Error
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		msg = text
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{
		Kind:       kindForStatus(status),
		StatusCode: status,
		Message:    msg,
		Method:     method,
		Path:       path,
	}
}
