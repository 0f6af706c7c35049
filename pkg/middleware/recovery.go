package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// internalErrorMessage は画面に返す500エラーの文言。パニック値は含めない。
const internalErrorMessage = "内部サーバーエラーが発生しました"

// Recovery はハンドラのパニックを回復して500を返すGinミドルウェアを返す。
//
// ログにはルートのパターンとゲートを通過した利用者名を含める。
// http.ErrAbortHandlerは接続を打ち切る合図なのでそのまま再送出する。
// レスポンスを書き始めた後のパニックでは本文を追記せず、処理の中断だけを行う。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			fields := []zap.Field{
				zap.Any("panic", r),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("route", c.FullPath()),
				zap.ByteString("stack", debug.Stack()),
			}
			if s := GetSession(c); s.Username != "" {
				fields = append(fields, zap.String("user", s.Username))
			}
			logger.Error("パニックから回復", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
		}()
		c.Next()
	}
}
