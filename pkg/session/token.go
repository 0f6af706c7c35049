package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry はJWT形式のトークンからexpクレームを取り出す。
// 署名は検証しない。表示用途に限って使用し、認可の判断には使わないこと。
// JWTとして解釈できない、またはexpクレームを持たない場合はfalseを返す。
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
