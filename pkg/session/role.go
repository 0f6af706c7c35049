package session

import (
	"encoding/json"
	"fmt"
)

// Role は利用者のロールを表す。定義済みの値以外は取り得ない。
type Role int

const (
	// RoleNone はロールが存在しない（未認証、またはロール指定なし）ことを表す。
	RoleNone Role = iota
	// RoleCustomer はサービスを注文する顧客を表す。
	RoleCustomer
	// RoleProvider はサービスを提供する事業者を表す。
	RoleProvider
	// RoleAdmin は管理者を表す。
	RoleAdmin
)

// String はロールのワイヤ表現を返す。RoleNoneは空文字列になる。
func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "CUSTOMER"
	case RoleProvider:
		return "PROVIDER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

// ParseRole はワイヤ表現の文字列をRoleに変換する。
// 未知の値はエラーになる。空文字列はRoleNoneとして受け付ける。
func ParseRole(s string) (Role, error) {
	switch s {
	case "":
		return RoleNone, nil
	case "CUSTOMER":
		return RoleCustomer, nil
	case "PROVIDER":
		return RoleProvider, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return RoleNone, fmt.Errorf("未知のロール: %q", s)
	}
}

// MarshalJSON はロールをワイヤ表現の文字列としてシリアライズする。
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON はワイヤ表現の文字列からロールを復元する。
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ロールのデシリアライズに失敗: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
