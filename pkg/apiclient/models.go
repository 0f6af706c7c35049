package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nao1215/localservices/pkg/session"
)

// timestampLayouts はサーバーが返す日時の形式。タイムゾーンなしの形式を含む。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp はISO-8601形式の日時。タイムゾーンを持たない値はUTCとして解釈する。
type Timestamp struct {
	time.Time
}

// NewTimestamp はtime.TimeからTimestampを生成する。
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON はISO-8601形式の文字列を解釈する。nullはゼロ値になる。
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("日時のデシリアライズに失敗: %w", err)
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON はタイムゾーンなしの秒精度で出力する。ゼロ値はnullになる。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// parseTimestamp は対応する形式を順に試す。
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("日時の形式が不正: %q", s)
}

// ScheduleTime は注文作成時に送る予約日時。サーバーは分精度（yyyy-MM-dd'T'HH:mm）で受け付ける。
type ScheduleTime struct {
	time.Time
}

// MarshalJSON は分精度で出力する。
func (t ScheduleTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04"))
}

// UnmarshalJSON はISO-8601形式の文字列を解釈する。
func (t *ScheduleTime) UnmarshalJSON(data []byte) error {
	var ts Timestamp
	if err := ts.UnmarshalJSON(data); err != nil {
		return err
	}
	t.Time = ts.Time
	return nil
}

// Category はサービスのカテゴリ。クライアントからは読み取り専用。
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Icon         string `json:"icon,omitempty"`
	ServiceCount *int64 `json:"serviceCount,omitempty"`
}

// Service は事業者が提供するサービス。
type Service struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes *int            `json:"durationMinutes,omitempty"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	CategoryID      int64           `json:"categoryId"`
	CategoryName    string          `json:"categoryName,omitempty"`
	ProviderID      *int64          `json:"providerId,omitempty"`
	ProviderName    string          `json:"providerName,omitempty"`
	Active          *bool           `json:"active,omitempty"`
	AverageRating   *float64        `json:"averageRating,omitempty"`
	ReviewCount     *int            `json:"reviewCount,omitempty"`
}

// IsActive は有効なサービスかを返す。activeが返されない場合は有効とみなす。
func (s Service) IsActive() bool {
	return s.Active == nil || *s.Active
}

// ServiceInput はサービス作成時のリクエストボディ。
type ServiceInput struct {
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price" validate:"gt=0"`
	DurationMinutes *int            `json:"durationMinutes,omitempty" validate:"omitempty,gt=0"`
	ImageURL        string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	CategoryID      int64           `json:"categoryId" validate:"required"`
	ProviderID      *int64          `json:"providerId,omitempty"`
	Active          *bool           `json:"active,omitempty"`
}

// ServiceUpdate はサービス更新時のリクエストボディ。nilのフィールドは変更しない。
type ServiceUpdate struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Description     *string          `json:"description,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gt=0"`
	DurationMinutes *int             `json:"durationMinutes,omitempty" validate:"omitempty,gt=0"`
	ImageURL        *string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	CategoryID      *int64           `json:"categoryId,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

// Order は顧客の注文。totalPriceはサーバーが計算し、クライアントは編集しない。
type Order struct {
	ID                int64           `json:"id"`
	CustomerID        int64           `json:"customerId"`
	CustomerName      string          `json:"customerName,omitempty"`
	ServiceID         int64           `json:"serviceId"`
	ServiceName       string          `json:"serviceName,omitempty"`
	ProviderID        *int64          `json:"providerId,omitempty"`
	ProviderName      string          `json:"providerName,omitempty"`
	ScheduledDateTime Timestamp       `json:"scheduledDateTime"`
	Address           string          `json:"address,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Status            OrderStatus     `json:"status"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	CreatedAt         Timestamp       `json:"createdAt"`
	CompletedAt       *Timestamp      `json:"completedAt,omitempty"`
}

// OrderInput は注文作成時のリクエストボディ。
type OrderInput struct {
	ServiceID         int64        `json:"serviceId" validate:"required"`
	ScheduledDateTime ScheduleTime `json:"scheduledDateTime" validate:"required"`
	Address           string       `json:"address,omitempty"`
	Notes             string       `json:"notes,omitempty"`
}

// Review は完了した注文に対するレビュー。作成後は変更しない。
type Review struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"orderId"`
	ProviderID   int64     `json:"providerId"`
	ProviderName string    `json:"providerName,omitempty"`
	ServiceID    int64     `json:"serviceId"`
	ServiceName  string    `json:"serviceName,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    Timestamp `json:"createdAt"`
}

// ReviewInput はレビュー作成時のリクエストボディ。
type ReviewInput struct {
	OrderID int64  `json:"orderId" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// User はユーザー情報。
type User struct {
	ID        int64        `json:"id,omitempty"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Phone     string       `json:"phone,omitempty"`
	Address   string       `json:"address,omitempty"`
	Role      session.Role `json:"role"`
	Active    *bool        `json:"active,omitempty"`
	CreatedAt *Timestamp   `json:"createdAt,omitempty"`
}

// IsActive は有効なユーザーかを返す。activeが返されない場合は有効とみなす。
func (u User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// UserInput は管理者によるユーザー作成時のリクエストボディ。
type UserInput struct {
	Username  string       `json:"username" validate:"required"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password" validate:"required"`
	FirstName string       `json:"firstName" validate:"required"`
	LastName  string       `json:"lastName" validate:"required"`
	Phone     string       `json:"phone,omitempty"`
	Address   string       `json:"address,omitempty"`
	Role      session.Role `json:"role" validate:"required"`
	Active    *bool        `json:"active,omitempty"`
}

// Credentials はログイン時のリクエストボディ。
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration は新規登録時のリクエストボディ。
type Registration struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone,omitempty"`
}

// AuthResponse はログイン・新規登録の応答。
// roleが未知の値の場合はデシリアライズに失敗する。
type AuthResponse struct {
	Token    string       `json:"token"`
	Username string       `json:"username"`
	Role     session.Role `json:"role"`
}

// ProviderStats は事業者向けの集計値。
type ProviderStats struct {
	TotalServices     int64            `json:"totalServices"`
	TotalOrders       int64            `json:"totalOrders"`
	PendingOrders     int64            `json:"pendingOrders"`
	ConfirmedOrders   int64            `json:"confirmedOrders"`
	InProgressOrders  int64            `json:"inProgressOrders"`
	CompletedOrders   int64            `json:"completedOrders"`
	CancelledOrders   int64            `json:"cancelledOrders"`
	TotalRevenue      decimal.Decimal  `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal  `json:"averageOrderValue"`
	OrdersByStatus    map[string]int64 `json:"ordersByStatus"`
	OrdersByService   map[string]int64 `json:"ordersByService"`
}

// AdminStats は管理者向けの集計値。
type AdminStats struct {
	TotalUsers      int64            `json:"totalUsers"`
	TotalCustomers  int64            `json:"totalCustomers"`
	TotalProviders  int64            `json:"totalProviders"`
	TotalServices   int64            `json:"totalServices"`
	TotalOrders     int64            `json:"totalOrders"`
	PendingOrders   int64            `json:"pendingOrders"`
	CompletedOrders int64            `json:"completedOrders"`
	CancelledOrders int64            `json:"cancelledOrders"`
	TotalRevenue    decimal.Decimal  `json:"totalRevenue"`
	OrdersByStatus  map[string]int64 `json:"ordersByStatus"`
	UsersByRole     map[string]int64 `json:"usersByRole"`
}
