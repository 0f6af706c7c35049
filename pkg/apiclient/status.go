package apiclient

import (
	"encoding/json"
	"fmt"
)

// OrderStatus は注文のステータス。
type OrderStatus string

const (
	// StatusPending は事業者の確認待ち。
	StatusPending OrderStatus = "PENDING"
	// StatusConfirmed は事業者が受注を確定した状態。
	StatusConfirmed OrderStatus = "CONFIRMED"
	// StatusInProgress は作業中。
	StatusInProgress OrderStatus = "IN_PROGRESS"
	// StatusCompleted は完了。終端状態。
	StatusCompleted OrderStatus = "COMPLETED"
	// StatusCancelled はキャンセル済み。終端状態。
	StatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses は全ステータスを進行順に並べたもの。
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// transitions はステータスごとの遷移可能先。終端状態は含まない。
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// ParseOrderStatus は文字列をOrderStatusに変換する。
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("未知の注文ステータス: %q", s)
}

// UnmarshalJSON は未知のステータスを拒否する。
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("注文ステータスのデシリアライズに失敗: %w", err)
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NextStatuses は画面で提示してよい遷移先を返す。
// 遷移の可否はサーバーが最終的に判断する。
func (s OrderStatus) NextStatuses() []OrderStatus {
	return append([]OrderStatus(nil), transitions[s]...)
}

// CanTransitionTo はnextへの遷移が正当かを返す。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// IsTerminal は終端状態（COMPLETED、CANCELLED）かを返す。
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Cancellable は顧客にキャンセル操作を提示してよいかを返す。PENDINGのときだけtrue。
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending
}

// Reviewable はレビュー投稿を提示してよいかを返す。COMPLETEDのときだけtrue。
func (s OrderStatus) Reviewable() bool {
	return s == StatusCompleted
}
