package event

import "time"

// Family はリソースファミリー（同じエンティティを扱うエンドポイント群）を表す。
type Family string

const (
	// FamilyCategories はカテゴリを表す。
	FamilyCategories Family = "categories"
	// FamilyServices はサービスを表す。
	FamilyServices Family = "services"
	// FamilyOrders は注文を表す。
	FamilyOrders Family = "orders"
	// FamilyReviews はレビューを表す。
	FamilyReviews Family = "reviews"
	// FamilyUsers はユーザーを表す。
	FamilyUsers Family = "users"
	// FamilyProviderStats は事業者向けの集計値を表す。
	FamilyProviderStats Family = "provider-stats"
	// FamilyAdminStats は管理者向けの集計値を表す。
	FamilyAdminStats Family = "admin-stats"
)

// Operation は変更操作の種類を表す。
type Operation string

const (
	// OperationCreated は作成を表す。
	OperationCreated Operation = "Created"
	// OperationUpdated は更新を表す。
	OperationUpdated Operation = "Updated"
	// OperationDeleted は削除（注文の場合はキャンセル）を表す。
	OperationDeleted Operation = "Deleted"
	// OperationStatusChanged はステータスまたは有効フラグの変更を表す。
	OperationStatusChanged Operation = "StatusChanged"
	// OperationRoleChanged はユーザーロールの変更を表す。
	OperationRoleChanged Operation = "RoleChanged"
)

// derived はファミリーごとに、そのファミリーから集計される読み取りの一覧。
var derived = map[Family][]Family{
	FamilyServices: {FamilyProviderStats, FamilyAdminStats},
	FamilyOrders:   {FamilyProviderStats, FamilyAdminStats},
	FamilyReviews:  {FamilyServices},
	FamilyUsers:    {FamilyAdminStats},
}

// Mutation はサーバー上のリソースに対する変更が成功したことを表す通知。
// どのキャッシュを捨てるかは購読側が決める。
type Mutation struct {
	// ID は通知の一意識別子（UUID）。
	ID string `json:"id"`
	// Family は変更されたリソースファミリー。
	Family Family `json:"family"`
	// Operation は変更操作の種類。
	Operation Operation `json:"operation"`
	// ResourceID は変更されたリソースのID。作成時はサーバーが採番したID。
	ResourceID int64 `json:"resource_id"`
	// OccurredAt は変更が成功した日時。
	OccurredAt time.Time `json:"occurred_at"`
}

// Invalidates はこの変更によって古くなる読み取りのファミリーを返す。
// 変更されたファミリー自身を先頭に含む。
func (m Mutation) Invalidates() []Family {
	families := []Family{m.Family}
	return append(families, derived[m.Family]...)
}
