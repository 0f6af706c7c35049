package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// storageTimeout は永続化処理1回あたりの上限時間。
const storageTimeout = 2 * time.Second

// Session は認証セッションのスナップショット。
// Token、Username、Roleは常に揃って存在するか、揃って存在しない。
type Session struct {
	// Token はBearerスキームで送信する不透明なトークン。
	Token string `json:"token"`
	// Username は認証済みユーザー名。
	Username string `json:"username"`
	// Role は認証済みユーザーのロール。
	Role Role `json:"role"`
}

// Authenticated はトークンを保持しているかを返す。
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// complete は3つのフィールドがすべて揃っているかを返す。
func (s Session) complete() bool {
	return s.Token != "" && s.Username != "" && s.Role != RoleNone
}

// record は永続化するレコードのエンベロープ。
type record struct {
	State   Session `json:"state"`
	Version int     `json:"version"`
}

// Store は現在の利用者のセッションを保持する。
// 変更操作は永続化も含めてロック内で完了するため、
// 呼び出しから戻った時点でメモリと永続化先は一致している。
type Store struct {
	mu      sync.RWMutex
	current Session
	storage Storage
	// degraded は永続化に失敗してメモリのみで動作している状態を表す。
	degraded bool
	logger   *zap.Logger
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithLogger はStoreが使用するロガーを設定する。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open は永続化先からセッションを復元してStoreを生成する。
// storageがnilの場合はメモリのみで動作する。
// 永続化先の読み込みに失敗した場合も未認証状態のメモリのみのStoreとして生成し、エラーは返さない。
func Open(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if storage == nil {
		s.degraded = true
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	data, err := storage.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		return s
	case err != nil:
		s.degrade("セッションの読み込みに失敗", err)
		return s
	}

	restored, err := decodeRecord(data)
	if err != nil {
		s.logger.Warn("永続化されたセッションが不正なため破棄します", zap.Error(err))
		return s
	}
	s.current = restored
	return s
}

// decodeRecord は永続化レコードをSessionに変換する。
// 3つのフィールドが揃っていないレコードは未認証として扱う。
func decodeRecord(data []byte) (Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, fmt.Errorf("セッションレコードのデシリアライズに失敗: %w", err)
	}
	if !rec.State.complete() {
		return Session{}, nil
	}
	return rec.State, nil
}

// SetAuth はトークン、ユーザー名、ロールを一括で置き換え、永続化する。
// トークンの形式は検証しない。トークン・ユーザー名が空、またはロールがRoleNoneの場合は
// 部分的な状態を作らないためClearAuthとして扱う。
func (s *Store) SetAuth(token, username string, role Role) {
	next := Session{Token: token, Username: username, Role: role}
	if !next.complete() {
		s.ClearAuth()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next
	s.persist(next)
}

// ClearAuth は3つのフィールドを一括で未設定に戻し、永続化されたレコードを削除する。
// メモリのみで動作している場合も削除だけは試み、古いセッションが再起動後に復元されないようにする。
func (s *Store) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if s.storage == nil {
		return
	}
	if err := s.remove(); err != nil && !s.degraded {
		s.degrade("セッションの削除に失敗", err)
	}
}

// IsAuthenticated はトークンを保持しているかを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Authenticated()
}

// Snapshot は現在のセッションのコピーを返す。
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token は現在のトークンを返す。未認証の場合は空文字列。
func (s *Store) Token() string {
	return s.Snapshot().Token
}

// Username は現在のユーザー名を返す。未認証の場合は空文字列。
func (s *Store) Username() string {
	return s.Snapshot().Username
}

// Role は現在のロールを返す。未認証の場合はRoleNone。
func (s *Store) Role() Role {
	return s.Snapshot().Role
}

// Persistent は永続化先が有効に機能しているかを返す。
func (s *Store) Persistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.degraded
}

// persist はセッションを永続化する。呼び出し側で書き込みロックを保持していること。
func (s *Store) persist(sess Session) {
	if s.degraded {
		return
	}

	data, err := json.Marshal(record{State: sess})
	if err != nil {
		s.degrade("セッションのシリアライズに失敗", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, data); err != nil {
		s.degrade("セッションの保存に失敗", err)
	}
}

// degrade は永続化を諦めてメモリのみの動作に切り替える。
// 永続化先に残った以前のレコードが現在の状態と食い違わないよう、削除を一度だけ試みる。
// 呼び出し側で書き込みロックを保持していること。
func (s *Store) degrade(msg string, err error) {
	s.degraded = true
	s.logger.Warn(msg+"。以降はメモリのみで動作します", zap.Error(err))
	if s.storage == nil {
		return
	}
	if err := s.remove(); err != nil {
		s.logger.Warn("永続化されたセッションを削除できませんでした", zap.Error(err))
	}
}

// remove は永続化されたレコードを削除する。
func (s *Store) remove() error {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s.storage.Remove(ctx)
}
