package session

import (
	"context"
	"errors"
	"sync"
)

// Namespace はセッションレコードを永続化するときの固定キー。
const Namespace = "auth-storage"

// ErrNotFound は永続化されたレコードが存在しないことを表す。
var ErrNotFound = errors.New("セッションレコードが存在しません")

// Storage はセッションレコードの永続化先を抽象化する。
// 実装は単一のレコードだけを扱い、キーは実装側で固定する。
type Storage interface {
	// Load は永続化されたレコードを返す。存在しない場合はErrNotFoundを返す。
	Load(ctx context.Context) ([]byte, error)
	// Save はレコードを上書き保存する。
	Save(ctx context.Context, record []byte) error
	// Remove はレコードを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context) error
}

// MemoryStorage はプロセス内メモリにレコードを保持するStorage実装。
// テストおよびメモリのみで動作させる場合に使用する。
type MemoryStorage struct {
	mu     sync.Mutex
	record []byte
}

// NewMemoryStorage は空のMemoryStorageを生成する。
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load は保持しているレコードのコピーを返す。
func (m *MemoryStorage) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.record...), nil
}

// Save はレコードのコピーを保持する。
func (m *MemoryStorage) Save(_ context.Context, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record = append([]byte(nil), record...)
	return nil
}

// Remove は保持しているレコードを破棄する。
func (m *MemoryStorage) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record = nil
	return nil
}
