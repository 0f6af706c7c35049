// Package sqlitestore はローカルのSQLiteファイルにセッションレコードを永続化する。
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/localservices/pkg/migration"
	"github.com/nao1215/localservices/pkg/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Storage はclient_storageテーブルの1行にレコードを保持するsession.Storage実装。
type Storage struct {
	db        *sql.DB
	namespace string
	schema    *migration.Migrator
}

var _ session.Storage = (*Storage)(nil)

// Open はpathのSQLiteファイルを開き、スキーマを適用してStorageを生成する。
func Open(ctx context.Context, path string, logger *zap.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteへの書き込みは1接続に揃える
	db.SetMaxOpenConns(1)

	m, err := migration.New(db, migrations, "migrations", migration.WithLogger(logger))
	if err == nil {
		_, err = m.Up(ctx)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Storage{db: db, namespace: session.Namespace, schema: m}, nil
}

// SchemaVersion は適用済みのスキーマ番号を返す。
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	return s.schema.Version(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Storage) Close() error {
	return s.db.Close()
}

// Load はレコードを読み込む。
func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM client_storage WHERE namespace = ?", s.namespace,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("セッションレコードの取得に失敗: %w", err)
	}
	return []byte(value), nil
}

// Save はレコードを上書き保存する。
func (s *Storage) Save(ctx context.Context, record []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_storage (namespace, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(namespace) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.namespace, string(record))
	if err != nil {
		return fmt.Errorf("セッションレコードの保存に失敗: %w", err)
	}
	return nil
}

// Remove はレコードを削除する。
func (s *Storage) Remove(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM client_storage WHERE namespace = ?", s.namespace,
	); err != nil {
		return fmt.Errorf("セッションレコードの削除に失敗: %w", err)
	}
	return nil
}
