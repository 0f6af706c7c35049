// Package migration は埋め込みSQLファイルからローカル永続化先のスキーマを構築する。
//
// ファイル名は "000001_create_client_storage.up.sql" の形式で、先頭の番号順に
// 一度だけ適用する。適用済みファイルの内容はSHA-256で記録し、後から書き換えられた
// 場合はErrModifiedを返して起動を止める。
package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// historyTable は適用履歴を保持するテーブル名。
const historyTable = "client_schema_history"

var (
	// ErrModified は適用済みのファイルの内容が記録と異なる場合に返る。
	ErrModified = errors.New("適用済みのマイグレーションが変更されています")
	// ErrDuplicateVersion は同じ番号のファイルが複数ある場合に返る。
	ErrDuplicateVersion = errors.New("マイグレーション番号が重複しています")
)

var upFile = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.up\.sql$`)

// Step は1つのスキーマ変更。
type Step struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Migrator はデータベースにStepを順に適用する。
type Migrator struct {
	db     *sql.DB
	steps  []Step
	logger *zap.Logger
}

// Option はMigratorの設定を変更する。
type Option func(*Migrator)

// WithLogger は適用状況の出力先を設定する。
func WithLogger(l *zap.Logger) Option {
	return func(m *Migrator) {
		if l != nil {
			m.logger = l
		}
	}
}

// New はfsysのdir直下にあるSQLファイルを読み込んでMigratorを生成する。
func New(db *sql.DB, fsys fs.FS, dir string, opts ...Option) (*Migrator, error) {
	steps, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	m := &Migrator{db: db, steps: steps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load はdir直下の *.up.sql を番号順に読み込む。形式に合わないファイルは無視する。
func Load(fsys fs.FS, dir string) ([]Step, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションディレクトリの読み込みに失敗: %w", err)
	}

	seen := make(map[int]string)
	var steps []Step
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := upFile.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("%w: %s, %s", ErrDuplicateVersion, prev, e.Name())
		}
		seen[version] = e.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", e.Name(), err)
		}
		sum := sha256.Sum256(body)
		steps = append(steps, Step{
			Version:  version,
			Name:     match[2],
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

// Up は未適用のStepを適用し、適用した件数を返す。
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureHistory(ctx); err != nil {
		return 0, err
	}
	applied, err := m.history(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, st := range m.steps {
		if sum, ok := applied[st.Version]; ok {
			if sum != st.Checksum {
				return count, fmt.Errorf("%w: %06d_%s", ErrModified, st.Version, st.Name)
			}
			continue
		}
		if err := m.apply(ctx, st); err != nil {
			return count, err
		}
		count++
		m.logger.Info("スキーマを更新しました",
			zap.Int("version", st.Version),
			zap.String("name", st.Name),
		)
	}
	return count, nil
}

// Version は適用済みの最大番号を返す。未適用なら0。
func (m *Migrator) Version(ctx context.Context) (int, error) {
	if err := m.ensureHistory(ctx); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM "+historyTable).Scan(&v); err != nil {
		return 0, fmt.Errorf("スキーマ番号の取得に失敗: %w", err)
	}
	return int(v.Int64), nil
}

// Pending は未適用のStepを返す。
func (m *Migrator) Pending(ctx context.Context) ([]Step, error) {
	if err := m.ensureHistory(ctx); err != nil {
		return nil, err
	}
	applied, err := m.history(ctx)
	if err != nil {
		return nil, err
	}
	var out []Step
	for _, st := range m.steps {
		if _, ok := applied[st.Version]; !ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *Migrator) ensureHistory(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+historyTable+` (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("%s の作成に失敗: %w", historyTable, err)
	}
	return nil
}

// history は適用済みの番号とチェックサムを返す。
func (m *Migrator) history(ctx context.Context) (map[int]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM "+historyTable)
	if err != nil {
		return nil, fmt.Errorf("適用履歴の取得に失敗: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			v   int
			sum string
		)
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, fmt.Errorf("適用履歴の読み取りに失敗: %w", err)
		}
		applied[v] = sum
	}
	return applied, rows.Err()
}

// apply はStepのSQLと履歴の記録を1つのトランザクションで行う。
func (m *Migrator) apply(ctx context.Context, st Step) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, st.SQL); err != nil {
		return fmt.Errorf("%06d_%s の適用に失敗: %w", st.Version, st.Name, err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO "+historyTable+" (version, name, checksum) VALUES (?, ?, ?)",
		st.Version, st.Name, st.Checksum,
	); err != nil {
		return fmt.Errorf("適用履歴の記録に失敗: %w", err)
	}
	return tx.Commit()
}
