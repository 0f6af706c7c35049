// Package redisstore はRedisにセッションレコードを永続化する。
// 同じ利用者のセッションを複数のプロセスで共有するホスト向けの実装。
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/nao1215/localservices/pkg/session"
)

// keyPrefix はRedisキーの接頭辞。
const keyPrefix = "localservices:"

// Storage はRedisの1キーにレコードを保持するsession.Storage実装。
type Storage struct {
	client *redis.Client
	key    string
}

var _ session.Storage = (*Storage)(nil)

// Options はRedis接続設定。
type Options struct {
	// Addr は接続先（host:port）。
	Addr string
	// Password は認証パスワード。
	Password string
	// DB は使用するデータベース番号。
	DB int
}

// New はRedisクライアントを生成する。接続確認は行わない。
// 接続できない場合は最初のLoadでエラーになり、Storeはメモリのみの動作に切り替わる。
func New(opts Options) *Storage {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

// NewWithClient は既存のRedisクライアントからStorageを生成する。
func NewWithClient(client *redis.Client) *Storage {
	return &Storage{
		client: client,
		key:    keyPrefix + session.Namespace,
	}
}

// Key はレコードを保持するRedisキーを返す。
func (s *Storage) Key() string {
	return s.key
}

// Close はRedisクライアントを閉じる。
func (s *Storage) Close() error {
	return s.client.Close()
}

// Load はレコードを読み込む。
func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Redisからの読み込みに失敗: %w", err)
	}
	return data, nil
}

// Save はレコードを有効期限なしで保存する。
func (s *Storage) Save(ctx context.Context, record []byte) error {
	if err := s.client.Set(ctx, s.key, record, 0).Err(); err != nil {
		return fmt.Errorf("Redisへの保存に失敗: %w", err)
	}
	return nil
}

// Remove はレコードを削除する。
func (s *Storage) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("Redisからの削除に失敗: %w", err)
	}
	return nil
}
