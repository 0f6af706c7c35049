// Package bootstrap は設定値からセッションストアとAPIクライアントを組み立てる。
// UIホストとターミナルクライアントの両方から使用する。
package bootstrap

import (
	"context"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/config"
	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/session"
	"github.com/nao1215/localservices/pkg/session/redisstore"
	"github.com/nao1215/localservices/pkg/session/sqlitestore"
)

// OpenStorage は設定のSTORAGE_DRIVERに応じてセッションの永続化先を開く。
// 返り値のclose関数はプロセス終了時に呼び出す。
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Storage, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		st, err := sqlitestore.Open(ctx, cfg.StoragePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("SQLiteストレージのオープンに失敗: %w", err)
		}
		return st, st.Close, nil
	case config.StorageRedis:
		st := redisstore.New(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return st, st.Close, nil
	case config.StorageMemory:
		return session.NewMemoryStorage(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("未知のストレージドライバ: %q", cfg.StorageDriver)
	}
}

// OpenStore は永続化先を開き、保存済みのセッションを復元したストアを返す。
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session.Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	storage, closeStorage, err := OpenStorage(ctx, cfg, logger.Named("storage"))
	if err != nil {
		return nil, nil, err
	}
	return session.Open(storage, session.WithLogger(logger.Named("session"))), closeStorage, nil
}

// ClientOptions は設定値をAPIクライアントのオプションに変換する。
// busとregとnavがnilの場合は対応するオプションを付けない。
func ClientOptions(cfg *config.Config, bus *event.Bus, reg prometheus.Registerer, nav apiclient.Navigator, logger *zap.Logger) []apiclient.Option {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(logger.Named("apiclient")),
	}
	if bus != nil {
		opts = append(opts, apiclient.WithBus(bus))
	}
	if nav != nil {
		opts = append(opts, apiclient.WithNavigator(nav))
	}
	if reg != nil {
		opts = append(opts, apiclient.WithMetrics(reg))
	}
	if cfg.MaxRequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.MaxRequestsPerSecond))
		opts = append(opts, apiclient.WithRateLimit(cfg.MaxRequestsPerSecond, burst))
	}
	if cfg.TracingEnabled {
		opts = append(opts, apiclient.WithTracing())
	}
	return opts
}
