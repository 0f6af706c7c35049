// マーケットプレイスUIホストのエントリポイント。
// マーケットプレイスAPIを呼び出し、画面ごとのビューモデルをJSONで返す。
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/nao1215/localservices/internal/ui"
	"github.com/nao1215/localservices/pkg/config"
	"github.com/nao1215/localservices/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	server, err := ui.NewServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("UIホストの初期化に失敗", zap.Error(err))
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.Error("UIホストの終了処理に失敗", zap.Error(err))
		}
	}()

	logger.Info("UIホストを起動します",
		zap.String("addr", cfg.Addr()),
		zap.String("api", cfg.APIBaseURL),
		zap.String("storage", cfg.StorageDriver),
	)
	if err := server.Run(); err != nil {
		logger.Error("UIホストの起動に失敗", zap.Error(err))
	}
}
