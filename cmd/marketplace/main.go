// マーケットプレイスのターミナルクライアントのエントリポイント。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nao1215/localservices/internal/bootstrap"
	"github.com/nao1215/localservices/internal/cli"
	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/config"
	"github.com/nao1215/localservices/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "セッションストアのオープンに失敗: %v\n", err)
		return 1
	}
	defer func() { _ = closeStore() }()

	opts := bootstrap.ClientOptions(cfg, nil, nil, cli.ExpiredNotice(os.Stderr), logger)
	client := apiclient.New(cfg.APIBaseURL, store, opts...)

	if err := cli.New(client, os.Stdout).Command().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Message(err))
		return 1
	}
	return 0
}
