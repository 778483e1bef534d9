package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/doc-rag/internal/interface/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "doc-rag",
		Usage: "アップロードされたドキュメントに対する RAG 質問応答サービス",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "HTTPサーバ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							newEnvFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "待ち受けポート（未指定時は SERVER_PORT）",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "ローカルファイルを取り込んで質問に回答",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					newEnvFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "取り込むファイルのパス",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "メディアタイプ（未指定時は拡張子から推定）",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照したセグメントを表示",
					},
				},
				Action: appcli.AskAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newEnvFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
