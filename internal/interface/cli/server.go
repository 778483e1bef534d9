package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/internal/interface/api"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	port := appCtx.Config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	server := newServer(appCtx)
	return server.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}

func newServer(appCtx *AppContext) *api.Server {
	c := appCtx.Container
	return api.NewServer(
		c.IngestService,
		c.AskService,
		c.Registry,
		api.WithServerLogger(appCtx.Logger()),
		api.WithUploadMaxBytes(appCtx.Config.Server.UploadMaxBytes),
	)
}
