package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion/parser"
)

// AskAction はローカルファイルを取り込んで質問に回答するコマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	mediaType := cmd.String("type")
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	return runAsk(ctx, appCtx, askOptions{
		filePath:    filePath,
		mediaType:   mediaType,
		question:    question,
		showSources: showSources,
	}, os.Stdout)
}

type askOptions struct {
	filePath    string
	mediaType   string
	question    string
	showSources bool
}

// runAsk はファイルの取り込みと質問応答を実行し、回答を out に書き出す
func runAsk(ctx context.Context, appCtx *AppContext, opts askOptions, out io.Writer) error {
	logger := appCtx.Logger()

	f, err := os.Open(opts.filePath)
	if err != nil {
		return fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("ファイル情報の取得に失敗: %w", err)
	}

	mediaType := opts.mediaType
	if mediaType == "" {
		mediaType = parser.MediaTypeForFileName(opts.filePath)
	}

	result, err := appCtx.Container.IngestService.Ingest(ctx, document.File{
		Name:      filepath.Base(opts.filePath),
		MediaType: mediaType,
		Size:      info.Size(),
		Content:   f,
	})
	if err != nil {
		return fmt.Errorf("ファイルの取り込みに失敗: %w", err)
	}

	logger.Info("ファイルを取り込みました",
		"documentID", result.DocumentID,
		"segments", result.Segments,
	)

	answer, err := appCtx.Container.AskService.Ask(ctx, coreask.AskParams{
		DocumentID: result.DocumentID,
		Question:   opts.question,
	})
	if err != nil {
		return fmt.Errorf("質問応答に失敗: %w", err)
	}

	fmt.Fprintln(out, answer.Answer)

	if opts.showSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out, "\n--- 参照セグメント ---")
		for i, src := range answer.Sources {
			fmt.Fprintf(out, "[%d] segment #%d スコア: %.4f\n", i+1, src.Ordinal, src.Score)
		}
	}

	return nil
}
