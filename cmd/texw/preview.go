package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/document"
	"github.com/eolymp/go-latex-editor/state"
	"github.com/eolymp/go-latex-editor/visual"
)

func previewDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	log := env.Log.Named("preview")
	cfg := env.Cfg.Rendering

	page := visual.NewPage(
		visual.WithRenderer(visual.Renderer{NoMathPreview: !env.Cfg.Editor.PreviewMath}),
		visual.WithThumbnails(visual.NewThumbnailer(src.assetsDir(ctx), cfg.ThumbnailWidth, log.Named("thumbnails"))),
		visual.WithStyle(cfg.HighlightStyle),
		visual.WithPageLogger(log),
	)

	doc, _, err := src.load(ctx, "preview", document.WithDefaultView(page.View))
	if err != nil {
		return err
	}
	defer doc.Close()

	dest := destination(cmd)
	if len(dest) == 0 {
		dest = src.sibling(".html")
	}

	out := cmd.Root().Writer
	if dest != stdio {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
		}
		defer f.Close()
		out = f
	}

	if err := page.Write(out, src.title(), doc.Nodes()); err != nil {
		return fmt.Errorf("unable to write preview: %w", err)
	}

	log.Info("Preview written", zap.String("file", dest), zap.Int("widgets", page.Len()))
	return nil
}
