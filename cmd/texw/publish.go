package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/publish"
	"github.com/eolymp/go-latex-editor/state"
)

type compiler interface {
	publish.Compiler
	publish.Downloader
}

func newCompiler(ctx context.Context, assetsDir string, log *zap.Logger) (compiler, error) {
	env := state.EnvFromContext(ctx)

	cache, err := env.Store()
	if err != nil {
		return nil, err
	}

	cfg := env.Cfg.Compile
	switch cfg.Mode {
	case "remote":
		return &publish.RemoteCompiler{BaseURL: cfg.URL, AssetsDir: assetsDir, Cache: cache, Log: log}, nil
	default:
		return &publish.LocalCompiler{Engine: cfg.Engine, AssetsDir: assetsDir, Cache: cache, Log: log}, nil
	}
}

// outcome collects dispatcher notices of a single operation.
type outcome struct {
	log      *zap.Logger
	artifact *publish.Artifact
	url      string
	err      error
}

func (o *outcome) notify(n publish.Notice) {
	switch n.Kind {
	case publish.NoticeProgress:
		o.log.Debug("Working", zap.String("stage", n.Message))
	case publish.NoticeSuccess:
		o.log.Info(n.Message)
		o.artifact, o.url = n.Artifact, n.URL
	case publish.NoticeError:
		var serr *publish.ServiceError
		if errors.As(n.Err, &serr) && len(serr.Log) > 0 {
			o.log.Debug("Compilation log", zap.String("log", serr.Log))
		}
		o.err = n.Err
	}
}

func compileDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	src, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}

	c, err := newCompiler(ctx, src.assetsDir(ctx), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, env.Cfg.Compile.Timeout)
	defer cancel()

	res := &outcome{log: log}
	d := publish.NewDispatcher(c, nil, res.notify, log)
	d.Compile(ctx, src.markup)
	d.Wait()

	if res.err != nil {
		return fmt.Errorf("unable to compile document: %w", res.err)
	}

	dest := destination(cmd)
	if len(dest) == 0 {
		dest = src.sibling(".pdf")
	}

	var out io.Writer = cmd.Root().Writer
	if dest != stdio {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
		}
		defer f.Close()
		out = f
	}

	if err := c.DownloadCachedArtifact(ctx, res.artifact, out); err != nil {
		return fmt.Errorf("unable to write document: %w", err)
	}

	log.Info("Document written", zap.String("file", dest), zap.Int("size", res.artifact.Size), zap.Bool("cached", res.artifact.Cached))
	return nil
}

func newSharer(ctx context.Context, cmd *cli.Command, log *zap.Logger) (publish.Sharer, error) {
	env := state.EnvFromContext(ctx)

	if cmd.Bool("remote") {
		if len(env.Cfg.Sharing.URL) == 0 {
			return nil, errors.New("sharing service url is not configured")
		}
		return &publish.RemoteSharer{BaseURL: env.Cfg.Sharing.URL, Token: cmd.String("token"), Log: log}, nil
	}

	s, err := env.Store()
	if err != nil {
		return nil, err
	}
	return &publish.LocalSharer{Store: s, FrontendURL: env.Cfg.Sharing.FrontendURL}, nil
}

func shareDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("share")

	id := cmd.Args().First()
	if len(id) == 0 {
		return errors.New("no document ID has been specified")
	}

	sharer, err := newSharer(ctx, cmd, log)
	if err != nil {
		return err
	}

	if cmd.Bool("revoke") {
		return revokeShare(ctx, sharer, id)
	}

	res := &outcome{log: log}
	d := publish.NewDispatcher(nil, sharer, res.notify, log)
	d.Share(ctx, id)
	d.Wait()

	if res.err != nil {
		return fmt.Errorf("unable to share document: %w", res.err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, res.url)
	return err
}

func revokeShare(ctx context.Context, sharer publish.Sharer, id string) error {
	type revoker interface {
		Revoke(ctx context.Context, docID string) error
	}

	r, ok := sharer.(revoker)
	if !ok {
		return errors.New("sharing can not be revoked")
	}

	if err := r.Revoke(ctx, id); err != nil {
		return fmt.Errorf("unable to revoke share link: %w", err)
	}

	state.EnvFromContext(ctx).Log.Info("Share link revoked", zap.String("id", id))
	return nil
}

func pruneArtifacts(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	s, err := env.Store()
	if err != nil {
		return err
	}

	age := cmd.Duration("older-than")
	n, err := s.PruneArtifacts(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}

	env.Log.Info("Compiled documents pruned", zap.Int("count", n), zap.Duration("older than", age))
	return nil
}
