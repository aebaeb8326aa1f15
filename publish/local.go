package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/asset"
	"github.com/eolymp/go-latex-editor/store"
)

const (
	// DefaultEngine is the LaTeX engine used when none is configured
	DefaultEngine = "tectonic"

	sourceName = "document.tex"
	outputName = "document.pdf"
)

// LocalCompiler runs LaTeX engine in a temporary directory. Images referenced by the document are copied from the
// assets directory next to the source.
type LocalCompiler struct {
	Engine    string
	AssetsDir string
	Cache     Cache
	Log       *zap.Logger
}

func (c *LocalCompiler) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}

	return c.Log
}

func (c *LocalCompiler) CompileFromSource(ctx context.Context, markup string, progress Progress) (*Artifact, error) {
	key := store.ArtifactKey(markup)

	if a := cached(ctx, c.Cache, key); a != nil {
		c.log().Debug("Using cached artifact", zap.String("key", key))
		progress.report(StageDone)
		return a, nil
	}

	progress.report(StagePreparing)

	dir, err := os.MkdirTemp("", "texw-")
	if err != nil {
		return nil, fmt.Errorf("unable to create working directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, sourceName), []byte(markup), 0o644); err != nil {
		return nil, fmt.Errorf("unable to write source: %w", err)
	}

	if c.AssetsDir != "" {
		for _, a := range documentAssets(markup, c.AssetsDir, c.log()) {
			if err := writeAsset(dir, a); err != nil {
				return nil, err
			}
		}
	}

	engine := c.Engine
	if engine == "" {
		engine = DefaultEngine
	}

	progress.report(StageCompiling)

	cmd := exec.CommandContext(ctx, engine, sourceName)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("LaTeX engine %q is not available: %w", engine, err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	pdf, rerr := os.ReadFile(filepath.Join(dir, outputName))
	if err != nil || rerr != nil {
		log := string(out)
		c.log().Warn("Compilation failed", zap.String("engine", engine), zap.NamedError("exit", err), zap.NamedError("output", rerr))
		return nil, &ServiceError{Message: ExtractError(log), Log: log}
	}

	if c.Cache != nil {
		if err := c.Cache.PutArtifact(ctx, key, pdf); err != nil {
			c.log().Warn("Unable to cache artifact", zap.String("key", key), zap.Error(err))
		}
	}

	progress.report(StageDone)

	return &Artifact{Key: key, Size: len(pdf)}, nil
}

func (c *LocalCompiler) DownloadCachedArtifact(ctx context.Context, artifact *Artifact, w io.Writer) error {
	return download(ctx, c.Cache, artifact, w)
}

// documentAssets reads images referenced by markup, missing and unsupported files are skipped
func documentAssets(markup, dir string, log *zap.Logger) []*asset.Asset {
	var assets []*asset.Asset

	for _, src := range asset.References(markup) {
		a, err := asset.Read(dir, src)
		if err != nil {
			log.Warn("Unable to read asset, skipping", zap.String("src", src), zap.Error(err))
			continue
		}

		if !a.IsDocument() {
			log.Warn("Asset type is not supported, skipping", zap.String("src", src), zap.String("type", a.Kind.MIME.Value))
			continue
		}

		assets = append(assets, a)
	}

	return assets
}

func writeAsset(dir string, a *asset.Asset) error {
	name := filepath.FromSlash(a.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("asset name %q is not local", a.Name)
	}

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create asset directory: %w", err)
	}

	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return fmt.Errorf("unable to write asset %q: %w", a.Name, err)
	}

	return nil
}
