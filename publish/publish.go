// Package publish compiles documents into PDF and shares them through external services. Calls may be slow, so
// the Dispatcher runs them off the editing goroutine and reports results as notices.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eolymp/go-latex-editor/store"
)

// Artifact is a compiled document.
type Artifact struct {
	// Key is a SHA-256 of the markup the artifact was compiled from
	Key    string
	Size   int
	Cached bool
}

// Stage of compilation reported to progress callback.
type Stage string

const (
	StagePreparing Stage = "preparing"
	StageCompiling Stage = "compiling"
	StageDone      Stage = "done"
)

// Progress receives compilation stages, it may be nil.
type Progress func(stage Stage)

func (p Progress) report(stage Stage) {
	if p != nil {
		p(stage)
	}
}

type Compiler interface {
	CompileFromSource(ctx context.Context, markup string, progress Progress) (*Artifact, error)
}

type Downloader interface {
	DownloadCachedArtifact(ctx context.Context, artifact *Artifact, w io.Writer) error
}

type Sharer interface {
	Share(ctx context.Context, docID string) (string, error)
}

// Cache keeps compiled artifacts, implemented by store.Store.
type Cache interface {
	PutArtifact(ctx context.Context, key string, pdf []byte) error
	Artifact(ctx context.Context, key string) ([]byte, error)
}

var _ Cache = (*store.Store)(nil)

// ErrNotCached is returned when artifact is requested, but it is not in the cache.
var ErrNotCached = errors.New("artifact is not cached")

// ServiceError is a failure reported by compiler or sharing service.
type ServiceError struct {
	Status  int
	Message string
	Log     string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("service error (%d): %s", e.Status, e.Message)
	}

	return "service error: " + e.Message
}

const (
	maxErrorLines     = 5
	compilationFailed = "compilation failed"
)

// ExtractError picks error lines from compilation log: lines starting with "error:" or "!" (at most five).
func ExtractError(log string) string {
	var lines []string

	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "error:") || strings.HasPrefix(line, "!") {
			lines = append(lines, line)
		}

		if len(lines) == maxErrorLines {
			break
		}
	}

	if len(lines) == 0 {
		return compilationFailed
	}

	return strings.Join(lines, "\n")
}

// cached looks the artifact up in the cache, nil means it is not there
func cached(ctx context.Context, cache Cache, key string) *Artifact {
	if cache == nil {
		return nil
	}

	pdf, err := cache.Artifact(ctx, key)
	if err != nil {
		return nil
	}

	return &Artifact{Key: key, Size: len(pdf), Cached: true}
}

func download(ctx context.Context, cache Cache, artifact *Artifact, w io.Writer) error {
	if cache == nil || artifact == nil {
		return ErrNotCached
	}

	pdf, err := cache.Artifact(ctx, artifact.Key)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", artifact.Key, ErrNotCached)
	}

	if err != nil {
		return err
	}

	if _, err := w.Write(pdf); err != nil {
		return fmt.Errorf("unable to write artifact: %w", err)
	}

	return nil
}
