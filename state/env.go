// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/config"
	"github.com/eolymp/go-latex-editor/store"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Log *zap.Logger

	store         *store.Store
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now(), Log: zap.NewNop()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Store opens document store on first use.
func (e *LocalEnv) Store() (*store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}

	if e.Cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}

	s, err := store.Open(e.Cfg.Store.Path, e.Log.Named("store"))
	if err != nil {
		return nil, err
	}

	e.store = s
	return s, nil
}

// Close releases resources opened during program run.
func (e *LocalEnv) Close() error {
	if e.store == nil {
		return nil
	}

	s := e.store
	e.store = nil

	return s.Close()
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
