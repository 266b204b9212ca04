// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doctoc/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place. It is created
// fresh for every invocation and discarded at the end of the call - no
// process-wide state survives between runs.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// RunID tags every log entry of a single invocation.
	RunID uuid.UUID

	// Placeholders substitutes leftover ${...} and <...> tokens cached inside
	// pre-existing front matter entry text before it is examined for removal.
	Placeholders map[string]string

	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &LocalEnv{
		start: time.Now(),
		RunID: id,
	}
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// TagLog stamps the run identifier on the logger so every entry of this
// invocation can be told apart in shared or collected logs. Called once,
// right after the logger is prepared.
func (e *LocalEnv) TagLog() {
	if e.Log == nil {
		return
	}
	e.Log = e.Log.With(zap.Stringer("run_id", e.RunID))
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
