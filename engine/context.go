package engine

import (
	"context"
	"log/slog"

	"github.com/framefold/resolve-mcp/resolve"
)

// Context is the per-call snapshot of where the host application
// currently stands. MediaPool and Timeline are derived from Project and
// are never present without it.
type Context struct {
	Project   resolve.Project
	MediaPool resolve.MediaPool
	Timeline  resolve.Timeline
}

// safeRefresh shields the dispatch loop from a panicking host binding;
// anything thrown during refresh degrades to an empty context.
func (e *Engine) safeRefresh(ctx context.Context) (sctx Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "refresh panicked", slog.Any("panic", r))
			sctx = Context{}
		}
	}()
	return e.refresh(ctx)
}

// refresh re-derives the session context wholesale from the host. The
// host is authoritative and a human may be driving it concurrently, so
// the previous snapshot is discarded rather than trusted. refresh never
// fails: every error degrades to absent.
func (e *Engine) refresh(ctx context.Context) Context {
	pm, err := e.res.ProjectManager()
	if err != nil {
		e.log.DebugContext(ctx, "refresh: project manager unavailable", slog.String("err", err.Error()))
		return Context{}
	}
	if pm == nil {
		return Context{}
	}

	project, err := pm.CurrentProject()
	if err != nil {
		e.log.DebugContext(ctx, "refresh: current project unavailable", slog.String("err", err.Error()))
		return Context{}
	}
	if project == nil {
		return Context{}
	}

	sctx := Context{Project: project}

	// Media pool and current timeline are independent; either may be
	// absent without affecting the other.
	if pool, err := project.MediaPool(); err != nil {
		e.log.DebugContext(ctx, "refresh: media pool unavailable", slog.String("err", err.Error()))
	} else {
		sctx.MediaPool = pool
	}
	if tl, err := project.CurrentTimeline(); err != nil {
		e.log.DebugContext(ctx, "refresh: current timeline unavailable", slog.String("err", err.Error()))
	} else {
		sctx.Timeline = tl
	}
	return sctx
}
