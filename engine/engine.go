// Package engine dispatches named tools against the host application.
// Each call re-derives the session context, routes through an
// enumerated category tag that was fixed at catalog registration, and
// reports failure as a tool-level error result rather than a Go error.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/framefold/resolve-mcp/internal/logctx"
	"github.com/framefold/resolve-mcp/mcp"
	"github.com/framefold/resolve-mcp/resolve"
)

// ErrUnknownTool reports a tools/call naming no registered tool. The
// session layer maps it to an invalid-params RPC error.
var ErrUnknownTool = errors.New("unknown tool")

// Engine owns the tool catalog and the session context. It is driven by
// a single caller at a time; the session layer's dispatch loop is
// strictly sequential and nothing here adds parallelism, because the
// host's scripting surface is not safe for concurrent use.
type Engine struct {
	res resolve.Resolve
	log *slog.Logger

	order []string
	tools map[string]toolDef

	sctx Context
}

// New builds an Engine with the full tool catalog registered against res.
func New(res resolve.Resolve, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		res:   res,
		log:   log,
		tools: make(map[string]toolDef),
	}
	e.registerCatalog()
	return e
}

// Tools returns the catalog descriptors in registration order.
func (e *Engine) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.tools[name].descriptor)
	}
	return out
}

// Context returns the session context as of the last dispatch.
func (e *Engine) Context() Context {
	return e.sctx
}

// Dispatch runs one tool call: refresh the session context, hand the
// snapshot to the handler, and absorb whatever goes wrong into a
// tool-level error result. Only an unknown tool name surfaces as a Go
// error; a failing host call never does.
func (e *Engine) Dispatch(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	td, ok := e.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{
		ToolName: name,
		Category: td.category.String(),
	})
	e.log.DebugContext(ctx, "dispatching tool call")

	sctx := e.safeRefresh(ctx)
	e.sctx = sctx

	out := e.invoke(ctx, td, sctx, args)
	if out.Context != nil {
		e.sctx = *out.Context
	}
	if out.Result.IsError {
		e.log.InfoContext(ctx, "tool call failed", slog.String("reason", resultText(out.Result)))
	}
	return out.Result, nil
}

// invoke guards the handler: a panic out of the host boundary becomes a
// failure result so one bad call cannot take down the dispatch loop.
func (e *Engine) invoke(ctx context.Context, td toolDef, sctx Context, args json.RawMessage) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "tool handler panicked", slog.Any("panic", r))
			out = Outcome{Result: Errorf("internal error: %v", r)}
		}
	}()
	return td.handler(ctx, sctx, args)
}

// Outcome is what a handler produces: the result to return, plus an
// optional replacement session context. Only the handlers that change
// "current" pointers set Context; everyone else leaves it nil.
type Outcome struct {
	Result  *mcp.CallToolResult
	Context *Context
}

func succeed(format string, a ...any) Outcome {
	return Outcome{Result: TextResult(fmt.Sprintf(format, a...))}
}

func fail(format string, a ...any) Outcome {
	return Outcome{Result: Errorf(format, a...)}
}

// hostFailure converts an unexpected host error into a failure outcome
// carrying the underlying description.
func hostFailure(err error) Outcome {
	return Outcome{Result: Errorf("%v", err)}
}

// TextResult builds a success result with a single text block.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: s}}}
}

// Errorf builds an error result with a single text block.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}
