package engine

import (
	"context"
	"strings"
)

type noArgs struct{}

func (e *Engine) isRunning(ctx context.Context, _ Context, _ noArgs) Outcome {
	pm, err := e.res.ProjectManager()
	if err != nil || pm == nil {
		return fail("DaVinci Resolve is not running")
	}
	return succeed("DaVinci Resolve is running")
}

func (e *Engine) getCurrentProjectName(ctx context.Context, sctx Context, _ noArgs) Outcome {
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	name, err := sctx.Project.Name()
	if err != nil {
		return hostFailure(err)
	}
	return succeed("%s", name)
}

func (e *Engine) getTimelines(ctx context.Context, sctx Context, _ noArgs) Outcome {
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	names, out := e.timelineNames(sctx.Project)
	if out != nil {
		return *out
	}
	if len(names) == 0 {
		return succeed("No timelines available")
	}
	return succeed("Timelines: %s", strings.Join(names, ", "))
}

type switchPageArgs struct {
	Page string `json:"page" jsonschema:"description=Page to switch to (media, cut, edit, fusion, color, fairlight, deliver)"`
}

// switchPage passes the page name through verbatim. Validating known
// page names is the host's job, not this router's.
func (e *Engine) switchPage(ctx context.Context, _ Context, args switchPageArgs) Outcome {
	if args.Page == "" {
		return fail("Missing required argument: page")
	}
	ok, err := e.res.OpenPage(args.Page)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to switch to page '%s'", args.Page)
	}
	return succeed("Switched to %s page", args.Page)
}
