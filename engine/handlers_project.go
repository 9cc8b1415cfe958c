package engine

import (
	"context"

	"github.com/framefold/resolve-mcp/resolve"
)

type projectNameArgs struct {
	Name string `json:"name" jsonschema:"description=Project name"`
}

func (e *Engine) projectCreate(ctx context.Context, _ Context, args projectNameArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	pm, out := e.projectManager()
	if out != nil {
		return *out
	}
	p, err := pm.CreateProject(args.Name)
	if err != nil {
		return hostFailure(err)
	}
	if p == nil {
		return fail("Failed to create project '%s'", args.Name)
	}
	out2 := succeed("Created project '%s'", args.Name)
	out2.Context = e.contextFor(p)
	return out2
}

func (e *Engine) projectOpen(ctx context.Context, _ Context, args projectNameArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	pm, out := e.projectManager()
	if out != nil {
		return *out
	}
	p, err := pm.LoadProject(args.Name)
	if err != nil {
		return hostFailure(err)
	}
	if p == nil {
		return fail("Failed to open project '%s'", args.Name)
	}
	out2 := succeed("Opened project '%s'", args.Name)
	out2.Context = e.contextFor(p)
	return out2
}

func (e *Engine) projectSave(ctx context.Context, sctx Context, _ noArgs) Outcome {
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	pm, out := e.projectManager()
	if out != nil {
		return *out
	}
	ok, err := pm.SaveProject()
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to save project")
	}
	return succeed("Project saved")
}

func (e *Engine) projectClose(ctx context.Context, sctx Context, _ noArgs) Outcome {
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	name, err := sctx.Project.Name()
	if err != nil {
		return hostFailure(err)
	}
	pm, out := e.projectManager()
	if out != nil {
		return *out
	}
	ok, err := pm.CloseProject(sctx.Project)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to close project '%s'", name)
	}
	out2 := succeed("Closed project '%s'", name)
	out2.Context = &Context{}
	return out2
}

type setProjectSettingArgs struct {
	SettingName  string `json:"setting_name" jsonschema:"description=Setting key"`
	SettingValue string `json:"setting_value" jsonschema:"description=Setting value"`
}

func (e *Engine) projectSetSetting(ctx context.Context, sctx Context, args setProjectSettingArgs) Outcome {
	if args.SettingName == "" {
		return fail("Missing required argument: setting_name")
	}
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	ok, err := sctx.Project.SetSetting(args.SettingName, args.SettingValue)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to set setting '%s'", args.SettingName)
	}
	return succeed("Set setting '%s' to '%s'", args.SettingName, args.SettingValue)
}

// projectManager fetches the manager capability, converting absence or
// failure into a failure outcome.
func (e *Engine) projectManager() (resolve.ProjectManager, *Outcome) {
	pm, err := e.res.ProjectManager()
	if err != nil {
		out := hostFailure(err)
		return nil, &out
	}
	if pm == nil {
		out := fail("DaVinci Resolve is not running")
		return nil, &out
	}
	return pm, nil
}

// contextFor derives the post-mutation session context from a freshly
// created or opened project, so the very next call in the session can
// rely on it without waiting for the next refresh.
func (e *Engine) contextFor(p resolve.Project) *Context {
	sctx := &Context{Project: p}
	if pool, err := p.MediaPool(); err == nil {
		sctx.MediaPool = pool
	}
	if tl, err := p.CurrentTimeline(); err == nil {
		sctx.Timeline = tl
	}
	return sctx
}
