package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/framefold/resolve-mcp/mcp"
)

type toolDef struct {
	descriptor mcp.Tool
	method     string
	category   Category
	handler    func(ctx context.Context, sctx Context, args json.RawMessage) Outcome
}

// newTool builds a catalog entry: name is the client-facing tool name,
// method the engine method identifier the category tag is derived from.
// The input schema is reflected from A; decoding rejects unknown fields
// and a decode failure is a tool-level error, not a protocol error.
func newTool[A any](name, method, description string, fn func(ctx context.Context, sctx Context, args A) Outcome) toolDef {
	category := categoryOf(method)
	if category == CategoryUnknown {
		panic(fmt.Sprintf("tool %q: method %q matches no category", name, method))
	}
	desc := mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: reflectInputSchema[A](),
	}
	handler := func(ctx context.Context, sctx Context, raw json.RawMessage) Outcome {
		var a A
		if len(raw) > 0 {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&a); err != nil {
				return fail("invalid arguments: %v", err)
			}
		}
		return fn(ctx, sctx, a)
	}
	return toolDef{descriptor: desc, method: method, category: category, handler: handler}
}

func (e *Engine) register(defs ...toolDef) {
	for _, td := range defs {
		if _, dup := e.tools[td.descriptor.Name]; dup {
			panic(fmt.Sprintf("duplicate tool name %q", td.descriptor.Name))
		}
		e.order = append(e.order, td.descriptor.Name)
		e.tools[td.descriptor.Name] = td
	}
}

func (e *Engine) registerCatalog() {
	e.register(
		// General.
		newTool("is_running", "is_running",
			"Check whether DaVinci Resolve is running and reachable.",
			e.isRunning),
		newTool("get_current_project_name", "get_current_project_name",
			"Get the name of the currently open project.",
			e.getCurrentProjectName),
		newTool("list_timelines_tool", "get_timelines",
			"List the names of all timelines in the current project.",
			e.getTimelines),
		newTool("switch_page", "switch_page",
			"Switch the UI to the named page (media, cut, edit, fusion, color, fairlight, deliver).",
			e.switchPage),

		// Project.
		newTool("create_project", "project_create",
			"Create a new project with the given name and open it.",
			e.projectCreate),
		newTool("open_project", "project_open",
			"Open an existing project by name.",
			e.projectOpen),
		newTool("save_project", "project_save",
			"Save the currently open project.",
			e.projectSave),
		newTool("close_project", "project_close",
			"Close the currently open project.",
			e.projectClose),
		newTool("set_project_setting", "project_set_setting",
			"Set a project setting by name.",
			e.projectSetSetting),

		// Timeline.
		newTool("create_timeline", "timeline_create",
			"Create a new timeline with the given name.",
			e.timelineCreate),
		newTool("create_empty_timeline", "timeline_create_empty",
			"Create a new timeline, optionally applying frame rate, resolution, and track settings first.",
			e.timelineCreateEmpty),
		newTool("delete_timeline", "timeline_delete",
			"Delete the first timeline with the given name.",
			e.timelineDelete),
		newTool("set_current_timeline", "timeline_set_current",
			"Make the named timeline the current one.",
			e.timelineSetCurrent),
		newTool("add_marker", "timeline_add_marker",
			"Add a marker to the current timeline.",
			e.timelineAddMarker),

		// Media.
		newTool("import_media", "media_import",
			"Import a media file into the current media pool.",
			e.mediaImport),
		newTool("create_bin", "media_create_bin",
			"Create a bin in the current media pool.",
			e.mediaCreateBin),

		// Color. Routed but deliberately stubbed.
		newTool("apply_lut", "color_apply_lut",
			"Apply a LUT to the current clip.",
			stub("color_apply_lut")),
		newTool("set_color_wheel_param", "color_set_wheel_param",
			"Set a color wheel parameter on the current node.",
			stub("color_set_wheel_param")),
		newTool("add_node", "color_add_node",
			"Add a node to the current grade.",
			stub("color_add_node")),

		// Render. Routed but deliberately stubbed.
		newTool("add_to_render_queue", "render_queue_add",
			"Add the current timeline to the render queue.",
			stub("render_queue_add")),
		newTool("start_render", "render_start",
			"Start rendering the queued jobs.",
			stub("render_start")),
		newTool("get_render_status", "render_status",
			"Get the status of the render queue.",
			stub("render_status")),
	)
}

// stubArgs accepts anything; the stubbed surface does not validate.
type stubArgs map[string]any

func stub(method string) func(ctx context.Context, sctx Context, args stubArgs) Outcome {
	return func(context.Context, Context, stubArgs) Outcome {
		return fail("%s is not implemented", method)
	}
}

// reflectInputSchema reflects the typed argument struct A into the
// simplified MCP input schema. Non-object shapes (stubArgs) come out as
// an open empty object.
func reflectInputSchema[A any]() mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(A))
	if s == nil || s.Type != "object" || s.Properties == nil {
		return mcp.ToolInputSchema{
			Type:                 "object",
			Properties:           map[string]mcp.SchemaProperty{},
			AdditionalProperties: true,
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		props[el.Key] = toSchemaProperty(el.Value)
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func toSchemaProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toSchemaProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toSchemaProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}
