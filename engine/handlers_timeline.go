package engine

import (
	"context"
	"strconv"

	"github.com/framefold/resolve-mcp/resolve"
)

type timelineNameArgs struct {
	Name string `json:"name" jsonschema:"description=Timeline name"`
}

func (e *Engine) timelineCreate(ctx context.Context, sctx Context, args timelineNameArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	if sctx.MediaPool == nil {
		return fail("No media pool available")
	}
	tl, err := sctx.MediaPool.CreateEmptyTimeline(args.Name)
	if err != nil {
		return hostFailure(err)
	}
	if tl == nil {
		return fail("Failed to create timeline '%s'", args.Name)
	}
	return succeed("Created timeline '%s'", args.Name)
}

type createEmptyTimelineArgs struct {
	Name             string `json:"name" jsonschema:"description=Timeline name"`
	FrameRate        string `json:"frame_rate,omitempty" jsonschema:"description=Timeline frame rate, e.g. 24 or 29.97"`
	ResolutionWidth  int    `json:"resolution_width,omitempty" jsonschema:"description=Timeline width in pixels"`
	ResolutionHeight int    `json:"resolution_height,omitempty" jsonschema:"description=Timeline height in pixels"`
	StartTimecode    string `json:"start_timecode,omitempty" jsonschema:"description=Start timecode, e.g. 01:00:00:00"`
	VideoTracks      int    `json:"video_tracks,omitempty" jsonschema:"description=Number of video tracks"`
	AudioTracks      int    `json:"audio_tracks,omitempty" jsonschema:"description=Number of audio tracks"`
}

// timelineCreateEmpty applies any requested settings as project settings
// first, the only lever the scripting surface offers, then creates the
// timeline. The new timeline does not become current.
func (e *Engine) timelineCreateEmpty(ctx context.Context, sctx Context, args createEmptyTimelineArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	if sctx.MediaPool == nil {
		return fail("No media pool available")
	}

	settings := []struct {
		key   string
		value string
	}{
		{"timelineFrameRate", args.FrameRate},
		{"timelineResolutionWidth", intSetting(args.ResolutionWidth)},
		{"timelineResolutionHeight", intSetting(args.ResolutionHeight)},
		{"timelineStartTimecode", args.StartTimecode},
		{"timelineVideoTrackCount", intSetting(args.VideoTracks)},
		{"timelineAudioTrackCount", intSetting(args.AudioTracks)},
	}
	for _, s := range settings {
		if s.value == "" {
			continue
		}
		ok, err := sctx.Project.SetSetting(s.key, s.value)
		if err != nil {
			return hostFailure(err)
		}
		if !ok {
			return fail("Failed to apply setting '%s'", s.key)
		}
	}

	tl, err := sctx.MediaPool.CreateEmptyTimeline(args.Name)
	if err != nil {
		return hostFailure(err)
	}
	if tl == nil {
		return fail("Failed to create timeline '%s'", args.Name)
	}
	return succeed("Created timeline '%s'", args.Name)
}

func intSetting(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func (e *Engine) timelineDelete(ctx context.Context, sctx Context, args timelineNameArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	tl, out := e.findTimeline(sctx.Project, args.Name)
	if out != nil {
		return *out
	}
	if tl == nil {
		return fail("Timeline '%s' not found", args.Name)
	}
	ok, err := sctx.Project.DeleteTimeline(tl)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to delete timeline '%s'", args.Name)
	}
	return succeed("Deleted timeline '%s'", args.Name)
}

func (e *Engine) timelineSetCurrent(ctx context.Context, sctx Context, args timelineNameArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	if sctx.Project == nil {
		return fail("No project is currently open")
	}
	tl, out := e.findTimeline(sctx.Project, args.Name)
	if out != nil {
		return *out
	}
	if tl == nil {
		return fail("Timeline '%s' not found", args.Name)
	}
	ok, err := sctx.Project.SetCurrentTimeline(tl)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to set current timeline to '%s'", args.Name)
	}
	// The context pointer moves only on confirmed success.
	next := sctx
	next.Timeline = tl
	out2 := succeed("Set current timeline to '%s'", args.Name)
	out2.Context = &next
	return out2
}

type addMarkerArgs struct {
	Frame int    `json:"frame,omitempty" jsonschema:"description=Frame to place the marker at"`
	Color string `json:"color,omitempty" jsonschema:"description=Marker color,default=Blue"`
	Note  string `json:"note" jsonschema:"description=Marker note text"`
}

func (e *Engine) timelineAddMarker(ctx context.Context, sctx Context, args addMarkerArgs) Outcome {
	if sctx.Timeline == nil {
		return fail("No timeline is currently active")
	}
	frame := args.Frame
	if frame <= 0 {
		frame = 1
	}
	color := args.Color
	if color == "" {
		color = "Blue"
	}
	ok, err := sctx.Timeline.AddMarker(frame, color, args.Note)
	if err != nil {
		return hostFailure(err)
	}
	if !ok {
		return fail("Failed to add marker at frame %d", frame)
	}
	return succeed("Added %s marker at frame %d", color, frame)
}

// findTimeline scans the project's timelines by 1-based index and
// returns the first one whose name matches exactly. Names are not
// unique in the host; first index wins on ties. A nil timeline with a
// nil outcome means not found.
func (e *Engine) findTimeline(p resolve.Project, name string) (resolve.Timeline, *Outcome) {
	count, err := p.TimelineCount()
	if err != nil {
		out := hostFailure(err)
		return nil, &out
	}
	for i := 1; i <= count; i++ {
		tl, err := p.TimelineByIndex(i)
		if err != nil {
			out := hostFailure(err)
			return nil, &out
		}
		if tl == nil {
			continue
		}
		tlName, err := tl.Name()
		if err != nil {
			out := hostFailure(err)
			return nil, &out
		}
		if tlName == name {
			return tl, nil
		}
	}
	return nil, nil
}

// timelineNames collects every timeline name by 1-based index scan.
func (e *Engine) timelineNames(p resolve.Project) ([]string, *Outcome) {
	count, err := p.TimelineCount()
	if err != nil {
		out := hostFailure(err)
		return nil, &out
	}
	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		tl, err := p.TimelineByIndex(i)
		if err != nil {
			out := hostFailure(err)
			return nil, &out
		}
		if tl == nil {
			continue
		}
		name, err := tl.Name()
		if err != nil {
			out := hostFailure(err)
			return nil, &out
		}
		names = append(names, name)
	}
	return names, nil
}
