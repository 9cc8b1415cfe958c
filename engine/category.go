package engine

import "strings"

// Category tags an engine method with its handler group. The tag is
// derived once when the catalog is built, never re-parsed per call.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryGeneral
	CategoryProject
	CategoryTimeline
	CategoryMedia
	CategoryColor
	CategoryRender
)

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryProject:
		return "project"
	case CategoryTimeline:
		return "timeline"
	case CategoryMedia:
		return "media"
	case CategoryColor:
		return "color"
	case CategoryRender:
		return "render"
	default:
		return "unknown"
	}
}

// generalMethods are matched exactly, ahead of any prefix rule.
var generalMethods = map[string]bool{
	"is_running":               true,
	"get_current_project_name": true,
	"get_timelines":            true,
	"switch_page":              true,
}

// categoryOf maps an engine method identifier to its category. Exact
// general names win; otherwise the prefix decides. Prefixes are
// mutually exclusive by construction of the catalog.
func categoryOf(method string) Category {
	if generalMethods[method] {
		return CategoryGeneral
	}
	switch {
	case strings.HasPrefix(method, "project_"):
		return CategoryProject
	case strings.HasPrefix(method, "timeline_"):
		return CategoryTimeline
	case strings.HasPrefix(method, "media_"):
		return CategoryMedia
	case strings.HasPrefix(method, "color_"):
		return CategoryColor
	case strings.HasPrefix(method, "render_"):
		return CategoryRender
	default:
		return CategoryUnknown
	}
}
