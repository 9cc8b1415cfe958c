// Package resolve defines the boundary to the DaVinci Resolve scripting
// object graph. All capabilities are reached by walking accessor calls
// from a single Resolve handle; every accessor can report absence (a nil
// value with a nil error) because the host application owns the state
// and may change or drop it at any time.
package resolve

import "errors"

// ErrUnavailable indicates the host application could not be reached at
// all (as opposed to reachable-but-absent state such as no open project).
var ErrUnavailable = errors.New("resolve: application unavailable")

// Pages enumerates the workspace pages the host application can switch
// to. Page validation is the host's responsibility; this list exists for
// schema documentation only.
var Pages = []string{"media", "cut", "edit", "fusion", "color", "fairlight", "deliver"}

// Resolve is the root capability handle.
type Resolve interface {
	// ProjectManager returns the project-manager capability. A nil
	// manager with a nil error means the application exposed none.
	ProjectManager() (ProjectManager, error)

	// OpenPage switches the application to the named workspace page.
	// Unknown page names report false without error.
	OpenPage(name string) (bool, error)
}

// ProjectManager creates, loads, and closes projects.
type ProjectManager interface {
	// CreateProject creates and opens a project. A nil project with a
	// nil error means the host refused (for example, a name collision).
	CreateProject(name string) (Project, error)

	// LoadProject opens an existing project by name. Nil means not found.
	LoadProject(name string) (Project, error)

	// SaveProject saves the currently open project.
	SaveProject() (bool, error)

	// CloseProject closes the given project.
	CloseProject(p Project) (bool, error)

	// CurrentProject returns the open project, or nil when none is open.
	CurrentProject() (Project, error)

	// ProjectNames enumerates the projects in the current database.
	ProjectNames() ([]string, error)
}

// Project is an open project.
type Project interface {
	Name() (string, error)

	// TimelineCount returns the number of timelines in the project.
	TimelineCount() (int, error)

	// TimelineByIndex returns the timeline at the given 1-based index,
	// or nil when the index is out of range.
	TimelineByIndex(i int) (Timeline, error)

	DeleteTimeline(t Timeline) (bool, error)
	SetCurrentTimeline(t Timeline) (bool, error)

	// CurrentTimeline returns the timeline marked current, or nil.
	CurrentTimeline() (Timeline, error)

	// MediaPool returns the project's media pool, or nil.
	MediaPool() (MediaPool, error)

	// SetSetting writes a project setting (for example
	// "timelineFrameRate"). Unknown keys report false without error.
	SetSetting(key, value string) (bool, error)
}

// MediaPool is a project's media pool.
type MediaPool interface {
	// ImportMedia imports a batch of file paths. An empty result with a
	// nil error means the host imported nothing.
	ImportMedia(paths []string) ([]Clip, error)

	// CreateBin creates a folder in the media pool. The host does not
	// deduplicate names; neither does this layer.
	CreateBin(name string) (Bin, error)

	// CreateEmptyTimeline creates a timeline using the project's current
	// timeline settings. Nil means the host refused.
	CreateEmptyTimeline(name string) (Timeline, error)
}

// Timeline is a single timeline in a project.
type Timeline interface {
	Name() (string, error)

	// AddMarker places a marker at the given frame.
	AddMarker(frame int, color, note string) (bool, error)
}

// Clip is a media pool clip.
type Clip interface {
	Name() (string, error)
}

// Bin is a media pool folder.
type Bin interface {
	Name() (string, error)
}
