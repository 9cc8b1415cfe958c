package sim

import (
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/framefold/resolve-mcp/resolve"
)

// settingKeys enumerates the project settings the emulation understands.
// Writes to any other key report false, the way the host application
// rejects unknown setting names.
var settingKeys = map[string]bool{
	"timelineFrameRate":        true,
	"timelineResolutionWidth":  true,
	"timelineResolutionHeight": true,
	"timelineStartTimecode":    true,
	"timelineVideoTrackCount":  true,
	"timelineAudioTrackCount":  true,
	"colorScienceMode":         true,
}

// Host is the root of the emulated object graph. It implements
// resolve.Resolve and guards all state with a single mutex: the real
// scripting API is not documented as safe for concurrent use, and
// neither is the emulation's caller expected to provide any.
type Host struct {
	mu sync.Mutex

	manager *projectManager
	page    string

	defaultFrameRate string
	defaultWidth     int
	defaultHeight    int
}

// Option customizes a Host.
type Option func(*Host)

// WithProjectDatabase seeds the names present in the project database.
// None of them is open until loaded.
func WithProjectDatabase(names ...string) Option {
	return func(h *Host) {
		h.manager.known = append([]string(nil), names...)
	}
}

// WithTimelineDefaults sets the settings new projects start out with.
func WithTimelineDefaults(frameRate string, width, height int) Option {
	return func(h *Host) {
		h.defaultFrameRate = frameRate
		h.defaultWidth = width
		h.defaultHeight = height
	}
}

// New constructs a Host seeded with the sample project database the
// application ships with.
func New(opts ...Option) *Host {
	h := &Host{
		page:             "media",
		defaultFrameRate: "24",
		defaultWidth:     1920,
		defaultHeight:    1080,
	}
	h.manager = &projectManager{
		host:  h,
		known: []string{"Sample Project", "Test Timeline", "Demo Workflow"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProjectManager implements resolve.Resolve.
func (h *Host) ProjectManager() (resolve.ProjectManager, error) {
	return h.manager, nil
}

// OpenPage implements resolve.Resolve. Unknown pages report false.
func (h *Host) OpenPage(name string) (bool, error) {
	known := false
	for _, p := range resolve.Pages {
		if p == name {
			known = true
			break
		}
	}
	if !known {
		return false, nil
	}
	h.mu.Lock()
	h.page = name
	h.mu.Unlock()
	return true, nil
}

// CurrentPage reports the page last opened. Test hook; the protocol
// surface never reads it back.
func (h *Host) CurrentPage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page
}

type projectManager struct {
	host    *Host
	known   []string
	current *project
}

func (pm *projectManager) CreateProject(name string) (resolve.Project, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()

	for _, n := range pm.known {
		if n == name {
			// Name collision: the host refuses without raising.
			return nil, nil
		}
	}
	pm.known = append(pm.known, name)
	p := pm.newProject(name)
	pm.current = p
	return p, nil
}

func (pm *projectManager) LoadProject(name string) (resolve.Project, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()

	for _, n := range pm.known {
		if n == name {
			p := pm.newProject(name)
			// Existing projects come back with one timeline, emulating
			// previously saved work.
			t := p.newTimeline(name + " Timeline")
			p.timelines = append(p.timelines, t)
			p.current = t
			pm.current = p
			return p, nil
		}
	}
	return nil, nil
}

func (pm *projectManager) SaveProject() (bool, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()
	return pm.current != nil, nil
}

func (pm *projectManager) CloseProject(p resolve.Project) (bool, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()

	sp, ok := p.(*project)
	if !ok || sp == nil {
		return false, nil
	}
	if pm.current == sp {
		pm.current = nil
	}
	return true, nil
}

func (pm *projectManager) CurrentProject() (resolve.Project, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()
	if pm.current == nil {
		return nil, nil
	}
	return pm.current, nil
}

func (pm *projectManager) ProjectNames() ([]string, error) {
	pm.host.mu.Lock()
	defer pm.host.mu.Unlock()
	return append([]string(nil), pm.known...), nil
}

// newProject assumes the host lock is held.
func (pm *projectManager) newProject(name string) *project {
	p := &project{
		host: pm.host,
		id:   uuid.NewString(),
		name: name,
		settings: map[string]string{
			"timelineFrameRate":        pm.host.defaultFrameRate,
			"timelineResolutionWidth":  strconv.Itoa(pm.host.defaultWidth),
			"timelineResolutionHeight": strconv.Itoa(pm.host.defaultHeight),
		},
	}
	p.pool = &mediaPool{project: p}
	return p
}

type project struct {
	host *Host

	id       string
	name     string
	settings map[string]string

	// Ordered; duplicate names are allowed, matching the host.
	timelines []*timeline
	current   *timeline

	pool *mediaPool
}

func (p *project) Name() (string, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.name, nil
}

func (p *project) TimelineCount() (int, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return len(p.timelines), nil
}

func (p *project) TimelineByIndex(i int) (resolve.Timeline, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	if i < 1 || i > len(p.timelines) {
		return nil, nil
	}
	return p.timelines[i-1], nil
}

func (p *project) DeleteTimeline(t resolve.Timeline) (bool, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()

	st, ok := t.(*timeline)
	if !ok || st == nil {
		return false, nil
	}
	for i, have := range p.timelines {
		if have == st {
			p.timelines = append(p.timelines[:i], p.timelines[i+1:]...)
			if p.current == st {
				p.current = nil
			}
			return true, nil
		}
	}
	return false, nil
}

func (p *project) SetCurrentTimeline(t resolve.Timeline) (bool, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()

	st, ok := t.(*timeline)
	if !ok || st == nil {
		return false, nil
	}
	for _, have := range p.timelines {
		if have == st {
			p.current = st
			return true, nil
		}
	}
	return false, nil
}

func (p *project) CurrentTimeline() (resolve.Timeline, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	return p.current, nil
}

func (p *project) MediaPool() (resolve.MediaPool, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.pool, nil
}

func (p *project) SetSetting(key, value string) (bool, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	if !settingKeys[key] {
		return false, nil
	}
	p.settings[key] = value
	return true, nil
}

// newTimeline assumes the host lock is held.
func (p *project) newTimeline(name string) *timeline {
	return &timeline{
		host:      p.host,
		id:        uuid.NewString(),
		name:      name,
		frameRate: p.settings["timelineFrameRate"],
	}
}

type mediaPool struct {
	project *project
	bins    []*bin
	clips   []*clip
}

func (mp *mediaPool) ImportMedia(paths []string) ([]resolve.Clip, error) {
	mp.project.host.mu.Lock()
	defer mp.project.host.mu.Unlock()

	var out []resolve.Clip
	for _, path := range paths {
		if path == "" {
			continue
		}
		c := &clip{
			host: mp.project.host,
			name: filepath.Base(path),
			path: path,
		}
		mp.clips = append(mp.clips, c)
		out = append(out, c)
	}
	return out, nil
}

func (mp *mediaPool) CreateBin(name string) (resolve.Bin, error) {
	mp.project.host.mu.Lock()
	defer mp.project.host.mu.Unlock()

	// No dedup: two calls with the same name mean two bins.
	b := &bin{host: mp.project.host, name: name}
	mp.bins = append(mp.bins, b)
	return b, nil
}

func (mp *mediaPool) CreateEmptyTimeline(name string) (resolve.Timeline, error) {
	mp.project.host.mu.Lock()
	defer mp.project.host.mu.Unlock()

	t := mp.project.newTimeline(name)
	mp.project.timelines = append(mp.project.timelines, t)
	return t, nil
}

// BinCount reports the number of bins. Test hook.
func (mp *mediaPool) BinCount() int {
	mp.project.host.mu.Lock()
	defer mp.project.host.mu.Unlock()
	return len(mp.bins)
}

type timeline struct {
	host *Host

	id        string
	name      string
	frameRate string
	markers   []marker
}

type marker struct {
	frame int
	color string
	note  string
}

func (t *timeline) Name() (string, error) {
	t.host.mu.Lock()
	defer t.host.mu.Unlock()
	return t.name, nil
}

func (t *timeline) AddMarker(frame int, color, note string) (bool, error) {
	t.host.mu.Lock()
	defer t.host.mu.Unlock()
	t.markers = append(t.markers, marker{frame: frame, color: color, note: note})
	return true, nil
}

// MarkerCount reports the number of markers on the timeline. Test hook.
func (t *timeline) MarkerCount() int {
	t.host.mu.Lock()
	defer t.host.mu.Unlock()
	return len(t.markers)
}

type clip struct {
	host *Host
	name string
	path string
}

func (c *clip) Name() (string, error) {
	c.host.mu.Lock()
	defer c.host.mu.Unlock()
	return c.name, nil
}

type bin struct {
	host *Host
	name string
}

func (b *bin) Name() (string, error) {
	b.host.mu.Lock()
	defer b.host.mu.Unlock()
	return b.name, nil
}
