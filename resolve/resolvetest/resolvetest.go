// Package resolvetest wraps a resolve.Resolve with per-operation fault
// injection and call recording for tests.
package resolvetest

import (
	"sync"

	"github.com/framefold/resolve-mcp/resolve"
)

// Host decorates an inner resolve.Resolve. Operations listed in Fail
// return the mapped error instead of delegating; every delegated call
// is appended to the log.
type Host struct {
	Inner resolve.Resolve

	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

// Wrap returns a Host around inner.
func Wrap(inner resolve.Resolve) *Host {
	return &Host{Inner: inner, fail: make(map[string]error)}
}

// FailWith makes the named operation return err. Operation names match
// the interface method names, e.g. "CurrentProject" or "ImportMedia".
func (h *Host) FailWith(op string, err error) {
	h.mu.Lock()
	h.fail[op] = err
	h.mu.Unlock()
}

// Restore removes the fault for op.
func (h *Host) Restore(op string) {
	h.mu.Lock()
	delete(h.fail, op)
	h.mu.Unlock()
}

// Calls returns the delegated operation names in order.
func (h *Host) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *Host) check(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.fail[op]; ok {
		return err
	}
	h.calls = append(h.calls, op)
	return nil
}

func (h *Host) ProjectManager() (resolve.ProjectManager, error) {
	if err := h.check("ProjectManager"); err != nil {
		return nil, err
	}
	pm, err := h.Inner.ProjectManager()
	if err != nil {
		return nil, err
	}
	return &projectManager{host: h, inner: pm}, nil
}

func (h *Host) OpenPage(name string) (bool, error) {
	if err := h.check("OpenPage"); err != nil {
		return false, err
	}
	return h.Inner.OpenPage(name)
}

type projectManager struct {
	host  *Host
	inner resolve.ProjectManager
}

func (pm *projectManager) CreateProject(name string) (resolve.Project, error) {
	if err := pm.host.check("CreateProject"); err != nil {
		return nil, err
	}
	return pm.wrapProject(pm.inner.CreateProject(name))
}

func (pm *projectManager) LoadProject(name string) (resolve.Project, error) {
	if err := pm.host.check("LoadProject"); err != nil {
		return nil, err
	}
	return pm.wrapProject(pm.inner.LoadProject(name))
}

func (pm *projectManager) SaveProject() (bool, error) {
	if err := pm.host.check("SaveProject"); err != nil {
		return false, err
	}
	return pm.inner.SaveProject()
}

func (pm *projectManager) CloseProject(p resolve.Project) (bool, error) {
	if err := pm.host.check("CloseProject"); err != nil {
		return false, err
	}
	if wp, ok := p.(*project); ok {
		p = wp.inner
	}
	return pm.inner.CloseProject(p)
}

func (pm *projectManager) CurrentProject() (resolve.Project, error) {
	if err := pm.host.check("CurrentProject"); err != nil {
		return nil, err
	}
	return pm.wrapProject(pm.inner.CurrentProject())
}

func (pm *projectManager) ProjectNames() ([]string, error) {
	if err := pm.host.check("ProjectNames"); err != nil {
		return nil, err
	}
	return pm.inner.ProjectNames()
}

func (pm *projectManager) wrapProject(p resolve.Project, err error) (resolve.Project, error) {
	if err != nil || p == nil {
		return nil, err
	}
	return &project{host: pm.host, inner: p}, nil
}

type project struct {
	host  *Host
	inner resolve.Project
}

func (p *project) Name() (string, error) {
	if err := p.host.check("Name"); err != nil {
		return "", err
	}
	return p.inner.Name()
}

func (p *project) TimelineCount() (int, error) {
	if err := p.host.check("TimelineCount"); err != nil {
		return 0, err
	}
	return p.inner.TimelineCount()
}

func (p *project) TimelineByIndex(i int) (resolve.Timeline, error) {
	if err := p.host.check("TimelineByIndex"); err != nil {
		return nil, err
	}
	return p.wrapTimeline(p.inner.TimelineByIndex(i))
}

func (p *project) DeleteTimeline(t resolve.Timeline) (bool, error) {
	if err := p.host.check("DeleteTimeline"); err != nil {
		return false, err
	}
	if wt, ok := t.(*timeline); ok {
		t = wt.inner
	}
	return p.inner.DeleteTimeline(t)
}

func (p *project) SetCurrentTimeline(t resolve.Timeline) (bool, error) {
	if err := p.host.check("SetCurrentTimeline"); err != nil {
		return false, err
	}
	if wt, ok := t.(*timeline); ok {
		t = wt.inner
	}
	return p.inner.SetCurrentTimeline(t)
}

func (p *project) CurrentTimeline() (resolve.Timeline, error) {
	if err := p.host.check("CurrentTimeline"); err != nil {
		return nil, err
	}
	return p.wrapTimeline(p.inner.CurrentTimeline())
}

func (p *project) MediaPool() (resolve.MediaPool, error) {
	if err := p.host.check("MediaPool"); err != nil {
		return nil, err
	}
	mp, err := p.inner.MediaPool()
	if err != nil || mp == nil {
		return nil, err
	}
	return &mediaPool{host: p.host, project: p, inner: mp}, nil
}

func (p *project) SetSetting(key, value string) (bool, error) {
	if err := p.host.check("SetSetting"); err != nil {
		return false, err
	}
	return p.inner.SetSetting(key, value)
}

func (p *project) wrapTimeline(t resolve.Timeline, err error) (resolve.Timeline, error) {
	if err != nil || t == nil {
		return nil, err
	}
	return &timeline{host: p.host, inner: t}, nil
}

type mediaPool struct {
	host    *Host
	project *project
	inner   resolve.MediaPool
}

func (mp *mediaPool) ImportMedia(paths []string) ([]resolve.Clip, error) {
	if err := mp.host.check("ImportMedia"); err != nil {
		return nil, err
	}
	return mp.inner.ImportMedia(paths)
}

func (mp *mediaPool) CreateBin(name string) (resolve.Bin, error) {
	if err := mp.host.check("CreateBin"); err != nil {
		return nil, err
	}
	return mp.inner.CreateBin(name)
}

func (mp *mediaPool) CreateEmptyTimeline(name string) (resolve.Timeline, error) {
	if err := mp.host.check("CreateEmptyTimeline"); err != nil {
		return nil, err
	}
	return mp.project.wrapTimeline(mp.inner.CreateEmptyTimeline(name))
}

type timeline struct {
	host  *Host
	inner resolve.Timeline
}

func (t *timeline) Name() (string, error) {
	if err := t.host.check("Name"); err != nil {
		return "", err
	}
	return t.inner.Name()
}

func (t *timeline) AddMarker(frame int, color, note string) (bool, error) {
	if err := t.host.check("AddMarker"); err != nil {
		return false, err
	}
	return t.inner.AddMarker(frame, color, note)
}
