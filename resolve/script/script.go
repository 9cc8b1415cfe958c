// Package script drives a real DaVinci Resolve instance through its
// Python scripting API. A helper process is spawned from an embedded
// script and spoken to over line-delimited JSON on its pipes; every
// scripting object crossing the boundary travels as an opaque handle.
package script

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/framefold/resolve-mcp/resolve"
)

//go:embed helper.py
var helperSource []byte

type rpcRequest struct {
	ID     int64  `json:"id"`
	Op     string `json:"op,omitempty"`
	Target string `json:"target"`
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// Bridge owns the helper process. Calls are strictly sequential; the
// mutex serializes the request/response round trip on the pipes.
type Bridge struct {
	log *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  *bufio.Scanner
	nextID int64
	dead   bool

	helperPath string
}

// Options configure Launch.
type Options struct {
	// PythonPath overrides the interpreter. Defaults to "python3".
	PythonPath string
	// Logger receives helper lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Launch writes the embedded helper to a temp file, starts it under the
// configured interpreter and waits for its ready line. The helper
// reports "resolve unavailable" when the scripting module cannot reach
// a running Resolve instance; that surfaces as resolve.ErrUnavailable.
func Launch(ctx context.Context, opts Options) (*Bridge, error) {
	python := opts.PythonPath
	if python == "" {
		python = "python3"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	dir, err := os.MkdirTemp("", "resolve-mcp-helper-")
	if err != nil {
		return nil, fmt.Errorf("staging helper: %w", err)
	}
	helperPath := filepath.Join(dir, "helper.py")
	if err := os.WriteFile(helperPath, helperSource, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("staging helper: %w", err)
	}

	cmd := exec.CommandContext(ctx, python, helperPath)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("wiring helper stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("wiring helper stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("starting helper: %w", err)
	}

	b := &Bridge{
		log:        log,
		cmd:        cmd,
		stdin:      stdin,
		lines:      bufio.NewScanner(stdout),
		helperPath: dir,
	}

	// The helper announces readiness (or the absence of Resolve)
	// before accepting requests.
	var ready rpcResponse
	if !b.lines.Scan() {
		b.shutdown()
		return nil, fmt.Errorf("helper exited before ready: %w", resolve.ErrUnavailable)
	}
	if err := json.Unmarshal(b.lines.Bytes(), &ready); err != nil {
		b.shutdown()
		return nil, fmt.Errorf("reading helper ready line: %w", err)
	}
	if ready.Error != "" {
		b.shutdown()
		return nil, fmt.Errorf("%s: %w", ready.Error, resolve.ErrUnavailable)
	}

	log.InfoContext(ctx, "resolve scripting helper started", slog.String("python", python))
	return b, nil
}

// Close terminates the helper process and removes the staged script.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdown()
}

// shutdown assumes b.mu is held (or the bridge is not yet shared).
func (b *Bridge) shutdown() error {
	if b.dead {
		return nil
	}
	b.dead = true
	b.stdin.Close()
	err := b.cmd.Wait()
	os.RemoveAll(b.helperPath)
	return err
}

// call performs one round trip. A broken pipe or helper exit marks the
// bridge dead; all subsequent calls fail with resolve.ErrUnavailable.
func (b *Bridge) call(target, method string, args ...any) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dead {
		return nil, resolve.ErrUnavailable
	}
	b.nextID++
	req := rpcRequest{ID: b.nextID, Target: target, Method: method, Args: args}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding helper request: %w", err)
	}
	if _, err := b.stdin.Write(append(payload, '\n')); err != nil {
		b.dead = true
		return nil, fmt.Errorf("writing to helper: %w", resolve.ErrUnavailable)
	}
	if !b.lines.Scan() {
		b.dead = true
		return nil, fmt.Errorf("helper pipe closed: %w", resolve.ErrUnavailable)
	}
	var resp rpcResponse
	if err := json.Unmarshal(b.lines.Bytes(), &resp); err != nil {
		b.dead = true
		return nil, fmt.Errorf("decoding helper response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("scripting call %s.%s: %s", target, method, resp.Error)
	}
	return resp.Result, nil
}

type handleRef struct {
	Handle string `json:"handle"`
}

// callHandle invokes a method whose result is a scripting object and
// returns its handle. Empty string with nil error means the API
// returned None.
func (b *Bridge) callHandle(target, method string, args ...any) (string, error) {
	raw, err := b.call(target, method, args...)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" || len(raw) == 0 {
		return "", nil
	}
	var ref handleRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("scripting call %s.%s: unexpected result %s", target, method, raw)
	}
	return ref.Handle, nil
}

func (b *Bridge) callBool(target, method string, args ...any) (bool, error) {
	raw, err := b.call(target, method, args...)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		// Some API calls answer 1/None instead of a proper bool.
		return string(raw) != "null" && string(raw) != "0", nil
	}
	return ok, nil
}

func (b *Bridge) callString(target, method string, args ...any) (string, error) {
	raw, err := b.call(target, method, args...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("scripting call %s.%s: unexpected result %s", target, method, raw)
	}
	return s, nil
}

// ProjectManager implements resolve.Resolve.
func (b *Bridge) ProjectManager() (resolve.ProjectManager, error) {
	h, err := b.callHandle("resolve", "GetProjectManager")
	if err != nil {
		return nil, err
	}
	if h == "" {
		return nil, resolve.ErrUnavailable
	}
	return &projectManager{bridge: b, handle: h}, nil
}

// OpenPage implements resolve.Resolve.
func (b *Bridge) OpenPage(name string) (bool, error) {
	return b.callBool("resolve", "OpenPage", name)
}

type projectManager struct {
	bridge *Bridge
	handle string
}

func (pm *projectManager) CreateProject(name string) (resolve.Project, error) {
	return pm.project(pm.bridge.callHandle(pm.handle, "CreateProject", name))
}

func (pm *projectManager) LoadProject(name string) (resolve.Project, error) {
	return pm.project(pm.bridge.callHandle(pm.handle, "LoadProject", name))
}

func (pm *projectManager) SaveProject() (bool, error) {
	return pm.bridge.callBool(pm.handle, "SaveProject")
}

func (pm *projectManager) CloseProject(p resolve.Project) (bool, error) {
	sp, ok := p.(*project)
	if !ok || sp == nil {
		return false, nil
	}
	return pm.bridge.callBool(pm.handle, "CloseProject", handleRef{Handle: sp.handle})
}

func (pm *projectManager) CurrentProject() (resolve.Project, error) {
	return pm.project(pm.bridge.callHandle(pm.handle, "GetCurrentProject"))
}

func (pm *projectManager) ProjectNames() ([]string, error) {
	raw, err := pm.bridge.call(pm.handle, "GetProjectListInCurrentFolder")
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decoding project list: %w", err)
	}
	return names, nil
}

func (pm *projectManager) project(h string, err error) (resolve.Project, error) {
	if err != nil || h == "" {
		return nil, err
	}
	return &project{bridge: pm.bridge, handle: h}, nil
}

type project struct {
	bridge *Bridge
	handle string
}

func (p *project) Name() (string, error) {
	return p.bridge.callString(p.handle, "GetName")
}

func (p *project) TimelineCount() (int, error) {
	raw, err := p.bridge.call(p.handle, "GetTimelineCount")
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("decoding timeline count: %w", err)
	}
	return n, nil
}

func (p *project) TimelineByIndex(i int) (resolve.Timeline, error) {
	return p.timeline(p.bridge.callHandle(p.handle, "GetTimelineByIndex", i))
}

func (p *project) DeleteTimeline(t resolve.Timeline) (bool, error) {
	st, ok := t.(*timeline)
	if !ok || st == nil {
		return false, nil
	}
	// Deletion lives on the media pool in the scripting API.
	pool, err := p.bridge.callHandle(p.handle, "GetMediaPool")
	if err != nil {
		return false, err
	}
	if pool == "" {
		return false, nil
	}
	return p.bridge.callBool(pool, "DeleteTimelines", []any{handleRef{Handle: st.handle}})
}

func (p *project) SetCurrentTimeline(t resolve.Timeline) (bool, error) {
	st, ok := t.(*timeline)
	if !ok || st == nil {
		return false, nil
	}
	return p.bridge.callBool(p.handle, "SetCurrentTimeline", handleRef{Handle: st.handle})
}

func (p *project) CurrentTimeline() (resolve.Timeline, error) {
	return p.timeline(p.bridge.callHandle(p.handle, "GetCurrentTimeline"))
}

func (p *project) MediaPool() (resolve.MediaPool, error) {
	h, err := p.bridge.callHandle(p.handle, "GetMediaPool")
	if err != nil || h == "" {
		return nil, err
	}
	return &mediaPool{bridge: p.bridge, project: p, handle: h}, nil
}

func (p *project) SetSetting(key, value string) (bool, error) {
	return p.bridge.callBool(p.handle, "SetSetting", key, value)
}

func (p *project) timeline(h string, err error) (resolve.Timeline, error) {
	if err != nil || h == "" {
		return nil, err
	}
	return &timeline{bridge: p.bridge, handle: h}, nil
}

type mediaPool struct {
	bridge  *Bridge
	project *project
	handle  string
}

func (mp *mediaPool) ImportMedia(paths []string) ([]resolve.Clip, error) {
	raw, err := mp.bridge.call(mp.handle, "ImportMedia", paths)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var refs []handleRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decoding imported clips: %w", err)
	}
	var clips []resolve.Clip
	for _, ref := range refs {
		clips = append(clips, &clip{bridge: mp.bridge, handle: ref.Handle})
	}
	return clips, nil
}

func (mp *mediaPool) CreateBin(name string) (resolve.Bin, error) {
	root, err := mp.bridge.callHandle(mp.handle, "GetRootFolder")
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, nil
	}
	h, err := mp.bridge.callHandle(mp.handle, "AddSubFolder", handleRef{Handle: root}, name)
	if err != nil || h == "" {
		return nil, err
	}
	return &bin{bridge: mp.bridge, handle: h}, nil
}

func (mp *mediaPool) CreateEmptyTimeline(name string) (resolve.Timeline, error) {
	return mp.project.timeline(mp.bridge.callHandle(mp.handle, "CreateEmptyTimeline", name))
}

type timeline struct {
	bridge *Bridge
	handle string
}

func (t *timeline) Name() (string, error) {
	return t.bridge.callString(t.handle, "GetName")
}

func (t *timeline) AddMarker(frame int, color, note string) (bool, error) {
	return t.bridge.callBool(t.handle, "AddMarker", frame, color, "", note, 1)
}

type clip struct {
	bridge *Bridge
	handle string
}

func (c *clip) Name() (string, error) {
	return c.bridge.callString(c.handle, "GetName")
}

type bin struct {
	bridge *Bridge
	handle string
}

func (b *bin) Name() (string, error) {
	return b.bridge.callString(b.handle, "GetName")
}
