package sim

import (
	"testing"

	"github.com/framefold/resolve-mcp/resolve"
)

func mustManager(t *testing.T, h *Host) resolve.ProjectManager {
	t.Helper()
	pm, err := h.ProjectManager()
	if err != nil {
		t.Fatalf("ProjectManager: %v", err)
	}
	return pm
}

func TestCreateProjectBecomesCurrent(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	p, err := pm.CreateProject("Feature Cut")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p == nil {
		t.Fatal("CreateProject returned no project")
	}

	cur, err := pm.CurrentProject()
	if err != nil {
		t.Fatalf("CurrentProject: %v", err)
	}
	if cur != p {
		t.Fatal("created project is not current")
	}

	name, err := p.Name()
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "Feature Cut" {
		t.Fatalf("Name = %q, want %q", name, "Feature Cut")
	}

	// A fresh project starts with no timelines.
	n, err := p.TimelineCount()
	if err != nil {
		t.Fatalf("TimelineCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("TimelineCount = %d, want 0", n)
	}
}

func TestCreateProjectDuplicateRefused(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	p, err := pm.CreateProject("Sample Project")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p != nil {
		t.Fatal("duplicate name produced a project")
	}

	// The refusal must not disturb the (absent) current project.
	cur, err := pm.CurrentProject()
	if err != nil {
		t.Fatalf("CurrentProject: %v", err)
	}
	if cur != nil {
		t.Fatal("refused create left a current project behind")
	}
}

func TestLoadProjectMaterializesTimeline(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	p, err := pm.LoadProject("Demo Workflow")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p == nil {
		t.Fatal("LoadProject returned no project")
	}

	tl, err := p.CurrentTimeline()
	if err != nil {
		t.Fatalf("CurrentTimeline: %v", err)
	}
	if tl == nil {
		t.Fatal("loaded project has no current timeline")
	}
	name, err := tl.Name()
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "Demo Workflow Timeline" {
		t.Fatalf("timeline name = %q", name)
	}
}

func TestLoadProjectUnknownName(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	p, err := pm.LoadProject("No Such Project")
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p != nil {
		t.Fatal("unknown name produced a project")
	}
}

func TestCloseProjectClearsCurrent(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	p, err := pm.CreateProject("Closing")
	if err != nil || p == nil {
		t.Fatalf("CreateProject: %v %v", p, err)
	}
	ok, err := pm.CloseProject(p)
	if err != nil {
		t.Fatalf("CloseProject: %v", err)
	}
	if !ok {
		t.Fatal("CloseProject reported failure")
	}

	cur, err := pm.CurrentProject()
	if err != nil {
		t.Fatalf("CurrentProject: %v", err)
	}
	if cur != nil {
		t.Fatal("project still current after close")
	}

	// The name stays in the database, so re-creating it is refused
	// while re-loading it succeeds.
	if p, _ := pm.CreateProject("Closing"); p != nil {
		t.Fatal("closed project name accepted for create")
	}
	if p, _ := pm.LoadProject("Closing"); p == nil {
		t.Fatal("closed project name refused for load")
	}
}

func TestSaveProjectRequiresCurrent(t *testing.T) {
	h := New()
	pm := mustManager(t, h)

	ok, err := pm.SaveProject()
	if err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if ok {
		t.Fatal("save succeeded with nothing open")
	}

	if _, err := pm.CreateProject("Saver"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	ok, err = pm.SaveProject()
	if err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if !ok {
		t.Fatal("save failed with a project open")
	}
}

func TestTimelineIndexingIsOneBased(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Indexing")
	pool, err := p.MediaPool()
	if err != nil {
		t.Fatalf("MediaPool: %v", err)
	}

	first, err := pool.CreateEmptyTimeline("First")
	if err != nil || first == nil {
		t.Fatalf("CreateEmptyTimeline: %v %v", first, err)
	}
	second, err := pool.CreateEmptyTimeline("Second")
	if err != nil || second == nil {
		t.Fatalf("CreateEmptyTimeline: %v %v", second, err)
	}

	if tl, _ := p.TimelineByIndex(0); tl != nil {
		t.Fatal("index 0 resolved to a timeline")
	}
	if tl, _ := p.TimelineByIndex(1); tl != first {
		t.Fatal("index 1 is not the first timeline")
	}
	if tl, _ := p.TimelineByIndex(2); tl != second {
		t.Fatal("index 2 is not the second timeline")
	}
	if tl, _ := p.TimelineByIndex(3); tl != nil {
		t.Fatal("index past the end resolved to a timeline")
	}
}

func TestCreateEmptyTimelineDoesNotBecomeCurrent(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Quiet Create")
	pool, _ := p.MediaPool()

	if _, err := pool.CreateEmptyTimeline("Backdrop"); err != nil {
		t.Fatalf("CreateEmptyTimeline: %v", err)
	}
	cur, err := p.CurrentTimeline()
	if err != nil {
		t.Fatalf("CurrentTimeline: %v", err)
	}
	if cur != nil {
		t.Fatal("freshly created timeline became current")
	}
}

func TestDuplicateTimelineNamesAllowed(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Dupes")
	pool, _ := p.MediaPool()

	a, _ := pool.CreateEmptyTimeline("Cut")
	b, _ := pool.CreateEmptyTimeline("Cut")
	if a == b {
		t.Fatal("same timeline returned twice")
	}
	n, _ := p.TimelineCount()
	if n != 2 {
		t.Fatalf("TimelineCount = %d, want 2", n)
	}
}

func TestDeleteTimelineClearsCurrent(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Deleting")
	pool, _ := p.MediaPool()

	a, _ := pool.CreateEmptyTimeline("Keep")
	b, _ := pool.CreateEmptyTimeline("Drop")
	if ok, _ := p.SetCurrentTimeline(b); !ok {
		t.Fatal("SetCurrentTimeline failed")
	}

	ok, err := p.DeleteTimeline(b)
	if err != nil {
		t.Fatalf("DeleteTimeline: %v", err)
	}
	if !ok {
		t.Fatal("DeleteTimeline reported failure")
	}
	if cur, _ := p.CurrentTimeline(); cur != nil {
		t.Fatal("deleted timeline still current")
	}
	if n, _ := p.TimelineCount(); n != 1 {
		t.Fatalf("TimelineCount = %d, want 1", n)
	}
	if tl, _ := p.TimelineByIndex(1); tl != a {
		t.Fatal("surviving timeline not at index 1")
	}

	// Deleting again must fail cleanly.
	if ok, _ := p.DeleteTimeline(b); ok {
		t.Fatal("second delete reported success")
	}
}

func TestSetCurrentTimelineRejectsForeign(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p1, _ := pm.CreateProject("One")
	pool1, _ := p1.MediaPool()
	foreign, _ := pool1.CreateEmptyTimeline("Elsewhere")

	p2, _ := pm.CreateProject("Two")
	if ok, _ := p2.SetCurrentTimeline(foreign); ok {
		t.Fatal("timeline from another project accepted")
	}
	if ok, _ := p2.SetCurrentTimeline(nil); ok {
		t.Fatal("nil timeline accepted")
	}
}

func TestImportMediaNamesClipsByBasename(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Footage")
	pool, _ := p.MediaPool()

	clips, err := pool.ImportMedia([]string{"/mnt/footage/A001_C002.mov"})
	if err != nil {
		t.Fatalf("ImportMedia: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("len(clips) = %d, want 1", len(clips))
	}
	name, _ := clips[0].Name()
	if name != "A001_C002.mov" {
		t.Fatalf("clip name = %q", name)
	}

	clips, err = pool.ImportMedia([]string{""})
	if err != nil {
		t.Fatalf("ImportMedia: %v", err)
	}
	if len(clips) != 0 {
		t.Fatal("empty path produced a clip")
	}
}

func TestCreateBinNoDedup(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Bins")
	poolIface, _ := p.MediaPool()
	pool := poolIface.(*mediaPool)

	for i := 0; i < 2; i++ {
		b, err := pool.CreateBin("Dailies")
		if err != nil {
			t.Fatalf("CreateBin: %v", err)
		}
		if b == nil {
			t.Fatal("CreateBin returned no bin")
		}
	}
	if n := pool.BinCount(); n != 2 {
		t.Fatalf("BinCount = %d, want 2", n)
	}
}

func TestSetSettingKnownKeysOnly(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Settings")

	if ok, _ := p.SetSetting("timelineFrameRate", "23.976"); !ok {
		t.Fatal("known key rejected")
	}
	if ok, _ := p.SetSetting("bogusKey", "1"); ok {
		t.Fatal("unknown key accepted")
	}
}

func TestTimelineInheritsFrameRate(t *testing.T) {
	h := New(WithTimelineDefaults("25", 3840, 2160))
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Rates")
	pool, _ := p.MediaPool()

	tl, _ := pool.CreateEmptyTimeline("PAL Cut")
	if got := tl.(*timeline).frameRate; got != "25" {
		t.Fatalf("frameRate = %q, want %q", got, "25")
	}

	if ok, _ := p.SetSetting("timelineFrameRate", "30"); !ok {
		t.Fatal("SetSetting failed")
	}
	tl, _ = pool.CreateEmptyTimeline("NTSC Cut")
	if got := tl.(*timeline).frameRate; got != "30" {
		t.Fatalf("frameRate = %q, want %q", got, "30")
	}
}

func TestAddMarker(t *testing.T) {
	h := New()
	pm := mustManager(t, h)
	p, _ := pm.CreateProject("Markers")
	pool, _ := p.MediaPool()
	tlIface, _ := pool.CreateEmptyTimeline("Marked")
	tl := tlIface.(*timeline)

	ok, err := tl.AddMarker(86400, "Blue", "review this")
	if err != nil {
		t.Fatalf("AddMarker: %v", err)
	}
	if !ok {
		t.Fatal("AddMarker reported failure")
	}
	if n := tl.MarkerCount(); n != 1 {
		t.Fatalf("MarkerCount = %d, want 1", n)
	}
}

func TestOpenPage(t *testing.T) {
	h := New()

	for _, page := range resolve.Pages {
		ok, err := h.OpenPage(page)
		if err != nil {
			t.Fatalf("OpenPage(%q): %v", page, err)
		}
		if !ok {
			t.Fatalf("OpenPage(%q) refused", page)
		}
		if got := h.CurrentPage(); got != page {
			t.Fatalf("CurrentPage = %q, want %q", got, page)
		}
	}

	ok, err := h.OpenPage("settings")
	if err != nil {
		t.Fatalf("OpenPage: %v", err)
	}
	if ok {
		t.Fatal("unknown page accepted")
	}
}

func TestProjectNamesSnapshot(t *testing.T) {
	h := New(WithProjectDatabase("Only One"))
	pm := mustManager(t, h)

	names, err := pm.ProjectNames()
	if err != nil {
		t.Fatalf("ProjectNames: %v", err)
	}
	if len(names) != 1 || names[0] != "Only One" {
		t.Fatalf("ProjectNames = %v", names)
	}

	// Mutating the returned slice must not affect the host.
	names[0] = "Tampered"
	again, _ := pm.ProjectNames()
	if again[0] != "Only One" {
		t.Fatal("returned slice aliases host state")
	}
}
