package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/framefold/resolve-mcp/engine"
	"github.com/framefold/resolve-mcp/mcp"
	"github.com/framefold/resolve-mcp/resolve/sim"
)

// testHarness wires a Handler to pipes and collects its output lines.
type testHarness struct {
	t      *testing.T
	cancel context.CancelFunc
	stdinW io.WriteCloser
	lines  chan string
	done   chan error
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(sim.New(), log)
	h := New(eng, mcp.ImplementationInfo{Name: "resolve-mcp", Version: "test"},
		WithIO(inR, outW), WithLogger(log))

	ctx, cancel := context.WithCancel(context.Background())
	th := &testHarness{
		t:      t,
		cancel: cancel,
		stdinW: inW,
		lines:  make(chan string, 64),
		done:   make(chan error, 1),
	}

	go func() {
		th.done <- h.Serve(ctx)
	}()
	go func() {
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			t.Logf("OUT: %s", line)
			th.lines <- line
		}
		close(th.lines)
	}()

	t.Cleanup(func() {
		cancel()
		inW.Close()
		outW.Close()
	})
	return th
}

func (th *testHarness) send(raw string) {
	th.t.Helper()
	if _, err := th.stdinW.Write([]byte(raw + "\n")); err != nil {
		th.t.Fatalf("send: %v", err)
	}
}

func (th *testHarness) sendRequest(id any, method string, params any) {
	th.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id != nil {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		th.t.Fatalf("marshal request: %v", err)
	}
	th.send(string(payload))
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *wireError      `json:"error"`
}

func (th *testHarness) expectResponse() *wireResponse {
	th.t.Helper()
	select {
	case line, ok := <-th.lines:
		if !ok {
			th.t.Fatal("output closed while awaiting response")
		}
		var resp wireResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			th.t.Fatalf("bad response line %q: %v", line, err)
		}
		if resp.JSONRPC != "2.0" {
			th.t.Fatalf("response version = %q", resp.JSONRPC)
		}
		return &resp
	case <-time.After(5 * time.Second):
		th.t.Fatal("timeout waiting for response")
		return nil
	}
}

func (th *testHarness) expectError(id any, code int) *wireResponse {
	th.t.Helper()
	resp := th.expectResponse()
	if resp.Error == nil {
		th.t.Fatalf("expected error, got result %s", resp.Result)
	}
	if resp.Error.Code != code {
		th.t.Fatalf("error code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, code)
	}
	checkID(th.t, resp.ID, id)
	return resp
}

func checkID(t *testing.T, got, want any) {
	t.Helper()
	if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
		t.Fatalf("response id = %v, want %v", got, want)
	}
}

func (th *testHarness) initialize() {
	th.t.Helper()
	th.sendRequest(1, "initialize", map[string]any{
		"protocolVersion": mcp.LatestProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "client", "version": "0.0.1"},
	})
	resp := th.expectResponse()
	if resp.Error != nil {
		th.t.Fatalf("initialize failed: %v", resp.Error)
	}
	th.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
}

type wireToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"is_error"`
}

func (th *testHarness) callTool(id any, name string, args any) *wireToolResult {
	th.t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	th.sendRequest(id, "tools/call", params)
	resp := th.expectResponse()
	if resp.Error != nil {
		th.t.Fatalf("tools/call %s: rpc error %d %s", name, resp.Error.Code, resp.Error.Message)
	}
	checkID(th.t, resp.ID, id)
	var result wireToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		th.t.Fatalf("tools/call %s: bad result %s: %v", name, resp.Result, err)
	}
	return &result
}

func (r *wireToolResult) text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

func TestRequestBeforeInitialize(t *testing.T) {
	th := newHarness(t)
	th.sendRequest(1, "tools/list", nil)
	th.expectError(1, -32600)
}

func TestPingAnsweredInAnyState(t *testing.T) {
	th := newHarness(t)

	th.sendRequest("a", "ping", nil)
	resp := th.expectResponse()
	if resp.Error != nil {
		t.Fatalf("ping before initialize: %v", resp.Error)
	}
	checkID(t, resp.ID, "a")

	th.initialize()
	th.sendRequest("b", "ping", nil)
	resp = th.expectResponse()
	if resp.Error != nil {
		t.Fatalf("ping while serving: %v", resp.Error)
	}
}

func TestInitializeHandshake(t *testing.T) {
	th := newHarness(t)
	th.sendRequest(7, "initialize", map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "client", "version": "1.0.0"},
	})
	resp := th.expectResponse()
	if resp.Error != nil {
		t.Fatalf("initialize: %v", resp.Error)
	}
	checkID(t, resp.ID, 7)

	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("bad initialize result: %v", err)
	}
	if result.ProtocolVersion != "2025-06-18" {
		t.Fatalf("protocol version = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "resolve-mcp" {
		t.Fatalf("server name = %q", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Fatal("tools capability not advertised")
	}

	// A second initialize is a protocol error.
	th.sendRequest(8, "initialize", map[string]any{"protocolVersion": "2025-06-18"})
	th.expectError(8, -32600)
}

func TestInitializeUnknownVersionOffersLatest(t *testing.T) {
	th := newHarness(t)
	th.sendRequest(1, "initialize", map[string]any{"protocolVersion": "1999-01-01"})
	resp := th.expectResponse()
	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("bad initialize result: %v", err)
	}
	if result.ProtocolVersion != mcp.LatestProtocolVersion {
		t.Fatalf("offered version = %q, want %q", result.ProtocolVersion, mcp.LatestProtocolVersion)
	}
}

func TestToolsListAfterInitialized(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.sendRequest(2, "tools/list", nil)
	resp := th.expectResponse()
	if resp.Error != nil {
		t.Fatalf("tools/list: %v", resp.Error)
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("bad tools/list result: %v", err)
	}
	if len(result.Tools) == 0 {
		t.Fatal("no tools listed")
	}
	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if tool.InputSchema.Type != "object" {
			t.Errorf("tool %s: schema type %q", tool.Name, tool.InputSchema.Type)
		}
	}
	for _, want := range []string{"create_project", "list_timelines_tool", "import_media", "switch_page"} {
		if !names[want] {
			t.Errorf("tool %s not listed", want)
		}
	}
}

func TestParseErrorHasNullID(t *testing.T) {
	th := newHarness(t)
	th.send(`{this is not json`)
	resp := th.expectResponse()
	if resp.Error == nil || resp.Error.Code != -32700 {
		t.Fatalf("expected parse error, got %+v", resp)
	}
	if resp.ID != nil {
		t.Fatalf("parse error id = %v, want null", resp.ID)
	}
}

func TestUnknownMethod(t *testing.T) {
	th := newHarness(t)
	th.initialize()
	th.sendRequest(3, "resources/list", nil)
	th.expectError(3, -32601)
}

func TestUnknownToolName(t *testing.T) {
	th := newHarness(t)
	th.initialize()
	th.sendRequest(4, "tools/call", map[string]any{"name": "no_such_tool"})
	th.expectError(4, -32602)
}

func TestMissingToolName(t *testing.T) {
	th := newHarness(t)
	th.initialize()
	th.sendRequest(5, "tools/call", map[string]any{})
	th.expectError(5, -32602)
}

func TestNotificationsNeverAnswered(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	// Unknown notification is dropped; the next reply must belong to
	// the ping that follows it.
	th.send(`{"jsonrpc":"2.0","method":"notifications/cancelled"}`)
	th.sendRequest("after", "ping", nil)
	resp := th.expectResponse()
	checkID(t, resp.ID, "after")
}

func TestToolFailureIsNotRPCError(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	result := th.callTool(1, "delete_timeline", map[string]any{"name": "X"})
	if !result.IsError {
		t.Fatal("expected is_error=true")
	}
	if result.text() == "" {
		t.Fatal("failure carries no reason")
	}
}

func TestToolResultWireShape(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.sendRequest(9, "tools/call", map[string]any{
		"name":      "create_project",
		"arguments": map[string]any{"name": "Shape"},
	})
	resp := th.expectResponse()
	if resp.Error != nil {
		t.Fatalf("tools/call: %v", resp.Error)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(resp.Result, &shape); err != nil {
		t.Fatalf("bad result: %v", err)
	}
	if _, ok := shape["content"]; !ok {
		t.Fatal("result lacks content")
	}
	if _, ok := shape["is_error"]; !ok {
		t.Fatal("result lacks is_error")
	}
}

func TestEndToEndTimelineFlow(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	result := th.callTool(1, "create_project", map[string]any{"name": "T"})
	if result.IsError {
		t.Fatalf("create_project: %s", result.text())
	}
	if !strings.Contains(result.text(), "T") {
		t.Fatalf("confirmation %q does not contain project name", result.text())
	}

	result = th.callTool(2, "create_empty_timeline", map[string]any{
		"name": "A", "frame_rate": "24",
		"resolution_width": 1920, "resolution_height": 1080,
	})
	if result.IsError {
		t.Fatalf("create_empty_timeline: %s", result.text())
	}

	result = th.callTool(3, "list_timelines_tool", nil)
	if result.IsError || !strings.Contains(result.text(), "A") {
		t.Fatalf("listing = %q (is_error=%v)", result.text(), result.IsError)
	}

	result = th.callTool(4, "delete_timeline", map[string]any{"name": "A"})
	if result.IsError {
		t.Fatalf("delete_timeline: %s", result.text())
	}

	result = th.callTool(5, "list_timelines_tool", nil)
	if result.IsError || strings.Contains(result.text(), "A") {
		t.Fatalf("listing after delete = %q (is_error=%v)", result.text(), result.IsError)
	}
}

func TestResponsesInRequestOrder(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	// Queue a burst of requests before reading anything back; the
	// replies must come back in submission order.
	for i := 1; i <= 10; i++ {
		th.sendRequest(i, "tools/call", map[string]any{
			"name":      "create_bin",
			"arguments": map[string]any{"name": fmt.Sprintf("bin-%d", i)},
		})
	}
	for i := 1; i <= 10; i++ {
		resp := th.expectResponse()
		checkID(t, resp.ID, i)
	}
}

func TestEOFEndsSession(t *testing.T) {
	th := newHarness(t)
	th.initialize()
	th.stdinW.Close()

	select {
	case err := <-th.done:
		if err != nil {
			t.Fatalf("Serve returned %v on EOF", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after EOF")
	}
}
