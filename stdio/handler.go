package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/framefold/resolve-mcp/engine"
	"github.com/framefold/resolve-mcp/internal/jsonrpc"
	"github.com/framefold/resolve-mcp/internal/logctx"
	"github.com/framefold/resolve-mcp/mcp"
)

type sessionState int

const (
	stateAwaitingInitialize sessionState = iota
	stateAwaitingInitialized
	stateServing
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingInitialize:
		return "awaiting_initialize"
	case stateAwaitingInitialized:
		return "awaiting_initialized"
	default:
		return "serving"
	}
}

// Handler is the single-connection session layer. It owns the dispatch
// loop and, through it, the engine's session context; nothing here is
// concurrent beyond the reader goroutine that feeds the loop.
type Handler struct {
	eng          *engine.Engine
	info         mcp.ImplementationInfo
	instructions string

	r   io.Reader
	w   io.Writer
	log *slog.Logger

	sessionID       string
	state           sessionState
	protocolVersion string
}

// New constructs a Handler around eng with defaults (stdin, stdout,
// slog.Default) and applies options.
func New(eng *engine.Engine, info mcp.ImplementationInfo, opts ...Option) *Handler {
	h := &Handler{
		eng:       eng,
		info:      info,
		r:         os.Stdin,
		w:         os.Stdout,
		log:       slog.Default(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the session loop until EOF on the reader or ctx is
// canceled. Each line is fully handled, including the round trip into
// the host application, before the next line is read; later calls may
// depend on context mutations made by earlier ones.
func (h *Handler) Serve(ctx context.Context) error {
	ctx = h.withSession(ctx)
	h.log.InfoContext(ctx, "session started")

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(h.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoContext(ctx, "session canceled")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// The reader exits without reporting when the context
				// is canceled; do not wait on it in that case.
				var err error
				select {
				case err = <-errc:
				case <-ctx.Done():
					return ctx.Err()
				}
				if err != nil && !errors.Is(err, io.ErrClosedPipe) {
					h.log.ErrorContext(ctx, "session input failed", slog.String("err", err.Error()))
					return err
				}
				h.log.InfoContext(ctx, "session ended")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			if err := h.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

// handleLine processes one inbound message and writes at most one
// response. Only a write failure is fatal to the session.
func (h *Handler) handleLine(ctx context.Context, line []byte) error {
	ctx = h.withSession(ctx)

	var req jsonrpc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		h.log.WarnContext(ctx, "unparseable message", slog.String("err", err.Error()))
		return h.write(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "parse error", nil))
	}
	if err := req.Validate(); err != nil {
		return h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, err.Error(), nil))
	}

	msgType := "request"
	if req.IsNotification() {
		msgType = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   msgType,
	})

	if req.IsNotification() {
		h.handleNotification(ctx, &req)
		return nil
	}
	return h.write(ctx, h.handleRequest(ctx, &req))
}

// handleNotification never produces a reply.
func (h *Handler) handleNotification(ctx context.Context, req *jsonrpc.Request) {
	switch mcp.Method(req.Method) {
	case mcp.InitializedNotificationMethod:
		if h.state == stateAwaitingInitialized {
			h.state = stateServing
			h.log.InfoContext(ctx, "session initialized",
				slog.String("protocol_version", h.protocolVersion))
			return
		}
		h.log.DebugContext(ctx, "initialized notification out of order")
	default:
		h.log.DebugContext(ctx, "notification dropped")
	}
}

func (h *Handler) handleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch mcp.Method(req.Method) {
	case mcp.PingMethod:
		// Answered in any state.
		return resultResponse(req.ID, struct{}{})
	case mcp.InitializeMethod:
		return h.handleInitialize(ctx, req)
	}

	if h.state != stateServing {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session not initialized", nil)
	}

	switch mcp.Method(req.Method) {
	case mcp.ToolsListMethod:
		return resultResponse(req.ID, mcp.ListToolsResult{Tools: h.eng.Tools()})
	case mcp.ToolsCallMethod:
		return h.handleToolsCall(ctx, req)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (h *Handler) handleInitialize(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if h.state != stateAwaitingInitialize {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil)
	}
	var params mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams,
				fmt.Sprintf("invalid initialize params: %v", err), nil)
		}
	}

	// Echo a known revision; offer the latest for anything else.
	h.protocolVersion = mcp.LatestProtocolVersion
	for _, v := range mcp.SupportedProtocolVersions {
		if v == params.ProtocolVersion {
			h.protocolVersion = v
			break
		}
	}
	h.state = stateAwaitingInitialized
	h.log.InfoContext(ctx, "initialize accepted",
		slog.String("client", params.ClientInfo.Name),
		slog.String("client_version", params.ClientInfo.Version))

	return resultResponse(req.ID, mcp.InitializeResult{
		ProtocolVersion: h.protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged"`
			}{ListChanged: false},
		},
		ServerInfo:   h.info,
		Instructions: h.instructions,
	})
}

func (h *Handler) handleToolsCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params mcp.CallToolRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams,
				fmt.Sprintf("invalid tools/call params: %v", err), nil)
		}
	}
	if params.Name == "" {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "missing tool name", nil)
	}

	result, err := h.eng.Dispatch(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownTool) {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
		}
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
	}
	return resultResponse(req.ID, result)
}

// resultResponse wraps marshal failure of a result payload, which would
// be a server bug, into an internal error response.
func resultResponse(id *jsonrpc.RequestID, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, v)
	if err != nil {
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
	}
	return resp
}

func (h *Handler) write(ctx context.Context, resp *jsonrpc.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		h.log.ErrorContext(ctx, "response marshal failed", slog.String("err", err.Error()))
		return err
	}
	if _, err := h.w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func (h *Handler) withSession(ctx context.Context) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       h.sessionID,
		ProtocolVersion: h.protocolVersion,
		State:           h.state.String(),
	})
}
