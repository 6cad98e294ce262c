package gateway

import (
	"context"

	"github.com/nextlevelbuilder/agentbridge/pkg/protocol"
)

// MethodHandler handles one RPC method call and returns the reply to send,
// or nil for fire-and-forget methods.
type MethodHandler func(ctx context.Context, client *Client, req *protocol.RequestFrame) *protocol.ResponseFrame

// MethodRouter dispatches inbound RequestFrames by method name. It replaces
// the admin-mode JSON-RPC surface with just the handful of methods the
// playground transport and health checks need (connect, health, chat.send);
// richer admin method sets are out of scope here.
type MethodRouter struct {
	server   *Server
	handlers map[string]MethodHandler
}

// NewMethodRouter builds a router with the baseline connect/health handlers registered.
func NewMethodRouter(s *Server) *MethodRouter {
	r := &MethodRouter{server: s, handlers: make(map[string]MethodHandler)}
	r.Register(protocol.MethodConnect, r.handleConnect)
	r.Register(protocol.MethodHealth, r.handleHealth)
	return r
}

// Register installs a handler for a method name, overwriting any previous one.
func (r *MethodRouter) Register(method string, h MethodHandler) {
	r.handlers[method] = h
}

// Dispatch looks up and invokes the handler for req.Method.
func (r *MethodRouter) Dispatch(ctx context.Context, client *Client, req *protocol.RequestFrame) *protocol.ResponseFrame {
	h, ok := r.handlers[req.Method]
	if !ok {
		return protocol.NewError(req.ID, 404, "unknown method: "+req.Method)
	}
	return h(ctx, client, req)
}

func (r *MethodRouter) handleConnect(_ context.Context, _ *Client, req *protocol.RequestFrame) *protocol.ResponseFrame {
	return protocol.NewResult(req.ID, map[string]any{"protocol": protocol.ProtocolVersion})
}

func (r *MethodRouter) handleHealth(_ context.Context, _ *Client, req *protocol.RequestFrame) *protocol.ResponseFrame {
	return protocol.NewResult(req.ID, map[string]any{"status": "ok"})
}
