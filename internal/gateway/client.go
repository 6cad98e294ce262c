package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/agentbridge/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one WebSocket-connected peer (admin console, playground UI, CLI).
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(conn *websocket.Conn, s *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		send:   make(chan []byte, 64),
	}
}

// SendEvent pushes an unsolicited event frame to the client, dropping it if the
// outbound buffer is full rather than blocking the broadcaster.
func (c *Client) SendEvent(event protocol.EventFrame) {
	b, err := json.Marshal(event)
	if err != nil {
		slog.Error("gateway.client.marshal_failed", "error", err)
		return
	}
	select {
	case c.send <- b:
	default:
		slog.Warn("gateway.client.send_buffer_full", "client", c.id)
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	close(c.send)
	c.conn.Close()
}

// Run pumps reads and writes until the connection closes or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	done := make(chan struct{})
	go c.writePump(done)
	c.readPump(ctx)
	close(done)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.RequestFrame
		if err := json.Unmarshal(raw, &req); err != nil {
			c.SendResponse(protocol.NewError("", 400, "invalid request frame"))
			continue
		}
		resp := c.server.router.Dispatch(ctx, c, &req)
		if resp != nil {
			c.SendResponse(resp)
		}
	}
}

// SendResponse replies to a specific RequestFrame.
func (c *Client) SendResponse(resp *protocol.ResponseFrame) {
	b, err := json.Marshal(resp)
	if err != nil {
		slog.Error("gateway.client.marshal_response_failed", "error", err)
		return
	}
	select {
	case c.send <- b:
	default:
		slog.Warn("gateway.client.send_buffer_full", "client", c.id)
	}
}

func (c *Client) writePump(done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
