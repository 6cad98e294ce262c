package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/agentbridge/internal/config"
	"github.com/nextlevelbuilder/agentbridge/internal/sessions"
	"github.com/nextlevelbuilder/agentbridge/pkg/protocol"
)

func runClientMode(cfg *config.Config, addr, agentName, message, sessionKey string) {
	wsURL := fmt.Sprintf("ws://%s/ws", addr)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WebSocket connect failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Falling back to standalone mode\n")
		runStandaloneMode(cfg, agentName, message, sessionKey)
		return
	}
	defer conn.Close()

	// Authenticate
	if err := wsConnect(conn, cfg.Gateway.Token); err != nil {
		fmt.Fprintf(os.Stderr, "Gateway auth failed: %v\n", err)
		os.Exit(1)
	}

	agentCfg := cfg.ResolveAgent(agentName)

	if message != "" {
		// One-shot mode
		resp, err := wsChatSend(conn, agentName, sessionKey, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(resp)
		return
	}

	// Interactive REPL
	fmt.Fprintf(os.Stderr, "\nGoClaw Interactive Chat (agent: %s, model: %s)\n", agentName, agentCfg.Model)
	fmt.Fprintf(os.Stderr, "Session: %s\n", sessionKey)
	fmt.Fprintf(os.Stderr, "Type \"exit\" to quit, \"/new\" for new session\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return
		}
		if input == "/new" {
			sessionKey = sessions.BuildSessionKey(agentName, "cli", sessions.PeerDirect, uuid.NewString()[:8])
			fmt.Fprintf(os.Stderr, "New session: %s\n\n", sessionKey)
			continue
		}

		resp, err := wsChatSend(conn, agentName, sessionKey, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", resp)
	}
}

// wsConnect sends the connect RPC and waits for auth response.
func wsConnect(conn *websocket.Conn, token string) error {
	params := map[string]string{}
	if token != "" {
		params["token"] = token
	}

	reqFrame := protocol.RequestFrame{
		ID:     "connect-1",
		Method: protocol.MethodConnect,
		Params: params,
	}

	if err := conn.WriteJSON(reqFrame); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	var resp protocol.ResponseFrame
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read connect response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("connect rejected: %s", resp.Error.Message)
	}

	return nil
}

// wsChatSend sends a chat.send RPC and waits for the matching response,
// displaying events (tool calls, chunks) in real-time as they arrive.
func wsChatSend(conn *websocket.Conn, agentID, sessionKey, message string) (string, error) {
	reqID := uuid.NewString()[:8]

	reqFrame := protocol.RequestFrame{
		ID:     reqID,
		Method: protocol.MethodChatSend,
		Params: map[string]interface{}{
			"message":    message,
			"agentId":    agentID,
			"sessionKey": sessionKey,
			"stream":     true,
		},
	}

	if err := conn.WriteJSON(reqFrame); err != nil {
		return "", fmt.Errorf("send chat: %w", err)
	}

	// Every server->client message is either a ResponseFrame ("id" present)
	// or an EventFrame ("type" present, no "id"); there is no frame-type tag.
	var finalContent string
	for {
		_, rawMsg, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}

		var probe struct {
			ID string `json:"id"`
		}
		json.Unmarshal(rawMsg, &probe)

		if probe.ID != "" {
			var resp protocol.ResponseFrame
			if err := json.Unmarshal(rawMsg, &resp); err != nil {
				continue
			}
			if resp.ID != reqID {
				continue // response for a different request
			}
			if resp.Error != nil {
				return "", fmt.Errorf("agent error: %s", resp.Error.Message)
			}
			if result, ok := resp.Result.(map[string]interface{}); ok {
				if content, ok := result["content"].(string); ok && content != "" {
					finalContent = content
				}
			}
			return finalContent, nil
		}

		var evt protocol.EventFrame
		if err := json.Unmarshal(rawMsg, &evt); err != nil {
			continue
		}
		handleCLIEvent(evt)
	}
}

// handleCLIEvent displays agent events in the terminal.
func handleCLIEvent(evt protocol.EventFrame) {
	payload, ok := evt.Payload.(map[string]interface{})
	if !ok {
		return
	}

	switch evt.Type {
	case protocol.EventAgent:
		evtType, _ := payload["type"].(string)
		p, _ := payload["payload"].(map[string]interface{})
		switch evtType {
		case protocol.AgentEventToolCall:
			name, _ := p["toolName"].(string)
			if name == "" {
				name, _ = p["name"].(string)
			}
			fmt.Fprintf(os.Stderr, "  [tool] %s\n", name)
		case protocol.AgentEventToolResult:
			isErr, _ := p["is_error"].(bool)
			name, _ := p["toolName"].(string)
			if name == "" {
				name, _ = p["name"].(string)
			}
			if isErr {
				fmt.Fprintf(os.Stderr, "  [tool] %s -> error\n", name)
			}
		}

	case protocol.ChatEventChunk:
		if content, ok := payload["content"].(string); ok {
			fmt.Print(content)
		}
	}
}
