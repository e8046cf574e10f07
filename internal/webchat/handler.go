package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/healthylife-gp-assistant/internal/conversation"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// Assistant is the part of conversation.Assistant the chat socket needs.
type Assistant interface {
	StartSession(ctx context.Context) (*conversation.Session, error)
	Session(ctx context.Context, id string) (*conversation.Session, error)
	HandleTurn(ctx context.Context, sessionID, text string) (*conversation.TurnResult, error)
}

// Handler serves the browser chat over a WebSocket.
type Handler struct {
	assistant Assistant
	logger    *logging.Logger
}

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "typing", "message", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	State     string           `json:"state,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a transcript entry in a history frame.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(assistant Assistant, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		assistant: assistant,
		logger:    logger,
	}
}

// HandleWebSocket upgrades to WebSocket and runs turns as messages arrive.
// ?session=<id> resumes an existing session; otherwise a new one is started.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	session, err := h.openSession(ctx, r.URL.Query().Get("session"))
	if err != nil {
		h.logger.Error("webchat: failed to open session", "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, the chat is unavailable. Please call the surgery directly."})
		return
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: session.ID})
	if len(session.Transcript) > 0 {
		history := make([]HistoryMessage, 0, len(session.Transcript))
		for _, m := range session.Transcript {
			history = append(history, HistoryMessage{
				Role:      m.Role,
				Text:      m.Text,
				Timestamp: m.Timestamp.Format(time.RFC3339),
			})
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	h.logger.Info("webchat: connection opened", "session_id", session.ID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", session.ID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		_ = websocket.JSON.Send(conn, h.processMessage(ctx, session.ID, msg.Text))
	}
}

func (h *Handler) openSession(ctx context.Context, id string) (*conversation.Session, error) {
	if id = strings.TrimSpace(id); id != "" {
		session, err := h.assistant.Session(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, conversation.ErrSessionNotFound) {
			return nil, err
		}
		h.logger.Info("webchat: unknown session, starting a new one", "session_id", id)
	}
	return h.assistant.StartSession(ctx)
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) OutboundMessage {
	result, err := h.assistant.HandleTurn(ctx, sessionID, text)
	if err != nil {
		if errors.Is(err, conversation.ErrTurnInProgress) {
			return OutboundMessage{Type: "error", Text: "Please wait for the current reply before sending another message."}
		}
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		return OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."}
	}
	return OutboundMessage{
		Type:      "message",
		Role:      result.Reply.Role,
		Text:      result.Reply.Text,
		State:     string(result.State),
		SessionID: sessionID,
		Timestamp: result.Reply.Timestamp.Format(time.RFC3339),
	}
}
