package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
	"github.com/wolfman30/healthylife-gp-assistant/internal/observability/metrics"
	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

const (
	defaultModelTimeout  = 30 * time.Second
	defaultMaxToolRounds = 8
	defaultMaxHistory    = 24
)

var (
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("conversation: message is empty")

	// ErrTurnInProgress is returned when a session already has a turn running.
	ErrTurnInProgress = errors.New("conversation: a turn is already in progress for this session")

	errTooManyToolRounds = errors.New("conversation: model exceeded the tool round limit")
)

// TurnState is where a turn sits in the AwaitingModel -> ToolPending -> Done/Failed machine.
type TurnState string

const (
	StateAwaitingModel TurnState = "awaiting_model"
	StateToolPending   TurnState = "tool_pending"
	StateDone          TurnState = "done"
	StateFailed        TurnState = "failed"
)

// TurnResult describes a finished turn.
type TurnResult struct {
	SessionID  string    `json:"sessionId"`
	State      TurnState `json:"state"`
	Reply      Message   `json:"reply"`
	ToolRounds int       `json:"toolRounds"`
	ToolCalls  int       `json:"toolCalls"`

	// Cause is set when State is StateFailed.
	Cause error `json:"-"`
}

// ToolExecutor runs the model's tool calls.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Dispatch(ctx context.Context, call llm.ToolCall) (map[string]any, error)
}

// Options tunes the model calls made for each turn.
type Options struct {
	Model         string
	MaxTokens     int32
	Temperature   float32
	ModelTimeout  time.Duration
	MaxToolRounds int

	// MaxHistory caps the model history kept per session. Zero means the default.
	MaxHistory int
}

// Assistant runs patient turns against the model and the booking tools.
type Assistant struct {
	client   llm.Client
	tools    ToolExecutor
	sessions SessionStore
	policy   surgery.Policy
	system   string
	opts     Options

	logger  *logging.Logger
	metrics *metrics.AssistantMetrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	active map[string]struct{}
}

// AssistantOption configures optional collaborators.
type AssistantOption func(*Assistant)

func WithLogger(logger *logging.Logger) AssistantOption {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.AssistantMetrics) AssistantOption {
	return func(a *Assistant) {
		a.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) AssistantOption {
	return func(a *Assistant) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithClock replaces time.Now for transcript timestamps.
func WithClock(now func() time.Time) AssistantOption {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSessionIDs replaces the UUID session id generator.
func WithSessionIDs(newID func() string) AssistantOption {
	return func(a *Assistant) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// NewAssistant wires an assistant. systemPrompt is sent with every model call.
func NewAssistant(client llm.Client, tools ToolExecutor, sessions SessionStore, policy surgery.Policy, systemPrompt string, opts Options, options ...AssistantOption) *Assistant {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if tools == nil {
		panic("conversation: tool executor cannot be nil")
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = defaultModelTimeout
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = defaultMaxToolRounds
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}

	a := &Assistant{
		client:   client,
		tools:    tools,
		sessions: sessions,
		policy:   policy,
		system:   systemPrompt,
		opts:     opts,
		logger:   logging.Default(),
		tracer:   otel.Tracer("healthylife.internal.conversation"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		active:   make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// StartSession creates a session whose transcript opens with the greeting.
// The greeting is not part of the model history.
func (a *Assistant) StartSession(ctx context.Context) (*Session, error) {
	now := a.now()
	session := &Session{
		ID:        a.newID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if greeting := strings.TrimSpace(a.policy.Greeting); greeting != "" {
		session.Transcript = append(session.Transcript, Message{Role: RoleAssistant, Text: greeting, Timestamp: now})
	}
	if err := a.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	a.logger.Info("session started", "session_id", session.ID)
	return session, nil
}

// Session returns a stored session.
func (a *Assistant) Session(ctx context.Context, id string) (*Session, error) {
	return a.sessions.Load(ctx, id)
}

// HandleTurn runs one user turn to completion.
//
// Model and tool failures end the turn in StateFailed with a single apology in
// the transcript; they are reported through TurnResult, not the error. The error
// is reserved for bad input, unknown sessions, concurrent turns and failures
// to persist the session.
func (a *Assistant) HandleTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !a.acquire(sessionID) {
		return nil, ErrTurnInProgress
	}
	defer a.release(sessionID)

	session, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "conversation.turn", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session.Transcript = append(session.Transcript, Message{Role: RoleUser, Text: text, Timestamp: a.now()})
	session.History = append(session.History, llm.ChatMessage{Role: llm.RoleUser, Content: text})

	result := &TurnResult{SessionID: sessionID}
	history, reply, err := a.run(ctx, session.History, result)
	if err != nil {
		span.RecordError(err)
		result.State = StateFailed
		result.Cause = err
		reply = a.policy.FailureApology
		// Drop any partial tool exchange; keep the user message and answer it with the apology
		// so roles still alternate on the next turn.
		session.History = append(session.History, llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})
		a.logger.Warn("turn failed", "session_id", sessionID, "tool_rounds", result.ToolRounds, "error", err)
	} else {
		result.State = StateDone
		if strings.TrimSpace(reply) == "" {
			reply = a.policy.EmptyReplyFallback
		}
		session.History = append(history, llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})
		a.logger.Info("turn completed", "session_id", sessionID, "tool_rounds", result.ToolRounds, "tool_calls", result.ToolCalls)
	}

	result.Reply = Message{Role: RoleAssistant, Text: reply, Timestamp: a.now()}
	session.Transcript = append(session.Transcript, result.Reply)
	session.UpdatedAt = result.Reply.Timestamp
	a.metrics.ObserveTurn(string(result.State), result.ToolRounds)
	session.History = trimHistory(session.History, a.opts.MaxHistory)

	if err := a.sessions.Save(context.WithoutCancel(ctx), session); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// run drives the state machine on a private copy of history and returns the extended history
// and the model's final text.
func (a *Assistant) run(ctx context.Context, base []llm.ChatMessage, result *TurnResult) ([]llm.ChatMessage, string, error) {
	history := append([]llm.ChatMessage(nil), base...)
	tools := a.tools.Definitions()

	state := StateAwaitingModel
	for {
		a.logger.Debug("turn state", "session_id", result.SessionID, "state", state, "round", result.ToolRounds)

		resp, err := a.complete(ctx, history, tools)
		if err != nil {
			return nil, "", err
		}
		if !resp.HasToolCalls() {
			return history, resp.Text, nil
		}
		if result.ToolRounds >= a.opts.MaxToolRounds {
			return nil, "", fmt.Errorf("%w (%d)", errTooManyToolRounds, a.opts.MaxToolRounds)
		}

		state = StateToolPending
		result.ToolRounds++
		a.logger.Debug("turn state", "session_id", result.SessionID, "state", state, "round", result.ToolRounds, "calls", len(resp.ToolCalls))

		history = append(history, llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			if err := ctx.Err(); err != nil {
				return nil, "", err
			}
			payload, err := a.tools.Dispatch(ctx, call)
			if err != nil {
				return nil, "", fmt.Errorf("conversation: tool %s: %w", call.Name, err)
			}
			result.ToolCalls++
			results = append(results, llm.ToolResult{CallID: call.ID, Name: call.Name, Response: payload})
		}
		history = append(history, llm.ChatMessage{Role: llm.RoleUser, ToolResults: results})
		state = StateAwaitingModel
	}
}

func (a *Assistant) complete(ctx context.Context, history []llm.ChatMessage, tools []llm.ToolDefinition) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "conversation.model_call")
	defer span.End()

	start := time.Now()
	resp, err := a.client.Complete(ctx, llm.Request{
		Model:       a.opts.Model,
		System:      []string{a.system},
		Messages:    trimHistory(history, a.opts.MaxHistory),
		Tools:       tools,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	a.metrics.ObserveModelLatency(err != nil, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return llm.Response{}, fmt.Errorf("conversation: model call: %w", err)
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", int(resp.Usage.InputTokens)),
		attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
		attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
	)
	return resp, nil
}

// trimHistory keeps at most limit of the newest messages, cutting only in front of a
// plain user message so tool calls are never separated from their results. When the
// newest exchange alone is longer than limit, it is kept whole.
func trimHistory(history []llm.ChatMessage, limit int) []llm.ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	last := -1
	for i := range history {
		if !isPlainUserMessage(history[i]) {
			continue
		}
		if i >= len(history)-limit {
			return history[i:]
		}
		last = i
	}
	if last < 0 {
		return history
	}
	return history[last:]
}

func isPlainUserMessage(msg llm.ChatMessage) bool {
	return msg.Role == llm.RoleUser && len(msg.ToolResults) == 0
}

func (a *Assistant) acquire(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.active[sessionID]; busy {
		return false
	}
	a.active[sessionID] = struct{}{}
	return true
}

func (a *Assistant) release(sessionID string) {
	a.mu.Lock()
	delete(a.active, sessionID)
	a.mu.Unlock()
}
