package agents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"maitred/internal/models"
	"maitred/internal/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed lines of the ordering dialogue
const (
	Greeting        = "Hey, how are you doing today? What would you like to have?"
	ConfirmQuestion = "Is there anything else you need help with before I go off?"
	ResumeLine      = "Sure, let me know how I can assist you further!"
	ApologyReply    = "I'm sorry, I'm having trouble processing your request right now."

	InputPrompt = "You: "
	AgentPrefix = "Agent: "
)

var (
	// ExitKeywords end active chatting when typed on their own
	ExitKeywords = []string{"exit", "quit", "bye"}
	// ConfirmKeywords confirm the exit and end the session
	ConfirmKeywords = []string{"no", "nothing", "go ahead", "bye"}
)

// State of the ordering dialogue
type State int

const (
	StateGreeting State = iota
	StateActive
	StateConfirmExit
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateActive:
		return "active"
	case StateConfirmExit:
		return "confirm_exit"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// OrderRecorder persists the order of a finished session
type OrderRecorder interface {
	RecordOrder(ctx context.Context, record *models.OrderRecord) error
}

// WaiterOption configures optional collaborators of a Waiter
type WaiterOption func(*Waiter)

// WithMonitor counts turns, failures and orders on m
func WithMonitor(m *monitoring.Monitor) WaiterOption {
	return func(w *Waiter) {
		w.monitor = m
	}
}

// WithRecorder stores the final order of the session
func WithRecorder(r OrderRecorder) WaiterOption {
	return func(w *Waiter) {
		w.recorder = r
	}
}

// WithSessionID overrides the generated session id
func WithSessionID(id string) WaiterOption {
	return func(w *Waiter) {
		w.sessionID = id
	}
}

// Waiter runs one console ordering session: it reads user lines, asks the
// policy for replies and reports the order when the customer leaves.
type Waiter struct {
	menu      *models.Menu
	policy    Policy
	logger    *zap.Logger
	monitor   *monitoring.Monitor
	recorder  OrderRecorder
	sessionID string

	history *models.Conversation
	order   *models.Order
	state   State
	started time.Time
}

// NewWaiter creates a waiter for a single session
func NewWaiter(menu *models.Menu, policy Policy, logger *zap.Logger, opts ...WaiterOption) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Waiter{
		menu:      menu,
		policy:    policy,
		sessionID: uuid.NewString(),
		history:   models.NewConversation(),
		order:     models.NewOrder(),
		state:     StateGreeting,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.monitor == nil {
		w.monitor = monitoring.NewMonitor()
	}
	w.logger = logger.With(zap.String("session", w.sessionID), zap.String("policy", string(policy.Name())))
	return w
}

// State returns the current dialogue state
func (w *Waiter) State() State {
	return w.state
}

// Order returns the session's order
func (w *Waiter) Order() *models.Order {
	return w.order
}

// History returns the conversation so far
func (w *Waiter) History() []models.Turn {
	return w.history.Turns()
}

// SessionID identifies this session in logs and in the ledger
func (w *Waiter) SessionID() string {
	return w.sessionID
}

// Serve runs the dialogue until the customer confirms they are done or input
// ends. Per-turn failures never end the session; only I/O errors and a
// cancelled ctx are returned. Cancellation is noticed while waiting for input.
func (w *Waiter) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	w.started = time.Now()

	if err := w.welcome(out); err != nil {
		return err
	}

	for w.state != StateEnded {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := io.WriteString(out, InputPrompt); err != nil {
			return err
		}
		input, err := readLine(ctx, reader)
		if errors.Is(err, io.EOF) {
			w.logger.Debug("input closed", zap.Stringer("state", w.state))
			return w.finish(ctx, out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		switch w.state {
		case StateActive:
			if matchesKeyword(input, ExitKeywords) {
				w.state = StateConfirmExit
				if err := w.say(out, ConfirmQuestion); err != nil {
					return err
				}
				continue
			}
			if err := w.handleTurn(ctx, input, out); err != nil {
				return err
			}
		case StateConfirmExit:
			if matchesKeyword(input, ConfirmKeywords) {
				return w.finish(ctx, out)
			}
			w.state = StateActive
			if err := w.say(out, ResumeLine); err != nil {
				return err
			}
		}
	}
	return nil
}

// welcome lists the categories and greets the customer
func (w *Waiter) welcome(out io.Writer) error {
	var b strings.Builder
	b.WriteString("\nHere are our available categories:\n")
	for _, name := range w.menu.CategoryNames() {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	if _, err := io.WriteString(out, b.String()); err != nil {
		return err
	}

	if err := w.say(out, Greeting); err != nil {
		return err
	}
	w.history.Append(models.RoleAssistant, Greeting)
	w.state = StateActive
	return nil
}

// handleTurn records the input, asks the policy for a reply and records it
func (w *Waiter) handleTurn(ctx context.Context, input string, out io.Writer) error {
	w.history.Append(models.RoleUser, input)

	before := w.order.Len()
	start := time.Now()
	reply, err := w.policy.Respond(ctx, Exchange{
		Input:   input,
		History: w.history.Turns(),
		Menu:    w.menu,
		Order:   w.order,
	})
	policy := string(w.policy.Name())
	w.monitor.RecordTurn(policy, time.Since(start))

	if err != nil {
		kind := monitoring.MetricCompletionError
		if errors.Is(err, ErrResponseParse) {
			kind = monitoring.MetricParseError
		}
		w.monitor.RecordFailure(policy, kind)
		w.logger.Error("Error communicating with the completion service", zap.Error(err))
		reply = ApologyReply
	}
	w.monitor.RecordItemsAdded(policy, w.order.Len()-before)

	if err := w.say(out, reply); err != nil {
		return err
	}
	w.history.Append(models.RoleAssistant, reply)
	return nil
}

// finish reports the order and ends the session
func (w *Waiter) finish(ctx context.Context, out io.Writer) error {
	w.state = StateEnded

	outcome := "ordered"
	if w.order.Empty() {
		outcome = "empty"
	}
	w.monitor.RecordSession(outcome)
	w.monitor.RecordMetric(monitoring.MetricLastSession, w.sessionID)
	w.monitor.RecordMetric(monitoring.MetricLastOrder, w.order.String())
	w.logger.Info("session ended", zap.String("order", w.order.String()), zap.Int("turns", w.history.Len()))

	if w.recorder != nil && !w.order.Empty() {
		record := models.NewOrderRecord(w.sessionID, string(w.policy.Name()), w.order, w.menu)
		record.Turns = w.history.Len()
		record.TimeStarted = w.started
		record.TimeEnded = time.Now()
		if err := w.recorder.RecordOrder(ctx, record); err != nil {
			w.logger.Error("failed to record order", zap.Error(err))
		}
	}

	return w.say(out, w.order.String())
}

func (w *Waiter) say(out io.Writer, text string) error {
	_, err := fmt.Fprintf(out, "%s%s\n", AgentPrefix, text)
	return err
}

type lineResult struct {
	text string
	err  error
}

// readLine returns the next line without its line ending. Lines have no
// length limit. A final line without a newline is returned before io.EOF.
// The read runs in its own goroutine so a blocked terminal read does not
// hold up cancellation; the goroutine finishes when the read does.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	done := make(chan lineResult, 1)
	go func() {
		text, err := reader.ReadString('\n')
		done <- lineResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.text != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

// matchesKeyword compares the whole input, ignoring case
func matchesKeyword(input string, keywords []string) bool {
	lower := strings.ToLower(input)
	for _, k := range keywords {
		if lower == k {
			return true
		}
	}
	return false
}
