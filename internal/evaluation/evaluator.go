package evaluation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"maitred/internal/agents"
	"maitred/internal/models"
	"maitred/internal/monitoring"

	"go.uber.org/zap"
)

// Evaluator replays scripted conversations against a policy and scores the
// order each one ends with
type Evaluator struct {
	menu      *models.Menu
	scenarios map[string]*TestScenario
	order     []string
	monitor   *monitoring.Monitor
	logger    *zap.Logger
}

// EvaluationResult is the outcome of one scenario run
type EvaluationResult struct {
	Model    string                 `json:"model"`
	Policy   string                 `json:"policy"`
	Scenario string                 `json:"scenario"`
	Order    string                 `json:"order"`
	Expected string                 `json:"expected"`
	Metrics  map[string]interface{} `json:"metrics"`
	Events   []EventLog             `json:"events,omitempty"`
}

// EventLog is one exchange of the replayed conversation
type EventLog struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// NewEvaluator creates an evaluator for the given menu and scenarios
func NewEvaluator(menu *models.Menu, scenarios []*TestScenario, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		menu:      menu,
		scenarios: make(map[string]*TestScenario, len(scenarios)),
		monitor:   monitoring.NewMonitor(),
		logger:    logger.Named("evaluation"),
	}
	for _, s := range scenarios {
		e.scenarios[s.ID] = s
		e.order = append(e.order, s.ID)
	}
	return e
}

// HasScenario checks if a scenario exists
func (e *Evaluator) HasScenario(id string) bool {
	_, exists := e.scenarios[id]
	return exists
}

// GetScenarios returns all scenarios in file order
func (e *Evaluator) GetScenarios() []*TestScenario {
	scenarios := make([]*TestScenario, 0, len(e.order))
	for _, id := range e.order {
		scenarios = append(scenarios, e.scenarios[id])
	}
	return scenarios
}

// EvaluateModel runs one scenario through a fresh session driven by policy.
// The customer's lines are followed by an exit and a confirmation so every
// run reports an order.
func (e *Evaluator) EvaluateModel(ctx context.Context, model string, policy agents.Policy, scenarioID string) (*EvaluationResult, error) {
	scenario, exists := e.scenarios[scenarioID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioID)
	}

	expected, err := e.expectedOrder(scenario)
	if err != nil {
		return nil, err
	}

	lines := append(append([]string{}, scenario.Turns...), "bye", "no")
	// the snapshot only holds counts for the current run
	e.monitor.Reset()
	waiter := agents.NewWaiter(e.menu, policy, e.logger,
		agents.WithSessionID("eval-"+scenario.ID), agents.WithMonitor(e.monitor))

	e.logger.Info("evaluating scenario", zap.String("scenario", scenario.ID), zap.String("model", model))
	start := time.Now()
	if err := waiter.Serve(ctx, strings.NewReader(strings.Join(lines, "\n")+"\n"), io.Discard); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.ID, err)
	}
	elapsed := time.Since(start)

	history := waiter.History()
	metrics := scoreOrder(expected.Items(), waiter.Order().Items())
	completionErrors := e.count(monitoring.MetricCompletionError)
	parseErrors := e.count(monitoring.MetricParseError)
	metrics["completion_errors"] = completionErrors
	metrics["parse_errors"] = parseErrors
	metrics["apologies"] = completionErrors + parseErrors
	metrics["turns"] = len(history)
	metrics["duration_seconds"] = elapsed.Seconds()

	return &EvaluationResult{
		Model:    model,
		Policy:   string(policy.Name()),
		Scenario: scenario.ID,
		Order:    waiter.Order().String(),
		Expected: expected.String(),
		Metrics:  metrics,
		Events:   eventsFrom(history),
	}, nil
}

// EvaluateAll runs every scenario in file order
func (e *Evaluator) EvaluateAll(ctx context.Context, model string, policy agents.Policy) ([]*EvaluationResult, error) {
	scenarios := e.GetScenarios()
	results := make([]*EvaluationResult, 0, len(scenarios))
	for _, s := range scenarios {
		result, err := e.EvaluateModel(ctx, model, policy, s.ID)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Evaluator) expectedOrder(s *TestScenario) (*models.Order, error) {
	order := models.NewOrder()
	for _, name := range s.Expect {
		item, ok := e.menu.FindByName(name)
		if !ok {
			return nil, fmt.Errorf("scenario %s expects %q, which is not on the menu", s.ID, name)
		}
		order.Add(item.ID)
	}
	return order, nil
}

// scoreOrder compares the orders as multisets
func scoreOrder(expected, actual []models.ItemID) map[string]interface{} {
	want := make(map[models.ItemID]int, len(expected))
	for _, id := range expected {
		want[id]++
	}
	matched := 0
	for _, id := range actual {
		if want[id] > 0 {
			want[id]--
			matched++
		}
	}

	precision, recall := 1.0, 1.0
	if len(actual) > 0 {
		precision = float64(matched) / float64(len(actual))
	}
	if len(expected) > 0 {
		recall = float64(matched) / float64(len(expected))
	}

	return map[string]interface{}{
		"exact_match": matched == len(expected) && matched == len(actual),
		"precision":   precision,
		"recall":      recall,
	}
}

func (e *Evaluator) count(metric string) int {
	value, _ := e.monitor.GetMetric(metric)
	n, _ := value.(int)
	return n
}

// eventsFrom pairs each customer line with the reply that followed it
func eventsFrom(history []models.Turn) []EventLog {
	var events []EventLog
	for i, turn := range history {
		if turn.Role != models.RoleUser {
			continue
		}
		data := map[string]interface{}{"input": turn.Text}
		if i+1 < len(history) {
			data["reply"] = history[i+1].Text
		}
		events = append(events, EventLog{Type: "exchange", Data: data})
	}
	return events
}
