package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"maitred/internal/models"
	"maitred/internal/models/providers"

	"go.uber.org/zap"
)

// ActionKind is the machine-readable half of a structured response
type ActionKind string

const (
	ActionNone     ActionKind = "none"
	ActionAddItem  ActionKind = "add_item"
	ActionFinalize ActionKind = "finalize"
	ActionUnknown  ActionKind = "unknown"
)

// Action is a parsed "action" field
type Action struct {
	Kind   ActionKind
	ItemID models.ItemID
	Raw    string
}

// StructuredResponse is the reply/action pair the model is asked to return
type StructuredResponse struct {
	Reply  string
	Action Action
}

// StructuredAction asks the model for a JSON reply/action pair. Parsed actions
// are logged; they only change the order when applyActions is set.
type StructuredAction struct {
	provider     providers.Provider
	logger       *zap.Logger
	applyActions bool
}

// NewStructuredAction creates the structured action policy
func NewStructuredAction(provider providers.Provider, logger *zap.Logger, applyActions bool) *StructuredAction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructuredAction{
		provider:     provider,
		logger:       logger.Named("structured"),
		applyActions: applyActions,
	}
}

// Name implements Policy
func (s *StructuredAction) Name() PolicyType {
	return PolicyStructuredAction
}

// Respond replays the whole conversation, then the menu and format contract
func (s *StructuredAction) Respond(ctx context.Context, ex Exchange) (string, error) {
	messages := make([]providers.Message, 0, len(ex.History)+1)
	for _, turn := range ex.History {
		messages = append(messages, providers.Message{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, providers.Message{
		Role:    string(models.RoleSystem),
		Content: BuildStructuredPrompt(ex.Menu),
	})

	raw, err := complete(ctx, s.provider, messages)
	if err != nil {
		return "", err
	}

	resp, err := ParseStructuredResponse(raw)
	if err != nil {
		return "", err
	}

	s.logger.Debug("structured action",
		zap.String("kind", string(resp.Action.Kind)),
		zap.String("item_id", string(resp.Action.ItemID)),
		zap.String("raw", resp.Action.Raw),
	)

	if s.applyActions {
		s.apply(resp.Action, ex)
	}

	return resp.Reply, nil
}

func (s *StructuredAction) apply(action Action, ex Exchange) {
	if action.Kind != ActionAddItem {
		return
	}
	item, ok := ex.Menu.FindByID(action.ItemID)
	if !ok {
		s.logger.Warn("model asked to add an unknown item", zap.String("item_id", string(action.ItemID)))
		return
	}
	ex.Order.Add(item.ID)
}

// ParseStructuredResponse decodes the model's output. The output must be a
// single JSON object with a string "reply"; there is no attempt to recover a
// reply from anything else.
func ParseStructuredResponse(raw string) (*StructuredResponse, error) {
	var payload struct {
		Reply  *string         `json:"reply"`
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseParse, err)
	}
	if payload.Reply == nil {
		return nil, fmt.Errorf("%w: missing reply", ErrResponseParse)
	}

	return &StructuredResponse{
		Reply:  *payload.Reply,
		Action: parseAction(payload.Action),
	}, nil
}

func parseAction(raw json.RawMessage) Action {
	trimmed := bytes.TrimSpace(raw)
	action := Action{Raw: string(trimmed)}

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		action.Kind = ActionNone
		return action
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		if n.String() == "-1" {
			action.Kind = ActionFinalize
		} else {
			action.Kind = ActionUnknown
		}
		return action
	}

	var add struct {
		AddItemID *models.ItemID `json:"add_item_id"`
	}
	if err := json.Unmarshal(trimmed, &add); err == nil && add.AddItemID != nil {
		action.Kind = ActionAddItem
		action.ItemID = *add.AddItemID
		return action
	}

	action.Kind = ActionUnknown
	return action
}
