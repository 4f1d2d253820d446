package agents

import (
	"context"
	"fmt"
	"strings"

	"maitred/internal/models"
	"maitred/internal/models/providers"

	"go.uber.org/zap"
)

// OrderTriggers are the phrases that make the keyword policy look for an item
var OrderTriggers = []string{"i would like", "i want", "add", "order"}

const (
	confirmationClause  = " I've added %s to your order."
	clarificationClause = " I couldn't find that item on the menu. Could you tell me exactly which item you'd like to add?"
)

// KeywordHeuristic lets the model chat freely and decides order changes on
// the client by scanning the user's words for trigger phrases and item names
type KeywordHeuristic struct {
	provider providers.Provider
	logger   *zap.Logger
}

// NewKeywordHeuristic creates the keyword heuristic policy
func NewKeywordHeuristic(provider providers.Provider, logger *zap.Logger) *KeywordHeuristic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordHeuristic{
		provider: provider,
		logger:   logger.Named("keyword"),
	}
}

// Name implements Policy
func (k *KeywordHeuristic) Name() PolicyType {
	return PolicyKeywordHeuristic
}

// Respond sends only the menu prompt and the current input, never the
// replayed history
func (k *KeywordHeuristic) Respond(ctx context.Context, ex Exchange) (string, error) {
	messages := []providers.Message{
		{Role: string(models.RoleSystem), Content: BuildMenuPrompt(ex.Menu)},
		{Role: string(models.RoleUser), Content: ex.Input},
	}

	reply, err := complete(ctx, k.provider, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)

	if !HasOrderTrigger(ex.Input) {
		return reply, nil
	}

	name, ok := ex.Menu.ExtractMentionedName(ex.Input)
	if ok {
		k.logger.Debug("detected item name", zap.String("name", name))
	}
	item, found := ex.Menu.FindByName(name)
	if !ok || !found {
		return reply + clarificationClause, nil
	}

	ex.Order.Add(item.ID)
	return reply + fmt.Sprintf(confirmationClause, item.Name), nil
}

// HasOrderTrigger reports whether text contains any trigger phrase, ignoring case
func HasOrderTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range OrderTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
