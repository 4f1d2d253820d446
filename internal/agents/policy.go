package agents

import (
	"context"
	"errors"
	"fmt"

	"maitred/internal/models"
	"maitred/internal/models/providers"

	"go.uber.org/zap"
)

var (
	// ErrCompletion wraps any failure to obtain a completion from the provider
	ErrCompletion = errors.New("completion request failed")
	// ErrResponseParse is returned when the model's output breaks the reply/action contract
	ErrResponseParse = errors.New("model response could not be parsed")
)

// PolicyType selects how a policy turns model output into order changes
type PolicyType string

const (
	PolicyStructuredAction PolicyType = "structured"
	PolicyKeywordHeuristic PolicyType = "keyword"
)

// Exchange is everything a policy may look at for one user turn. History
// already ends with the current user turn.
type Exchange struct {
	Input   string
	History []models.Turn
	Menu    *models.Menu
	Order   *models.Order
}

// Policy produces the assistant's reply for one user turn and may add items
// to the order while doing so
type Policy interface {
	Name() PolicyType
	Respond(ctx context.Context, ex Exchange) (string, error)
}

// NewPolicy builds the policy named by kind
func NewPolicy(kind PolicyType, provider providers.Provider, logger *zap.Logger, applyActions bool) (Policy, error) {
	switch kind {
	case PolicyStructuredAction:
		return NewStructuredAction(provider, logger, applyActions), nil
	case PolicyKeywordHeuristic:
		return NewKeywordHeuristic(provider, logger), nil
	default:
		return nil, fmt.Errorf("unknown policy: %q (want %q or %q)", kind, PolicyStructuredAction, PolicyKeywordHeuristic)
	}
}

// complete sends messages and classifies any failure as ErrCompletion
func complete(ctx context.Context, provider providers.Provider, messages []providers.Message) (string, error) {
	text, err := provider.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	return text, nil
}
