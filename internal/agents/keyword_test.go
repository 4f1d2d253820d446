package agents

import (
	"context"
	"errors"
	"testing"

	"maitred/internal/models"
	"maitred/internal/models/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKeywordHeuristic_AddsMentionedItem(t *testing.T) {
	menu := testMenu(t)
	provider := new(MockProvider)
	policy := NewKeywordHeuristic(provider, zaptest.NewLogger(t))

	input := "I want to order the Burger"
	provider.On("Complete", mock.Anything, []providers.Message{
		{Role: "system", Content: BuildMenuPrompt(menu)},
		{Role: "user", Content: input},
	}).Return("Great choice!", nil).Once()

	order := models.NewOrder()
	reply, err := policy.Respond(context.Background(), Exchange{
		Input: input,
		History: []models.Turn{
			{Role: models.RoleAssistant, Text: Greeting},
			{Role: models.RoleUser, Text: input},
		},
		Menu:  menu,
		Order: order,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.ItemID{"3"}, order.Items())
	assert.Equal(t, "Great choice! I've added Burger to your order.", reply)
	provider.AssertExpectations(t)
}

func TestKeywordHeuristic_UnknownItem(t *testing.T) {
	menu := testMenu(t)
	provider := new(MockProvider)
	provider.On("Complete", mock.Anything, mock.Anything).Return("Let me check.", nil)

	order := models.NewOrder()
	reply, err := NewKeywordHeuristic(provider, nil).Respond(context.Background(), Exchange{
		Input: "add Pizza",
		Menu:  menu,
		Order: order,
	})
	require.NoError(t, err)

	assert.True(t, order.Empty())
	assert.Equal(t, "Let me check."+clarificationClause, reply)
}

func TestKeywordHeuristic_NoTrigger(t *testing.T) {
	menu := testMenu(t)
	provider := new(MockProvider)
	provider.On("Complete", mock.Anything, mock.Anything).Return("  The fries are crispy.\n", nil)

	order := models.NewOrder()
	reply, err := NewKeywordHeuristic(provider, nil).Respond(context.Background(), Exchange{
		Input: "How are the fries?",
		Menu:  menu,
		Order: order,
	})
	require.NoError(t, err)

	assert.True(t, order.Empty())
	assert.Equal(t, "The fries are crispy.", reply)
}

func TestKeywordHeuristic_TransportError(t *testing.T) {
	menu := testMenu(t)
	provider := new(MockProvider)
	provider.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("502 bad gateway"))

	order := models.NewOrder()
	_, err := NewKeywordHeuristic(provider, nil).Respond(context.Background(), Exchange{
		Input: "I would like fries",
		Menu:  menu,
		Order: order,
	})
	assert.True(t, errors.Is(err, ErrCompletion))
	assert.True(t, order.Empty())
}

func TestHasOrderTrigger(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"I would like a salad", true},
		{"I WANT fries", true},
		{"please add a cola", true},
		{"can I order now?", true},
		{"what's good here?", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasOrderTrigger(tt.input), tt.input)
	}
}

func TestNewPolicy(t *testing.T) {
	provider := new(MockProvider)

	p, err := NewPolicy(PolicyStructuredAction, provider, nil, false)
	require.NoError(t, err)
	assert.Equal(t, PolicyStructuredAction, p.Name())

	p, err = NewPolicy(PolicyKeywordHeuristic, provider, nil, false)
	require.NoError(t, err)
	assert.Equal(t, PolicyKeywordHeuristic, p.Name())

	_, err = NewPolicy("smart", provider, nil, false)
	assert.Error(t, err)
}
