package agents

import (
	"context"
	"testing"

	"maitred/internal/models"
	"maitred/internal/models/providers"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProvider is a mock implementation of providers.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Complete(ctx context.Context, messages []providers.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

const testCatalog = `{
  "categories": {
    "mains": [
      {"id": 3, "name": "Burger", "price": 9.5},
      {"id": 5, "name": "Salad", "price": 7}
    ],
    "sides": [
      {"id": 7, "name": "Fries", "price": 3}
    ]
  }
}`

func testMenu(t *testing.T) *models.Menu {
	t.Helper()
	menu, err := models.ParseMenuJSON([]byte(testCatalog))
	require.NoError(t, err)
	return menu
}
