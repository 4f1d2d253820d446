package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{
  "categories": {
    "mains": [
      {"id": 3, "name": "Burger", "price": 9.5},
      {"id": 4, "name": "Cheese Burger", "price": 11}
    ],
    "sides": [
      {"id": "7", "name": "Fries", "price": 3.25}
    ],
    "drinks": [
      {"id": 9, "name": "Cola", "price": 2}
    ]
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testMenu(t *testing.T) *Menu {
	t.Helper()
	menu, err := ParseMenuJSON([]byte(testCatalog))
	require.NoError(t, err)
	return menu
}

func TestLoadMenu_JSON(t *testing.T) {
	menu, err := LoadMenu(writeFile(t, "menu.json", testCatalog))
	require.NoError(t, err)

	require.Len(t, menu.Categories, 3)
	assert.Equal(t, []string{"Mains", "Sides", "Drinks"}, menu.CategoryNames())

	items := menu.Items()
	require.Len(t, items, 4)
	assert.Equal(t, ItemID("3"), items[0].ID)
	assert.Equal(t, ItemID("7"), items[2].ID)
	assert.Equal(t, "sides", items[2].Category)
	assert.Equal(t, 9.5, items[0].Price)
}

func TestLoadMenu_BareMapping(t *testing.T) {
	menu, err := ParseMenuJSON([]byte(`{"desserts": [{"id": 1, "name": "Pie", "price": 4}], "coffee": []}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Desserts", "Coffee"}, menu.CategoryNames())
}

func TestLoadMenu_YAML(t *testing.T) {
	catalog := `
categories:
  starters:
    - id: 1
      name: Soup
      price: 4.5
  mains:
    - id: 2
      name: Steak
      price: 21
`
	menu, err := LoadMenu(writeFile(t, "menu.yaml", catalog))
	require.NoError(t, err)

	assert.Equal(t, []string{"Starters", "Mains"}, menu.CategoryNames())
	item, ok := menu.FindByID("2")
	require.True(t, ok)
	assert.Equal(t, "Steak", item.Name)
	assert.Equal(t, "mains", item.Category)
}

func TestLoadMenu_NotFound(t *testing.T) {
	_, err := LoadMenu(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogNotFound))
	assert.False(t, errors.Is(err, ErrCatalogMalformed))
}

func TestLoadMenu_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"truncated json", "menu.json", `{"categories": {"mains": [`},
		{"not an object", "menu.json", `[1, 2, 3]`},
		{"items not a list", "menu.json", `{"mains": {"id": 1}}`},
		{"trailing data", "menu.json", `{"mains": []} {}`},
		{"missing id", "menu.json", `{"mains": [{"name": "Burger", "price": 1}]}`},
		{"missing name", "menu.json", `{"mains": [{"id": 1, "price": 1}]}`},
		{"duplicate id", "menu.json", `{"mains": [{"id": 1, "name": "A"}, {"id": 1, "name": "B"}]}`},
		{"bad yaml", "menu.yml", "mains: [\n  - id: 1\n"},
		{"yaml list", "menu.yaml", "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMenu(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCatalogMalformed), "got %v", err)
			assert.False(t, errors.Is(err, ErrCatalogNotFound))
		})
	}
}

func TestFindByID(t *testing.T) {
	menu := testMenu(t)

	for _, want := range menu.Items() {
		got, ok := menu.FindByID(want.ID)
		assert.True(t, ok, "id %s", want.ID)
		assert.Equal(t, want, got)
	}

	_, ok := menu.FindByID("42")
	assert.False(t, ok)
}

func TestFindByName(t *testing.T) {
	menu := testMenu(t)

	for _, want := range menu.Items() {
		got, ok := menu.FindByName(want.Name)
		assert.True(t, ok, "name %s", want.Name)
		assert.Equal(t, want, got)
	}

	for _, name := range []string{"fries", "FRIES", "Fries"} {
		got, ok := menu.FindByName(name)
		assert.True(t, ok)
		assert.Equal(t, ItemID("7"), got.ID)
	}

	_, ok := menu.FindByName("Pizza")
	assert.False(t, ok)
	_, ok = menu.FindByName("Burg")
	assert.False(t, ok, "partial names must not match")
}

func TestFindByName_FirstMatchWins(t *testing.T) {
	menu, err := ParseMenuJSON([]byte(`{"a": [{"id": 1, "name": "Tea"}], "b": [{"id": 2, "name": "tea"}]}`))
	require.NoError(t, err)

	item, ok := menu.FindByName("TEA")
	require.True(t, ok)
	assert.Equal(t, ItemID("1"), item.ID)
}

func TestExtractMentionedName(t *testing.T) {
	menu := testMenu(t)

	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"I want to order the Burger", "Burger", true},
		{"one cheese burger please", "Burger", true}, // "Burger" is listed first
		{"some FRIES on the side", "Fries", true},
		{"no fries for me", "Fries", true},
		{"a cola and fries", "Fries", true},
		{"what do you recommend?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := menu.ExtractMentionedName(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMenuFormat(t *testing.T) {
	menu := testMenu(t)

	want := "Mains:\n" +
		" - Burger ($9.5)\n" +
		" - Cheese Burger ($11)\n" +
		"Sides:\n" +
		" - Fries ($3.25)\n" +
		"Drinks:\n" +
		" - Cola ($2)\n"
	assert.Equal(t, want, menu.Format())
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Main course", Capitalize("MAIN COURSE"))
	assert.Equal(t, "Épices", Capitalize("épices"))
	assert.Equal(t, "", Capitalize(""))
}
