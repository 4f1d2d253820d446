package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCatalogNotFound is returned when the catalog file does not exist
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrCatalogMalformed is returned when the catalog cannot be decoded
	ErrCatalogMalformed = errors.New("catalog malformed")
)

// ItemID identifies a menu item. Catalogs may spell it as a number or a string.
type ItemID string

// UnmarshalJSON accepts both `3` and `"3"`
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar
func (id *ItemID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("item id must be a scalar, line %d", value.Line)
	}
	*id = ItemID(value.Value)
	return nil
}

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID       ItemID  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Price    float64 `json:"price" yaml:"price"`
	Category string  `json:"-" yaml:"-"`
}

// MenuCategory is a named, ordered group of items
type MenuCategory struct {
	Name  string
	Items []MenuItem
}

// Menu is the read-only catalog loaded at startup. Categories and items keep
// the order they had in the catalog file.
type Menu struct {
	Categories []MenuCategory
}

// LoadMenu reads a catalog from path. JSON is the default format; files ending
// in .yaml or .yml are decoded as YAML.
func LoadMenu(path string) (*Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var menu *Menu
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		menu, err = ParseMenuYAML(data)
	default:
		menu, err = ParseMenuJSON(data)
	}
	if err != nil {
		return nil, err
	}
	return menu, nil
}

// ParseMenuJSON decodes a JSON catalog, either wrapped in a "categories" key
// or as a bare mapping from category name to item list.
func ParseMenuJSON(data []byte) (*Menu, error) {
	fields, err := orderedJSONObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogMalformed, err)
	}

	for _, f := range fields {
		if f.key == "categories" {
			fields, err = orderedJSONObject(f.value)
			if err != nil {
				return nil, fmt.Errorf("%w: categories: %v", ErrCatalogMalformed, err)
			}
			break
		}
	}

	menu := &Menu{}
	for _, f := range fields {
		var items []MenuItem
		if err := json.Unmarshal(f.value, &items); err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrCatalogMalformed, f.key, err)
		}
		menu.Categories = append(menu.Categories, MenuCategory{Name: f.key, Items: items})
	}

	if err := menu.finish(); err != nil {
		return nil, err
	}
	return menu, nil
}

// ParseMenuYAML decodes a YAML catalog with the same shape as the JSON one
func ParseMenuYAML(data []byte) (*Menu, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCatalogMalformed)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrCatalogMalformed)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "categories" {
			root = root.Content[i+1]
			if root.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: categories must be a mapping", ErrCatalogMalformed)
			}
			break
		}
	}

	menu := &Menu{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var items []MenuItem
		if err := root.Content[i+1].Decode(&items); err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrCatalogMalformed, name, err)
		}
		menu.Categories = append(menu.Categories, MenuCategory{Name: name, Items: items})
	}

	if err := menu.finish(); err != nil {
		return nil, err
	}
	return menu, nil
}

// finish stamps categories onto items and validates identifiers
func (m *Menu) finish() error {
	seen := make(map[ItemID]bool)
	for ci := range m.Categories {
		cat := &m.Categories[ci]
		for i := range cat.Items {
			item := &cat.Items[i]
			if item.ID == "" {
				return fmt.Errorf("%w: item %d in %q has no id", ErrCatalogMalformed, i, cat.Name)
			}
			if item.Name == "" {
				return fmt.Errorf("%w: item %s has no name", ErrCatalogMalformed, item.ID)
			}
			if seen[item.ID] {
				return fmt.Errorf("%w: duplicate item id %s", ErrCatalogMalformed, item.ID)
			}
			seen[item.ID] = true
			item.Category = cat.Name
		}
	}
	return nil
}

// Items returns every item in catalog order
func (m *Menu) Items() []MenuItem {
	var items []MenuItem
	for _, cat := range m.Categories {
		items = append(items, cat.Items...)
	}
	return items
}

// FindByName returns the first item whose name equals name, ignoring case
func (m *Menu) FindByName(name string) (MenuItem, bool) {
	for _, cat := range m.Categories {
		for _, item := range cat.Items {
			if strings.EqualFold(item.Name, name) {
				return item, true
			}
		}
	}
	return MenuItem{}, false
}

// FindByID returns the item with the given identifier
func (m *Menu) FindByID(id ItemID) (MenuItem, bool) {
	for _, cat := range m.Categories {
		for _, item := range cat.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return MenuItem{}, false
}

// ExtractMentionedName returns the name of the first item, in catalog order,
// that appears anywhere in text. Matching is a case-insensitive substring test,
// so "no fries" still mentions "fries".
func (m *Menu) ExtractMentionedName(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, cat := range m.Categories {
		for _, item := range cat.Items {
			if strings.Contains(lower, strings.ToLower(item.Name)) {
				return item.Name, true
			}
		}
	}
	return "", false
}

// CategoryNames returns display names for every category, in order
func (m *Menu) CategoryNames() []string {
	names := make([]string, len(m.Categories))
	for i, cat := range m.Categories {
		names[i] = Capitalize(cat.Name)
	}
	return names
}

// Format renders the menu the way it is shown to the model:
//
//	Burgers:
//	 - Burger ($9.5)
func (m *Menu) Format() string {
	var b strings.Builder
	for _, cat := range m.Categories {
		b.WriteString(Capitalize(cat.Name))
		b.WriteString(":\n")
		for _, item := range cat.Items {
			fmt.Fprintf(&b, " - %s ($%s)\n", item.Name, FormatPrice(item.Price))
		}
	}
	return b.String()
}

// FormatPrice prints a price without trailing zeros
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

type jsonField struct {
	key   string
	value json.RawMessage
}

// orderedJSONObject splits a JSON object into its fields without losing order
func orderedJSONObject(data []byte) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object")
	}

	var fields []jsonField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, jsonField{key: key, value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return fields, nil
}
