package models

import (
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

// NoOrderSentinel is reported when a session ends without any items
const NoOrderSentinel = "-1"

// Order is the customer's running order: item identifiers in the order they
// were added. Duplicates are kept; there is no quantity aggregation.
type Order struct {
	items []ItemID
}

// NewOrder creates an empty order
func NewOrder() *Order {
	return &Order{items: make([]ItemID, 0)}
}

// Add appends an item identifier
func (o *Order) Add(id ItemID) {
	o.items = append(o.items, id)
}

// Items returns a copy of the identifiers in the order
func (o *Order) Items() []ItemID {
	items := make([]ItemID, len(o.items))
	copy(items, o.items)
	return items
}

// Len returns the number of identifiers in the order
func (o *Order) Len() int {
	return len(o.items)
}

// Empty reports whether nothing has been ordered
func (o *Order) Empty() bool {
	return len(o.items) == 0
}

// String renders the order as the final report, e.g. "[3, 3, 7]", or the
// no-order sentinel when empty.
func (o *Order) String() string {
	if o.Empty() {
		return NoOrderSentinel
	}
	parts := make([]string, len(o.items))
	for i, id := range o.items {
		parts[i] = string(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// OrderRecord is a finished session's order as stored in the ledger
type OrderRecord struct {
	gorm.Model
	SessionID   string `gorm:"index"`
	Policy      string
	Items       []OrderRecordItem `gorm:"foreignkey:OrderRecordID"`
	Turns       int
	Total       float64
	TimeStarted time.Time
	TimeEnded   time.Time
}

// OrderRecordItem is one line of an OrderRecord
type OrderRecordItem struct {
	gorm.Model
	OrderRecordID uint
	Position      int
	ItemID        string
	Name          string
	Category      string
	Price         float64
}

// NewOrderRecord resolves the order's identifiers against the menu. Unknown
// identifiers are stored with an empty name and zero price.
func NewOrderRecord(sessionID, policy string, order *Order, menu *Menu) *OrderRecord {
	record := &OrderRecord{
		SessionID: sessionID,
		Policy:    policy,
		Items:     make([]OrderRecordItem, 0, order.Len()),
	}
	for i, id := range order.Items() {
		line := OrderRecordItem{Position: i, ItemID: string(id)}
		if item, ok := menu.FindByID(id); ok {
			line.Name = item.Name
			line.Category = item.Category
			line.Price = item.Price
			record.Total += item.Price
		}
		record.Items = append(record.Items, line)
	}
	return record
}
