package database

import (
	"context"
	"fmt"

	"maitred/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported ledger drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Ledger stores the orders of finished sessions
type Ledger struct {
	db *gorm.DB
}

// Open connects to the ledger database and migrates its tables
func Open(driver, dsn string) (*Ledger, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported ledger driver: %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("ledger dsn is required")
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s ledger: %w", driver, err)
	}

	if err := db.AutoMigrate(&models.OrderRecord{}, &models.OrderRecordItem{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return &Ledger{db: db}, nil
}

// RecordOrder saves a finished order together with its items
func (l *Ledger) RecordOrder(ctx context.Context, record *models.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to save order for session %s: %w", record.SessionID, err)
	}
	return nil
}

// RecentOrders returns up to limit orders, newest first
func (l *Ledger) RecentOrders(ctx context.Context, limit int) ([]models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []models.OrderRecord
	query := l.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
