// Package events implements the idempotency ledger on three backends: a
// relational store via GORM (the durable default), Redis, and an in-memory
// map for tests and single-process development.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixhooks/pkg/storage"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config mirrors the ledger configuration for the events table.
type Config struct {
	Driver      string
	DSN         string
	Dialect     string
	Table       string
	AutoMigrate bool
}

// Store implements storage.EventLedger on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

type row struct {
	Provider       string    `gorm:"column:provider;size:32;not null;uniqueIndex:idx_events_provider_event_id"`
	EventID        string    `gorm:"column:event_id;size:255;not null;uniqueIndex:idx_events_provider_event_id"`
	EventType      string    `gorm:"column:event_type;size:128"`
	CorrelationID  string    `gorm:"column:correlation_id;size:255;index"`
	Payload        []byte    `gorm:"column:payload;type:text"`
	SignatureValid bool      `gorm:"column:signature_valid"`
	ReceivedAt     time.Time `gorm:"column:received_at"`
}

// Open creates a GORM-backed event ledger.
func Open(cfg Config) (*Store, error) {
	if cfg.Driver == "" && cfg.Dialect == "" {
		return nil, errors.New("ledger driver or dialect is required")
	}
	if cfg.DSN == "" {
		return nil, errors.New("ledger dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		driver = normalizeDriver(cfg.Dialect)
	}
	if driver == "" {
		return nil, errors.New("unsupported ledger driver")
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = "pixhooks_events"
	}
	store := &Store{
		db:    gormDB,
		table: table,
	}
	if cfg.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record inserts the event row, detecting duplicates through the unique
// (provider, event_id) constraint. The conflict clause makes the
// insert-or-detect a single atomic statement, so concurrent deliveries of the
// same event across processes race safely: exactly one insert wins.
func (s *Store) Record(ctx context.Context, record storage.EventRecord) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("ledger is not initialized")
	}
	if record.Provider == "" || record.EventID == "" {
		return false, errors.New("provider and event id are required")
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	data := toRow(record)
	result := s.tableDB().
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&data)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Get fetches a single ledger row, mostly for tests and audit tooling.
func (s *Store) Get(ctx context.Context, provider, eventID string) (*storage.EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger is not initialized")
	}
	var data row
	err := s.tableDB().
		WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := fromRow(data)
	return &record, nil
}

// ListByCorrelationID lists ledger rows linked to a merchant correlation id,
// ordered by receipt time.
func (s *Store) ListByCorrelationID(ctx context.Context, correlationID string) ([]storage.EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger is not initialized")
	}
	var data []row
	err := s.tableDB().
		WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("received_at asc").
		Find(&data).Error
	if err != nil {
		return nil, err
	}
	records := make([]storage.EventRecord, 0, len(data))
	for _, item := range data {
		records = append(records, fromRow(item))
	}
	return records, nil
}

func (s *Store) migrate() error {
	return s.tableDB().AutoMigrate(&row{})
}

func (s *Store) tableDB() *gorm.DB {
	return s.db.Table(s.table)
}

func toRow(record storage.EventRecord) row {
	return row{
		Provider:       record.Provider,
		EventID:        record.EventID,
		EventType:      record.EventType,
		CorrelationID:  record.CorrelationID,
		Payload:        record.Payload,
		SignatureValid: record.SignatureValid,
		ReceivedAt:     record.ReceivedAt,
	}
}

func fromRow(data row) storage.EventRecord {
	return storage.EventRecord{
		Provider:       data.Provider,
		EventID:        data.EventID,
		EventType:      data.EventType,
		CorrelationID:  data.CorrelationID,
		Payload:        data.Payload,
		SignatureValid: data.SignatureValid,
		ReceivedAt:     data.ReceivedAt,
	}
}

func normalizeDriver(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", driver)
	}
}
