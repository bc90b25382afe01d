// Package projections persists the charge and subscription projections that
// webhook processing updates as side effects.
package projections

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

// Config mirrors the storage configuration for the projection tables.
type Config struct {
	Driver             string
	DSN                string
	Dialect            string
	ChargesTable       string
	SubscriptionsTable string
	AutoMigrate        bool
}

// Store implements storage.ProjectionStore on top of GORM.
type Store struct {
	db                 *gorm.DB
	chargesTable       string
	subscriptionsTable string
}

type chargeRow struct {
	Provider      string     `gorm:"column:provider;size:32;not null;uniqueIndex:idx_charges_provider_charge_id"`
	ChargeID      string     `gorm:"column:charge_id;size:255;not null;uniqueIndex:idx_charges_provider_charge_id"`
	CorrelationID string     `gorm:"column:correlation_id;size:255;index"`
	Status        string     `gorm:"column:status;size:32"`
	AmountCents   int64      `gorm:"column:amount_cents"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

type subscriptionRow struct {
	Provider      string    `gorm:"column:provider;size:32;not null;uniqueIndex:idx_subscriptions_provider_correlation_id"`
	CorrelationID string    `gorm:"column:correlation_id;size:255;not null;uniqueIndex:idx_subscriptions_provider_correlation_id"`
	ProviderID    string    `gorm:"column:provider_id;size:255"`
	Status        string    `gorm:"column:status;size:32"`
	LastEventType string    `gorm:"column:last_event_type;size:128"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Open creates a GORM-backed projection store.
func Open(cfg Config) (*Store, error) {
	if cfg.Driver == "" && cfg.Dialect == "" {
		return nil, errors.New("storage driver or dialect is required")
	}
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		driver = normalizeDriver(cfg.Dialect)
	}
	if driver == "" {
		return nil, errors.New("unsupported storage driver")
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	chargesTable := cfg.ChargesTable
	if chargesTable == "" {
		chargesTable = "pixhooks_charges"
	}
	subscriptionsTable := cfg.SubscriptionsTable
	if subscriptionsTable == "" {
		subscriptionsTable = "pixhooks_subscriptions"
	}
	store := &Store{
		db:                 gormDB,
		chargesTable:       chargesTable,
		subscriptionsTable: subscriptionsTable,
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

// UpsertCharge inserts or updates a charge projection row. Only the fields
// the event actually carried are assigned on conflict, so an event without an
// amount does not zero out an amount recorded earlier. Last write wins;
// provider delivery order is not guaranteed and no reordering is attempted.
func (s *Store) UpsertCharge(ctx context.Context, record storage.ChargeRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if record.Provider == "" || record.ChargeID == "" {
		return errors.New("provider and charge id are required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assignments := map[string]interface{}{
		"status":     record.Status,
		"updated_at": record.UpdatedAt,
	}
	if record.CorrelationID != "" {
		assignments["correlation_id"] = record.CorrelationID
	}
	if record.AmountCents > 0 {
		assignments["amount_cents"] = record.AmountCents
	}
	if record.PaidAt != nil {
		assignments["paid_at"] = record.PaidAt
	}

	data := toChargeRow(record)
	return s.db.Table(s.chargesTable).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "charge_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&data).Error
}

// GetCharge fetches a single charge projection row.
func (s *Store) GetCharge(ctx context.Context, provider, chargeID string) (*storage.ChargeRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	var data chargeRow
	err := s.db.Table(s.chargesTable).
		WithContext(ctx).
		Where("provider = ? AND charge_id = ?", provider, chargeID).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := fromChargeRow(data)
	return &record, nil
}

// UpsertSubscription inserts or updates a subscription projection row.
func (s *Store) UpsertSubscription(ctx context.Context, record storage.SubscriptionRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if record.Provider == "" || record.CorrelationID == "" {
		return errors.New("provider and correlation id are required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assignments := map[string]interface{}{
		"status":          record.Status,
		"last_event_type": record.LastEventType,
		"updated_at":      record.UpdatedAt,
	}
	if record.ProviderID != "" {
		assignments["provider_id"] = record.ProviderID
	}

	data := toSubscriptionRow(record)
	return s.db.Table(s.subscriptionsTable).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "correlation_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&data).Error
}

// GetSubscription fetches a single subscription projection row.
func (s *Store) GetSubscription(ctx context.Context, provider, correlationID string) (*storage.SubscriptionRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	var data subscriptionRow
	err := s.db.Table(s.subscriptionsTable).
		WithContext(ctx).
		Where("provider = ? AND correlation_id = ?", provider, correlationID).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := fromSubscriptionRow(data)
	return &record, nil
}

func (s *Store) migrate() error {
	if err := s.db.Table(s.chargesTable).AutoMigrate(&chargeRow{}); err != nil {
		return err
	}
	return s.db.Table(s.subscriptionsTable).AutoMigrate(&subscriptionRow{})
}

func toChargeRow(record storage.ChargeRecord) chargeRow {
	return chargeRow{
		Provider:      record.Provider,
		ChargeID:      record.ChargeID,
		CorrelationID: record.CorrelationID,
		Status:        record.Status,
		AmountCents:   record.AmountCents,
		PaidAt:        record.PaidAt,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func fromChargeRow(data chargeRow) storage.ChargeRecord {
	return storage.ChargeRecord{
		Provider:      data.Provider,
		ChargeID:      data.ChargeID,
		CorrelationID: data.CorrelationID,
		Status:        data.Status,
		AmountCents:   data.AmountCents,
		PaidAt:        data.PaidAt,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}

func toSubscriptionRow(record storage.SubscriptionRecord) subscriptionRow {
	return subscriptionRow{
		Provider:      record.Provider,
		CorrelationID: record.CorrelationID,
		ProviderID:    record.ProviderID,
		Status:        record.Status,
		LastEventType: record.LastEventType,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func fromSubscriptionRow(data subscriptionRow) storage.SubscriptionRecord {
	return storage.SubscriptionRecord{
		Provider:      data.Provider,
		CorrelationID: data.CorrelationID,
		ProviderID:    data.ProviderID,
		Status:        data.Status,
		LastEventType: data.LastEventType,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
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
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
