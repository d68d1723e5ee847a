// Package db records company events in a relational audit trail. The
// companies themselves stay in memory; only the history of changes is
// written here.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/companies/internal/company/db/models"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

type Config struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MaxWait bounds connection retries. Zero means a single attempt.
	MaxWait time.Duration
}

func (cfg *Config) dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlite path required")
		}
		return sqlite.Open(cfg.Path), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewRepository(cfg *Config, logger *zap.Logger) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if cfg.MaxWait > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = cfg.MaxWait
		b = eb
	}

	var db *gorm.DB
	err = backoff.Retry(func() error {
		db, err = gorm.Open(dialector, &gorm.Config{})
		return err
	}, b)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one connection keeps ":memory:" databases shared across queries
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&dbmodels.AuditEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db, logger: logger.Named("audit_repository")}, nil
}

// RecordEvent stores one audit entry.
func (r *Repository) RecordEvent(ctx context.Context, eventType events.EventType, company *models.Company) error {
	entry := dbmodels.AuditEntry{
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
	}
	if company != nil {
		id := company.ID
		entry.CompanyID = &id
		entry.CompanyName = company.Name
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// Produce records the event and logs failures; it satisfies events.Sink so
// the audit trail can sit next to the Kafka producer.
func (r *Repository) Produce(eventType events.EventType, company *models.Company) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.RecordEvent(ctx, eventType, company); err != nil {
		r.logger.Error("Failed to record audit entry",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

// ListEntries returns the most recent entries first. A non-positive limit
// returns every entry.
func (r *Repository) ListEntries(ctx context.Context, limit int) ([]dbmodels.AuditEntry, error) {
	var entries []dbmodels.AuditEntry
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// EntriesForCompany returns the history of a single company, oldest first.
func (r *Repository) EntriesForCompany(ctx context.Context, companyID int) ([]dbmodels.AuditEntry, error) {
	var entries []dbmodels.AuditEntry
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
