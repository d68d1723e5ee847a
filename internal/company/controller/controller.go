// Package controller implements the core business logic (service layer)
// for managing Company entities, orchestrating registry operations
// and sending relevant events.
package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
}

// Registry defines the storage interface for Company objects.
type Registry interface {
	List() []models.CompanySummary
	Create(company models.Company) models.Company
	Get(id int) (models.Company, error)
	Update(id int, update models.CompanyUpdate) (models.Company, error)
	Delete(id int) (models.Company, error)
	Reset()
}

// CompanyService provides methods to manage companies via registry
// operations and event production.
type CompanyService struct {
	registry Registry
	producer EventProducer
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option customizes a CompanyService.
type Option func(*CompanyService)

// WithTracer makes the service open a span per operation.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *CompanyService) {
		s.tracer = tracer
	}
}

// NewCompanyService constructs a CompanyService with a registry,
// an event producer, and a logger.
func NewCompanyService(registry Registry, producer EventProducer, logger *zap.Logger, opts ...Option) *CompanyService {
	s := &CompanyService{
		registry: registry,
		producer: producer,
		tracer:   noop.NewTracerProvider().Tracer("company_service"),
		logger:   logger.Named("company_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCompanies returns the {id, name} summary of every company in
// collection order.
func (s *CompanyService) ListCompanies(ctx context.Context) []models.CompanySummary {
	_, span := s.tracer.Start(ctx, "company.list")
	defer span.End()

	list := s.registry.List()
	span.SetAttributes(attribute.Int("company.count", len(list)))
	return list
}

// CreateCompany adds a new Company after validating that name and
// industry are present, and triggers an event.
func (s *CompanyService) CreateCompany(ctx context.Context, company *models.Company) (*models.Company, error) {
	_, span := s.tracer.Start(ctx, "company.create")
	defer span.End()

	if company == nil || company.Name == "" || company.Industry == "" {
		err := fmt.Errorf("%w: name and industry are required", e.ErrInvalidInput)
		recordError(span, err)
		return nil, err
	}

	created := s.registry.Create(*company)
	span.SetAttributes(attribute.Int("company.id", created.ID))
	s.logger.Debug("Company created", zap.Int("company_id", created.ID))

	s.produce(events.CompanyCreated, created)
	return &created, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id int) (*models.Company, error) {
	_, span := s.tracer.Start(ctx, "company.get", trace.WithAttributes(attribute.Int("company.id", id)))
	defer span.End()

	company, err := s.registry.Get(id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return &company, nil
}

// UpdateCompany overwrites the supplied non-empty fields of a Company
// and returns the updated version.
func (s *CompanyService) UpdateCompany(ctx context.Context, id int, update models.CompanyUpdate) (*models.Company, error) {
	_, span := s.tracer.Start(ctx, "company.update", trace.WithAttributes(attribute.Int("company.id", id)))
	defer span.End()

	updated, err := s.registry.Update(id, update)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	s.logger.Debug("Company updated", zap.Int("company_id", id))

	s.produce(events.CompanyUpdated, updated)
	return &updated, nil
}

// DeleteCompany removes a Company by ID and fires a deletion event.
func (s *CompanyService) DeleteCompany(ctx context.Context, id int) error {
	_, span := s.tracer.Start(ctx, "company.delete", trace.WithAttributes(attribute.Int("company.id", id)))
	defer span.End()

	removed, err := s.registry.Delete(id)
	if err != nil {
		recordError(span, err)
		return err
	}
	s.logger.Debug("Company deleted", zap.Int("company_id", id))

	s.produce(events.CompanyDeleted, removed)
	return nil
}

// ResetCompanies restores the seed records, discarding every change made
// since the last reset.
func (s *CompanyService) ResetCompanies(ctx context.Context) {
	_, span := s.tracer.Start(ctx, "company.reset")
	defer span.End()

	s.registry.Reset()
	s.logger.Info("Companies reset to seed data")
	s.producer.Produce(events.CompaniesReset, nil)
}

// produce hands the producer its own copy of the record.
func (s *CompanyService) produce(eventType events.EventType, company models.Company) {
	s.producer.Produce(eventType, &company)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
