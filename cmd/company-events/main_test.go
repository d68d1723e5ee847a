package main

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, splitBrokers([]string{"a:9092, b:9092", "", "c:9092"}))
	assert.Nil(t, splitBrokers(nil))
}

func TestLogEvent(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	handle := logEvent(zap.New(core), nil)

	now := time.Now()
	require.NoError(t, handle(context.Background(), events.Event{
		Type:       events.CompanyCreated,
		Company:    &models.Company{ID: 3, Name: "Gamma", Industry: "Retail"},
		OccurredAt: now,
	}))
	require.NoError(t, handle(context.Background(), events.Event{Type: events.CompaniesReset, OccurredAt: now}))

	logs := recorded.FilterMessage("Company event").All()
	require.Len(t, logs, 2)
	assert.Equal(t, int64(3), logs[0].ContextMap()["company_id"])
	assert.Equal(t, "Gamma", logs[0].ContextMap()["name"])
	assert.NotContains(t, logs[1].ContextMap(), "company_id")
}

func TestLogEvent_TypeFilter(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	handle := logEvent(zap.New(core), []string{string(events.CompanyDeleted)})

	require.NoError(t, handle(context.Background(), events.Event{Type: events.CompanyCreated}))
	require.NoError(t, handle(context.Background(), events.Event{Type: events.CompanyDeleted, Company: &models.Company{ID: 1}}))

	assert.Equal(t, 1, recorded.Len())
}
