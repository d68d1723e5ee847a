// Package models contains the persistence models of the audit trail,
// configured to work using GORM as the ORM.
package models

import (
	"time"
)

// AuditEntry is one recorded company event. CompanyID is nil for
// collection-wide events such as resets.
type AuditEntry struct {
	ID          uint      `gorm:"primaryKey"`
	EventType   string    `gorm:"size:32;index;not null"`
	CompanyID   *int      `gorm:"index"`
	CompanyName string    `gorm:"size:255"`
	OccurredAt  time.Time `gorm:"index;not null"`
}
