// Package domain defines the retention entities: per-classification retention
// policies, per-resource legal holds, and the purge run state machine.
package domain

import (
	"time"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
)

// RetentionPolicy sets the minimum retention for one event classification. An
// event is purge-eligible only after MinRetention has elapsed since occurred_at.
// LegalHold freezes the whole classification regardless of age.
type RetentionPolicy struct {
	EventType    auditDomain.EventType
	MinRetention time.Duration
	LegalHold    bool
	UpdatedAt    time.Time
}

// Cutoff returns the occurred_at threshold below which events of this
// classification have outlived their retention, relative to now.
func (p *RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.MinRetention)
}

// LegalHold freezes every event referencing one resource, across all
// classifications and chains. Purges skip held events and continue.
type LegalHold struct {
	ResourceID string
	Reason     string
	CreatedAt  time.Time
}
