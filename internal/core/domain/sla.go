package domain

import (
	"time"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

// SLAStatus classifies a ticket metric against its deadline. The values
// are stored and served verbatim, matching the rest of the installed data.
type SLAStatus string

const (
	// SLAStatusMet - closed within the limit.
	SLAStatusMet SLAStatus = "cumprido"
	// SLAStatusBreached - closed past the limit.
	SLAStatusBreached SLAStatus = "violado"
	// SLAStatusOnTrack - open, below the warning threshold.
	SLAStatusOnTrack SLAStatus = "dentro_prazo"
	// SLAStatusNearingBreach - open, 80% or more of the limit consumed.
	SLAStatusNearingBreach SLAStatus = "proximo_vencer"
	// SLAStatusOverdueActive - open and already past the limit.
	SLAStatusOverdueActive SLAStatus = "vencido_ativo"
	// SLAStatusPaused - the ticket status suspends SLA accrual.
	SLAStatusPaused SLAStatus = "pausado"
	// SLAStatusNone - no active SLA configuration for the priority.
	SLAStatusNone SLAStatus = "sem_sla"
)

// IsFinal reports whether the status can no longer change.
func (s SLAStatus) IsFinal() bool {
	return s == SLAStatusMet || s == SLAStatusBreached
}

// IsWithinSLA reports whether the status counts toward the compliant side
// of the distribution.
func (s SLAStatus) IsWithinSLA() bool {
	switch s {
	case SLAStatusMet, SLAStatusOnTrack, SLAStatusNearingBreach, SLAStatusPaused:
		return true
	}
	return false
}

// IsViolated reports whether the limit has been exceeded, whether or not
// the ticket already closed.
func (s SLAStatus) IsViolated() bool {
	return s == SLAStatusBreached || s == SLAStatusOverdueActive
}

// nearingBreachThreshold is the percent of the limit at which an open
// ticket is flagged as close to its deadline.
const nearingBreachThreshold = 80.0

// ClassifySLA maps a metric to its status. Rules apply in order: paused
// ticket status wins, then closure, then percent-of-limit thresholds.
// A non-positive limit on an open unpaused ticket counts as already over.
func ClassifySLA(ticketStatus TicketStatus, elapsedHours, limitHours float64, closed bool) SLAStatus {
	if ticketStatus.IsPaused() {
		return SLAStatusPaused
	}

	if closed {
		if elapsedHours <= limitHours {
			return SLAStatusMet
		}
		return SLAStatusBreached
	}

	if limitHours <= 0 {
		return SLAStatusOverdueActive
	}

	percent := (elapsedHours / limitHours) * 100
	switch {
	case percent > 100:
		return SLAStatusOverdueActive
	case percent >= nearingBreachThreshold:
		return SLAStatusNearingBreach
	default:
		return SLAStatusOnTrack
	}
}

// SLAConfig defines the deadlines for a priority, in business hours.
type SLAConfig struct {
	ID                   int64
	Priority             TicketPriority
	ResponseLimitHours   float64
	ResolutionLimitHours float64
	Active               bool
	UpdatedAt            *time.Time
}

// Validate enforces the write-time configuration invariants. Stored rows
// are trusted as-is; only new writes pass through here.
func (c SLAConfig) Validate() error {
	errs := apperrors.NewValidationErrors()

	if !c.Priority.IsValid() {
		errs.Add("priority", apperrors.ErrInvalidPriority.Error())
	}
	if c.ResponseLimitHours <= 0 {
		errs.Add("response_limit_hours", apperrors.ErrResponseLimitInvalid.Error())
	}
	if c.ResolutionLimitHours <= 0 {
		errs.Add("resolution_limit_hours", apperrors.ErrResolutionLimitInvalid.Error())
	} else if c.ResolutionLimitHours < c.ResponseLimitHours {
		errs.Add("resolution_limit_hours", apperrors.ErrResolutionBelowResponse.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// DefaultSLAConfigs returns the built-in deadlines used when a priority
// has no stored configuration row yet.
func DefaultSLAConfigs() []SLAConfig {
	return []SLAConfig{
		{Priority: PriorityCritical, ResponseLimitHours: 1, ResolutionLimitHours: 4, Active: true},
		{Priority: PriorityHigh, ResponseLimitHours: 2, ResolutionLimitHours: 8, Active: true},
		{Priority: PriorityNormal, ResponseLimitHours: 4, ResolutionLimitHours: 24, Active: true},
		{Priority: PriorityLow, ResponseLimitHours: 8, ResolutionLimitHours: 48, Active: true},
	}
}

// SLAMetric is one computed deadline metric (response or resolution).
type SLAMetric struct {
	ElapsedHours float64   `json:"elapsed_hours"`
	LimitHours   float64   `json:"limit_hours"`
	Status       SLAStatus `json:"status"`
}

// PercentConsumed returns how much of the limit has been used, 0 when the
// limit is not positive.
func (m SLAMetric) PercentConsumed() float64 {
	if m.LimitHours <= 0 {
		return 0
	}
	return (m.ElapsedHours / m.LimitHours) * 100
}

// SLASnapshot is the full computed SLA view of one ticket.
type SLASnapshot struct {
	TicketID     int64          `json:"ticket_id"`
	Priority     TicketPriority `json:"priority"`
	TicketStatus TicketStatus   `json:"ticket_status"`
	Response     SLAMetric      `json:"response"`
	Resolution   SLAMetric      `json:"resolution"`
	// ElapsedHours is the larger of the two metrics, kept as a
	// convenience field for dashboards.
	ElapsedHours float64   `json:"elapsed_hours"`
	ComputedAt   time.Time `json:"computed_at"`
}

// OverallStatus is the governing status of the snapshot: the resolution
// metric, since it spans the whole ticket lifetime.
func (s SLASnapshot) OverallStatus() SLAStatus {
	return s.Resolution.Status
}

// HasSLA reports whether an active configuration applied to the snapshot.
func (s SLASnapshot) HasSLA() bool {
	return s.Resolution.Status != SLAStatusNone
}

// History actions recorded per ticket write.
const (
	HistoryActionCreated = "criacao"
	HistoryActionUpdated = "atualizacao"
)

// SLAHistoryEntry is the per-ticket SLA record. One row per ticket,
// last write wins.
type SLAHistoryEntry struct {
	TicketID             int64
	Action               string
	PreviousStatus       *TicketStatus
	NewStatus            TicketStatus
	ResponseHours        float64
	ResponseLimitHours   float64
	ResolutionHours      float64
	ResolutionLimitHours float64
	SLAStatus            SLAStatus
	RecordedAt           time.Time
}
