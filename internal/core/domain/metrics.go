package domain

import "time"

// DashboardMetrics is the incremental aggregate behind the dashboard.
// It carries raw counters rather than derived percentages so that a
// single ticket mutation can be applied as a delta; the derived fields
// are computed on read. The 24h window counters are refreshed only on
// full rebuilds, so their staleness is bounded by the cache TTL.
type DashboardMetrics struct {
	TicketsToday     int64 `json:"tickets_today"`
	TicketsYesterday int64 `json:"tickets_yesterday"`
	OpenNow          int64 `json:"open_now"`

	TotalTicketsMonth     int64   `json:"total_tickets_month"`
	SLAMetMonth           int64   `json:"sla_met_month"`
	SLABreachedMonth      int64   `json:"sla_breached_month"`
	ResponseHoursSumMonth float64 `json:"response_hours_sum_month"`
	ResponseCountMonth    int64   `json:"response_count_month"`

	SLAMet24h           int64   `json:"sla_met_24h"`
	SLABreached24h      int64   `json:"sla_breached_24h"`
	ResponseHoursSum24h float64 `json:"response_hours_sum_24h"`
	ResponseCount24h    int64   `json:"response_count_24h"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ComplianceMonth returns the percent of month closures inside their SLA.
func (m *DashboardMetrics) ComplianceMonth() float64 {
	return compliancePercent(m.SLAMetMonth, m.SLABreachedMonth)
}

// Compliance24h returns the percent of last-24h closures inside their SLA.
func (m *DashboardMetrics) Compliance24h() float64 {
	return compliancePercent(m.SLAMet24h, m.SLABreached24h)
}

// AvgResponseHoursMonth returns the mean first-response time this month.
func (m *DashboardMetrics) AvgResponseHoursMonth() float64 {
	if m.ResponseCountMonth == 0 {
		return 0
	}
	return m.ResponseHoursSumMonth / float64(m.ResponseCountMonth)
}

// AvgResponseHours24h returns the mean first-response time over 24h.
func (m *DashboardMetrics) AvgResponseHours24h() float64 {
	if m.ResponseCount24h == 0 {
		return 0
	}
	return m.ResponseHoursSum24h / float64(m.ResponseCount24h)
}

func compliancePercent(met, breached int64) float64 {
	total := met + breached
	if total == 0 {
		return 100
	}
	return float64(met) / float64(total) * 100
}

// YesterdayComparison relates today's ticket volume to yesterday's.
type YesterdayComparison struct {
	Today     int64   `json:"today"`
	Yesterday int64   `json:"yesterday"`
	Percent   float64 `json:"percent"`
	Direction string  `json:"direction"` // up, down, flat
}

// Comparison derives the day-over-day volume comparison.
func (m *DashboardMetrics) Comparison() YesterdayComparison {
	c := YesterdayComparison{
		Today:     m.TicketsToday,
		Yesterday: m.TicketsYesterday,
		Direction: "flat",
	}

	switch {
	case m.TicketsYesterday == 0 && m.TicketsToday > 0:
		c.Percent = 100
		c.Direction = "up"
	case m.TicketsYesterday > 0:
		c.Percent = (float64(m.TicketsToday) - float64(m.TicketsYesterday)) / float64(m.TicketsYesterday) * 100
		if c.Percent > 0 {
			c.Direction = "up"
		} else if c.Percent < 0 {
			c.Direction = "down"
		}
	}

	return c
}

// SLADistribution splits month closures into compliant and violated.
type SLADistribution struct {
	WithinSLA      int64   `json:"within_sla"`
	OutsideSLA     int64   `json:"outside_sla"`
	Total          int64   `json:"total"`
	PercentWithin  float64 `json:"percent_within"`
	PercentOutside float64 `json:"percent_outside"`
}

// Distribution derives the month SLA distribution from the counters.
func (m *DashboardMetrics) Distribution() SLADistribution {
	d := SLADistribution{
		WithinSLA:  m.SLAMetMonth,
		OutsideSLA: m.SLABreachedMonth,
		Total:      m.SLAMetMonth + m.SLABreachedMonth,
	}
	if d.Total > 0 {
		d.PercentWithin = float64(d.WithinSLA) / float64(d.Total) * 100
		d.PercentOutside = float64(d.OutsideSLA) / float64(d.Total) * 100
	}
	return d
}

// DashboardSnapshot is the read model served to clients, fully derived.
// A zero value is a valid degraded payload.
type DashboardSnapshot struct {
	TicketsToday          int64               `json:"tickets_today"`
	Comparison            YesterdayComparison `json:"comparison"`
	OpenNow               int64               `json:"open_now"`
	TotalTicketsMonth     int64               `json:"total_tickets_month"`
	SLAComplianceMonth    float64             `json:"sla_compliance_month"`
	SLACompliance24h      float64             `json:"sla_compliance_24h"`
	Distribution          SLADistribution     `json:"sla_distribution"`
	AvgResponseHoursMonth float64             `json:"avg_response_hours_month"`
	AvgResponseHours24h   float64             `json:"avg_response_hours_24h"`
	GeneratedAt           time.Time           `json:"generated_at"`
}

// Snapshot derives the client-facing read model.
func (m *DashboardMetrics) Snapshot() DashboardSnapshot {
	return DashboardSnapshot{
		TicketsToday:          m.TicketsToday,
		Comparison:            m.Comparison(),
		OpenNow:               m.OpenNow,
		TotalTicketsMonth:     m.TotalTicketsMonth,
		SLAComplianceMonth:    m.ComplianceMonth(),
		SLACompliance24h:      m.Compliance24h(),
		Distribution:          m.Distribution(),
		AvgResponseHoursMonth: m.AvgResponseHoursMonth(),
		AvgResponseHours24h:   m.AvgResponseHours24h(),
		GeneratedAt:           m.GeneratedAt,
	}
}

// CacheEntry is a cached value with its lifetime, shared by the in-memory
// and persistent cache tiers. Value is opaque JSON; callers serialize at
// the cache boundary only.
type CacheEntry struct {
	Key        string
	Value      []byte
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is past its lifetime at the given time.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
