// Package reporting computes aggregate ticket statistics. Every
// statistic is derived from one listing pass so a report never observes
// a ticket mutate between sub-queries.
package reporting

import (
	"math"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
)

const recentWindow = 7 * 24 * time.Hour

// SLABreakdown counts live SLA states over non-resolved, non-closed
// tickets.
type SLABreakdown struct {
	Normal   int `json:"normal"`
	Warning  int `json:"warning"`
	Breached int `json:"breached"`
}

// Report is the aggregate view over a role-scoped ticket set.
type Report struct {
	TotalTickets      int                           `json:"total_tickets"`
	OpenTickets       int                           `json:"open_tickets"`
	PendingTickets    int                           `json:"pending_tickets"`
	ResolvedTickets   int                           `json:"resolved_tickets"`
	ClosedTickets     int                           `json:"closed_tickets"`
	AvgResolutionTime float64                       `json:"avg_resolution_time"`
	SLAComplianceRate int                           `json:"sla_compliance_rate"`
	ByPriority        map[domain.TicketPriority]int `json:"by_priority"`
	ByCategory        map[domain.TicketCategory]int `json:"by_category"`
	ByStatus          map[domain.TicketStatus]int   `json:"by_status"`
	RecentTickets     int                           `json:"recent_tickets"`
	SLA               SLABreakdown                  `json:"sla"`
}

// Compute derives the full report from a single read set. Zero-count
// groups are omitted from the distribution maps; the averages and the
// compliance rate fall back to 0 when no ticket qualifies, never to
// null.
func Compute(tickets []domain.Ticket, now time.Time) Report {
	report := Report{
		TotalTickets: len(tickets),
		ByPriority:   map[domain.TicketPriority]int{},
		ByCategory:   map[domain.TicketCategory]int{},
		ByStatus:     map[domain.TicketStatus]int{},
	}

	recentCutoff := now.Add(-recentWindow)
	var resolutionSum, resolutionCount int
	var slaEligible, slaMet int

	for i := range tickets {
		t := &tickets[i]

		report.ByPriority[t.Priority]++
		report.ByCategory[t.Category]++
		report.ByStatus[t.Status]++

		switch t.Status {
		case domain.TicketStatusOpen:
			report.OpenTickets++
		case domain.TicketStatusPending:
			report.PendingTickets++
		case domain.TicketStatusResolved:
			report.ResolvedTickets++
		case domain.TicketStatusClosed:
			report.ClosedTickets++
		}

		if !t.CreatedAt.Before(recentCutoff) {
			report.RecentTickets++
		}

		if t.Status == domain.TicketStatusResolved && t.ResolutionTime != nil && *t.ResolutionTime > 0 {
			resolutionSum += *t.ResolutionTime
			resolutionCount++
		}

		if (t.Status == domain.TicketStatusResolved || t.Status == domain.TicketStatusClosed) && t.ResolvedAt != nil {
			slaEligible++
			if !t.ResolvedAt.After(t.SLADeadline) {
				slaMet++
			}
		}

		switch lifecycle.SLAStatusAt(t, now) {
		case domain.SLAStatusNormal:
			report.SLA.Normal++
		case domain.SLAStatusWarning:
			report.SLA.Warning++
		case domain.SLAStatusBreached:
			report.SLA.Breached++
		}
	}

	if resolutionCount > 0 {
		report.AvgResolutionTime = float64(resolutionSum) / float64(resolutionCount)
	}
	if slaEligible > 0 {
		report.SLAComplianceRate = int(math.Round(float64(slaMet) / float64(slaEligible) * 100))
	}
	return report
}
