package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func ticket(status domain.TicketStatus, createdAt time.Time) domain.Ticket {
	return domain.Ticket{
		Status:      status,
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.TicketCategoryGeneral,
		CreatedAt:   createdAt,
		SLADeadline: createdAt.Add(24 * time.Hour),
	}
}

func resolvedTicket(createdAt time.Time, minutes int) domain.Ticket {
	t := ticket(domain.TicketStatusResolved, createdAt)
	resolvedAt := createdAt.Add(time.Duration(minutes) * time.Minute)
	t.ResolvedAt = timePtr(resolvedAt)
	t.ResolutionTime = intPtr(minutes)
	return t
}

func TestComputeEmptySet(t *testing.T) {
	report := Compute(nil, now)

	assert.Equal(t, 0, report.TotalTickets)
	assert.Equal(t, float64(0), report.AvgResolutionTime)
	assert.Equal(t, 0, report.SLAComplianceRate)
	assert.Empty(t, report.ByStatus)
	assert.Empty(t, report.ByPriority)
	assert.Empty(t, report.ByCategory)
}

// Agent with three assigned tickets: one resolved in 30 minutes, two
// still open.
func TestComputeAgentScope(t *testing.T) {
	tickets := []domain.Ticket{
		resolvedTicket(now.Add(-2*time.Hour), 30),
		ticket(domain.TicketStatusOpen, now.Add(-1*time.Hour)),
		ticket(domain.TicketStatusOpen, now.Add(-30*time.Minute)),
	}

	report := Compute(tickets, now)

	assert.Equal(t, 3, report.TotalTickets)
	assert.Equal(t, 2, report.OpenTickets)
	assert.Equal(t, 1, report.ResolvedTickets)
	assert.Equal(t, float64(30), report.AvgResolutionTime)
}

func TestComputeAvgSkipsZeroAndUnresolved(t *testing.T) {
	zeroMinutes := ticket(domain.TicketStatusResolved, now.Add(-time.Hour))
	zeroMinutes.ResolvedAt = timePtr(now.Add(-time.Hour))
	zeroMinutes.ResolutionTime = intPtr(0)

	tickets := []domain.Ticket{
		resolvedTicket(now.Add(-3*time.Hour), 20),
		resolvedTicket(now.Add(-3*time.Hour), 40),
		zeroMinutes,
		ticket(domain.TicketStatusOpen, now),
	}

	report := Compute(tickets, now)
	assert.Equal(t, float64(30), report.AvgResolutionTime)
}

func TestComputeSLAComplianceRate(t *testing.T) {
	within := resolvedTicket(now.Add(-48*time.Hour), 60)

	late := ticket(domain.TicketStatusResolved, now.Add(-48*time.Hour))
	late.ResolvedAt = timePtr(now.Add(-48*time.Hour + 30*time.Hour))
	late.ResolutionTime = intPtr(30 * 60)

	closedNeverResolved := ticket(domain.TicketStatusClosed, now.Add(-48*time.Hour))

	tickets := []domain.Ticket{within, late, closedNeverResolved}
	report := Compute(tickets, now)

	// Only the two with a resolvedAt qualify; one met the deadline.
	assert.Equal(t, 50, report.SLAComplianceRate)
}

func TestComputeDistributionsOmitAbsentGroups(t *testing.T) {
	urgent := ticket(domain.TicketStatusOpen, now)
	urgent.Priority = domain.TicketPriorityUrgent
	urgent.Category = domain.TicketCategoryBug

	tickets := []domain.Ticket{urgent, ticket(domain.TicketStatusOpen, now)}
	report := Compute(tickets, now)

	assert.Equal(t, 1, report.ByPriority[domain.TicketPriorityUrgent])
	assert.Equal(t, 1, report.ByPriority[domain.TicketPriorityMedium])
	assert.NotContains(t, report.ByPriority, domain.TicketPriorityLow)
	assert.NotContains(t, report.ByCategory, domain.TicketCategoryBilling)
	assert.NotContains(t, report.ByStatus, domain.TicketStatusClosed)
}

func TestComputeRecentTickets(t *testing.T) {
	tickets := []domain.Ticket{
		ticket(domain.TicketStatusOpen, now.Add(-6*24*time.Hour)),
		ticket(domain.TicketStatusOpen, now.Add(-7*24*time.Hour)), // inclusive bound
		ticket(domain.TicketStatusClosed, now.Add(-8*24*time.Hour)),
	}

	report := Compute(tickets, now)
	assert.Equal(t, 2, report.RecentTickets)
}

func TestComputeSLABreakdownSkipsCompleted(t *testing.T) {
	breached := ticket(domain.TicketStatusOpen, now.Add(-25*time.Hour))
	warning := ticket(domain.TicketStatusPending, now.Add(-22*time.Hour-30*time.Minute))
	normal := ticket(domain.TicketStatusOpen, now.Add(-time.Hour))
	completed := resolvedTicket(now.Add(-30*time.Hour), 45)

	report := Compute([]domain.Ticket{breached, warning, normal, completed}, now)

	assert.Equal(t, 1, report.SLA.Breached)
	assert.Equal(t, 1, report.SLA.Warning)
	assert.Equal(t, 1, report.SLA.Normal)
}

// Deterministic: one pass, one read set, call order cannot matter.
func TestComputeDeterministic(t *testing.T) {
	tickets := []domain.Ticket{
		resolvedTicket(now.Add(-10*time.Hour), 90),
		ticket(domain.TicketStatusOpen, now.Add(-2*time.Hour)),
		ticket(domain.TicketStatusPending, now.Add(-26*time.Hour)),
	}

	first := Compute(tickets, now)
	second := Compute(tickets, now)
	assert.Equal(t, first, second)
}
