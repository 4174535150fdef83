package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk/internal/access"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/reporting"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// StatsService computes the aggregate report for a principal's scope.
type StatsService struct {
	tickets repository.TicketRepository
	clock   func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, clock func() time.Time) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	return &StatsService{tickets: tickets, clock: clock}
}

// Compute builds the report. Admins report over all tickets, agents
// over their assignments; users are denied outright. The whole report
// derives from one unpaginated listing pass so no statistic can
// observe a ticket the others missed.
func (s *StatsService) Compute(ctx context.Context, principal domain.Principal) (*reporting.Report, error) {
	filter, err := access.StatsScope(principal)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	report := reporting.Compute(tickets, s.clock())
	return &report, nil
}
