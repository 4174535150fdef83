// Package access decides ticket visibility and mutability. Role is the
// sole authorization axis: users own what they created, agents own what
// is assigned to them, admins see everything.
package access

import (
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CanAccess reports whether the principal may read, update, or comment
// on the ticket. Agents never get implicit access to unassigned
// tickets.
func CanAccess(principal domain.Principal, ticket *domain.Ticket) bool {
	switch principal.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return ticket.CreatedBy == principal.ID
	case domain.RoleAgent:
		return ticket.AssignedTo != nil && *ticket.AssignedTo == principal.ID
	}
	return false
}

// Authorize returns an access-denied error when the principal may not
// act on the ticket. Callers resolve existence first; not-found always
// takes precedence over denial.
func Authorize(principal domain.Principal, ticket *domain.Ticket) error {
	if !CanAccess(principal, ticket) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

// CanAssign reports whether the principal may change a ticket's
// assignee.
func CanAssign(principal domain.Principal) bool {
	return principal.Role == domain.RoleAgent || principal.Role == domain.RoleAdmin
}

// Scope returns the listing filter for the principal's role. The
// filter is applied inside the query, before pagination, so rows the
// principal may not see never reach the caller.
func Scope(principal domain.Principal) repository.TicketFilter {
	filter := repository.TicketFilter{}
	switch principal.Role {
	case domain.RoleUser:
		createdBy := principal.ID
		filter.CreatedBy = &createdBy
	case domain.RoleAgent:
		assignedTo := principal.ID
		filter.AssignedTo = &assignedTo
	case domain.RoleAdmin:
		// unrestricted
	}
	return filter
}

// StatsScope returns the reporting filter for the principal, or an
// access-denied error: admins report over everything, agents over
// their assigned tickets, and users have no reporting access at all.
func StatsScope(principal domain.Principal) (repository.TicketFilter, error) {
	switch principal.Role {
	case domain.RoleAdmin:
		return repository.TicketFilter{}, nil
	case domain.RoleAgent:
		assignedTo := principal.ID
		return repository.TicketFilter{AssignedTo: &assignedTo}, nil
	default:
		return repository.TicketFilter{}, apperrors.NewForbidden("reporting requires agent or admin role")
	}
}
