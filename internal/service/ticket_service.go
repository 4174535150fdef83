package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/access"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: access control, lifecycle
// derivation, and persistence, invoked once per inbound request.
type TicketService struct {
	tickets    repository.TicketRepository
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	clock      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// ListQuery describes caller-supplied listing filters. The role scope
// is applied on top of these; a caller can narrow its own scope, never
// widen it.
type ListQuery struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	Limit      int
	Offset     int
}

// ListResult is one page of scoped tickets with listing facets.
type ListResult struct {
	Tickets      []domain.Ticket
	Total        int64
	StatusFacets map[string]int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		accounts:   deps.AccountRepo,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// Create files a ticket for the principal. Any authenticated role may
// file; the creator is always the principal itself.
func (s *TicketService) Create(ctx context.Context, principal domain.Principal, draft lifecycle.Draft) (*domain.Ticket, error) {
	if err := lifecycle.ValidateDraft(draft); err != nil {
		return nil, err
	}

	ticket := lifecycle.NewTicket(draft, principal.ID, s.clock())
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    principal,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// List returns the principal's scoped tickets, newest first. Total and
// facets are computed over the same scope without pagination.
func (s *TicketService) List(ctx context.Context, principal domain.Principal, query ListQuery) (*ListResult, error) {
	filter := access.Scope(principal)
	filter.Statuses = query.Statuses
	filter.Priorities = query.Priorities
	filter.Categories = query.Categories

	scope := filter
	filter.Limit = query.Limit
	filter.Offset = query.Offset

	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	total, err := s.tickets.Count(ctx, scope)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	facets, err := s.tickets.AggregateCountsBy(ctx, scope, "status")
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return &ListResult{Tickets: tickets, Total: total, StatusFacets: facets}, nil
}

// Get fetches a single ticket with its comment thread. Not-found takes
// precedence over access denial: a ticket that does not exist is
// not-found for every role.
func (s *TicketService) Get(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketStoreErr(err, ticketID)
	}
	if err := access.Authorize(principal, ticket); err != nil {
		return nil, err
	}
	comments, err := s.tickets.ListComments(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	ticket.Comments = comments
	return ticket, nil
}

// Update patches a ticket. The access check and the lifecycle
// derivation both run against the pre-update state read under row lock
// inside the store transaction, so concurrent resolvers serialize and
// the last writer's resolution timestamp wins.
func (s *TicketService) Update(ctx context.Context, principal domain.Principal, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	// Resolution fields are engine-owned.
	patch.ResolvedAt = nil
	patch.ResolutionTime = nil

	if err := lifecycle.ValidatePatch(patch); err != nil {
		return nil, err
	}
	if patch.IsZero() {
		return nil, apperrors.NewValidationError("empty patch", map[string]any{
			"patch": "at least one field required",
		})
	}
	if patch.AssignedTo != nil {
		if !access.CanAssign(principal) {
			return nil, apperrors.NewForbidden("only agents and admins may assign tickets")
		}
		if err := s.checkAssignee(ctx, *patch.AssignedTo); err != nil {
			return nil, err
		}
	}

	var pre domain.Ticket
	updated, err := s.tickets.UpdateByID(ctx, ticketID, func(current *domain.Ticket) (domain.TicketPatch, error) {
		if err := access.Authorize(principal, current); err != nil {
			return domain.TicketPatch{}, err
		}
		pre = *current
		return lifecycle.ApplyUpdate(current, patch, s.clock()), nil
	})
	if err != nil {
		return nil, mapTicketStoreErr(err, ticketID)
	}

	s.publishUpdateEvents(ctx, principal, &pre, updated, patch)
	return updated, nil
}

// checkAssignee verifies the target account exists and can work
// tickets. User-role accounts are never valid assignees.
func (s *TicketService) checkAssignee(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("unknown assignee", map[string]any{
				"assigned_to": "no such account",
			})
		}
		return apperrors.NewStoreError(err)
	}
	if account.Role == domain.RoleUser {
		return apperrors.NewValidationError("invalid assignee", map[string]any{
			"assigned_to": "account does not hold the agent role",
		})
	}
	return nil
}

// Comment appends to the ticket thread. Appending never changes
// status or resolution fields.
func (s *TicketService) Comment(ctx context.Context, principal domain.Principal, ticketID, text string, isInternal bool) (*domain.Ticket, error) {
	if err := lifecycle.ValidateComment(text); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketStoreErr(err, ticketID)
	}
	if err := access.Authorize(principal, ticket); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		Author:     principal.ID,
		Text:       strings.TrimSpace(text),
		IsInternal: isInternal,
	}
	if err := s.tickets.AppendComment(ctx, comment); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	comments, err := s.tickets.ListComments(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	ticket.Comments = comments

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    principal,
		Payload: events.TicketCommentAddedPayload{
			CommentID:  comment.ID,
			Author:     comment.Author,
			IsInternal: comment.IsInternal,
		},
	})
	return ticket, nil
}

// SLAStatusOf derives the live SLA classification for a ticket.
func (s *TicketService) SLAStatusOf(ticket *domain.Ticket) domain.SLAStatus {
	return lifecycle.SLAStatusAt(ticket, s.clock())
}

func (s *TicketService) publishUpdateEvents(ctx context.Context, principal domain.Principal, pre, updated *domain.Ticket, patch domain.TicketPatch) {
	if patch.Status != nil && pre.Status != updated.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Actor:    principal,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: pre.Status,
				NewStatus: updated.Status,
			},
		})
	}
	if pre.ResolvedAt == nil && updated.ResolvedAt != nil {
		minutes := 0
		if updated.ResolutionTime != nil {
			minutes = *updated.ResolutionTime
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: updated.ID,
			Actor:    principal,
			Payload: events.TicketResolvedPayload{
				ResolvedAt:        *updated.ResolvedAt,
				ResolutionMinutes: minutes,
				WithinSLA:         !updated.ResolvedAt.After(updated.SLADeadline),
			},
		})
	}
	if patch.AssignedTo != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			Actor:    principal,
			Payload: events.TicketAssignedPayload{
				AssignedTo: updated.AssignedTo,
			},
		})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// mapTicketStoreErr keeps the error taxonomy straight: missing rows are
// not-found, domain errors from inside the mutate callback pass
// through, anything else is a store failure.
func mapTicketStoreErr(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStoreError(err)
}
