package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketCategory classifies the kind of request.
type TicketCategory string

const (
	TicketCategoryTechnical      TicketCategory = "technical"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryGeneral        TicketCategory = "general"
	TicketCategoryFeatureRequest TicketCategory = "feature-request"
	TicketCategoryBug            TicketCategory = "bug"
)

// SLAStatus classifies a ticket against its deadline. Derived on every
// read, never stored.
type SLAStatus string

const (
	SLAStatusCompleted SLAStatus = "completed"
	SLAStatusBreached  SLAStatus = "breached"
	SLAStatusWarning   SLAStatus = "warning"
	SLAStatusNormal    SLAStatus = "normal"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	Category       TicketCategory
	CreatedBy      string
	AssignedTo     *string
	SLADeadline    time.Time
	ResolvedAt     *time.Time
	ResolutionTime *int
	Comments       []Comment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TicketPatch carries the mutable fields of an update. Nil fields are
// left untouched. ResolvedAt and ResolutionTime are filled in by the
// lifecycle engine, never by callers.
type TicketPatch struct {
	Title          *string
	Description    *string
	Status         *TicketStatus
	Priority       *TicketPriority
	Category       *TicketCategory
	AssignedTo     *string
	ResolvedAt     *time.Time
	ResolutionTime *int
}

// IsZero reports whether the patch changes nothing.
func (p TicketPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Category == nil && p.AssignedTo == nil &&
		p.ResolvedAt == nil && p.ResolutionTime == nil
}

// ApplyTo writes the patch onto a ticket in place.
func (p TicketPatch) ApplyTo(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.AssignedTo != nil {
		assignee := *p.AssignedTo
		t.AssignedTo = &assignee
	}
	if p.ResolvedAt != nil {
		resolvedAt := *p.ResolvedAt
		t.ResolvedAt = &resolvedAt
	}
	if p.ResolutionTime != nil {
		minutes := *p.ResolutionTime
		t.ResolutionTime = &minutes
	}
}

// ValidStatus reports whether the value is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ValidCategory reports whether the value is a known category.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryGeneral,
		TicketCategoryFeatureRequest, TicketCategoryBug:
		return true
	}
	return false
}
