package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=100"`
	Description string                `json:"description" validate:"required"`
	Priority    domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Category    domain.TicketCategory `json:"category" validate:"required,oneof=technical billing general feature-request bug"`
}

// UpdateTicketRequest payload; nil fields are untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=100"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=open pending resolved closed"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *domain.TicketCategory `json:"category" validate:"omitempty,oneof=technical billing general feature-request bug"`
	AssignedTo  *string                `json:"assigned_to"`
}

// CreateCommentRequest payload. IsInternal defaults to false.
type CreateCommentRequest struct {
	Text       string `json:"text" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketResponse carries a ticket with its live SLA classification.
type TicketResponse struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       domain.TicketCategory `json:"category"`
	CreatedBy      string                `json:"created_by"`
	AssignedTo     *string               `json:"assigned_to"`
	SLADeadline    time.Time             `json:"sla_deadline"`
	SLAStatus      domain.SLAStatus      `json:"sla_status"`
	ResolvedAt     *time.Time            `json:"resolved_at"`
	ResolutionTime *int                  `json:"resolution_time"`
	Comments       []CommentResponse     `json:"comments,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketListResponse is one page of scoped tickets.
type TicketListResponse struct {
	Tickets      []TicketResponse `json:"tickets"`
	Total        int64            `json:"total"`
	StatusFacets map[string]int64 `json:"status_facets"`
	Page         int              `json:"page"`
	PageSize     int              `json:"page_size"`
}
