// Package lifecycle computes derived ticket state from status
// transitions and timestamps. Every function is pure: callers pass the
// pre-update ticket read under lock and the current time.
package lifecycle

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	// ResolutionWindow is the SLA window granted at creation. The
	// deadline is fixed then and never recomputed.
	ResolutionWindow = 24 * time.Hour

	// warningWindow is how close to the deadline a ticket turns to
	// the warning state.
	warningWindow = 2 * time.Hour

	// maxTitleRunes bounds the title in characters, not bytes, to
	// match the DB CHECK on char_length.
	maxTitleRunes = 100
)

// Draft carries caller-provided fields for ticket creation.
type Draft struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
}

// NewTicket builds a ticket from a validated draft. Status starts at
// open, the SLA deadline is creation time plus 24 hours, and the
// resolution fields stay unset until the first transition into
// resolved.
func NewTicket(draft Draft, createdBy string, now time.Time) *domain.Ticket {
	return &domain.Ticket{
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    draft.Priority,
		Category:    draft.Category,
		CreatedBy:   createdBy,
		SLADeadline: now.Add(ResolutionWindow),
	}
}

// ValidateDraft checks required creation fields. Details name each
// field at fault so callers can render messages without guessing.
func ValidateDraft(draft Draft) error {
	details := map[string]any{}
	if strings.TrimSpace(draft.Title) == "" {
		details["title"] = "required"
	} else if utf8.RuneCountInString(strings.TrimSpace(draft.Title)) > maxTitleRunes {
		details["title"] = "must be at most 100 characters"
	}
	if strings.TrimSpace(draft.Description) == "" {
		details["description"] = "required"
	}
	if draft.Priority == "" {
		details["priority"] = "required"
	} else if !domain.ValidPriority(draft.Priority) {
		details["priority"] = "unknown priority"
	}
	if draft.Category == "" {
		details["category"] = "required"
	} else if !domain.ValidCategory(draft.Category) {
		details["category"] = "unknown category"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket draft", details)
	}
	return nil
}

// ValidatePatch checks enum fields and the title bound on an update.
func ValidatePatch(patch domain.TicketPatch) error {
	details := map[string]any{}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			details["title"] = "must not be empty"
		} else if utf8.RuneCountInString(trimmed) > maxTitleRunes {
			details["title"] = "must be at most 100 characters"
		}
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		details["description"] = "must not be empty"
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		details["status"] = "unknown status"
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		details["priority"] = "unknown priority"
	}
	if patch.Category != nil && !domain.ValidCategory(*patch.Category) {
		details["category"] = "unknown category"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket patch", details)
	}
	return nil
}

// ApplyUpdate returns the effective patch for an update against the
// pre-update ticket state. Text fields are trimmed the same way
// NewTicket trims them. When the desired status is resolved and the
// ticket is not already resolved, the resolution timestamp and the
// resolution time in minutes are stamped as part of the same patch.
// Re-entering resolved, or leaving it, never touches the fields once
// set.
func ApplyUpdate(pre *domain.Ticket, patch domain.TicketPatch, now time.Time) domain.TicketPatch {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		patch.Description = &trimmed
	}

	if patch.Status == nil {
		return patch
	}
	if *patch.Status != domain.TicketStatusResolved {
		return patch
	}
	if pre.Status == domain.TicketStatusResolved {
		return patch
	}
	resolvedAt := now
	minutes := resolutionMinutes(pre.CreatedAt, resolvedAt)
	patch.ResolvedAt = &resolvedAt
	patch.ResolutionTime = &minutes
	return patch
}

// ValidateComment checks comment text; isInternal defaults to false at
// the DTO layer.
func ValidateComment(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("comment text must not be empty", map[string]any{
			"text": "required",
		})
	}
	return nil
}

// SLAStatusAt derives the read-time SLA classification for a ticket.
func SLAStatusAt(t *domain.Ticket, now time.Time) domain.SLAStatus {
	if t.Status == domain.TicketStatusResolved || t.Status == domain.TicketStatusClosed {
		return domain.SLAStatusCompleted
	}
	remaining := t.SLADeadline.Sub(now)
	switch {
	case remaining < 0:
		return domain.SLAStatusBreached
	case remaining < warningWindow:
		return domain.SLAStatusWarning
	default:
		return domain.SLAStatusNormal
	}
}

func resolutionMinutes(createdAt, resolvedAt time.Time) int {
	return int(math.Round(resolvedAt.Sub(createdAt).Minutes()))
}
