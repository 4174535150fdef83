package domain

import "time"

// Comment captures a single entry in a ticket thread. Comments are
// append-only; no edit or delete operation exists.
type Comment struct {
	ID         string
	TicketID   string
	Author     string
	Text       string
	IsInternal bool
	CreatedAt  time.Time
}
