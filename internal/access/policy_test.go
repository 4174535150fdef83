package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func ticketOwnedBy(creator string, assignee *string) *domain.Ticket {
	return &domain.Ticket{
		ID:         "t-1",
		CreatedBy:  creator,
		AssignedTo: assignee,
	}
}

func strPtr(s string) *string { return &s }

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name      string
		principal domain.Principal
		ticket    *domain.Ticket
		want      bool
	}{
		{"admin sees anything", domain.Principal{ID: "a", Role: domain.RoleAdmin}, ticketOwnedBy("x", nil), true},
		{"user sees own ticket", domain.Principal{ID: "u1", Role: domain.RoleUser}, ticketOwnedBy("u1", nil), true},
		{"user denied on foreign ticket", domain.Principal{ID: "u2", Role: domain.RoleUser}, ticketOwnedBy("u1", nil), false},
		{"user denied even when assigned to nobody", domain.Principal{ID: "u2", Role: domain.RoleUser}, ticketOwnedBy("u1", nil), false},
		{"agent sees assigned ticket", domain.Principal{ID: "g1", Role: domain.RoleAgent}, ticketOwnedBy("u1", strPtr("g1")), true},
		{"agent denied on unassigned ticket", domain.Principal{ID: "g1", Role: domain.RoleAgent}, ticketOwnedBy("u1", nil), false},
		{"agent denied on foreign assignment", domain.Principal{ID: "g1", Role: domain.RoleAgent}, ticketOwnedBy("u1", strPtr("g2")), false},
		{"agent denied on own filed ticket unless assigned", domain.Principal{ID: "g1", Role: domain.RoleAgent}, ticketOwnedBy("g1", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.principal, tt.ticket))
		})
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	err := Authorize(domain.Principal{ID: "u2", Role: domain.RoleUser}, ticketOwnedBy("u1", nil))
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.False(t, apperrors.IsNotFound(err))
}

func TestScope(t *testing.T) {
	userScope := Scope(domain.Principal{ID: "u1", Role: domain.RoleUser})
	require.NotNil(t, userScope.CreatedBy)
	assert.Equal(t, "u1", *userScope.CreatedBy)
	assert.Nil(t, userScope.AssignedTo)

	agentScope := Scope(domain.Principal{ID: "g1", Role: domain.RoleAgent})
	require.NotNil(t, agentScope.AssignedTo)
	assert.Equal(t, "g1", *agentScope.AssignedTo)
	assert.Nil(t, agentScope.CreatedBy)

	adminScope := Scope(domain.Principal{ID: "a1", Role: domain.RoleAdmin})
	assert.Nil(t, adminScope.CreatedBy)
	assert.Nil(t, adminScope.AssignedTo)
}

// Listing must never return a ticket the principal could not
// individually get.
func TestScopeMatchesCanAccess(t *testing.T) {
	tickets := []*domain.Ticket{
		ticketOwnedBy("u1", nil),
		ticketOwnedBy("u1", strPtr("g1")),
		ticketOwnedBy("u2", strPtr("g2")),
	}
	principals := []domain.Principal{
		{ID: "u1", Role: domain.RoleUser},
		{ID: "u2", Role: domain.RoleUser},
		{ID: "g1", Role: domain.RoleAgent},
		{ID: "g2", Role: domain.RoleAgent},
		{ID: "a1", Role: domain.RoleAdmin},
	}

	for _, p := range principals {
		scope := Scope(p)
		for _, ticket := range tickets {
			inScope := true
			if scope.CreatedBy != nil && ticket.CreatedBy != *scope.CreatedBy {
				inScope = false
			}
			if scope.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *scope.AssignedTo) {
				inScope = false
			}
			assert.Equal(t, CanAccess(p, ticket), inScope,
				"principal %s/%s on ticket created by %s", p.Role, p.ID, ticket.CreatedBy)
		}
	}
}

func TestStatsScope(t *testing.T) {
	_, err := StatsScope(domain.Principal{ID: "u1", Role: domain.RoleUser})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	agentFilter, err := StatsScope(domain.Principal{ID: "g1", Role: domain.RoleAgent})
	require.NoError(t, err)
	require.NotNil(t, agentFilter.AssignedTo)
	assert.Equal(t, "g1", *agentFilter.AssignedTo)

	adminFilter, err := StatsScope(domain.Principal{ID: "a1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, adminFilter.AssignedTo)
	assert.Nil(t, adminFilter.CreatedBy)
}

func TestCanAssign(t *testing.T) {
	assert.False(t, CanAssign(domain.Principal{ID: "u1", Role: domain.RoleUser}))
	assert.True(t, CanAssign(domain.Principal{ID: "g1", Role: domain.RoleAgent}))
	assert.True(t, CanAssign(domain.Principal{ID: "a1", Role: domain.RoleAdmin}))
}
