package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// fakeTicketRepo keeps tickets in memory and mirrors the store's
// contract: filters apply before pagination, UpdateByID runs the mutate
// callback against the stored pre-state, missing rows surface as
// pgx.ErrNoRows.
type fakeTicketRepo struct {
	tickets  map[string]*domain.Ticket
	comments map[string][]domain.Comment
	nextID   int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:  map[string]*domain.Ticket{},
		comments: map[string][]domain.Comment{},
	}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.nextID++
	ticket.ID = fmt.Sprintf("t-%d", f.nextID)
	ticket.CreatedAt = testNow
	ticket.UpdatedAt = testNow
	// the store derives the deadline from its created_at stamp
	ticket.SLADeadline = ticket.CreatedAt.Add(lifecycle.ResolutionWindow)
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	stored, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeTicketRepo) matches(t *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
		return false
	}
	if filter.AssignedTo != nil {
		if t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo {
			return false
		}
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
		return false
	}
	return true
}

func containsStatus(set []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var matched []domain.Ticket
	for _, t := range f.tickets {
		if f.matches(t, filter) {
			matched = append(matched, *t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if filter.Limit > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[filter.Offset:end]
	}
	return matched, nil
}

func (f *fakeTicketRepo) Count(_ context.Context, filter repository.TicketFilter) (int64, error) {
	var n int64
	for _, t := range f.tickets {
		if f.matches(t, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTicketRepo) AggregateCountsBy(_ context.Context, filter repository.TicketFilter, field string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, t := range f.tickets {
		if !f.matches(t, filter) {
			continue
		}
		switch field {
		case "status":
			counts[string(t.Status)]++
		case "priority":
			counts[string(t.Priority)]++
		case "category":
			counts[string(t.Category)]++
		}
	}
	return counts, nil
}

func (f *fakeTicketRepo) UpdateByID(_ context.Context, id string, mutate repository.MutateFunc) (*domain.Ticket, error) {
	stored, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	pre := *stored
	patch, err := mutate(&pre)
	if err != nil {
		return nil, err
	}
	updated := *stored
	patch.ApplyTo(&updated)
	updated.UpdatedAt = testNow
	f.tickets[id] = &updated
	copied := updated
	return &copied, nil
}

func (f *fakeTicketRepo) AppendComment(_ context.Context, comment *domain.Comment) error {
	f.nextID++
	comment.ID = fmt.Sprintf("c-%d", f.nextID)
	comment.CreatedAt = testNow
	f.comments[comment.TicketID] = append(f.comments[comment.TicketID], *comment)
	return nil
}

func (f *fakeTicketRepo) ListComments(_ context.Context, ticketID string) ([]domain.Comment, error) {
	return append([]domain.Comment(nil), f.comments[ticketID]...), nil
}

var _ repository.TicketRepository = (*fakeTicketRepo)(nil)

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func newFakeAccountRepo(principals ...domain.Principal) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[string]*domain.Account{}}
	for _, p := range principals {
		repo.accounts[p.ID] = &domain.Account{ID: p.ID, Name: p.ID, Role: p.Role}
	}
	return repo
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, account := range f.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newTestService(repo repository.TicketRepository) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:  repo,
		AccountRepo: newFakeAccountRepo(alice, bob, carol, dave, admin),
		Clock:       fixedClock,
	})
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

var (
	alice = domain.Principal{ID: "alice", Role: domain.RoleUser}
	bob   = domain.Principal{ID: "bob", Role: domain.RoleUser}
	carol = domain.Principal{ID: "carol", Role: domain.RoleAgent}
	dave  = domain.Principal{ID: "dave", Role: domain.RoleAgent}
	admin = domain.Principal{ID: "root", Role: domain.RoleAdmin}
)

func mustCreate(t *testing.T, svc *TicketService, principal domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), principal, lifecycle.Draft{
		Title:       "printer on fire",
		Description: "smoke coming out of tray 2",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryTechnical,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateStampsLifecycleFields(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	ticket := mustCreate(t, svc, alice)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "alice", ticket.CreatedBy)
	assert.Equal(t, ticket.CreatedAt.Add(24*time.Hour), ticket.SLADeadline)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ResolutionTime)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, err := svc.Create(context.Background(), alice, lifecycle.Draft{
		Title:    "no description",
		Priority: "critical",
		Category: domain.TicketCategoryBug,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

// A user reading another user's ticket gets access denied, not
// not-found: the record exists, the caller is simply out of scope.
func TestGetDeniedForForeignUser(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Get(context.Background(), bob, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.False(t, apperrors.IsNotFound(err))
}

func TestGetMissingTicketIsNotFoundForEveryRole(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	for _, principal := range []domain.Principal{alice, carol, admin} {
		_, err := svc.Get(context.Background(), principal, "t-missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err), "role %s", principal.Role)
	}
}

func TestGetIncludesComments(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Comment(context.Background(), alice, ticket.ID, "still broken", false)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), alice, ticket.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "still broken", got.Comments[0].Text)
}

// Resolving stamps resolvedAt and the resolution time in minutes from
// the pre-update state; the SLA classification flips to completed.
func TestUpdateResolveStampsResolutionFields(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	stored := repo.tickets[ticket.ID]
	stored.CreatedAt = testNow.Add(-30 * time.Minute)
	assignee := "carol"
	stored.AssignedTo = &assignee

	updated, err := svc.Update(context.Background(), carol, ticket.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, testNow, *updated.ResolvedAt)
	require.NotNil(t, updated.ResolutionTime)
	assert.Equal(t, 30, *updated.ResolutionTime)
	assert.Equal(t, domain.SLAStatusCompleted, svc.SLAStatusOf(updated))
}

func TestUpdateResolveAgainLeavesResolutionUntouched(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	first := *repo.tickets[ticket.ID].ResolvedAt

	// resolving an already-resolved ticket keeps the original stamp
	_, err = svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	assert.Equal(t, first, *repo.tickets[ticket.ID].ResolvedAt)
}

func TestUpdateIgnoresCallerResolutionFields(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	forged := testNow.Add(-10 * time.Hour)
	minutes := 1
	_, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		Status:         statusPtr(domain.TicketStatusPending),
		ResolvedAt:     &forged,
		ResolutionTime: &minutes,
	})
	require.NoError(t, err)

	assert.Nil(t, repo.tickets[ticket.ID].ResolvedAt)
	assert.Nil(t, repo.tickets[ticket.ID].ResolutionTime)
}

func TestUpdateEmptyPatchRejected(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateUserCannotAssign(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), alice, ticket.ID, domain.TicketPatch{
		AssignedTo: strPtr("carol"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestUpdateAssignToAgent(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	updated, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		AssignedTo: strPtr("dave"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "dave", *updated.AssignedTo)
}

// Only accounts holding the agent or admin role can be assigned.
func TestUpdateAssigneeMustBeAgent(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		AssignedTo: strPtr("bob"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Nil(t, repo.tickets[ticket.ID].AssignedTo)
}

func TestUpdateAssigneeMustExist(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), admin, ticket.ID, domain.TicketPatch{
		AssignedTo: strPtr("ghost"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

// Agents have no implicit access to unassigned tickets; assignment is
// how a ticket enters an agent's scope.
func TestUpdateUnassignedAgentDenied(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Update(context.Background(), dave, ticket.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusPending),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.Equal(t, domain.TicketStatusOpen, repo.tickets[ticket.ID].Status)
}

func TestUpdateMissingTicketNotFound(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, err := svc.Update(context.Background(), admin, "t-missing", domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusPending),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCommentDeniedAgentDoesNotAppend(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Comment(context.Background(), dave, ticket.ID, "on it", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.Empty(t, repo.comments[ticket.ID])
}

func TestCommentRejectsBlankText(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	_, err := svc.Comment(context.Background(), alice, ticket.ID, "   ", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCommentDoesNotTouchStatus(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	ticket := mustCreate(t, svc, alice)

	got, err := svc.Comment(context.Background(), alice, ticket.ID, "any update?", false)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestListScopesByRole(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)

	mine := mustCreate(t, svc, alice)
	theirs := mustCreate(t, svc, bob)
	assignee := "carol"
	repo.tickets[theirs.ID].AssignedTo = &assignee

	aliceList, err := svc.List(context.Background(), alice, ListQuery{})
	require.NoError(t, err)
	require.Len(t, aliceList.Tickets, 1)
	assert.Equal(t, mine.ID, aliceList.Tickets[0].ID)
	assert.Equal(t, int64(1), aliceList.Total)

	carolList, err := svc.List(context.Background(), carol, ListQuery{})
	require.NoError(t, err)
	require.Len(t, carolList.Tickets, 1)
	assert.Equal(t, theirs.ID, carolList.Tickets[0].ID)

	adminList, err := svc.List(context.Background(), admin, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, adminList.Tickets, 2)
	assert.Equal(t, int64(2), adminList.Total)
	assert.Equal(t, int64(2), adminList.StatusFacets[string(domain.TicketStatusOpen)])
}

func TestListTotalIgnoresPagination(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	for i := 0; i < 5; i++ {
		mustCreate(t, svc, alice)
	}

	result, err := svc.List(context.Background(), alice, ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 2)
	assert.Equal(t, int64(5), result.Total)
}

func TestListStatusFilterNarrowsScope(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	open := mustCreate(t, svc, alice)
	resolved := mustCreate(t, svc, alice)
	repo.tickets[resolved.ID].Status = domain.TicketStatusResolved

	result, err := svc.List(context.Background(), alice, ListQuery{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
	})
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, open.ID, result.Tickets[0].ID)
	assert.Equal(t, int64(1), result.Total)
}

func TestStatsDeniedToUserRole(t *testing.T) {
	repo := newFakeTicketRepo()
	stats := NewStatsService(repo, fixedClock)

	_, err := stats.Compute(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestStatsAgentScope(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	stats := NewStatsService(repo, fixedClock)

	assigned := mustCreate(t, svc, alice)
	assignee := "carol"
	repo.tickets[assigned.ID].AssignedTo = &assignee
	mustCreate(t, svc, bob) // unassigned, out of carol's scope

	report, err := stats.Compute(context.Background(), carol)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalTickets)
	assert.Equal(t, 1, report.OpenTickets)

	adminReport, err := stats.Compute(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, adminReport.TotalTickets)
}
