package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/config"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

var testSLA = config.SLAConfig{
	LowHours:      72,
	MediumHours:   24,
	HighHours:     8,
	UrgentHours:   4,
	CriticalHours: 1,
	DefaultHours:  24,
}

// memDB is an in-memory stand-in for postgres shared by the fake
// repositories. Reads hand out copies the way row scans do, so mutations
// staged on a fetched record never reach storage without an explicit update.
type memDB struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	categories  map[string]domain.Category
	tickets     map[string]domain.Ticket
	comments    map[string]domain.Comment
	votes       map[string]domain.Vote
	attachments map[string]domain.Attachment
	auditLogs   []domain.AuditLog

	seq  int
	base time.Time

	// voteCreateErr is returned by the next vote insert, simulating the
	// unique-constraint loser in a concurrent first-vote race.
	voteCreateErr error
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[string]domain.User),
		categories:  make(map[string]domain.Category),
		tickets:     make(map[string]domain.Ticket),
		comments:    make(map[string]domain.Comment),
		votes:       make(map[string]domain.Vote),
		attachments: make(map[string]domain.Attachment),
		base:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%04d", prefix, db.seq)
}

// clock returns a strictly increasing timestamp so created_at ordering is
// deterministic.
func (db *memDB) clock() time.Time {
	db.seq++
	return db.base.Add(time.Duration(db.seq) * time.Second)
}

// Store exposes the fakes behind the shared repository facade.
func (db *memDB) Store() *repository.Store {
	return &repository.Store{
		Users:       &memUserRepo{db: db},
		Categories:  &memCategoryRepo{db: db},
		Tickets:     &memTicketRepo{db: db},
		Comments:    &memCommentRepo{db: db},
		Votes:       &memVoteRepo{db: db},
		Attachments: &memAttachmentRepo{db: db},
		AuditLogs:   &memAuditLogRepo{db: db},
	}
}

// memTxRunner runs the closure against the same memDB; the fakes have no
// rollback, which the tests account for by validating before writes.
type memTxRunner struct{ db *memDB }

func (r memTxRunner) InTx(_ context.Context, fn func(*repository.Store) error) error {
	return fn(r.db.Store())
}

// ---------------------------------------------------------------------------
// seed helpers

func (db *memDB) seedUser(id string, role domain.Role, active bool) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.clock()
	user := domain.User{
		ID:        id,
		Username:  id,
		Email:     id + "@example.com",
		FullName:  id,
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.users[id] = user
	out := user
	return &out
}

func (db *memDB) seedCategory(id, name string, active bool) *domain.Category {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.clock()
	category := domain.Category{
		ID:        id,
		Name:      name,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.categories[id] = category
	out := category
	return &out
}

func (db *memDB) seedTicket(id, creatorID, categoryID string) *domain.Ticket {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.clock()
	due := now.Add(24 * time.Hour)
	ticket := domain.Ticket{
		ID:          id,
		Subject:     "subject " + id,
		Description: "description " + id,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		CreatorID:   creatorID,
		CategoryID:  categoryID,
		DueDate:     &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	db.tickets[id] = ticket
	out := ticket
	return &out
}

func (db *memDB) putTicket(ticket domain.Ticket) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tickets[ticket.ID] = ticket
}

func (db *memDB) ticketByID(id string) domain.Ticket {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.tickets[id]
}

func (db *memDB) auditFor(ticketID string) []domain.AuditLog {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []domain.AuditLog
	for _, entry := range db.auditLogs {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// fake repositories

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.db.nextID("user")
	now := r.db.clock()
	user.CreatedAt, user.UpdatedAt = now, now
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.db.users {
		if id != user.ID && existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = r.db.clock()
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	user, ok := r.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := user
	return &out, nil
}

func (r *memUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.User
	for _, user := range r.db.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		if filter.StaffOnly && !user.Role.IsStaff() {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return window(result, filter.Limit, filter.Offset, 50), nil
}

type memCategoryRepo struct{ db *memDB }

func (r *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.categories {
		if existing.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	category.ID = r.db.nextID("cat")
	now := r.db.clock()
	category.CreatedAt, category.UpdatedAt = now, now
	r.db.categories[category.ID] = *category
	return nil
}

func (r *memCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.db.categories {
		if id != category.ID && existing.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	category.UpdatedAt = r.db.clock()
	r.db.categories[category.ID] = *category
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	category, ok := r.db.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := category
	return &out, nil
}

func (r *memCategoryRepo) List(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Category
	for _, category := range r.db.categories {
		if !includeInactive && !category.IsActive {
			continue
		}
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memTicketRepo struct{ db *memDB }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket.ID = r.db.nextID("ticket")
	now := r.db.clock()
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.db.clock()
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Touch(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.db.clock()
	r.db.tickets[id] = ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := ticket
	return &out, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.db.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.VisibleToUserID != nil && !visibleTo(ticket, *filter.VisibleToUserID) {
			continue
		}
		if filter.CategoryID != nil && ticket.CategoryID != *filter.CategoryID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.SearchTerm != nil && !matchesSearch(ticket, *filter.SearchTerm) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return window(result, filter.Limit, filter.Offset, 20), nil
}

func (r *memTicketRepo) CountByCategory(_ context.Context, categoryID string) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var count int64
	for _, ticket := range r.db.tickets {
		if ticket.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

type memCommentRepo struct{ db *memDB }

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	comment.ID = r.db.nextID("comment")
	now := r.db.clock()
	comment.CreatedAt, comment.UpdatedAt = now, now
	r.db.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepo) Update(_ context.Context, comment *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[comment.ID]; !ok {
		return pgx.ErrNoRows
	}
	comment.UpdatedAt = r.db.clock()
	r.db.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	comment, ok := r.db.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := comment
	return &out, nil
}

func (r *memCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Comment
	for _, comment := range r.db.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memVoteRepo struct{ db *memDB }

func (r *memVoteRepo) Create(_ context.Context, vote *domain.Vote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.voteCreateErr; err != nil {
		r.db.voteCreateErr = nil
		return err
	}
	for _, existing := range r.db.votes {
		if existing.TicketID == vote.TicketID && existing.UserID == vote.UserID {
			return repository.ErrDuplicate
		}
	}
	vote.ID = r.db.nextID("vote")
	now := r.db.clock()
	vote.CreatedAt, vote.UpdatedAt = now, now
	r.db.votes[vote.ID] = *vote
	return nil
}

func (r *memVoteRepo) UpdateDirection(_ context.Context, id string, isUpvote bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	vote, ok := r.db.votes[id]
	if !ok {
		return pgx.ErrNoRows
	}
	vote.IsUpvote = isUpvote
	vote.UpdatedAt = r.db.clock()
	r.db.votes[id] = vote
	return nil
}

func (r *memVoteRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.votes[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.db.votes, id)
	return nil
}

func (r *memVoteRepo) GetByTicketAndUser(_ context.Context, ticketID, userID string) (*domain.Vote, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, vote := range r.db.votes {
		if vote.TicketID == ticketID && vote.UserID == userID {
			out := vote
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memVoteRepo) Summarize(_ context.Context, ticketID, userID string) (*domain.VoteSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	summary := &domain.VoteSummary{}
	for _, vote := range r.db.votes {
		if vote.TicketID != ticketID {
			continue
		}
		if vote.IsUpvote {
			summary.Upvotes++
		} else {
			summary.Downvotes++
		}
		if vote.UserID == userID {
			direction := vote.IsUpvote
			summary.UserVote = &direction
		}
	}
	summary.Score = summary.Upvotes - summary.Downvotes
	return summary, nil
}

type memAttachmentRepo struct{ db *memDB }

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	attachment.ID = r.db.nextID("att")
	attachment.CreatedAt = r.db.clock()
	r.db.attachments[attachment.ID] = *attachment
	return nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Attachment
	for _, attachment := range r.db.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memAuditLogRepo struct{ db *memDB }

func (r *memAuditLogRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = r.db.nextID("audit")
	entry.CreatedAt = r.db.clock()
	r.db.auditLogs = append(r.db.auditLogs, *entry)
	return nil
}

func (r *memAuditLogRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.AuditLog
	for _, entry := range r.db.auditLogs {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// event recorder and service constructors

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) Subscribe(events.EventType, events.EventHandler) {}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	var result []events.Event
	for _, event := range r.all() {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

func newTicketServiceForTest(db *memDB, visibility access.AgentVisibility) (*TicketService, *eventRecorder) {
	recorder := &eventRecorder{}
	svc := NewTicketService(TicketDependencies{
		Store:      db.Store(),
		Tx:         memTxRunner{db: db},
		Policy:     access.NewPolicy(visibility),
		SLA:        testSLA,
		Dispatcher: recorder,
	})
	return svc, recorder
}

func newCommentServiceForTest(db *memDB, visibility access.AgentVisibility) (*CommentService, *eventRecorder) {
	recorder := &eventRecorder{}
	svc := NewCommentService(CommentDependencies{
		Store:      db.Store(),
		Tx:         memTxRunner{db: db},
		Policy:     access.NewPolicy(visibility),
		Dispatcher: recorder,
	})
	return svc, recorder
}

func newVoteServiceForTest(db *memDB) *VoteService {
	return NewVoteService(VoteDependencies{
		Store:  db.Store(),
		Tx:     memTxRunner{db: db},
		Policy: access.NewPolicy(access.AgentVisibilityAssigned),
	})
}

func newCategoryServiceForTest(db *memDB) *CategoryService {
	return NewCategoryService(CategoryDependencies{
		Store: db.Store(),
		Tx:    memTxRunner{db: db},
	})
}

func newUserServiceForTest(db *memDB) *UserService {
	return NewUserService(UserDependencies{
		Store: db.Store(),
		Tx:    memTxRunner{db: db},
	})
}

// ---------------------------------------------------------------------------
// small helpers

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *util.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}

func window[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func visibleTo(ticket domain.Ticket, userID string) bool {
	if ticket.CreatorID == userID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == userID
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(priorities []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range priorities {
		if p == priority {
			return true
		}
	}
	return false
}

func matchesSearch(ticket domain.Ticket, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ticket.Subject), term) ||
		strings.Contains(strings.ToLower(ticket.Description), term)
}
