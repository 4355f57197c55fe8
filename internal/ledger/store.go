// Package ledger owns the in-memory contacts and expenses collections,
// applies the settlement state transitions and derives summaries from them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"splitbook/internal/core"
	applog "splitbook/internal/log"
)

// ErrUnknownContact is returned when a shared expense references a contact
// that is not in the ledger.
var ErrUnknownContact = errors.New("unknown contact")

type (
	// Clock returns the current time.
	Clock func() time.Time

	// IDGenerator returns a fresh opaque identifier that is never reused.
	IDGenerator func() string

	// Persister receives a full copy of both collections after every mutation.
	Persister interface {
		Persist(ctx context.Context, change Change, contacts []core.Contact, expenses []core.Expense) error
	}

	// Option configures a Store.
	Option func(*Store)
)

// ChangeKind names the mutation that triggered a persistence write.
type ChangeKind string

const (
	ContactAdded         ChangeKind = "contact_added"
	ContactRemoved       ChangeKind = "contact_removed"
	ExpenseAdded         ChangeKind = "expense_added"
	ExpenseStatusChanged ChangeKind = "expense_status_changed"
	ExpenseRemoved       ChangeKind = "expense_removed"
)

// Change describes one applied mutation. Found is false for no-op mutations
// that referenced a missing id.
type Change struct {
	Kind  ChangeKind
	ID    string
	Found bool
}

// Store is the single owner of the ledger state. All mutations are
// serialized through mu, including the persistence write that follows them,
// so snapshots reach the Persister in mutation order.
type Store struct {
	mu        sync.RWMutex
	contacts  []core.Contact
	expenses  []core.Expense
	persister Persister
	now       Clock
	newID     IDGenerator
	logger    *slog.Logger
}

func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.newID = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store seeded with the collections of snap. A nil persister
// disables writes.
func New(snap core.Snapshot, persister Persister, opts ...Option) *Store {
	s := &Store{
		contacts:  slices.Clone(snap.Contacts),
		expenses:  slices.Clone(snap.Expenses),
		persister: persister,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contacts returns a copy of the contacts, newest first.
func (s *Store) Contacts() []core.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contacts)
}

// Expenses returns a copy of the expenses, newest first.
func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

// Snapshot returns a copy of both collections. LastUpdated is left zero;
// it is stamped by the persistence layer.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Snapshot{
		Contacts: slices.Clone(s.contacts),
		Expenses: slices.Clone(s.expenses),
	}
}

// Contact looks up a contact by id.
func (s *Store) Contact(id string) (core.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.contactIndex(id)
	if i < 0 {
		return core.Contact{}, false
	}
	return s.contacts[i], true
}

// AddContact validates in and prepends a new contact.
func (s *Store) AddContact(ctx context.Context, in core.ContactInput) (core.Contact, error) {
	if err := in.Validate(); err != nil {
		return core.Contact{}, fmt.Errorf("validate contact: %w", err)
	}
	n := in.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := core.Contact{
		ID:        s.newID(),
		Name:      n.Name,
		Email:     n.Email,
		Phone:     n.Phone,
		Note:      n.Note,
		CreatedAt: s.now(),
	}
	s.contacts = append([]core.Contact{c}, s.contacts...)
	s.persist(ctx, Change{Kind: ContactAdded, ID: c.ID, Found: true})
	return c, nil
}

// AddExpense validates in and prepends a new expense. The stored status is
// re-derived: personal expenses are always settled and never carry a
// contact; shared expenses default to pending.
func (s *Store) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contactID := strings.TrimSpace(in.ContactID)
	status := in.Status
	if in.IsPersonal {
		contactID = ""
		status = core.StatusSettled
	} else {
		if s.contactIndex(contactID) < 0 {
			return core.Expense{}, fmt.Errorf("add expense: %w: %s", ErrUnknownContact, contactID)
		}
		if status == "" {
			status = core.StatusPending
		}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = core.DefaultCategory
	}

	now := s.now()
	e := core.Expense{
		ID:            s.newID(),
		Description:   in.Description,
		Amount:        in.Amount,
		Date:          strings.TrimSpace(in.Date),
		Category:      category,
		Notes:         in.Notes,
		IsPersonal:    in.IsPersonal,
		ContactID:     contactID,
		Status:        status,
		ReminderCount: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.expenses = append([]core.Expense{e}, s.expenses...)
	s.persist(ctx, Change{Kind: ExpenseAdded, ID: e.ID, Found: true})
	return e, nil
}

// UpdateExpenseStatus moves an expense to status. Every transition into
// reminded, including reminded to reminded, counts one more reminder.
// Unknown ids are ignored and reported through the bool.
func (s *Store) UpdateExpenseStatus(ctx context.Context, id string, status core.Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("update expense status: %w: %q", core.ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.expenseIndex(id)
	if i >= 0 {
		e := &s.expenses[i]
		e.Status = status
		if status == core.StatusReminded {
			e.ReminderCount++
		}
		e.UpdatedAt = s.now()
	}
	s.persist(ctx, Change{Kind: ExpenseStatusChanged, ID: id, Found: i >= 0})
	return i >= 0, nil
}

// RemoveExpense deletes an expense. Removing a missing id is a no-op.
func (s *Store) RemoveExpense(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.expenseIndex(id)
	if i >= 0 {
		s.expenses = slices.Delete(s.expenses, i, i+1)
	}
	s.persist(ctx, Change{Kind: ExpenseRemoved, ID: id, Found: i >= 0})
	return i >= 0
}

// RemoveContact deletes a contact and orphans its expenses: their ContactID
// is cleared and every other field, IsPersonal and Status included, is kept.
func (s *Store) RemoveContact(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.contactIndex(id)
	if i >= 0 {
		s.contacts = slices.Delete(s.contacts, i, i+1)
		for j := range s.expenses {
			if s.expenses[j].ContactID == id {
				s.expenses[j].ContactID = ""
			}
		}
	}
	s.persist(ctx, Change{Kind: ContactRemoved, ID: id, Found: i >= 0})
	return i >= 0
}

// persist hands a copy of the state to the persister. Failures are logged
// and never reach the mutation caller. Callers hold mu.
func (s *Store) persist(ctx context.Context, change Change) {
	if s.persister == nil {
		return
	}
	err := s.persister.Persist(ctx, change, slices.Clone(s.contacts), slices.Clone(s.expenses))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger snapshot",
			applog.FieldChange, change.Kind,
			applog.FieldEntityID, change.ID,
			applog.FieldError, err)
	}
}

func (s *Store) contactIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.contacts, func(c core.Contact) bool { return c.ID == id })
}

func (s *Store) expenseIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
}

// GlobalSummary aggregates the current expenses.
func (s *Store) GlobalSummary() core.Summary {
	return GlobalSummary(s.Expenses())
}

// ContactTotals aggregates the current expenses per contact.
func (s *Store) ContactTotals() []core.ContactTotal {
	snap := s.Snapshot()
	return ContactTotals(snap.Contacts, snap.Expenses)
}

// Overview aggregates the current state for the dashboard header.
func (s *Store) Overview() core.Overview {
	snap := s.Snapshot()
	return Overview(snap.Contacts, snap.Expenses)
}

// RecentExpenses returns the n most recently dated expenses.
func (s *Store) RecentExpenses(n int) []core.Expense {
	return RecentExpenses(s.Expenses(), n)
}
