package core

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	StatusPending  Status = "pending"
	StatusReminded Status = "reminded"
	StatusSettled  Status = "settled"
)

const (
	// DefaultCategory is used when an expense is submitted without a category.
	DefaultCategory = "General"

	// MaxExpenseNotesLength caps expense notes at the input boundary only.
	MaxExpenseNotesLength = 240

	// MaxContactNoteLength caps contact notes at the input boundary only.
	MaxContactNoteLength = 160
)

// DefaultCategories is the suggested category set. Expenses are not constrained to it.
var DefaultCategories = []string{
	"General",
	"Food & Dining",
	"Transport",
	"Housing",
	"Entertainment",
	"Travel",
	"Utilities",
	"Health",
}

type (
	// Status is the settlement lifecycle state of an expense.
	Status string

	Contact struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email,omitempty"`
		Phone     string    `json:"phone,omitempty"`
		Note      string    `json:"note,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Expense struct {
		ID            string    `json:"id"`
		Description   string    `json:"description"`
		Amount        float64   `json:"amount"`
		Date          string    `json:"date"` // calendar date, YYYY-MM-DD
		Category      string    `json:"category"`
		Notes         string    `json:"notes,omitempty"`
		IsPersonal    bool      `json:"isPersonal"`
		ContactID     string    `json:"contactId,omitempty"` // weak reference, cleared when the contact is removed
		Status        Status    `json:"status"`
		ReminderCount int       `json:"reminderCount"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	// Snapshot is the persisted unit.
	Snapshot struct {
		Contacts    []Contact `json:"contacts"`
		Expenses    []Expense `json:"expenses"`
		LastUpdated time.Time `json:"lastUpdated"`
	}

	// ContactInput is raw contact form input.
	ContactInput struct {
		Name  string
		Email string
		Phone string
		Note  string
	}

	// ExpenseInput is raw expense form input. Status is optional; it is
	// ignored for personal expenses.
	ExpenseInput struct {
		Description string
		Amount      float64
		Date        string
		Category    string
		Notes       string
		IsPersonal  bool
		ContactID   string
		Status      Status
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrMissingContact   = errors.New("shared expense requires a contact")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotesTooLong     = errors.New("notes too long")
)

// Valid reports whether s is one of the known settlement states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReminded, StatusSettled:
		return true
	default:
		return false
	}
}

// Label returns the human readable label shown next to an expense.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Awaiting payment"
	case StatusReminded:
		return "Reminder sent"
	case StatusSettled:
		return "Settled"
	default:
		return string(s)
	}
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsSettled reports whether the expense no longer has an open balance.
func (e Expense) IsSettled() bool {
	return e.Status == StatusSettled
}

// IsOutstanding reports whether someone still owes the amount of e.
func (e Expense) IsOutstanding() bool {
	return !e.IsPersonal && e.Status != StatusSettled
}

// Normalize trims every field. Empty optional fields stay empty and are
// omitted when persisted.
func (in ContactInput) Normalize() ContactInput {
	return ContactInput{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
		Note:  strings.TrimSpace(in.Note),
	}
}

// Validate gates contact submission. The note cap is checked by the form
// boundary through ValidateContactNote, not here.
func (in ContactInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate gates expense submission. The notes cap is checked by the form
// boundary through ValidateNotes, not here. Status is ignored for personal
// expenses since they are always stored as settled.
func (in ExpenseInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(in.Date) == "" {
		return ErrInvalidDate
	}
	if _, err := ParseDate(in.Date); err != nil {
		return err
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !in.IsPersonal && strings.TrimSpace(in.ContactID) == "" {
		return ErrMissingContact
	}
	if !in.IsPersonal && in.Status != "" && !in.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ValidateContactNote enforces the contact note cap used by input forms.
func ValidateContactNote(note string) error {
	if utf8.RuneCountInString(strings.TrimSpace(note)) > MaxContactNoteLength {
		return ErrNotesTooLong
	}
	return nil
}

// ValidateNotes enforces the expense notes cap used by input forms.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxExpenseNotesLength {
		return ErrNotesTooLong
	}
	return nil
}
