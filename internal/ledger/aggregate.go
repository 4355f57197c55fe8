package ledger

import (
	"sort"
	"time"

	"splitbook/internal/core"
)

// DefaultRecentLimit is how many entries the recent list shows by default.
const DefaultRecentLimit = 10

// GlobalSummary totals every expense. Nothing is cached: each call walks the
// full slice and accumulates left to right without intermediate rounding.
func GlobalSummary(expenses []core.Expense) core.Summary {
	var s core.Summary
	for _, e := range expenses {
		s.TotalSpent += e.Amount
		if e.IsOutstanding() {
			s.Outstanding += e.Amount
		}
		if e.IsSettled() {
			s.Settled += e.Amount
		}
		s.RemindersSent += e.ReminderCount
	}
	return s
}

// ContactSummary totals the expenses whose ContactID matches contact.
// Pending means "not yet settled" and includes reminded expenses.
func ContactSummary(contact core.Contact, expenses []core.Expense) core.ContactStats {
	var st core.ContactStats
	for _, e := range expenses {
		if e.ContactID != contact.ID {
			continue
		}
		st.Total += e.Amount
		if e.IsSettled() {
			st.Settled += e.Amount
		} else {
			st.Pending += e.Amount
		}
		st.Reminders += e.ReminderCount
		if e.IsOutstanding() {
			st.OutstandingCount++
		}
	}
	return st
}

// ContactTotals returns one summary per contact, in contacts order.
func ContactTotals(contacts []core.Contact, expenses []core.Expense) []core.ContactTotal {
	out := make([]core.ContactTotal, len(contacts))
	for i, c := range contacts {
		out[i] = core.ContactTotal{Contact: c, Stats: ContactSummary(c, expenses)}
	}
	return out
}

// Overview is the dashboard header.
func Overview(contacts []core.Contact, expenses []core.Expense) core.Overview {
	return core.Overview{
		Summary:      GlobalSummary(expenses),
		ExpenseCount: len(expenses),
		ContactCount: len(contacts),
	}
}

// RecentExpenses returns at most n expenses ordered by calendar date, most
// recent first. Expenses sharing a date keep their relative order. Dates that
// do not parse sort after every valid date. The input is not modified.
func RecentExpenses(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 || len(expenses) == 0 {
		return []core.Expense{}
	}

	type dated struct {
		at time.Time
		e  core.Expense
	}
	rows := make([]dated, len(expenses))
	for i, e := range expenses {
		at, _ := core.ParseDate(e.Date)
		rows[i] = dated{at: at, e: e}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].at.After(rows[j].at)
	})

	if n > len(rows) {
		n = len(rows)
	}
	out := make([]core.Expense, n)
	for i := range out {
		out[i] = rows[i].e
	}
	return out
}
