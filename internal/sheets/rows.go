package sheets

import (
	"strconv"

	"splitbook/internal/core"
)

// Header is the first row of every export.
var Header = []string{
	"Date", "Description", "Category", "Amount", "Contact",
	"Status", "Reminders", "Personal", "Notes",
}

// Rows renders one row per expense, in the order given. The contact column
// holds the contact's name; orphaned and personal expenses leave it blank.
// Amounts are rendered with two decimals.
func Rows(contacts []core.Contact, expenses []core.Expense) [][]string {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}

	out := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		personal := "no"
		if e.IsPersonal {
			personal = "yes"
		}
		out = append(out, []string{
			e.Date,
			e.Description,
			e.Category,
			strconv.FormatFloat(e.Amount, 'f', 2, 64),
			names[e.ContactID],
			e.Status.Label(),
			strconv.Itoa(e.ReminderCount),
			personal,
			e.Notes,
		})
	}
	return out
}
