package core

// Summary aggregates every expense in the ledger.
type Summary struct {
	TotalSpent    float64
	Outstanding   float64 // shared expenses not yet settled
	Settled       float64
	RemindersSent int
}

// ContactStats aggregates the expenses attributed to one contact.
// Pending covers both pending and reminded expenses.
type ContactStats struct {
	Total            float64
	Pending          float64
	Settled          float64
	Reminders        int
	OutstandingCount int
}

// ContactTotal pairs a contact with its stats.
type ContactTotal struct {
	Contact Contact
	Stats   ContactStats
}

// Overview is the dashboard header: the global summary plus collection sizes.
type Overview struct {
	Summary
	ExpenseCount int
	ContactCount int
}
