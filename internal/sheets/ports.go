// Package sheets exports the ledger to a spreadsheet. The export is one way:
// every run replaces the target sheet with the current snapshot.
package sheets

import (
	"context"

	"splitbook/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter writes the ledger as a table and reports how many
	// expense rows were written.
	SnapshotExporter interface {
		Export(ctx context.Context, contacts []core.Contact, expenses []core.Expense) (rows int, err error)
	}
)
