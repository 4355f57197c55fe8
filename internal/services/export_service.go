package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitbook/internal/amqp"
	"splitbook/internal/core"
	applog "splitbook/internal/log"
	"splitbook/internal/sheets"
)

// SnapshotLoader reads the full ledger.
type SnapshotLoader interface {
	Load(ctx context.Context) core.Snapshot
}

// ExportService copies the stored snapshot to a spreadsheet.
type ExportService struct {
	snapshots SnapshotLoader
	exporter  sheets.SnapshotExporter
}

func NewExportService(snapshots SnapshotLoader, exporter sheets.SnapshotExporter) *ExportService {
	return &ExportService{snapshots: snapshots, exporter: exporter}
}

// Export loads the stored snapshot and writes it out. It returns the number
// of expense rows written.
func (s *ExportService) Export(ctx context.Context) (int, error) {
	snap := s.snapshots.Load(ctx)
	rows, err := s.exporter.Export(ctx, snap.Contacts, snap.Expenses)
	if err != nil {
		return 0, fmt.Errorf("export snapshot: %w", err)
	}
	return rows, nil
}

// HandleLedgerEvent re-exports after a change event. Events for no-op
// mutations are acknowledged without exporting.
func (s *ExportService) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if !msg.Found {
		slog.DebugContext(ctx, "Skipping export for no-op change",
			applog.FieldChange, msg.Kind,
			applog.FieldEntityID, msg.EntityID)
		return nil
	}

	rows, err := s.Export(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Ledger re-exported after change",
		applog.FieldOperation, applog.OpExport,
		applog.FieldChange, msg.Kind,
		applog.FieldEntityID, msg.EntityID,
		applog.FieldRows, rows)
	return nil
}
