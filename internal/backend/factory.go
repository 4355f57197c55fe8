package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"splitbook/internal/amqp"
	applog "splitbook/internal/log"
	"splitbook/internal/services"
	"splitbook/internal/sheets"
	gsheet "splitbook/internal/sheets/google"
	"splitbook/internal/storage"
)

// ErrSheetsNotConfigured is returned by NewExporter when no spreadsheet is set.
var ErrSheetsNotConfigured = errors.New("google sheets export is not configured (set GOOGLE_SPREADSHEET_ID)")

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	kv, closeKV, err := f.createKV(config)
	if err != nil {
		return nil, err
	}

	snapshots := storage.NewSnapshotStore(kv, config.StorageKey, storage.WithSnapshotLogger(f.logger.With(applog.FieldComponent, applog.ComponentStorage)))

	// AMQP is optional; an unreachable broker only disables change events.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", applog.FieldError, err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				applog.FieldExchange, config.AMQPExchange,
				applog.FieldQueue, config.AMQPQueue)
		}
	}

	var closers []func() error
	if closeKV != nil {
		closers = append(closers, closeKV)
	}
	persister := services.NewSnapshotService(snapshots, publisher, closers...)

	f.logger.DebugContext(ctx, "Initialized backend",
		applog.FieldBackend, config.Type,
		applog.FieldStorageKey, snapshots.Key(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Snapshots: snapshots,
		Persister: persister,
		Publisher: publisher,
		Cleanup:   persister.Close,
	}, nil
}

func (f *DefaultFactory) createKV(config Config) (storage.KV, func() error, error) {
	switch config.Type {
	case MemoryBackend:
		return storage.NewMemoryKV(), nil, nil
	case FileBackend:
		kv, err := storage.NewFileKV(config.DataDirectory)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return kv, nil, nil
	case SQLiteBackend:
		kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		return kv, kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// NewExporter builds the Google Sheets exporter.
func NewExporter(ctx context.Context, config Config) (sheets.SnapshotExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		return nil, ErrSheetsNotConfigured
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
