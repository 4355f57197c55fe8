package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"splitbook/internal/config"
	"splitbook/internal/core"
	"splitbook/internal/ledger"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a storage backend")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/x.db",
		StorageKey:   "k",
		AMQPQueue:    "q",
	})
	if err != nil {
		t.Fatalf("FromAppConfig failed: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.StorageKey != "k" || cfg.AMQPQueue != "q" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "csv"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file", Config{Type: FileBackend, DataDirectory: "data"}, false},
		{"file without directory", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "other"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackendPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	configs := map[string]Config{
		"file":   {Type: FileBackend, DataDirectory: filepath.Join(dir, "files"), StorageKey: "ledger"},
		"sqlite": {Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db"), StorageKey: "ledger"},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			factory := NewFactory(nil)

			first, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend failed: %v", err)
			}
			st := ledger.New(first.Snapshots.Load(ctx), first.Persister)
			if _, err := st.AddContact(ctx, core.ContactInput{Name: "Alex"}); err != nil {
				t.Fatalf("AddContact failed: %v", err)
			}
			if first.Publisher != nil {
				t.Error("publisher should be nil without AMQP_URL")
			}
			if err := first.Cleanup(); err != nil {
				t.Fatalf("Cleanup failed: %v", err)
			}

			second, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend failed: %v", err)
			}
			defer second.Cleanup()

			snap := second.Snapshots.Load(ctx)
			if len(snap.Contacts) != 1 || snap.Contacts[0].Name != "Alex" {
				t.Fatalf("expected persisted contact, got %+v", snap.Contacts)
			}
		})
	}
}

func TestCreateBackendMemoryStartsEmpty(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend failed: %v", err)
	}
	if res.Snapshots.Key() != "wallet-dues-tracker" {
		t.Errorf("Key() = %q, want default key", res.Snapshots.Key())
	}
	snap := res.Snapshots.Load(context.Background())
	if len(snap.Contacts) != 0 || len(snap.Expenses) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestNewExporterRequiresSpreadsheet(t *testing.T) {
	if _, err := NewExporter(context.Background(), Config{}); !errors.Is(err, ErrSheetsNotConfigured) {
		t.Fatalf("expected ErrSheetsNotConfigured, got %v", err)
	}
}
