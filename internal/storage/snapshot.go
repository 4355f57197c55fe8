package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"splitbook/internal/core"
	applog "splitbook/internal/log"
)

// DefaultKey is the key the snapshot is stored under.
const DefaultKey = "wallet-dues-tracker"

var errMalformedSnapshot = errors.New("malformed snapshot")

// SnapshotStore reads and writes the whole ledger as one JSON document.
type SnapshotStore struct {
	kv     KV
	key    string
	now    func() time.Time
	logger *slog.Logger
}

type SnapshotOption func(*SnapshotStore)

func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *SnapshotStore) { s.now = now }
}

func WithSnapshotLogger(l *slog.Logger) SnapshotOption {
	return func(s *SnapshotStore) { s.logger = l }
}

// NewSnapshotStore wraps kv. An empty key selects DefaultKey.
func NewSnapshotStore(kv KV, key string, opts ...SnapshotOption) *SnapshotStore {
	if key == "" {
		key = DefaultKey
	}
	s := &SnapshotStore{
		kv:     kv,
		key:    key,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key in use.
func (s *SnapshotStore) Key() string { return s.key }

// Load restores the last saved snapshot. It never fails: an absent,
// unreadable or malformed document yields empty collections.
func (s *SnapshotStore) Load(ctx context.Context) core.Snapshot {
	empty := core.Snapshot{Contacts: []core.Contact{}, Expenses: []core.Expense{}}

	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read stored snapshot, starting empty", applog.FieldStorageKey, s.key, applog.FieldError, err)
		return empty
	}
	if !ok {
		s.logger.DebugContext(ctx, "No stored snapshot, starting empty", applog.FieldStorageKey, s.key)
		return empty
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored snapshot is malformed, starting empty", applog.FieldStorageKey, s.key, applog.FieldError, err)
		return empty
	}

	s.logger.DebugContext(ctx, "Snapshot loaded",
		applog.FieldStorageKey, s.key,
		applog.FieldContacts, len(snap.Contacts),
		applog.FieldExpenses, len(snap.Expenses))
	return snap
}

// Save overwrites the stored document with contacts, expenses and the
// current time as lastUpdated. It returns the snapshot it wrote.
func (s *SnapshotStore) Save(ctx context.Context, contacts []core.Contact, expenses []core.Expense) (core.Snapshot, error) {
	snap := core.Snapshot{
		Contacts:    contacts,
		Expenses:    expenses,
		LastUpdated: s.now(),
	}
	if snap.Contacts == nil {
		snap.Contacts = []core.Contact{}
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return core.Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}

// decodeSnapshot parses data and checks that every record carries an id.
// Missing collections decode as empty.
func decodeSnapshot(data []byte) (core.Snapshot, error) {
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", errMalformedSnapshot, err)
	}
	if snap.Contacts == nil {
		snap.Contacts = []core.Contact{}
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}
	for i, c := range snap.Contacts {
		if c.ID == "" {
			return core.Snapshot{}, fmt.Errorf("%w: contact %d has no id", errMalformedSnapshot, i)
		}
	}
	for i, e := range snap.Expenses {
		if e.ID == "" {
			return core.Snapshot{}, fmt.Errorf("%w: expense %d has no id", errMalformedSnapshot, i)
		}
	}
	return snap, nil
}
