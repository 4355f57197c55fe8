// Package services glues the ledger to its outbound side effects: the
// snapshot write that follows every mutation, the change event announcing
// it and the spreadsheet export.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"splitbook/internal/amqp"
	"splitbook/internal/core"
	"splitbook/internal/ledger"
	applog "splitbook/internal/log"
)

type (
	// SnapshotSaver writes the full ledger.
	SnapshotSaver interface {
		Save(ctx context.Context, contacts []core.Contact, expenses []core.Expense) (core.Snapshot, error)
	}

	// EventPublisher announces ledger changes.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
		Close() error
	}
)

var _ ledger.Persister = (*SnapshotService)(nil)

// eventQueueSize bounds the change events waiting for the publisher.
// Events beyond it are dropped.
const eventQueueSize = 64

type queuedEvent struct {
	ctx context.Context
	msg *amqp.LedgerEventMessage
}

// SnapshotService persists the ledger after each mutation and then queues a
// change event. Events are published by a background goroutine that Close
// drains.
type SnapshotService struct {
	store     SnapshotSaver
	publisher EventPublisher
	closers   []func() error

	mu     sync.Mutex
	closed bool
	events chan queuedEvent
	done   chan struct{}
}

// NewSnapshotService wires store and an optional publisher. closers run on
// Close after the publisher is closed.
func NewSnapshotService(store SnapshotSaver, publisher EventPublisher, closers ...func() error) *SnapshotService {
	s := &SnapshotService{
		store:     store,
		publisher: publisher,
		closers:   closers,
	}
	if publisher != nil {
		s.events = make(chan queuedEvent, eventQueueSize)
		s.done = make(chan struct{})
		go s.publishLoop()
	}
	return s
}

// Persist implements ledger.Persister. The snapshot is written before
// returning; the change event is only queued.
func (s *SnapshotService) Persist(ctx context.Context, change ledger.Change, contacts []core.Contact, expenses []core.Expense) error {
	snap, err := s.store.Save(ctx, contacts, expenses)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping ledger event")
		return nil
	}

	msg := amqp.NewLedgerEventMessage(string(change.Kind), change.ID, change.Found,
		len(snap.Contacts), len(snap.Expenses), snap.LastUpdated)
	s.enqueue(queuedEvent{ctx: context.WithoutCancel(ctx), msg: msg})
	return nil
}

func (s *SnapshotService) enqueue(ev queuedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		slog.WarnContext(ev.ctx, "Snapshot service closed, dropping ledger event",
			applog.FieldChange, ev.msg.Kind,
			applog.FieldEntityID, ev.msg.EntityID)
		return
	}
	select {
	case s.events <- ev:
	default:
		slog.WarnContext(ev.ctx, "Ledger event queue full, dropping event",
			applog.FieldChange, ev.msg.Kind,
			applog.FieldEntityID, ev.msg.EntityID)
	}
}

func (s *SnapshotService) publishLoop() {
	defer close(s.done)

	for ev := range s.events {
		if err := s.publisher.PublishLedgerEvent(ev.ctx, ev.msg); err != nil {
			slog.ErrorContext(ev.ctx, "Failed to publish ledger event",
				applog.FieldChange, ev.msg.Kind,
				applog.FieldEntityID, ev.msg.EntityID,
				applog.FieldError, err)
		}
	}
}

// Close waits for queued events to be published, then closes the publisher
// and the extra closers. Calls after the first are no-ops.
func (s *SnapshotService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.events != nil {
		close(s.events)
	}
	s.mu.Unlock()

	var errs []error

	if s.publisher != nil {
		<-s.done
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close snapshot service: %w", errors.Join(errs...))
	}
	return nil
}
