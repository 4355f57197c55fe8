package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"splitbook/internal/amqp"
	"splitbook/internal/core"
	"splitbook/internal/ledger"
	"splitbook/internal/sheets"
	"splitbook/internal/sheets/memory"
	"splitbook/internal/storage"
)

type testEnv struct {
	app       *App
	out       *bytes.Buffer
	snapshots *storage.SnapshotStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	now := func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	snapshots := storage.NewSnapshotStore(storage.NewMemoryKV(), "")
	persister := persistFunc(func(ctx context.Context, contacts []core.Contact, expenses []core.Expense) error {
		_, err := snapshots.Save(ctx, contacts, expenses)
		return err
	})
	store := ledger.New(core.Snapshot{}, persister, ledger.WithIDGenerator(ids), ledger.WithClock(now))

	out := &bytes.Buffer{}
	return &testEnv{
		app: &App{
			Store:       store,
			Snapshots:   snapshots,
			Out:         out,
			RecentLimit: 10,
			Now:         now,
		},
		out:       out,
		snapshots: snapshots,
	}
}

type persistFunc func(ctx context.Context, contacts []core.Contact, expenses []core.Expense) error

func (f persistFunc) Persist(ctx context.Context, _ ledger.Change, contacts []core.Contact, expenses []core.Expense) error {
	return f(ctx, contacts, expenses)
}

func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	e.out.Reset()
	if err := e.app.Run(context.Background(), args); err != nil {
		t.Fatalf("Run(%v) failed: %v", args, err)
	}
	return e.out.String()
}

func TestContactCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.run(t, "contact", "add", "-name", "Alex", "-email", "alex@example.com")
	if !strings.Contains(out, "Added contact Alex (id1)") {
		t.Fatalf("unexpected output: %q", out)
	}

	out = env.run(t, "contact", "list")
	if !strings.Contains(out, "Alex") || !strings.Contains(out, "alex@example.com") {
		t.Fatalf("list missing contact: %q", out)
	}

	out = env.run(t, "contact", "rm", "id1")
	if !strings.Contains(out, "Removed contact id1") {
		t.Fatalf("unexpected output: %q", out)
	}
	out = env.run(t, "contact", "rm", "id1")
	if !strings.Contains(out, "No contact with id id1") {
		t.Fatalf("second removal should be a no-op: %q", out)
	}

	out = env.run(t, "contact", "list")
	if !strings.Contains(out, "No contacts yet.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestContactAddRejectsBlankName(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"contact", "add", "-name", "  "})
	if !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestContactAddRejectsLongNote(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"contact", "add", "-name", "Alex", "-note", strings.Repeat("n", core.MaxContactNoteLength+1)})
	if !errors.Is(err, core.ErrNotesTooLong) {
		t.Fatalf("expected ErrNotesTooLong, got %v", err)
	}
	if len(env.app.Store.Contacts()) != 0 {
		t.Fatal("no contact should be created")
	}
}

func TestExpenseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.run(t, "contact", "add", "-name", "Alex")
	out := env.run(t, "expense", "add", "-desc", "Dinner", "-amount", "40", "-date", "2024-01-05", "-contact", "id1")
	if !strings.Contains(out, "Added expense id2: Dinner $40.00 (Awaiting payment)") {
		t.Fatalf("unexpected output: %q", out)
	}

	env.run(t, "expense", "status", "id2", "reminded")
	out = env.run(t, "expense", "status", "id2", "settled")
	if !strings.Contains(out, "Expense id2 is now Settled") {
		t.Fatalf("unexpected output: %q", out)
	}

	got := ledger.ContactSummary(core.Contact{ID: "id1"}, env.app.Store.Expenses())
	want := core.ContactStats{Total: 40, Settled: 40, Reminders: 1}
	if got != want {
		t.Fatalf("ContactSummary = %+v, want %+v", got, want)
	}

	stored := env.snapshots.Load(ctx)
	if len(stored.Expenses) != 1 || stored.Expenses[0].Status != core.StatusSettled {
		t.Fatalf("status change was not persisted: %+v", stored.Expenses)
	}

	out = env.run(t, "summary")
	for _, s := range []string{"Total spent", "$40.00", "Reminders sent", "1"} {
		if !strings.Contains(out, s) {
			t.Errorf("summary missing %q: %q", s, out)
		}
	}

	env.run(t, "expense", "rm", "id2")
	if len(env.app.Store.Expenses()) != 0 {
		t.Fatal("expense should be removed")
	}
}

func TestExpenseAddDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "expense", "add", "-desc", "Lunch", "-amount", "9,50", "-personal")

	e := env.app.Store.Expenses()[0]
	if e.Date != "2024-03-09" {
		t.Errorf("date = %q, want today", e.Date)
	}
	if e.Amount != 9.5 || e.Category != core.DefaultCategory || e.Status != core.StatusSettled {
		t.Errorf("unexpected expense: %+v", e)
	}
}

func TestExpenseAddErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad amount", []string{"-desc", "x", "-amount", "-3", "-personal"}, core.ErrInvalidAmount},
		{"missing contact", []string{"-desc", "x", "-amount", "3"}, core.ErrMissingContact},
		{"unknown contact", []string{"-desc", "x", "-amount", "3", "-contact", "ghost"}, ledger.ErrUnknownContact},
		{"bad status", []string{"-desc", "x", "-amount", "3", "-contact", "c", "-status", "lost"}, core.ErrInvalidStatus},
		{"long notes", []string{"-desc", "x", "-amount", "3", "-personal", "-notes", strings.Repeat("n", 241)}, core.ErrNotesTooLong},
		{"bad date", []string{"-desc", "x", "-amount", "3", "-personal", "-date", "05/01/2024"}, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			err := env.app.Run(context.Background(), append([]string{"expense", "add"}, tt.args...))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(env.app.Store.Expenses()) != 0 {
				t.Fatal("no expense should be created")
			}
		})
	}
}

func TestExpenseListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "contact", "add", "-name", "Alex")
	env.run(t, "expense", "add", "-desc", "Dinner", "-amount", "40", "-date", "2024-01-05", "-contact", "id1")
	env.run(t, "expense", "add", "-desc", "Books", "-amount", "12", "-date", "2024-01-06", "-personal")

	out := env.run(t, "expense", "list", "-status", "pending")
	if !strings.Contains(out, "Dinner") || strings.Contains(out, "Books") {
		t.Fatalf("status filter failed: %q", out)
	}

	out = env.run(t, "expense", "list")
	if !strings.Contains(out, "personal") || !strings.Contains(out, "Alex") {
		t.Fatalf("expected contact column values: %q", out)
	}
}

func TestRecentCommand(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "expense", "add", "-desc", "January", "-amount", "1", "-date", "2024-01-15", "-personal")
	env.run(t, "expense", "add", "-desc", "February", "-amount", "1", "-date", "2024-02-01", "-personal")

	out := env.run(t, "recent")
	if strings.Index(out, "February") > strings.Index(out, "January") {
		t.Fatalf("most recent date should come first: %q", out)
	}

	out = env.run(t, "recent", "-n", "1")
	if strings.Contains(out, "January") {
		t.Fatalf("expected only one expense: %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	env := newTestEnv(t)
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"contact"},
		{"contact", "rm"},
		{"expense", "status", "id"},
		{"expense", "add", "-bogus"},
	}
	for _, args := range cases {
		if err := env.app.Run(context.Background(), args); !errors.Is(err, ErrUsage) {
			t.Errorf("Run(%v) = %v, want ErrUsage", args, err)
		}
	}
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.Run(context.Background(), []string{"export"}); err == nil {
		t.Fatal("export without a spreadsheet should fail")
	}

	target := memory.New()
	env.app.NewExporter = func(context.Context) (sheets.SnapshotExporter, error) { return target, nil }
	env.run(t, "expense", "add", "-desc", "Lunch", "-amount", "9", "-date", "2024-01-05", "-personal")

	out := env.run(t, "export")
	if !strings.Contains(out, "Exported 1 expenses") {
		t.Fatalf("unexpected output: %q", out)
	}
	if table := target.Table(); len(table) != 2 || table[1][1] != "Lunch" {
		t.Fatalf("unexpected table: %v", table)
	}
}

type fakeConsumer struct {
	messages []*amqp.LedgerEventMessage
}

func (f *fakeConsumer) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error {
	for _, m := range f.messages {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func TestWatchCommand(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.Run(context.Background(), []string{"watch"}); err == nil {
		t.Fatal("watch without AMQP should fail")
	}

	target := memory.New()
	env.app.NewExporter = func(context.Context) (sheets.SnapshotExporter, error) { return target, nil }
	ts := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	env.app.Consumer = &fakeConsumer{messages: []*amqp.LedgerEventMessage{
		{Kind: "contact_added", EntityID: "c1", Found: true, Contacts: 1, Timestamp: ts},
		{Kind: "expense_removed", EntityID: "x", Found: false, Contacts: 1, Timestamp: ts},
	}}

	out := env.run(t, "watch")
	if !strings.Contains(out, "contact_added") || !strings.Contains(out, "expense_removed") {
		t.Fatalf("expected both events printed: %q", out)
	}
	if target.Exports() != 1 {
		t.Fatalf("only applied changes should re-export, got %d exports", target.Exports())
	}
}

func TestCategoriesCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "categories")
	if !strings.HasPrefix(out, "General\n") {
		t.Fatalf("unexpected output: %q", out)
	}
}
