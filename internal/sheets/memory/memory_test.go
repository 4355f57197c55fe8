package memory

import (
	"context"
	"testing"

	"splitbook/internal/core"
)

func TestStoreExportReplacesTable(t *testing.T) {
	s := New()
	ctx := context.Background()
	expenses := []core.Expense{
		{ID: "e1", Description: "Dinner", Amount: 40, Date: "2024-01-05", Status: core.StatusPending},
		{ID: "e2", Description: "Lunch", Amount: 9, Date: "2024-01-06", IsPersonal: true, Status: core.StatusSettled},
	}

	n, err := s.Export(ctx, nil, expenses)
	if err != nil || n != 2 {
		t.Fatalf("Export() = %d, %v; want 2, nil", n, err)
	}
	if got := s.Table(); len(got) != 3 || got[0][0] != "Date" || got[1][1] != "Dinner" {
		t.Fatalf("unexpected table: %v", got)
	}

	n, _ = s.Export(ctx, nil, expenses[1:])
	if n != 1 || len(s.Table()) != 2 {
		t.Fatalf("second export should replace the table, got %v", s.Table())
	}
	if s.Exports() != 2 {
		t.Fatalf("Exports() = %d, want 2", s.Exports())
	}
}

func TestStoreTableIsCopy(t *testing.T) {
	s := New()
	s.Export(context.Background(), nil, nil)
	table := s.Table()
	table[0][0] = "changed"
	if s.Table()[0][0] != "Date" {
		t.Fatal("Table() must return a copy")
	}
}
