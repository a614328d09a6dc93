package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/recurrence"
)

func TestLedgerRows_MergesAndRunsBalance(t *testing.T) {
	store := &fakeStore{
		snapshots: []core.BalanceSnapshot{{
			AccountID: core.DefaultAccountID,
			Amount:    core.Money{Cents: 100000},
			TakenAt:   core.NewDate(2025, 2, 28),
		}},
		txs: []core.Transaction{
			{ID: 1, Date: core.NewDate(2025, 3, 3), Description: "groceries", Amount: core.Money{Cents: -4500}, AccountID: core.DefaultAccountID},
			{ID: 2, Date: core.NewDate(2025, 3, 10), Description: "salary", Amount: core.Money{Cents: 250000}, AccountID: core.DefaultAccountID},
		},
		rules: []core.RecurringTransaction{{
			ID:          1,
			Description: "rent",
			Amount:      core.Money{Cents: -90000},
			Rule:        weeklyRule(t, core.NewDate(2025, 3, 3), nil),
			AccountID:   core.DefaultAccountID,
		}},
	}
	l := NewLedger(store, store, store)

	rows, err := l.Rows(context.Background(), core.DefaultAccountID, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 14))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}

	type want struct {
		date        core.Date
		description string
		projected   bool
		running     int64
	}
	wants := []want{
		{core.NewDate(2025, 3, 3), "rent", true, 10000},
		{core.NewDate(2025, 3, 3), "groceries", false, 5500},
		{core.NewDate(2025, 3, 10), "rent", true, -84500},
		{core.NewDate(2025, 3, 10), "salary", false, 165500},
	}
	if len(rows) != len(wants) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(wants), rows)
	}
	for i, w := range wants {
		r := rows[i]
		if !r.Date.Equal(w.date) || r.Description != w.description || r.Projected != w.projected || r.Running.Cents != w.running {
			t.Errorf("row %d = {%s %q projected=%v running=%d}, want {%s %q projected=%v running=%d}",
				i, r.Date, r.Description, r.Projected, r.Running.Cents,
				w.date, w.description, w.projected, w.running)
		}
	}
}

func TestLedgerRows_SkipsPostedOccurrences(t *testing.T) {
	store := &fakeStore{
		rules: []core.RecurringTransaction{{
			ID:           1,
			Description:  "gym",
			Amount:       core.Money{Cents: -1500},
			Rule:         weeklyRule(t, core.NewDate(2025, 3, 3), nil),
			AccountID:    core.DefaultAccountID,
			LastPostedOn: core.NewDate(2025, 3, 10),
		}},
	}
	l := NewLedger(store, store, store)

	rows, err := l.Rows(context.Background(), core.DefaultAccountID, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	// Mar 3 and Mar 10 are covered by the bookmark; only Mar 17, 24, 31
	// remain to project.
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %+v", len(rows), rows)
	}
	if !rows[0].Date.Equal(core.NewDate(2025, 3, 17)) {
		t.Fatalf("first projection on %s, want 2025-03-17", rows[0].Date)
	}
}

func TestLedgerRows_ZeroOpeningWithoutSnapshot(t *testing.T) {
	store := &fakeStore{txs: []core.Transaction{
		{ID: 1, Date: core.NewDate(2025, 1, 5), Description: "coffee", Amount: core.Money{Cents: -300}, AccountID: core.DefaultAccountID},
	}}
	l := NewLedger(store, store, store)

	rows, err := l.Rows(context.Background(), core.DefaultAccountID, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Running.Cents != -300 {
		t.Fatalf("rows = %+v, want single row running -300", rows)
	}
}

func TestLedgerRows_IgnoresFutureSnapshot(t *testing.T) {
	store := &fakeStore{
		snapshots: []core.BalanceSnapshot{{
			AccountID: core.DefaultAccountID,
			Amount:    core.Money{Cents: 500000},
			TakenAt:   core.NewDate(2025, 6, 1),
		}},
		txs: []core.Transaction{
			{ID: 1, Date: core.NewDate(2025, 1, 5), Description: "coffee", Amount: core.Money{Cents: -300}, AccountID: core.DefaultAccountID},
		},
	}
	l := NewLedger(store, store, store)

	rows, err := l.Rows(context.Background(), core.DefaultAccountID, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if rows[0].Running.Cents != -300 {
		t.Fatalf("running = %d, snapshot taken after the window must not count", rows[0].Running.Cents)
	}
}

func TestLedgerRows_InvertedWindow(t *testing.T) {
	store := &fakeStore{}
	l := NewLedger(store, store, store)

	_, err := l.Rows(context.Background(), core.DefaultAccountID, core.NewDate(2025, 3, 31), core.NewDate(2025, 3, 1))
	if !errors.Is(err, recurrence.ErrInvalidWindow) {
		t.Fatalf("err = %v, want ErrInvalidWindow", err)
	}
}
