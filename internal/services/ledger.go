package services

import (
	"context"
	"fmt"
	"sort"

	"bilancio/internal/core"
	"bilancio/internal/recurrence"
)

// SnapshotStore reads balance snapshots.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, accountID int64, notAfter core.Date) (*core.BalanceSnapshot, error)
}

// LedgerRow is one event in the projected ledger: a recorded transaction
// or a not-yet-posted occurrence of a recurring rule, with the running
// balance after applying it.
type LedgerRow struct {
	Date        core.Date
	Description string
	Amount      core.Money
	Projected   bool
	Running     core.Money
}

// Ledger merges recorded transactions with projected recurring
// occurrences into a date-ordered running-balance stream.
type Ledger struct {
	transactions TransactionStore
	rules        RuleStore
	snapshots    SnapshotStore
}

func NewLedger(transactions TransactionStore, rules RuleStore, snapshots SnapshotStore) *Ledger {
	return &Ledger{
		transactions: transactions,
		rules:        rules,
		snapshots:    snapshots,
	}
}

// Rows returns the account's ledger over [from, to]. The opening balance
// comes from the latest snapshot taken on or before the window start
// (zero when none exists). Recurring occurrences already posted as
// transactions are not projected again: projection begins after each
// rule's bookmark. On a date carrying both, projected occurrences order
// before recorded transactions.
func (l *Ledger) Rows(ctx context.Context, accountID int64, from, to core.Date) ([]LedgerRow, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s precedes start %s", recurrence.ErrInvalidWindow, to, from)
	}

	var opening int64
	snapshot, err := l.snapshots.LatestSnapshot(ctx, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("opening balance: %w", err)
	}
	if snapshot != nil {
		opening = snapshot.Amount.Cents
	}

	var events []LedgerRow

	recurring, err := l.rules.ListRecurring(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	for _, rt := range recurring {
		start := from
		if !rt.LastPostedOn.IsZero() && !rt.LastPostedOn.Before(start) {
			start = rt.LastPostedOn.AddDays(1)
		}
		if to.Before(start) {
			continue
		}
		occurrences, err := recurrence.Dates(rt.Rule, start, to)
		if err != nil {
			return nil, fmt.Errorf("project rule %d: %w", rt.ID, err)
		}
		for _, occ := range occurrences {
			events = append(events, LedgerRow{
				Date:        occ,
				Description: rt.Description,
				Amount:      rt.Amount,
				Projected:   true,
			})
		}
	}

	transactions, err := l.transactions.ListTransactions(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range transactions {
		events = append(events, LedgerRow{
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
		})
	}

	// Stable: projections were appended first, so they stay ahead of
	// recorded transactions on the same date.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	running := opening
	for i := range events {
		running += events[i].Amount.Cents
		events[i].Running = core.Money{Cents: running}
	}
	return events, nil
}
