// Package worker runs the recurring transaction processor on a schedule
// so occurrences are posted even when nobody opens the menu.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// AccountLister enumerates the accounts whose rules need posting.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
}

// PostingWorker periodically materializes due recurring transactions for
// every account.
type PostingWorker struct {
	accounts  AccountLister
	processor *services.RecurringProcessor
	interval  time.Duration
}

func NewPostingWorker(accounts AccountLister, processor *services.RecurringProcessor, interval time.Duration) *PostingWorker {
	return &PostingWorker{
		accounts:  accounts,
		processor: processor,
		interval:  interval,
	}
}

// Run posts due occurrences once at startup, then on every tick until the
// context is cancelled. Tick failures are logged and the loop keeps going.
func (w *PostingWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Posting worker started", "interval", w.interval)

	if err := w.PostAll(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial posting failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Posting worker stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if err := w.PostAll(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Periodic posting failed", "error", err)
			}
		}
	}
}

// PostAll runs the processor for every account concurrently, as of the
// given wall-clock time.
func (w *PostingWorker) PostAll(ctx context.Context, now time.Time) error {
	accounts, err := w.accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	asOf := core.DateOf(now)
	g, ctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		g.Go(func() error {
			posted, err := w.processor.PostDue(ctx, account.ID, asOf)
			if err != nil {
				return fmt.Errorf("account %d: %w", account.ID, err)
			}
			if posted > 0 {
				slog.InfoContext(ctx, "Posted recurring transactions",
					"account_id", account.ID,
					"posted", posted,
					"as_of", asOf.String())
			}
			return nil
		})
	}
	return g.Wait()
}
