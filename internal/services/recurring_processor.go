// Package services orchestrates the recurrence engine and the storage
// layer: materializing due occurrences into transactions, projecting the
// ledger, and summarizing months.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/recurrence"
)

// RuleStore is the slice of storage the processor needs.
type RuleStore interface {
	ListRecurring(ctx context.Context, accountID int64) ([]core.RecurringTransaction, error)
	UpdateRecurringLastPosted(ctx context.Context, id int64, d core.Date) error
}

// TransactionStore records and reads transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	ListTransactions(ctx context.Context, accountID int64, from, to core.Date) ([]core.Transaction, error)
}

// RecurringProcessor materializes due occurrences of recurring
// transactions into stored transaction records.
type RecurringProcessor struct {
	rules        RuleStore
	transactions TransactionStore
}

func NewRecurringProcessor(rules RuleStore, transactions TransactionStore) *RecurringProcessor {
	return &RecurringProcessor{
		rules:        rules,
		transactions: transactions,
	}
}

// PostDue expands every recurring transaction of the account up to and
// including asOf and records one transaction per occurrence not yet
// posted. It returns the number of transactions created. A failure on one
// rule is logged and does not stop the batch.
func (p *RecurringProcessor) PostDue(ctx context.Context, accountID int64, asOf core.Date) (int, error) {
	if p.rules == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	if err := asOf.Validate(); err != nil {
		return 0, fmt.Errorf("invalid as-of date: %w", err)
	}

	recurring, err := p.rules.ListRecurring(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Posting due recurring transactions",
		"account_id", accountID,
		"total_rules", len(recurring),
		"as_of", asOf.String())

	posted := 0
	for _, rt := range recurring {
		n, err := p.postRule(ctx, rt, asOf)
		posted += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to post recurring transaction",
				"id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}
	}

	slog.InfoContext(ctx, "Recurring posting complete",
		"posted", posted,
		"rules_checked", len(recurring))

	return posted, nil
}

// postRule posts the occurrences of one rule in (lastPostedOn, asOf].
// The bookmark advances to the last date actually covered, so a partial
// failure resumes where it stopped instead of duplicating records.
func (p *RecurringProcessor) postRule(ctx context.Context, rt core.RecurringTransaction, asOf core.Date) (int, error) {
	windowStart := rt.Rule.Anchor()
	if !rt.LastPostedOn.IsZero() {
		windowStart = rt.LastPostedOn.AddDays(1)
	}
	if asOf.Before(windowStart) {
		return 0, nil
	}

	occurrences, err := recurrence.Dates(rt.Rule, windowStart, asOf)
	if err != nil {
		return 0, fmt.Errorf("expand rule: %w", err)
	}

	posted := 0
	for _, occ := range occurrences {
		_, err := p.transactions.CreateTransaction(ctx, core.Transaction{
			Date:        occ,
			Description: rt.Description,
			Amount:      rt.Amount,
			AccountID:   rt.AccountID,
		})
		if err != nil {
			// Bookmark what was covered so far; the failed
			// occurrence is retried on the next run.
			if posted > 0 {
				if markErr := p.rules.UpdateRecurringLastPosted(ctx, rt.ID, occurrences[posted-1]); markErr != nil {
					slog.ErrorContext(ctx, "Failed to bookmark partial posting",
						"id", rt.ID, "error", markErr)
				}
			}
			return posted, fmt.Errorf("post occurrence %s: %w", occ, err)
		}
		posted++

		slog.InfoContext(ctx, "Posted transaction from recurring rule",
			"recurring_id", rt.ID,
			"description", rt.Description,
			"amount_cents", rt.Amount.Cents,
			"date", occ.String())
	}

	if err := p.rules.UpdateRecurringLastPosted(ctx, rt.ID, asOf); err != nil {
		return posted, fmt.Errorf("update bookmark: %w", err)
	}
	return posted, nil
}
