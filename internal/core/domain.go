package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
)

// DefaultAccountID is the account every record belongs to unless the caller
// says otherwise. Account 1 is created by the initial migration.
const DefaultAccountID = 1

type (
	// Transaction is a single recorded movement of money on an account.
	// Negative amounts are expenses, positive amounts income.
	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
		AccountID   int64
	}

	// Account is a bank or cash account that records belong to.
	Account struct {
		ID          int64
		Name        string
		Kind        string // checking, savings, cash, ...
		Institution string
		Currency    string
		Archived    bool
	}

	// Goal is a savings goal with a target date. Disabled goals are kept
	// but ignored by projections.
	Goal struct {
		ID          int64
		Description string
		Amount      Money
		TargetDate  Date
		Enabled     bool
		AccountID   int64
	}

	// BalanceSnapshot is a known account balance at a date. Ledger
	// projections run forward from the most recent snapshot.
	BalanceSnapshot struct {
		ID        int64
		Amount    Money
		TakenAt   Date
		AccountID int64
	}

	// RecurringTransaction ties a recurrence rule to the transaction it
	// materializes on each occurrence. LastPostedOn is zero until the
	// first occurrence has been recorded.
	RecurringTransaction struct {
		ID           int64
		Description  string
		Amount       Money
		Rule         RecurrenceRule
		AccountID    int64
		LastPostedOn Date
	}
)

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return t.Amount.Validate()
}

func (rt RecurringTransaction) Validate() error {
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if rt.Rule.IsZero() {
		return ErrInvalidRule
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := g.TargetDate.Validate(); err != nil {
		return err
	}
	return g.Amount.Validate()
}
