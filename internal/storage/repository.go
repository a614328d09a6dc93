// Package storage persists the budgeting data in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction records a transaction and returns its ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}
	accountID := tx.AccountID
	if accountID == 0 {
		accountID = core.DefaultAccountID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (occurred_on, description, amount_cents, account_id) VALUES (?, ?, ?, ?)`,
		tx.Date.Format(dateLayout), tx.Description, tx.Amount.Cents, accountID)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String())

	return id, nil
}

// ListTransactions returns the account's transactions with occurred_on in
// [from, to], ordered by date then insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID int64, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, occurred_on, description, amount_cents, account_id
		 FROM transactions
		 WHERE account_id = ? AND occurred_on >= ? AND occurred_on <= ?
		 ORDER BY occurred_on, id`,
		accountID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx       core.Transaction
			occurred string
		)
		if err := rows.Scan(&tx.ID, &occurred, &tx.Description, &tx.Amount.Cents, &tx.AccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Date, err = core.ParseDate(occurred); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", occurred, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SumAmounts aggregates the account's transactions in [from, to] into
// income and expense totals (both in cents; expenses are negative).
func (r *SQLiteRepository) SumAmounts(ctx context.Context, accountID int64, from, to core.Date) (income, expenses int64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN amount_cents < 0 THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE account_id = ? AND occurred_on >= ? AND occurred_on <= ?`,
		accountID, from.Format(dateLayout), to.Format(dateLayout)).Scan(&income, &expenses)
	if err != nil {
		return 0, 0, fmt.Errorf("sum amounts: %w", err)
	}
	return income, expenses, nil
}

// CreateAccount adds an account and returns its ID.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("validate account: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, kind, institution, currency, archived) VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.Kind, a.Institution, a.Currency, a.Archived)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return res.LastInsertId()
}

// ListAccounts returns all non-archived accounts.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, institution, currency, archived FROM accounts WHERE archived = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &a.Institution, &a.Currency, &a.Archived); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateSnapshot records a known balance for an account at a date.
func (r *SQLiteRepository) CreateSnapshot(ctx context.Context, s core.BalanceSnapshot) (int64, error) {
	if err := s.TakenAt.Validate(); err != nil {
		return 0, fmt.Errorf("validate snapshot date: %w", err)
	}
	accountID := s.AccountID
	if accountID == 0 {
		accountID = core.DefaultAccountID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO balance_snapshots (amount_cents, taken_at, account_id) VALUES (?, ?, ?)`,
		s.Amount.Cents, s.TakenAt.Format(dateLayout), accountID)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return res.LastInsertId()
}

// LatestSnapshot returns the account's most recent snapshot taken on or
// before the given date, or nil when there is none.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, accountID int64, notAfter core.Date) (*core.BalanceSnapshot, error) {
	var (
		s       core.BalanceSnapshot
		takenAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, taken_at, account_id
		 FROM balance_snapshots
		 WHERE account_id = ? AND taken_at <= ?
		 ORDER BY taken_at DESC, id DESC LIMIT 1`,
		accountID, notAfter.Format(dateLayout)).Scan(&s.ID, &s.Amount.Cents, &takenAt, &s.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if s.TakenAt, err = core.ParseDate(takenAt); err != nil {
		return nil, fmt.Errorf("parse snapshot date %q: %w", takenAt, err)
	}
	return &s, nil
}

// CreateRecurring stores a recurring transaction with its rule.
func (r *SQLiteRepository) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error) {
	if err := rt.Validate(); err != nil {
		return 0, fmt.Errorf("validate recurring transaction: %w", err)
	}
	endKind, endDate, endCount, err := encodeEnd(rt.Rule.End())
	if err != nil {
		return 0, err
	}
	accountID := rt.AccountID
	if accountID == 0 {
		accountID = core.DefaultAccountID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_rules
		 (description, amount_cents, frequency, anchor_date, interval, end_kind, end_date, end_count, account_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.Description, rt.Amount.Cents,
		rt.Rule.Frequency().String(), rt.Rule.Anchor().Format(dateLayout), rt.Rule.Interval(),
		endKind, endDate, endCount, accountID)
	if err != nil {
		return 0, fmt.Errorf("create recurring rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring rule id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule saved",
		"id", id,
		"description", rt.Description,
		"rule", rt.Rule.String())

	return id, nil
}

// ListRecurring returns the account's recurring transactions with their
// rules reconstructed through validated construction.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, accountID int64) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, frequency, anchor_date, interval,
		        end_kind, end_date, end_count, last_posted_on, account_id
		 FROM recurring_rules
		 WHERE account_id = ?
		 ORDER BY id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			rt         core.RecurringTransaction
			frequency  string
			anchor     string
			interval   int
			endKind    string
			endDate    sql.NullString
			endCount   sql.NullInt64
			lastPosted sql.NullString
		)
		if err := rows.Scan(&rt.ID, &rt.Description, &rt.Amount.Cents,
			&frequency, &anchor, &interval, &endKind, &endDate, &endCount,
			&lastPosted, &rt.AccountID); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rt.Rule, err = decodeRule(frequency, anchor, interval, endKind, endDate, endCount)
		if err != nil {
			return nil, fmt.Errorf("recurring rule %d: %w", rt.ID, err)
		}
		if lastPosted.Valid {
			if rt.LastPostedOn, err = core.ParseDate(lastPosted.String); err != nil {
				return nil, fmt.Errorf("parse last posted date %q: %w", lastPosted.String, err)
			}
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// DeleteRecurring removes a recurring transaction. Transactions already
// materialized from it are unaffected.
func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return nil
}

// UpdateRecurringLastPosted advances the bookmark of materialized
// occurrences for a rule.
func (r *SQLiteRepository) UpdateRecurringLastPosted(ctx context.Context, id int64, d core.Date) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET last_posted_on = ? WHERE id = ?`,
		d.Format(dateLayout), id); err != nil {
		return fmt.Errorf("update last posted date: %w", err)
	}
	return nil
}

// CreateGoal stores a savings goal.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("validate goal: %w", err)
	}
	accountID := g.AccountID
	if accountID == 0 {
		accountID = core.DefaultAccountID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (description, amount_cents, target_date, enabled, account_id) VALUES (?, ?, ?, ?, ?)`,
		g.Description, g.Amount.Cents, g.TargetDate.Format(dateLayout), g.Enabled, accountID)
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	return res.LastInsertId()
}

// ListGoals returns the account's goals, enabled and disabled alike.
func (r *SQLiteRepository) ListGoals(ctx context.Context, accountID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, target_date, enabled, account_id
		 FROM goals WHERE account_id = ? ORDER BY target_date, id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g      core.Goal
			target string
		)
		if err := rows.Scan(&g.ID, &g.Description, &g.Amount.Cents, &target, &g.Enabled, &g.AccountID); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetDate, err = core.ParseDate(target); err != nil {
			return nil, fmt.Errorf("parse goal date %q: %w", target, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetGoalEnabled toggles a goal without deleting its history.
func (r *SQLiteRepository) SetGoalEnabled(ctx context.Context, id int64, enabled bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE goals SET enabled = ? WHERE id = ?`, enabled, id); err != nil {
		return fmt.Errorf("set goal enabled: %w", err)
	}
	return nil
}

func encodeEnd(end core.EndCondition) (kind string, date sql.NullString, count sql.NullInt64, err error) {
	switch e := end.(type) {
	case core.Never:
		kind = "never"
	case core.Until:
		kind = "until"
		date = sql.NullString{String: e.Date.Format(dateLayout), Valid: true}
	case core.Count:
		kind = "count"
		count = sql.NullInt64{Int64: int64(e.N), Valid: true}
	default:
		err = fmt.Errorf("unknown end condition %T", end)
	}
	return kind, date, count, err
}

func decodeRule(frequency, anchor string, interval int, endKind string, endDate sql.NullString, endCount sql.NullInt64) (core.RecurrenceRule, error) {
	freq, err := core.ParseFrequency(frequency)
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	anchorDate, err := core.ParseDate(anchor)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("parse anchor date %q: %w", anchor, err)
	}

	var end core.EndCondition
	switch endKind {
	case "never":
		end = core.Never{}
	case "until":
		if !endDate.Valid {
			return core.RecurrenceRule{}, errors.New("until rule without end date")
		}
		d, err := core.ParseDate(endDate.String)
		if err != nil {
			return core.RecurrenceRule{}, fmt.Errorf("parse end date %q: %w", endDate.String, err)
		}
		end = core.Until{Date: d}
	case "count":
		if !endCount.Valid {
			return core.RecurrenceRule{}, errors.New("count rule without count")
		}
		end = core.Count{N: int(endCount.Int64)}
	default:
		return core.RecurrenceRule{}, fmt.Errorf("unknown end kind %q", endKind)
	}

	return core.NewRule(freq, anchorDate, interval, end)
}
