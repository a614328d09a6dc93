package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/recurrence"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffd644"})
	incomeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00af5f"))
	expenseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d70000"))
	projectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Italic(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

const (
	actionAddTransaction  = "add-transaction"
	actionListRecent      = "list-recent"
	actionMonthOverview   = "month-overview"
	actionLedger          = "ledger"
	actionAddRecurring    = "add-recurring"
	actionListRecurring   = "list-recurring"
	actionDeleteRecurring = "delete-recurring"
	actionSnapshot        = "snapshot"
	actionGoals           = "goals"
	actionQuit            = "quit"
)

// Menu is the interactive terminal frontend. One instance serves one
// session on the configured default account.
type Menu struct {
	repo      *storage.SQLiteRepository
	processor *services.RecurringProcessor
	ledger    *services.Ledger
	summary   *services.Summary
	cfg       *config.Config
}

func NewMenu(repo *storage.SQLiteRepository, cfg *config.Config) *Menu {
	return &Menu{
		repo:      repo,
		processor: services.NewRecurringProcessor(repo, repo),
		ledger:    services.NewLedger(repo, repo, repo),
		summary:   services.NewSummary(repo),
		cfg:       cfg,
	}
}

// Run posts any overdue recurring transactions, then loops on the main
// menu until the user quits or the context is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	today := core.DateOf(time.Now())
	if _, err := m.processor.PostDue(ctx, m.cfg.DefaultAccountID, today); err != nil {
		return fmt.Errorf("post due recurring transactions: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var action string
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("bilancio").
				Options(
					huh.NewOption("Add transaction", actionAddTransaction),
					huh.NewOption("Recent transactions", actionListRecent),
					huh.NewOption("Month overview", actionMonthOverview),
					huh.NewOption("Projected ledger", actionLedger),
					huh.NewOption("Add recurring transaction", actionAddRecurring),
					huh.NewOption("List recurring transactions", actionListRecurring),
					huh.NewOption("Delete recurring transaction", actionDeleteRecurring),
					huh.NewOption("Record balance snapshot", actionSnapshot),
					huh.NewOption("Goals", actionGoals),
					huh.NewOption("Quit", actionQuit),
				).
				Value(&action),
		))
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		var err error
		switch action {
		case actionAddTransaction:
			err = m.addTransaction(ctx)
		case actionListRecent:
			err = m.listRecent(ctx)
		case actionMonthOverview:
			err = m.monthOverview(ctx)
		case actionLedger:
			err = m.showLedger(ctx)
		case actionAddRecurring:
			err = m.addRecurring(ctx)
		case actionListRecurring:
			err = m.listRecurring(ctx)
		case actionDeleteRecurring:
			err = m.deleteRecurring(ctx)
		case actionSnapshot:
			err = m.recordSnapshot(ctx)
		case actionGoals:
			err = m.goals(ctx)
		case actionQuit:
			return nil
		}
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			fmt.Println(expenseStyle.Render("error: " + err.Error()))
		}
	}
}

func (m *Menu) addTransaction(ctx context.Context) error {
	date := core.DateOf(time.Now()).String()
	var description, amount string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Date").
			Value(&date).
			Placeholder("YYYY-MM-DD").
			Validate(validateDate),
		huh.NewInput().
			Title("Description").
			Value(&description).
			Validate(required("description")),
		huh.NewInput().
			Title("Amount").
			Description("Negative for expenses, e.g. -12.50").
			Value(&amount).
			Validate(validateAmount),
	))
	if err := form.Run(); err != nil {
		return err
	}

	d, _ := core.ParseDate(date)
	cents, _ := core.ParseAmountToCents(amount)
	_, err := m.repo.CreateTransaction(ctx, core.Transaction{
		Date:        d,
		Description: description,
		Amount:      core.Money{Cents: cents},
		AccountID:   m.cfg.DefaultAccountID,
	})
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Recorded."))
	return nil
}

func (m *Menu) listRecent(ctx context.Context) error {
	to := core.DateOf(time.Now())
	from := to.AddDays(-30)
	transactions, err := m.repo.ListTransactions(ctx, m.cfg.DefaultAccountID, from, to)
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		fmt.Println("No transactions in the last 30 days.")
		return nil
	}
	for _, tx := range transactions {
		fmt.Printf("%s  %s  %s\n", tx.Date, renderAmount(tx.Amount), tx.Description)
	}
	return nil
}

func (m *Menu) monthOverview(ctx context.Context) error {
	now := time.Now()
	year := strconv.Itoa(now.Year())
	month := strconv.Itoa(int(now.Month()))

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Year").Value(&year).Validate(validateInt("year", 1970, 9999)),
		huh.NewInput().Title("Month").Value(&month).Validate(validateInt("month", 1, 12)),
	))
	if err := form.Run(); err != nil {
		return err
	}

	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	overview, err := m.summary.Month(ctx, m.cfg.DefaultAccountID, y, mo)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("%s\nIncome:   %s\nExpenses: %s\nNet:      %s",
		titleStyle.Render(fmt.Sprintf("%04d-%02d", overview.Year, overview.Month)),
		incomeStyle.Render(overview.Income.String()),
		expenseStyle.Render(overview.Expenses.String()),
		renderAmount(overview.Net))
	fmt.Println(boxStyle.Render(body))
	return nil
}

func (m *Menu) showLedger(ctx context.Context) error {
	from := core.DateOf(time.Now())
	to := from.AddDays(m.cfg.LedgerHorizonDays)
	rows, err := m.ledger.Rows(ctx, m.cfg.DefaultAccountID, from, to)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Nothing scheduled in the next", m.cfg.LedgerHorizonDays, "days.")
		return nil
	}
	for _, row := range rows {
		line := fmt.Sprintf("%s  %s  %-30s  balance %s",
			row.Date, renderAmount(row.Amount), row.Description, row.Running)
		if row.Projected {
			line = projectedStyle.Render(line + "  (projected)")
		}
		fmt.Println(line)
	}
	return nil
}

func (m *Menu) addRecurring(ctx context.Context) error {
	anchor := core.DateOf(time.Now()).String()
	interval := "1"
	endKind := "never"
	var description, amount, frequency, endValue string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&description).
				Validate(required("description")),
			huh.NewInput().
				Title("Amount").
				Description("Negative for expenses, e.g. -12.50").
				Value(&amount).
				Validate(validateAmount),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Frequency").
				Options(
					huh.NewOption("Daily", "daily"),
					huh.NewOption("Weekly", "weekly"),
					huh.NewOption("Monthly", "monthly"),
					huh.NewOption("Semi-monthly (1st and 15th)", "semi-monthly"),
					huh.NewOption("Yearly", "yearly"),
				).
				Value(&frequency),
			huh.NewInput().
				Title("Anchor date").
				Description("First occurrence and phase of the schedule").
				Value(&anchor).
				Validate(validateDate),
			huh.NewInput().
				Title("Interval").
				Description("Every N periods").
				Value(&interval).
				Validate(validateInt("interval", 1, 1000)),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Ends").
				Options(
					huh.NewOption("Never", "never"),
					huh.NewOption("On a date", "until"),
					huh.NewOption("After N occurrences", "count"),
				).
				Value(&endKind),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if endKind != "never" {
		prompt := huh.NewInput().Value(&endValue)
		if endKind == "until" {
			prompt = prompt.Title("End date").Placeholder("YYYY-MM-DD").Validate(validateDate)
		} else {
			prompt = prompt.Title("Occurrences").Validate(validateInt("count", 1, 100000))
		}
		if err := huh.NewForm(huh.NewGroup(prompt)).Run(); err != nil {
			return err
		}
	}

	var end core.EndCondition
	switch endKind {
	case "until":
		d, _ := core.ParseDate(endValue)
		end = core.Until{Date: d}
	case "count":
		n, _ := strconv.Atoi(endValue)
		end = core.Count{N: n}
	}

	freq, err := core.ParseFrequency(frequency)
	if err != nil {
		return err
	}
	anchorDate, _ := core.ParseDate(anchor)
	every, _ := strconv.Atoi(interval)
	rule, err := core.NewRule(freq, anchorDate, every, end)
	if err != nil {
		return err
	}

	cents, _ := core.ParseAmountToCents(amount)
	_, err = m.repo.CreateRecurring(ctx, core.RecurringTransaction{
		Description: description,
		Amount:      core.Money{Cents: cents},
		Rule:        rule,
		AccountID:   m.cfg.DefaultAccountID,
	})
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Recurring transaction saved: " + rule.String()))
	return nil
}

func (m *Menu) listRecurring(ctx context.Context) error {
	recurring, err := m.repo.ListRecurring(ctx, m.cfg.DefaultAccountID)
	if err != nil {
		return err
	}
	if len(recurring) == 0 {
		fmt.Println("No recurring transactions.")
		return nil
	}
	today := core.DateOf(time.Now())
	for _, rt := range recurring {
		next := m.nextOccurrence(rt, today)
		fmt.Printf("#%d  %s  %s  %s  next: %s\n",
			rt.ID, renderAmount(rt.Amount), rt.Description, rt.Rule, next)
	}
	return nil
}

// nextOccurrence finds the first unposted occurrence within the ledger
// horizon, or reports the schedule as exhausted.
func (m *Menu) nextOccurrence(rt core.RecurringTransaction, today core.Date) string {
	start := today
	if !rt.LastPostedOn.IsZero() && !rt.LastPostedOn.Before(start) {
		start = rt.LastPostedOn.AddDays(1)
	}
	occurrences, err := recurrence.Generate(rt.Rule, start, start.AddDays(m.cfg.LedgerHorizonDays))
	if err != nil {
		return "?"
	}
	for occ := range occurrences {
		return occ.String()
	}
	return "none within " + strconv.Itoa(m.cfg.LedgerHorizonDays) + " days"
}

func (m *Menu) deleteRecurring(ctx context.Context) error {
	recurring, err := m.repo.ListRecurring(ctx, m.cfg.DefaultAccountID)
	if err != nil {
		return err
	}
	if len(recurring) == 0 {
		fmt.Println("No recurring transactions.")
		return nil
	}

	options := make([]huh.Option[int64], len(recurring))
	for i, rt := range recurring {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", rt.Description, rt.Rule), rt.ID)
	}

	var id int64
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().Title("Delete which?").Options(options...).Value(&id),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Delete it? Posted transactions are kept.").Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	if err := m.repo.DeleteRecurring(ctx, id); err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Deleted."))
	return nil
}

func (m *Menu) recordSnapshot(ctx context.Context) error {
	date := core.DateOf(time.Now()).String()
	var amount string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Balance").
			Description("The account balance as of the given date").
			Value(&amount).
			Validate(validateAmount),
		huh.NewInput().Title("Date").Value(&date).Validate(validateDate),
	))
	if err := form.Run(); err != nil {
		return err
	}

	d, _ := core.ParseDate(date)
	cents, _ := core.ParseAmountToCents(amount)
	_, err := m.repo.CreateSnapshot(ctx, core.BalanceSnapshot{
		Amount:    core.Money{Cents: cents},
		TakenAt:   d,
		AccountID: m.cfg.DefaultAccountID,
	})
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Snapshot recorded."))
	return nil
}

func (m *Menu) goals(ctx context.Context) error {
	var action string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Goals").
			Options(
				huh.NewOption("List goals", "list"),
				huh.NewOption("Add goal", "add"),
				huh.NewOption("Enable/disable goal", "toggle"),
				huh.NewOption("Back", "back"),
			).
			Value(&action),
	))
	if err := form.Run(); err != nil {
		return err
	}

	switch action {
	case "list":
		return m.listGoals(ctx)
	case "add":
		return m.addGoal(ctx)
	case "toggle":
		return m.toggleGoal(ctx)
	}
	return nil
}

func (m *Menu) listGoals(ctx context.Context) error {
	goals, err := m.repo.ListGoals(ctx, m.cfg.DefaultAccountID)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Println("No goals.")
		return nil
	}
	for _, g := range goals {
		state := "enabled"
		if !g.Enabled {
			state = "disabled"
		}
		fmt.Printf("#%d  %s  %s by %s  [%s]\n", g.ID, renderAmount(g.Amount), g.Description, g.TargetDate, state)
	}
	return nil
}

func (m *Menu) addGoal(ctx context.Context) error {
	var description, amount, target string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Description").Value(&description).Validate(required("description")),
		huh.NewInput().Title("Target amount").Value(&amount).Validate(validateAmount),
		huh.NewInput().Title("Target date").Value(&target).Placeholder("YYYY-MM-DD").Validate(validateDate),
	))
	if err := form.Run(); err != nil {
		return err
	}

	d, _ := core.ParseDate(target)
	cents, _ := core.ParseAmountToCents(amount)
	_, err := m.repo.CreateGoal(ctx, core.Goal{
		Description: description,
		Amount:      core.Money{Cents: cents},
		TargetDate:  d,
		Enabled:     true,
		AccountID:   m.cfg.DefaultAccountID,
	})
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Goal saved."))
	return nil
}

func (m *Menu) toggleGoal(ctx context.Context) error {
	goals, err := m.repo.ListGoals(ctx, m.cfg.DefaultAccountID)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Println("No goals.")
		return nil
	}

	options := make([]huh.Option[int64], len(goals))
	enabled := make(map[int64]bool, len(goals))
	for i, g := range goals {
		state := "enabled"
		if !g.Enabled {
			state = "disabled"
		}
		options[i] = huh.NewOption(fmt.Sprintf("%s [%s]", g.Description, state), g.ID)
		enabled[g.ID] = g.Enabled
	}

	var id int64
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int64]().Title("Toggle which?").Options(options...).Value(&id),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if err := m.repo.SetGoalEnabled(ctx, id, !enabled[id]); err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Updated."))
	return nil
}

func renderAmount(amount core.Money) string {
	if amount.Cents < 0 {
		return expenseStyle.Render(amount.String())
	}
	return incomeStyle.Render("+" + amount.String())
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateDate(s string) error {
	if _, err := core.ParseDate(s); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}
	return nil
}

func validateAmount(s string) error {
	if _, err := core.ParseAmountToCents(s); err != nil {
		return err
	}
	return nil
}

func validateInt(field string, min, max int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s must be a number", field)
		}
		if n < min || n > max {
			return fmt.Errorf("%s must be between %d and %d", field, min, max)
		}
		return nil
	}
}
