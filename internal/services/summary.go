package services

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

// AmountSummer aggregates transaction amounts over a window.
type AmountSummer interface {
	SumAmounts(ctx context.Context, accountID int64, from, to core.Date) (income, expenses int64, err error)
}

// MonthOverview is a compact summary for a specific account, year and
// month. Expenses carry their negative sign.
type MonthOverview struct {
	Year     int
	Month    int // 1-12
	Income   core.Money
	Expenses core.Money
	Net      core.Money
}

// Summary computes month overviews, caching results briefly since the
// menu requests the same month repeatedly.
type Summary struct {
	store AmountSummer
	cache *cache.LRUCache[MonthOverview]
}

func NewSummary(store AmountSummer) *Summary {
	return &Summary{
		store: store,
		cache: cache.NewLRUCache[MonthOverview](64, 30*time.Second),
	}
}

// Month returns the overview of the account's transactions in the given
// month.
func (s *Summary) Month(ctx context.Context, accountID int64, year, month int) (MonthOverview, error) {
	key := fmt.Sprintf("%d/%04d-%02d", accountID, year, month)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	from := core.NewDate(year, month, 1)
	to := from.AddDays(daysInMonth(year, month) - 1)
	income, expenses, err := s.store.SumAmounts(ctx, accountID, from, to)
	if err != nil {
		return MonthOverview{}, fmt.Errorf("month overview: %w", err)
	}

	overview := MonthOverview{
		Year:     year,
		Month:    month,
		Income:   core.Money{Cents: income},
		Expenses: core.Money{Cents: expenses},
		Net:      core.Money{Cents: income + expenses},
	}
	s.cache.Set(key, overview)
	return overview, nil
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
