package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule is wrapped by every rule construction failure.
// Use errors.Is to detect it.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Frequency is a sealed sum type over the supported recurrence cadences.
// Consumers dispatch with an exhaustive type switch; a new variant cannot
// be added without every consumer being updated.
type Frequency interface {
	fmt.Stringer
	isFrequency()
}

type (
	// Daily repeats every interval days from the anchor.
	Daily struct{}
	// Weekly repeats every interval*7 days from the anchor.
	Weekly struct{}
	// Monthly repeats every interval months, keeping the anchor's
	// day-of-month and clamping to shorter months.
	Monthly struct{}
	// SemiMonthly hits the 1st and the 15th of each stepped month.
	// The anchor's own day-of-month plays no role, so this variant
	// needs no clamping logic at all.
	SemiMonthly struct{}
	// Yearly repeats every interval years, keeping the anchor's month
	// and day and clamping Feb 29 in non-leap years.
	Yearly struct{}
)

func (Daily) isFrequency()       {}
func (Weekly) isFrequency()      {}
func (Monthly) isFrequency()     {}
func (SemiMonthly) isFrequency() {}
func (Yearly) isFrequency()      {}

func (Daily) String() string       { return "daily" }
func (Weekly) String() string      { return "weekly" }
func (Monthly) String() string     { return "monthly" }
func (SemiMonthly) String() string { return "semi-monthly" }
func (Yearly) String() string      { return "yearly" }

// ParseFrequency is the inverse of Frequency.String, used when rules come
// back from storage or user input.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return Daily{}, nil
	case "weekly":
		return Weekly{}, nil
	case "monthly":
		return Monthly{}, nil
	case "semi-monthly", "semimonthly":
		return SemiMonthly{}, nil
	case "yearly", "annually":
		return Yearly{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, s)
	}
}

// EndCondition is a sealed sum type describing when a rule stops producing
// occurrences. The three variants are mutually exclusive and fixed at
// construction time.
type EndCondition interface {
	isEndCondition()
}

type (
	// Never keeps the rule open-ended.
	Never struct{}
	// Until stops at the given date, inclusive.
	Until struct {
		Date Date
	}
	// Count stops after N occurrences, counted from the anchor
	// regardless of any query window.
	Count struct {
		N int
	}
)

func (Never) isEndCondition() {}
func (Until) isEndCondition() {}
func (Count) isEndCondition() {}

// RecurrenceRule describes a repeating obligation: how often it repeats,
// from when, and until when. Rules are immutable once constructed; changing
// a schedule means replacing the rule with a new one.
type RecurrenceRule struct {
	frequency Frequency
	anchor    Date
	interval  int
	end       EndCondition
}

// NewRule builds a validated RecurrenceRule. A nil end condition means
// Never. All failures wrap ErrInvalidRule.
func NewRule(frequency Frequency, anchor Date, interval int, end EndCondition) (RecurrenceRule, error) {
	if frequency == nil {
		return RecurrenceRule{}, fmt.Errorf("%w: frequency is required", ErrInvalidRule)
	}
	if err := anchor.Validate(); err != nil {
		return RecurrenceRule{}, fmt.Errorf("%w: anchor date: %v", ErrInvalidRule, err)
	}
	if interval < 1 {
		return RecurrenceRule{}, fmt.Errorf("%w: interval must be >= 1, got %d", ErrInvalidRule, interval)
	}
	if end == nil {
		end = Never{}
	}
	switch e := end.(type) {
	case Never:
	case Until:
		if err := e.Date.Validate(); err != nil {
			return RecurrenceRule{}, fmt.Errorf("%w: until date: %v", ErrInvalidRule, err)
		}
		if e.Date.Before(anchor) {
			return RecurrenceRule{}, fmt.Errorf("%w: until date %s precedes anchor %s", ErrInvalidRule, e.Date, anchor)
		}
	case Count:
		if e.N < 1 {
			return RecurrenceRule{}, fmt.Errorf("%w: count must be >= 1, got %d", ErrInvalidRule, e.N)
		}
	default:
		return RecurrenceRule{}, fmt.Errorf("%w: unknown end condition %T", ErrInvalidRule, end)
	}
	return RecurrenceRule{
		frequency: frequency,
		anchor:    anchor,
		interval:  interval,
		end:       end,
	}, nil
}

// Frequency returns the rule's cadence variant.
func (r RecurrenceRule) Frequency() Frequency { return r.frequency }

// Anchor returns the date establishing the rule's phase.
func (r RecurrenceRule) Anchor() Date { return r.anchor }

// Interval returns the positive step multiplier (every N days/weeks/...).
func (r RecurrenceRule) Interval() int { return r.interval }

// End returns the rule's end condition.
func (r RecurrenceRule) End() EndCondition { return r.end }

// IsZero reports whether the rule was not built through NewRule.
func (r RecurrenceRule) IsZero() bool { return r.frequency == nil }

func (r RecurrenceRule) String() string {
	if r.IsZero() {
		return "rule(zero)"
	}
	s := fmt.Sprintf("every %d %s from %s", r.interval, r.frequency, r.anchor)
	switch e := r.end.(type) {
	case Until:
		s += " until " + e.Date.String()
	case Count:
		s += fmt.Sprintf(" for %d occurrences", e.N)
	}
	return s
}
