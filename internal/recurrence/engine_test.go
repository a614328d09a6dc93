package recurrence

import (
	"errors"
	"testing"

	"bilancio/internal/core"
)

func mustRule(t *testing.T, freq core.Frequency, anchor core.Date, interval int, end core.EndCondition) core.RecurrenceRule {
	t.Helper()
	r, err := core.NewRule(freq, anchor, interval, end)
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	return r
}

func dates(t *testing.T, rule core.RecurrenceRule, start, end core.Date) []core.Date {
	t.Helper()
	out, err := Dates(rule, start, end)
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	return out
}

func sameDates(got, want []core.Date) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			return false
		}
	}
	return true
}

func TestGenerate_Series(t *testing.T) {
	cases := []struct {
		name     string
		freq     core.Frequency
		anchor   core.Date
		interval int
		end      core.EndCondition
		start    core.Date
		stop     core.Date
		want     []core.Date
	}{
		{
			name:     "daily from anchor",
			freq:     core.Daily{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 1,
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 1, 4),
			want: []core.Date{
				core.NewDate(2025, 1, 1),
				core.NewDate(2025, 1, 2),
				core.NewDate(2025, 1, 3),
				core.NewDate(2025, 1, 4),
			},
		},
		{
			name:     "daily every 3 days phase kept across window start",
			freq:     core.Daily{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 3,
			start:    core.NewDate(2025, 1, 5),
			stop:     core.NewDate(2025, 1, 13),
			want: []core.Date{
				core.NewDate(2025, 1, 7),
				core.NewDate(2025, 1, 10),
				core.NewDate(2025, 1, 13),
			},
		},
		{
			name:     "biweekly",
			freq:     core.Weekly{},
			anchor:   core.NewDate(2025, 1, 6),
			interval: 2,
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 2, 28),
			want: []core.Date{
				core.NewDate(2025, 1, 6),
				core.NewDate(2025, 1, 20),
				core.NewDate(2025, 2, 3),
				core.NewDate(2025, 2, 17),
			},
		},
		{
			name:     "monthly clamps short months",
			freq:     core.Monthly{},
			anchor:   core.NewDate(2025, 1, 31),
			interval: 1,
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 4, 30),
			want: []core.Date{
				core.NewDate(2025, 1, 31),
				core.NewDate(2025, 2, 28),
				core.NewDate(2025, 3, 31),
				core.NewDate(2025, 4, 30),
			},
		},
		{
			name:     "monthly clamp in leap february",
			freq:     core.Monthly{},
			anchor:   core.NewDate(2024, 1, 31),
			interval: 1,
			start:    core.NewDate(2024, 2, 1),
			stop:     core.NewDate(2024, 3, 31),
			want: []core.Date{
				core.NewDate(2024, 2, 29),
				core.NewDate(2024, 3, 31),
			},
		},
		{
			name:     "quarterly keeps anchor phase",
			freq:     core.Monthly{},
			anchor:   core.NewDate(2025, 1, 15),
			interval: 3,
			start:    core.NewDate(2025, 2, 1),
			stop:     core.NewDate(2025, 12, 31),
			want: []core.Date{
				core.NewDate(2025, 4, 15),
				core.NewDate(2025, 7, 15),
				core.NewDate(2025, 10, 15),
			},
		},
		{
			name:     "semi-monthly ignores anchor day",
			freq:     core.SemiMonthly{},
			anchor:   core.NewDate(2025, 3, 20),
			interval: 1,
			start:    core.NewDate(2025, 3, 1),
			stop:     core.NewDate(2025, 4, 30),
			want: []core.Date{
				core.NewDate(2025, 3, 1),
				core.NewDate(2025, 3, 15),
				core.NewDate(2025, 4, 1),
				core.NewDate(2025, 4, 15),
			},
		},
		{
			name:     "semi-monthly window starts mid-cycle",
			freq:     core.SemiMonthly{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 1,
			start:    core.NewDate(2025, 3, 10),
			stop:     core.NewDate(2025, 4, 10),
			want: []core.Date{
				core.NewDate(2025, 3, 15),
				core.NewDate(2025, 4, 1),
			},
		},
		{
			name:     "semi-monthly every other month",
			freq:     core.SemiMonthly{},
			anchor:   core.NewDate(2025, 1, 7),
			interval: 2,
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 3, 31),
			want: []core.Date{
				core.NewDate(2025, 1, 1),
				core.NewDate(2025, 1, 15),
				core.NewDate(2025, 3, 1),
				core.NewDate(2025, 3, 15),
			},
		},
		{
			name:     "yearly",
			freq:     core.Yearly{},
			anchor:   core.NewDate(2023, 6, 10),
			interval: 1,
			start:    core.NewDate(2023, 1, 1),
			stop:     core.NewDate(2025, 12, 31),
			want: []core.Date{
				core.NewDate(2023, 6, 10),
				core.NewDate(2024, 6, 10),
				core.NewDate(2025, 6, 10),
			},
		},
		{
			name:     "yearly leap anchor clamps to feb 28",
			freq:     core.Yearly{},
			anchor:   core.NewDate(2024, 2, 29),
			interval: 1,
			start:    core.NewDate(2024, 1, 1),
			stop:     core.NewDate(2028, 12, 31),
			want: []core.Date{
				core.NewDate(2024, 2, 29),
				core.NewDate(2025, 2, 28),
				core.NewDate(2026, 2, 28),
				core.NewDate(2027, 2, 28),
				core.NewDate(2028, 2, 29),
			},
		},
		{
			name:     "until cutoff inside window",
			freq:     core.Weekly{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 1,
			end:      core.Until{Date: core.NewDate(2025, 1, 15)},
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 12, 31),
			want: []core.Date{
				core.NewDate(2025, 1, 1),
				core.NewDate(2025, 1, 8),
				core.NewDate(2025, 1, 15),
			},
		},
		{
			name:     "count consumed by occurrences before window",
			freq:     core.Weekly{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 1,
			end:      core.Count{N: 3},
			start:    core.NewDate(2025, 1, 8),
			stop:     core.NewDate(2025, 12, 31),
			want: []core.Date{
				core.NewDate(2025, 1, 8),
				core.NewDate(2025, 1, 15),
			},
		},
		{
			name:     "count exhausted before window yields nothing",
			freq:     core.Daily{},
			anchor:   core.NewDate(2025, 1, 1),
			interval: 1,
			end:      core.Count{N: 5},
			start:    core.NewDate(2025, 2, 1),
			stop:     core.NewDate(2025, 12, 31),
			want:     nil,
		},
		{
			name:     "cutoff before window yields empty not error",
			freq:     core.Monthly{},
			anchor:   core.NewDate(2025, 1, 31),
			interval: 1,
			end:      core.Until{Date: core.NewDate(2025, 3, 31)},
			start:    core.NewDate(2025, 6, 1),
			stop:     core.NewDate(2025, 12, 31),
			want:     nil,
		},
		{
			name:     "anchor after window end yields empty",
			freq:     core.Daily{},
			anchor:   core.NewDate(2026, 1, 1),
			interval: 1,
			start:    core.NewDate(2025, 1, 1),
			stop:     core.NewDate(2025, 12, 31),
			want:     nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := mustRule(t, tc.freq, tc.anchor, tc.interval, tc.end)
			got := dates(t, rule, tc.start, tc.stop)
			if !sameDates(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerate_StrictlyIncreasing(t *testing.T) {
	rules := []core.RecurrenceRule{
		mustRule(t, core.Daily{}, core.NewDate(2024, 2, 29), 2, nil),
		mustRule(t, core.Weekly{}, core.NewDate(2024, 1, 1), 3, nil),
		mustRule(t, core.Monthly{}, core.NewDate(2024, 1, 31), 1, nil),
		mustRule(t, core.SemiMonthly{}, core.NewDate(2024, 5, 9), 1, nil),
		mustRule(t, core.Yearly{}, core.NewDate(2024, 2, 29), 1, nil),
	}
	start, end := core.NewDate(2024, 1, 1), core.NewDate(2027, 12, 31)
	for _, rule := range rules {
		t.Run(rule.String(), func(t *testing.T) {
			got := dates(t, rule, start, end)
			if len(got) == 0 {
				t.Fatal("expected occurrences")
			}
			for i := 1; i < len(got); i++ {
				if !got[i-1].Before(got[i]) {
					t.Fatalf("not strictly increasing at %d: %s then %s", i, got[i-1], got[i])
				}
			}
		})
	}
}

func TestGenerate_Restartable(t *testing.T) {
	rule := mustRule(t, core.SemiMonthly{}, core.NewDate(2025, 1, 10), 1, core.Count{N: 7})
	start, end := core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31)

	seq, err := Generate(rule, start, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var first, second []core.Date
	for d := range seq {
		first = append(first, d)
	}
	for d := range seq {
		second = append(second, d)
	}
	if !sameDates(first, second) {
		t.Fatalf("second pass differs: %v vs %v", first, second)
	}
}

func TestGenerate_EarlyTermination(t *testing.T) {
	rule := mustRule(t, core.Daily{}, core.NewDate(2025, 1, 1), 1, nil)
	seq, err := Generate(rule, core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var got []core.Date
	for d := range seq {
		got = append(got, d)
		if len(got) == 3 {
			break
		}
	}
	want := []core.Date{
		core.NewDate(2025, 1, 1),
		core.NewDate(2025, 1, 2),
		core.NewDate(2025, 1, 3),
	}
	if !sameDates(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerate_WindowMonotonicity(t *testing.T) {
	// A narrower window must produce a subsequence of the wider one.
	rule := mustRule(t, core.Monthly{}, core.NewDate(2024, 1, 31), 2, nil)
	wide := dates(t, rule, core.NewDate(2024, 1, 1), core.NewDate(2025, 12, 31))
	narrow := dates(t, rule, core.NewDate(2024, 6, 1), core.NewDate(2025, 3, 31))

	j := 0
	for _, d := range narrow {
		found := false
		for ; j < len(wide); j++ {
			if wide[j].Equal(d) {
				found = true
				j++
				break
			}
		}
		if !found {
			t.Fatalf("occurrence %s from narrow window missing in wide window %v", d, wide)
		}
	}
}

func TestGenerate_InvalidWindow(t *testing.T) {
	rule := mustRule(t, core.Daily{}, core.NewDate(2025, 1, 1), 1, nil)
	_, err := Generate(rule, core.NewDate(2025, 2, 1), core.NewDate(2025, 1, 1))
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}

	_, err = Generate(rule, core.Date{}, core.NewDate(2025, 1, 1))
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero start, got %v", err)
	}
}

func TestGenerate_ZeroRule(t *testing.T) {
	_, err := Generate(core.RecurrenceRule{}, core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 1))
	if !errors.Is(err, core.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		d      core.Date
		months int
		want   core.Date
	}{
		{core.NewDate(2025, 1, 31), 1, core.NewDate(2025, 2, 28)},
		{core.NewDate(2024, 1, 31), 1, core.NewDate(2024, 2, 29)},
		{core.NewDate(2025, 1, 31), 3, core.NewDate(2025, 4, 30)},
		{core.NewDate(2025, 11, 30), 3, core.NewDate(2026, 2, 28)},
		{core.NewDate(2025, 6, 15), 12, core.NewDate(2026, 6, 15)},
		{core.NewDate(2025, 6, 15), 0, core.NewDate(2025, 6, 15)},
	}
	for _, tc := range cases {
		if got := addMonths(tc.d, tc.months); !got.Equal(tc.want) {
			t.Errorf("addMonths(%s, %d) = %s, want %s", tc.d, tc.months, got, tc.want)
		}
	}
}

func TestMonthDiff(t *testing.T) {
	cases := []struct {
		a, b core.Date
		want int
	}{
		{core.NewDate(2025, 1, 15), core.NewDate(2025, 3, 15), 2},
		{core.NewDate(2025, 1, 15), core.NewDate(2025, 3, 14), 1},
		{core.NewDate(2025, 3, 1), core.NewDate(2025, 1, 1), -2},
		{core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28), 0},
	}
	for _, tc := range cases {
		if got := monthDiff(tc.a, tc.b); got != tc.want {
			t.Errorf("monthDiff(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
