package report

import (
	"slices"
	"time"

	"tradebill/internal/domain"
)

type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowCustom  Window = "custom"
	WindowAll     Window = "all"
)

// Range bounds a custom window, both ends inclusive, dates as "2006-01-02".
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FilterByWindow selects the bills whose date falls inside the window,
// evaluated against the given clock reading, and orders them newest first.
// Weekly is a rolling 7 days and monthly a rolling calendar month, both
// aligned to midnight; daily is the current calendar day. A custom window
// missing either bound selects nothing.
func FilterByWindow(bills []domain.Bill, window Window, rng Range, now time.Time) []domain.Bill {
	loc := now.Location()
	var keep func(domain.Bill) bool

	switch window {
	case WindowDaily:
		y, m, d := now.In(loc).Date()
		keep = func(b domain.Bill) bool {
			by, bm, bd := b.Date.In(loc).Date()
			return by == y && bm == m && bd == d
		}
	case WindowWeekly:
		cutoff := midnight(now.AddDate(0, 0, -7), loc)
		keep = func(b domain.Bill) bool { return !b.Date.Before(cutoff) }
	case WindowMonthly:
		cutoff := midnight(now.AddDate(0, -1, 0), loc)
		keep = func(b domain.Bill) bool { return !b.Date.Before(cutoff) }
	case WindowCustom:
		start, err := time.ParseInLocation("2006-01-02", rng.Start, loc)
		if err != nil {
			return []domain.Bill{}
		}
		end, err := time.ParseInLocation("2006-01-02", rng.End, loc)
		if err != nil {
			return []domain.Bill{}
		}
		// Build the bound from the calendar date so a short or long day
		// around a zone transition still ends at 23:59:59.999.
		ey, em, ed := end.Date()
		endOfDay := time.Date(ey, em, ed, 23, 59, 59, int(999*time.Millisecond), loc)
		keep = func(b domain.Bill) bool {
			return !b.Date.Before(start) && !b.Date.After(endOfDay)
		}
	default:
		keep = func(domain.Bill) bool { return true }
	}

	filtered := make([]domain.Bill, 0, len(bills))
	for _, bill := range bills {
		if keep(bill) {
			filtered = append(filtered, bill)
		}
	}

	slices.SortFunc(filtered, func(a, b domain.Bill) int {
		if a.Date.Equal(b.Date) {
			switch {
			case a.ID > b.ID:
				return -1
			case a.ID < b.ID:
				return 1
			default:
				return 0
			}
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return filtered
}

// Aggregate sums the given bills. Cancelled bills stay inside the totals;
// cancellation flags a bill in the rendered row, it does not remove its
// amounts from reporting.
func Aggregate(bills []domain.Bill) domain.ReportAggregate {
	agg := domain.ReportAggregate{}
	for _, bill := range bills {
		agg.BillCount++
		agg.Subtotal += bill.Subtotal
		agg.GSTAmount += bill.GSTAmount
		agg.TransportCharges += bill.TransportCharges
		agg.ExtraCharges += bill.ExtraCharges
		agg.TotalAmount += bill.TotalAmount
	}
	return agg
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
