package report

import (
	"testing"
	"time"

	"tradebill/internal/domain"
)

func billOn(id int64, date time.Time, total float64) domain.Bill {
	return domain.Bill{
		ID:          id,
		BillNumber:  id,
		Date:        date,
		Subtotal:    total,
		TotalAmount: total,
		Status:      domain.BillStatusActive,
	}
}

func TestDailyWindowMatchesCalendarDay(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	bills := []domain.Bill{
		billOn(1, time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC), 100),
		billOn(2, time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), 200),
		billOn(3, time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC), 300),
	}

	got := FilterByWindow(bills, WindowDaily, Range{}, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 bills for today, got %d", len(got))
	}
	for _, bill := range got {
		if bill.ID == 3 {
			t.Fatalf("yesterday's bill leaked into the daily window")
		}
	}
}

func TestWeeklyWindowIsMidnightAligned(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	cutoffDay := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	bills := []domain.Bill{
		billOn(1, cutoffDay, 100),
		billOn(2, cutoffDay.Add(-time.Minute), 200),
		billOn(3, now, 300),
	}

	got := FilterByWindow(bills, WindowWeekly, Range{}, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 bills inside the rolling week, got %d", len(got))
	}
	for _, bill := range got {
		if bill.ID == 2 {
			t.Fatalf("bill before the midnight cutoff was included")
		}
	}
}

func TestMonthlyWindowIsMidnightAligned(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	cutoffDay := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	bills := []domain.Bill{
		billOn(1, cutoffDay, 100),
		billOn(2, cutoffDay.Add(-time.Second), 200),
	}

	got := FilterByWindow(bills, WindowMonthly, Range{}, now)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the bill at the cutoff, got %+v", got)
	}
}

func TestCustomWindowIsInclusive(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	bills := []domain.Bill{
		billOn(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 100),
		billOn(2, time.Date(2026, 3, 12, 23, 59, 59, 0, time.UTC), 200),
		billOn(3, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), 300),
	}

	got := FilterByWindow(bills, WindowCustom, Range{Start: "2026-03-10", End: "2026-03-12"}, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 bills inside the inclusive range, got %d", len(got))
	}
}

func TestCustomWindowEndsAtCalendarDayEndAcrossZoneShift(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	// March 8 2026 is a 23-hour day in this zone. The window must still end
	// at 23:59:59.999 on the 8th, not spill into the 9th.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)
	bills := []domain.Bill{
		billOn(1, time.Date(2026, 3, 8, 23, 30, 0, 0, loc), 100),
		billOn(2, time.Date(2026, 3, 9, 0, 30, 0, 0, loc), 200),
	}

	got := FilterByWindow(bills, WindowCustom, Range{Start: "2026-03-08", End: "2026-03-08"}, now)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the bill inside March 8, got %+v", got)
	}
}

func TestFilterBreaksDateTiesByID(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	sameInstant := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
	bills := []domain.Bill{
		billOn(2, sameInstant, 200),
		billOn(1, sameInstant, 100),
		billOn(3, sameInstant, 300),
	}

	got := FilterByWindow(bills, WindowAll, Range{}, now)
	if len(got) != 3 {
		t.Fatalf("expected all 3 bills, got %d", len(got))
	}
	for i, want := range []int64{3, 2, 1} {
		if got[i].ID != want {
			t.Fatalf("position %d: expected id %d, got %d", i, want, got[i].ID)
		}
	}
}

func TestCustomWindowMissingBoundSelectsNothing(t *testing.T) {
	now := time.Now()
	bills := []domain.Bill{billOn(1, now, 100)}

	for _, rng := range []Range{{}, {Start: "2026-03-10"}, {End: "2026-03-12"}, {Start: "not-a-date", End: "2026-03-12"}} {
		got := FilterByWindow(bills, WindowCustom, rng, now)
		if len(got) != 0 {
			t.Fatalf("range %+v: expected empty selection, got %d bills", rng, len(got))
		}
	}
}

func TestAllWindowKeepsEverything(t *testing.T) {
	now := time.Now()
	bills := []domain.Bill{
		billOn(1, now.AddDate(-2, 0, 0), 100),
		billOn(2, now, 200),
	}

	got := FilterByWindow(bills, WindowAll, Range{}, now)
	if len(got) != 2 {
		t.Fatalf("expected every bill, got %d", len(got))
	}
	if got[0].ID != 2 {
		t.Fatalf("expected newest first, got id %d", got[0].ID)
	}
}

func TestAggregateIncludesCancelledBills(t *testing.T) {
	now := time.Now()
	active := billOn(1, now, 500)
	active.GSTAmount = 25
	cancelled := billOn(2, now, 300)
	cancelled.Status = domain.BillStatusCancelled
	cancelled.CancellationDate = &now

	agg := Aggregate([]domain.Bill{active, cancelled})
	if agg.BillCount != 2 {
		t.Fatalf("expected both bills counted, got %d", agg.BillCount)
	}
	if agg.TotalAmount != 800 {
		t.Fatalf("cancelled bill amount missing from aggregate: %v", agg.TotalAmount)
	}
	if agg.GSTAmount != 25 {
		t.Fatalf("expected gst 25, got %v", agg.GSTAmount)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if agg.BillCount != 0 || agg.TotalAmount != 0 {
		t.Fatalf("expected zero aggregate, got %+v", agg)
	}
}
