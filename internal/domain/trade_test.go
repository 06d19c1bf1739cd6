package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrade_OpenQuantity(t *testing.T) {
	tr := &Trade{Quantity: 100}
	assert.Equal(t, int64(100), tr.OpenQuantity())
	assert.False(t, tr.IsClosed())

	tr.Closures = append(tr.Closures, &TradeClosure{ClosedQuantity: 30})
	assert.Equal(t, int64(70), tr.OpenQuantity())

	tr.Closures = append(tr.Closures, &TradeClosure{ClosedQuantity: 70})
	assert.Equal(t, int64(0), tr.OpenQuantity())
	assert.True(t, tr.IsClosed())
}

func TestTrade_Principal(t *testing.T) {
	tr := &Trade{EntryPrice: dec("100"), Quantity: 50}
	assert.True(t, dec("5000").Equal(tr.Principal()), "fully financed position defaults to position cost")

	borrowed := dec("2000")
	tr.BorrowedAmount = &borrowed
	assert.True(t, dec("2000").Equal(tr.Principal()))
}

func TestTrade_LeverageValue(t *testing.T) {
	borrowed := dec("5000")
	tr := &Trade{EntryPrice: dec("100"), Quantity: 100, BorrowedAmount: &borrowed}

	lev := tr.LeverageValue()
	assert.NotNil(t, lev)
	assert.True(t, dec("2").Equal(*lev), "10000 cost over 5000 own funds, got %s", lev)

	// Fully borrowed: no own funds, leverage undefined.
	full := dec("10000")
	tr.BorrowedAmount = &full
	assert.Nil(t, tr.LeverageValue())

	// Explicit leverage wins over the derivation.
	explicit := dec("3.5")
	tr.Leverage = &explicit
	assert.True(t, explicit.Equal(*tr.LeverageValue()))
}

func TestTrade_LiquidationPrice(t *testing.T) {
	borrowed := dec("8000")
	mm := dec("20")
	tr := &Trade{
		EntryPrice:        dec("100"),
		Quantity:          100,
		BorrowedAmount:    &borrowed,
		MaintenanceMargin: &mm,
	}

	// 8000 / (100 * 0.8) = 100
	p := tr.LiquidationPrice()
	assert.NotNil(t, p)
	assert.True(t, dec("100").Equal(*p), "got %s", p)

	tr.MaintenanceMargin = nil
	assert.Nil(t, tr.LiquidationPrice())
}

func TestTrade_Profit(t *testing.T) {
	exitPrice := dec("120")
	exitDate := date(2024, 2, 1)
	tr := &Trade{
		EntryPrice: dec("100"),
		Quantity:   10,
		EntryDate:  date(2024, 1, 1),
		MarginRate: dec("10"),
		ExitPrice:  &exitPrice,
		ExitDate:   &exitDate,
	}

	// Price profit 200, minus 31 days interest on principal 1000 @ 10%
	// (1000*0.10/365*31 = 8.49).
	p := tr.Profit(date(2024, 6, 1))
	assert.NotNil(t, p)
	assert.True(t, dec("191.51").Equal(*p), "got %s", p)

	tr.ExitPrice = nil
	assert.Nil(t, tr.Profit(date(2024, 6, 1)))
}

func TestTrade_TotalInterest_UsesExitDateWhenClosed(t *testing.T) {
	exitDate := date(2024, 1, 31)
	tr := &Trade{
		EntryPrice: dec("100"),
		Quantity:   100,
		EntryDate:  date(2024, 1, 1),
		MarginRate: dec("10"),
		ExitDate:   &exitDate,
	}

	// 30 days regardless of how far asOf is past the exit.
	want := AccruedInterest(dec("10000"), dec("10"), tr.EntryDate, exitDate, nil)
	assert.True(t, want.Equal(tr.TotalInterest(date(2025, 1, 1))))
}

func TestTrade_DailyInterestSchedule(t *testing.T) {
	exitDate := date(2024, 1, 3)
	tr := &Trade{
		EntryPrice: dec("100"),
		Quantity:   100,
		EntryDate:  date(2024, 1, 1),
		MarginRate: dec("36.5"),
		ExitDate:   &exitDate,
	}

	sched := tr.DailyInterestSchedule()
	assert.Len(t, sched, 3)
	assert.Equal(t, date(2024, 1, 1), sched[0].Date)
	assert.Equal(t, date(2024, 1, 3), sched[2].Date)
	// 10000 * 36.5 / 100 / 365 = 10 per day
	for _, e := range sched {
		assert.True(t, dec("10").Equal(e.Amount), "day %s got %s", e.Date, e.Amount)
	}

	tr.ExitDate = nil
	assert.Empty(t, tr.DailyInterestSchedule(), "schedule is a settled-cost view")
}

func TestTrade_DailyInterestSchedule_FollowsRateChanges(t *testing.T) {
	exitDate := date(2024, 1, 4)
	newRate := dec("73")
	tr := &Trade{
		EntryPrice: dec("100"),
		Quantity:   100,
		EntryDate:  date(2024, 1, 1),
		MarginRate: dec("36.5"),
		ExitDate:   &exitDate,
		FinancingEvents: []*FinancingEvent{
			{EventDate: date(2024, 1, 3), EventType: EventRateChange, Rate: &newRate},
		},
	}

	sched := tr.DailyInterestSchedule()
	assert.Len(t, sched, 4)
	// 10 per day at 36.5%, doubling from the change date on.
	assert.True(t, dec("10").Equal(sched[0].Amount), "got %s", sched[0].Amount)
	assert.True(t, dec("10").Equal(sched[1].Amount), "got %s", sched[1].Amount)
	assert.True(t, dec("20").Equal(sched[2].Amount), "got %s", sched[2].Amount)
	assert.True(t, dec("20").Equal(sched[3].Amount), "got %s", sched[3].Amount)
}

func TestDaysBetween_NormalizesZones(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	a := time.Date(2024, 1, 1, 23, 0, 0, 0, zone)
	b := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(1), DaysBetween(a, b))
}
