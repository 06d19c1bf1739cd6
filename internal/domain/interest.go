package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// DailyInterest is principal * rate/100 / 365, unrounded. Rate is percent
// per year.
func DailyInterest(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Mul(rate).
		DivRound(hundred, CalcScale).
		DivRound(daysPerYear, CalcScale)
}

// RateAsOf resolves the rate active on asOf from a base rate and a trade's
// financing events: the latest RATE_CHANGE dated not after asOf wins,
// otherwise the base rate applies.
func RateAsOf(baseRate decimal.Decimal, events []*FinancingEvent, asOf time.Time) decimal.Decimal {
	asOf = DateOnly(asOf)
	rate := baseRate
	var latest time.Time
	for _, e := range events {
		if e.EventType != EventRateChange || e.Rate == nil {
			continue
		}
		d := DateOnly(e.EventDate)
		if d.After(asOf) {
			continue
		}
		if latest.IsZero() || !d.Before(latest) {
			latest = d
			rate = *e.Rate
		}
	}
	return rate
}

// AccruedInterest integrates interest on a fixed principal from entryDate to
// endDate, stepping the rate at each RATE_CHANGE event inside the window.
// An event's rate takes effect for the interval that starts on its date; the
// base rate covers everything before the first event. Repayments and
// collateral top-ups do not reshape the integral: only the rate track moves.
// Returns 0 when endDate is before entryDate. Rounded to money scale.
func AccruedInterest(principal, baseRate decimal.Decimal, entryDate, endDate time.Time, events []*FinancingEvent) decimal.Decimal {
	entry := DateOnly(entryDate)
	end := DateOnly(endDate)
	if end.Before(entry) {
		return decimal.Zero.Round(MoneyScale)
	}

	changes := make([]*FinancingEvent, 0, len(events))
	for _, e := range events {
		if e.EventType != EventRateChange || e.Rate == nil {
			continue
		}
		d := DateOnly(e.EventDate)
		if d.Before(entry) || d.After(end) {
			continue
		}
		changes = append(changes, e)
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return DateOnly(changes[i].EventDate).Before(DateOnly(changes[j].EventDate))
	})

	total := decimal.Zero
	periodStart := entry
	rate := baseRate
	for _, e := range changes {
		periodEnd := DateOnly(e.EventDate)
		if days := DaysBetween(periodStart, periodEnd); days > 0 {
			total = total.Add(DailyInterest(principal, rate).Mul(decimal.NewFromInt(days)))
		}
		rate = *e.Rate
		periodStart = periodEnd
	}
	if days := DaysBetween(periodStart, end); days > 0 {
		total = total.Add(DailyInterest(principal, rate).Mul(decimal.NewFromInt(days)))
	}
	return total.Round(MoneyScale)
}
