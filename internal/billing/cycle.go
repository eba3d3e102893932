// Package billing implements the billing cycle calculations for
// subscriptions: the date of the next charge and the normalization of a
// cycle price to a per-month rate.
//
// All functions are pure, they never read the clock. Callers pass the
// reference date so that calculations stay reproducible.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cycle is the recurrence period of a subscription charge.
type Cycle string

const (
	Monthly   Cycle = "MONTHLY"
	Quarterly Cycle = "QUARTERLY"
	Yearly    Cycle = "YEARLY"

	// Custom cycles are not modeled further. They are billed and
	// normalized like monthly cycles, which is an explicit fallback
	// policy, not an oversight.
	Custom Cycle = "CUSTOM"
)

// Valid reports whether the cycle is one of the supported values.
func (c Cycle) Valid() bool {
	switch c {
	case Monthly, Quarterly, Yearly, Custom:
		return true
	}

	return false
}

var three = decimal.NewFromInt(3)

var twelve = decimal.NewFromInt(12)

// months returns the length of the cycle in calendar months.
func (c Cycle) months() int {
	switch c {
	case Quarterly:
		return 3
	case Yearly:
		return 12
	default:
		return 1
	}
}

// NextPaymentDate returns the date of the charge following a charge on
// current.
//
// The calculation uses calendar month arithmetic, not a fixed number of
// days: the day of month is kept and clamped to the last day of the
// target month where needed. A monthly charge on January 31 is next due
// February 28 (29 in leap years), a yearly charge on February 29 is due
// February 28 in non-leap years.
func NextPaymentDate(current time.Time, cycle Cycle) time.Time {
	return addMonthsClamped(current, cycle.months())
}

// MonthlyEquivalent normalizes a cycle price to a per-month rate for
// cross-cycle comparison. Custom cycles pass through unchanged, they
// are assumed to already be monthly-scale.
func MonthlyEquivalent(price decimal.Decimal, cycle Cycle) decimal.Decimal {
	switch cycle {
	case Quarterly:
		return price.Div(three)
	case Yearly:
		return price.Div(twelve)
	default:
		return price
	}
}

// addMonthsClamped adds calendar months and clamps the day of month to
// the last day of the target month. time.Time.AddDate normalizes
// overflowing days into the following month instead, which is not what
// billing dates need.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	firstOfTarget := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, second, t.Nanosecond(), t.Location())
}
