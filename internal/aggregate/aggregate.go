// Package aggregate derives spend figures from a read-only snapshot of
// subscriptions.
//
// All functions are total over well-formed input: empty snapshots, zero
// totals and single-bucket histories produce defined results instead of
// errors. Malformed records contribute zero, validation happens at the
// store boundary, not here.
package aggregate

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/billing"
	"github.com/subtrackd/backend/internal/currency"
	"github.com/subtrackd/backend/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

var twelve = decimal.NewFromInt(12)

// monthlyAmount is the monthly-equivalent price of a subscription in
// the base currency. Inactive subscriptions contribute zero.
func monthlyAmount(sub models.Subscription, converter currency.Converter) decimal.Decimal {
	if !sub.Active {
		return decimal.Zero
	}

	equivalent := billing.MonthlyEquivalent(sub.Price, sub.BillingCycle)
	return converter.Convert(equivalent, sub.Currency, converter.Base())
}

// MonthlySpend is the total monthly-equivalent spend of the snapshot in
// the base currency.
func MonthlySpend(subscriptions []models.Subscription, converter currency.Converter) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subscriptions {
		total = total.Add(monthlyAmount(sub, converter))
	}

	return total
}

// YearlySpend is the monthly spend projected to a full year.
func YearlySpend(subscriptions []models.Subscription, converter currency.Converter) decimal.Decimal {
	return MonthlySpend(subscriptions, converter).Mul(twelve)
}

// SpendByCategory groups the monthly-equivalent spend by category ID.
// The budget and rollover engines consume this grouping.
func SpendByCategory(subscriptions []models.Subscription, converter currency.Converter) map[uuid.UUID]decimal.Decimal {
	spend := make(map[uuid.UUID]decimal.Decimal)
	for _, sub := range subscriptions {
		spend[sub.CategoryID] = spend[sub.CategoryID].Add(monthlyAmount(sub, converter))
	}

	return spend
}

// CategoryShare is the spend of one category and its share of the
// total.
type CategoryShare struct {
	Category   string          `json:"category" example:"streaming"` // Name of the category
	Amount     decimal.Decimal `json:"amount" example:"23.97"`       // Monthly-equivalent spend of the category
	Percentage int64           `json:"percentage" example:"40"`      // Share of the total spend, rounded to the nearest integer
}

// CategoryBreakdown groups the monthly-equivalent spend by category
// name, with each category's share of the total. Subscriptions without
// a resolvable category count towards the reserved category. With a
// zero total all percentages are zero. An empty snapshot yields an
// empty list.
func CategoryBreakdown(subscriptions []models.Subscription, converter currency.Converter) []CategoryShare {
	amounts := make(map[string]decimal.Decimal)
	total := decimal.Zero

	for _, sub := range subscriptions {
		name := sub.Category.Name
		if name == "" {
			name = models.ReservedCategory
		}

		amount := monthlyAmount(sub, converter)
		amounts[name] = amounts[name].Add(amount)
		total = total.Add(amount)
	}

	breakdown := make([]CategoryShare, 0, len(amounts))
	for name, amount := range amounts {
		percentage := int64(0)
		if total.IsPositive() {
			percentage = amount.Div(total).Mul(oneHundred).Round(0).IntPart()
		}

		breakdown = append(breakdown, CategoryShare{
			Category:   name,
			Amount:     amount,
			Percentage: percentage,
		})
	}

	// Deterministic order: largest spend first, names break ties
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Amount.Equal(breakdown[j].Amount) {
			return breakdown[i].Amount.GreaterThan(breakdown[j].Amount)
		}

		return breakdown[i].Category < breakdown[j].Category
	})

	return breakdown
}

// Expense is one subscription's monthly-equivalent spend, used for the
// top-expense ranking.
type Expense struct {
	ID       uuid.UUID       `json:"id" example:"65392deb-5e92-4268-b114-297faad6cdce"` // ID of the subscription
	Name     string          `json:"name" example:"Video Unlimited"`                    // Name of the subscription
	Category string          `json:"category" example:"streaming"`                      // Name of the category
	Amount   decimal.Decimal `json:"amount" example:"12.99"`                            // Monthly-equivalent spend in the base currency
}

// DefaultTopExpenses is the ranking size used when the caller does not
// specify one.
const DefaultTopExpenses = 5

// TopExpenses ranks subscriptions by monthly-equivalent spend,
// descending. The sort is stable so that ties keep the snapshot order,
// which keeps the ranking deterministic.
func TopExpenses(subscriptions []models.Subscription, converter currency.Converter, limit int) []Expense {
	if limit <= 0 {
		limit = DefaultTopExpenses
	}

	expenses := make([]Expense, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if !sub.Active {
			continue
		}

		expenses = append(expenses, Expense{
			ID:       sub.ID,
			Name:     sub.Name,
			Category: sub.Category.Name,
			Amount:   monthlyAmount(sub, converter),
		})
	}

	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.GreaterThan(expenses[j].Amount)
	})

	if len(expenses) > limit {
		expenses = expenses[:limit]
	}

	return expenses
}

// TrendDirection says whether spend went up, down or stayed stable
// between the two most recent month buckets.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend is the spend movement between the two most recent months.
type Trend struct {
	Direction  TrendDirection  `json:"direction" example:"up"`    // up, down or stable
	Percentage decimal.Decimal `json:"percentage" example:"12.5"` // Absolute change in percent of the previous month
}

// SpendingTrend compares the two most recent buckets of a month-keyed
// spend history. Fewer than two buckets yield a stable trend. A
// previous bucket of exactly zero forces direction up with 100 percent,
// the explicit policy that avoids a division by zero; equal buckets are
// stable.
func SpendingTrend(history map[string]decimal.Decimal) Trend {
	if len(history) < 2 {
		return Trend{Direction: TrendStable, Percentage: decimal.Zero}
	}

	// YYYY-MM keys sort chronologically
	months := make([]string, 0, len(history))
	for month := range history {
		months = append(months, month)
	}
	sort.Strings(months)

	previous := history[months[len(months)-2]]
	current := history[months[len(months)-1]]

	if current.Equal(previous) {
		return Trend{Direction: TrendStable, Percentage: decimal.Zero}
	}

	if previous.IsZero() {
		return Trend{Direction: TrendUp, Percentage: oneHundred}
	}

	direction := TrendUp
	if current.LessThan(previous) {
		direction = TrendDown
	}

	percentage := current.Sub(previous).Abs().Div(previous).Mul(oneHundred)

	return Trend{Direction: direction, Percentage: percentage}
}
