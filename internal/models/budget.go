package models

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultThreshold is the alert threshold in percent that applies when
// a budget does not set one.
var DefaultThreshold = decimal.NewFromInt(80)

var oneHundred = decimal.NewFromInt(100)

// Budget is a spending limit, either for one category or global
// (CategoryID is nil).
type Budget struct {
	DefaultModel
	Category   *Category  `json:"-"`
	CategoryID *uuid.UUID `gorm:"uniqueIndex:budget_category"`
	Limit      decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Threshold  decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Alert threshold in percent of the limit, defaults to 80
}

var (
	ErrBudgetLimitNegative     = errors.New("budget limits must be zero or positive")
	ErrBudgetThresholdInvalid  = errors.New("budget thresholds must be above 0 and at most 100 percent")
	ErrBudgetExistsForCategory = errors.New("there already is a budget for this category")
)

func (b Budget) validate() error {
	if b.Limit.IsNegative() {
		return ErrBudgetLimitNegative
	}

	if b.Threshold.IsNegative() || b.Threshold.GreaterThan(oneHundred) {
		return ErrBudgetThresholdInvalid
	}

	return nil
}

func (b *Budget) BeforeSave(_ *gorm.DB) error {
	if b.Threshold.IsZero() {
		b.Threshold = DefaultThreshold
	}

	return b.validate()
}

// BeforeUpdate validates the incoming values. Partial updates pass them
// as the statement destination, the receiver still holds the stored
// state.
func (b *Budget) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Budget)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("CategoryID") && toSave.CategoryID != nil {
		err := tx.First(&Category{}, *toSave.CategoryID).Error
		if err != nil {
			return err
		}
	}

	return toSave.validate()
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	_ = b.DefaultModel.BeforeCreate(tx)

	if b.CategoryID != nil {
		return tx.First(&Category{}, *b.CategoryID).Error
	}

	return nil
}

// BudgetStatus is the spend of a budget in the current month, compared
// against its limit. Alert senders consume the OverThreshold and
// OverBudget flags, this model never notifies anything itself.
type BudgetStatus struct {
	Budget
	Spent         decimal.Decimal // Monthly-equivalent spend counting against this budget
	Percentage    decimal.Decimal // Spend in percent of the limit, 0 for a zero limit
	OverThreshold bool            // Spend has reached the alert threshold
	OverBudget    bool            // Spend exceeds the limit
}

// Status computes the status of the budget. The global budget measures
// the total spend, category budgets the spend of their category.
func (b Budget) Status(spentByCategory map[uuid.UUID]decimal.Decimal, totalSpend decimal.Decimal) BudgetStatus {
	spent := totalSpend
	if b.CategoryID != nil {
		spent = spentByCategory[*b.CategoryID]
	}

	percentage := decimal.Zero
	if b.Limit.IsPositive() {
		percentage = spent.Div(b.Limit).Mul(oneHundred)
	}

	return BudgetStatus{
		Budget:        b,
		Spent:         spent,
		Percentage:    percentage,
		OverThreshold: percentage.GreaterThanOrEqual(b.Threshold),
		OverBudget:    spent.GreaterThan(b.Limit),
	}
}

// CategoryBudgets returns all budgets that are bound to a category.
// These are the budgets the rollover engine operates on.
func CategoryBudgets(db *gorm.DB) ([]Budget, error) {
	var budgets []Budget

	err := db.Where("category_id IS NOT NULL").Find(&budgets).Error
	return budgets, err
}

// Export returns all budgets for export.
func (Budget) Export() (json.RawMessage, error) {
	var budgets []Budget
	err := DB.Find(&budgets).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&budgets)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
