package models_test

import (
	"testing"

	"github.com/subtrackd/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestBudgetValidation() {
	tests := []struct {
		name   string
		budget models.Budget
		err    error
	}{
		{"negative limit", models.Budget{Limit: decimal.NewFromInt(-1)}, models.ErrBudgetLimitNegative},
		{"negative threshold", models.Budget{Limit: decimal.NewFromInt(10), Threshold: decimal.NewFromInt(-5)}, models.ErrBudgetThresholdInvalid},
		{"threshold above 100", models.Budget{Limit: decimal.NewFromInt(10), Threshold: decimal.NewFromInt(101)}, models.ErrBudgetThresholdInvalid},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			err := models.DB.Create(&tt.budget).Error
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func (suite *TestSuiteStandard) TestBudgetDefaultThreshold() {
	budget := suite.createTestBudget(models.Budget{
		Limit: decimal.NewFromInt(100),
	})

	assert.True(suite.T(), budget.Threshold.Equal(models.DefaultThreshold), "Threshold is %s, should be %s", budget.Threshold, models.DefaultThreshold)
}

func (suite *TestSuiteStandard) TestBudgetUnknownCategory() {
	categoryID := uuid.New()
	budget := models.Budget{
		CategoryID: &categoryID,
		Limit:      decimal.NewFromInt(100),
	}

	err := models.DB.Create(&budget).Error
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestBudgetUniquePerCategory() {
	category := suite.createTestCategory(models.Category{})
	categoryID := category.ID

	_ = suite.createTestBudget(models.Budget{CategoryID: &categoryID, Limit: decimal.NewFromInt(100)})

	budget := models.Budget{CategoryID: &categoryID, Limit: decimal.NewFromInt(50)}
	err := models.DB.Create(&budget).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExistsForCategory)
}

func (suite *TestSuiteStandard) TestBudgetStatus() {
	category := suite.createTestCategory(models.Category{})
	categoryID := category.ID

	budget := suite.createTestBudget(models.Budget{
		CategoryID: &categoryID,
		Limit:      decimal.NewFromInt(100),
	})

	spent := map[uuid.UUID]decimal.Decimal{
		categoryID: decimal.NewFromInt(85),
	}

	status := budget.Status(spent, decimal.NewFromInt(200))
	assert.True(suite.T(), status.Spent.Equal(decimal.NewFromInt(85)))
	assert.True(suite.T(), status.Percentage.Equal(decimal.NewFromInt(85)))
	assert.True(suite.T(), status.OverThreshold, "85 percent is above the default threshold of 80 percent")
	assert.False(suite.T(), status.OverBudget)

	status = budget.Status(map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(120)}, decimal.Zero)
	assert.True(suite.T(), status.OverBudget)
}

func (suite *TestSuiteStandard) TestBudgetStatusGlobal() {
	budget := suite.createTestBudget(models.Budget{
		Limit: decimal.NewFromInt(500),
	})

	// The global budget measures the total spend
	status := budget.Status(map[uuid.UUID]decimal.Decimal{}, decimal.NewFromInt(250))
	assert.True(suite.T(), status.Spent.Equal(decimal.NewFromInt(250)))
	assert.True(suite.T(), status.Percentage.Equal(decimal.NewFromInt(50)))
	assert.False(suite.T(), status.OverThreshold)
}

func (suite *TestSuiteStandard) TestBudgetStatusZeroLimit() {
	budget := suite.createTestBudget(models.Budget{})

	status := budget.Status(map[uuid.UUID]decimal.Decimal{}, decimal.NewFromInt(10))

	// A zero limit cannot produce a percentage, but any spend is over it
	assert.True(suite.T(), status.Percentage.IsZero())
	assert.True(suite.T(), status.OverBudget)
}

func (suite *TestSuiteStandard) TestCategoryBudgets() {
	category := suite.createTestCategory(models.Category{})
	categoryID := category.ID

	_ = suite.createTestBudget(models.Budget{CategoryID: &categoryID, Limit: decimal.NewFromInt(100)})
	_ = suite.createTestBudget(models.Budget{Limit: decimal.NewFromInt(500)})

	budgets, err := models.CategoryBudgets(models.DB)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), budgets, 1)
	assert.Equal(suite.T(), categoryID, *budgets[0].CategoryID)
}
