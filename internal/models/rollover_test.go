package models_test

import (
	"testing"
	"time"

	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestRolloverSettingsDefaults() {
	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	assert.Equal(suite.T(), models.RolloverFull, settings.Mode)
	assert.True(suite.T(), settings.Percentage.Equal(decimal.NewFromInt(100)))
	assert.Equal(suite.T(), 12, settings.ExpiryMonths)

	// The settings are a singleton
	again, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), settings.ID, again.ID)
}

func (suite *TestSuiteStandard) TestRolloverSettingsValidation() {
	tests := []struct {
		name     string
		settings models.RolloverSettings
		err      error
	}{
		{"invalid mode", models.RolloverSettings{Mode: "HALF"}, models.ErrRolloverModeInvalid},
		{"percentage above 100", models.RolloverSettings{Percentage: decimal.NewFromInt(110)}, models.ErrRolloverPercentageInvalid},
		{"negative percentage", models.RolloverSettings{Percentage: decimal.NewFromInt(-10)}, models.ErrRolloverPercentageInvalid},
		{"negative cap", models.RolloverSettings{MaxAmount: decimal.NewFromInt(-1)}, models.ErrRolloverMaxAmountNegative},
		{"negative expiry", models.RolloverSettings{ExpiryMonths: -1}, models.ErrRolloverExpiryNegative},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			err := models.DB.Create(&tt.settings).Error
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func (suite *TestSuiteStandard) TestRolloverAmountModes() {
	unused := decimal.NewFromInt(50)

	tests := []struct {
		name     string
		settings models.RolloverSettings
		want     decimal.Decimal
	}{
		{"full", models.RolloverSettings{Mode: models.RolloverFull}, decimal.NewFromInt(50)},
		{"percentage", models.RolloverSettings{Mode: models.RolloverPercentage, Percentage: decimal.NewFromInt(70)}, decimal.NewFromInt(35)},
		{"fixed below cap", models.RolloverSettings{Mode: models.RolloverFixed, MaxAmount: decimal.NewFromInt(60)}, decimal.NewFromInt(50)},
		{"fixed above cap", models.RolloverSettings{Mode: models.RolloverFixed, MaxAmount: decimal.NewFromInt(30)}, decimal.NewFromInt(30)},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			got := tt.settings.Amount(unused)
			assert.True(t, got.Equal(tt.want), "Amount is %s, should be %s", got, tt.want)
		})
	}
}

// setupRolloverBudget creates a category with a budget and returns the
// category ID.
func (suite *TestSuiteStandard) setupRolloverBudget(limit int64) uuid.UUID {
	category := suite.createTestCategory(models.Category{})
	categoryID := category.ID

	_ = suite.createTestBudget(models.Budget{
		CategoryID: &categoryID,
		Limit:      decimal.NewFromInt(limit),
	})

	return categoryID
}

func (suite *TestSuiteStandard) TestProcessRollover() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	month := types.NewMonth(2026, time.July)
	spent := map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(85)}

	period, err := models.ProcessRollover(models.DB, month, spent, settings)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), period.Processed)
	assert.True(suite.T(), period.Total.Equal(decimal.NewFromInt(15)), "Total is %s, should be 15", period.Total)

	entries, err := models.RolloverEntries(models.DB, month)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), entries, 1)
	assert.True(suite.T(), entries[0].UnusedAmount.Equal(decimal.NewFromInt(15)))
	assert.True(suite.T(), entries[0].RolloverAmount.Equal(decimal.NewFromInt(15)))
	assert.True(suite.T(), entries[0].SpentAmount.Equal(decimal.NewFromInt(85)))
}

func (suite *TestSuiteStandard) TestProcessRolloverIdempotent() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	month := types.NewMonth(2026, time.July)

	_, err = models.ProcessRollover(models.DB, month, map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(85)}, settings)
	require.Nil(suite.T(), err)

	// The second run sees different spend, but the ledger does not change
	period, err := models.ProcessRollover(models.DB, month, map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(10)}, settings)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), period.Total.Equal(decimal.NewFromInt(15)), "Total is %s, should still be 15", period.Total)

	entries, err := models.RolloverEntries(models.DB, month)
	require.Nil(suite.T(), err)
	assert.Len(suite.T(), entries, 1)
}

func (suite *TestSuiteStandard) TestProcessRolloverOverspent() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	// Overspending rolls over zero, never a negative amount
	period, err := models.ProcessRollover(models.DB, types.NewMonth(2026, time.July), map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(130)}, settings)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), period.Total.IsZero(), "Total is %s, should be 0", period.Total)
}

func (suite *TestSuiteStandard) TestProcessRolloverWithoutBudgets() {
	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	period, err := models.ProcessRollover(models.DB, types.NewMonth(2026, time.July), map[uuid.UUID]decimal.Decimal{}, settings)
	require.Nil(suite.T(), err)
	assert.False(suite.T(), period.Processed)

	var count int64
	require.Nil(suite.T(), models.DB.Model(&models.RolloverPeriod{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *TestSuiteStandard) TestPurgeExpiredRollovers() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)
	settings.ExpiryMonths = 3

	spent := map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(50)}

	old := types.NewMonth(2025, time.September)
	recent := types.NewMonth(2026, time.June)

	_, err = models.ProcessRollover(models.DB, old, spent, settings)
	require.Nil(suite.T(), err)
	_, err = models.ProcessRollover(models.DB, recent, spent, settings)
	require.Nil(suite.T(), err)

	require.Nil(suite.T(), models.PurgeExpiredRollovers(models.DB, types.NewMonth(2026, time.August), settings))

	var periods []models.RolloverPeriod
	require.Nil(suite.T(), models.DB.Find(&periods).Error)
	require.Len(suite.T(), periods, 1)
	assert.True(suite.T(), periods[0].Month.Equal(recent))

	entries, err := models.RolloverEntries(models.DB, old)
	require.Nil(suite.T(), err)
	assert.Len(suite.T(), entries, 0)
}

func (suite *TestSuiteStandard) TestPurgeNeverExpires() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)
	settings.ExpiryMonths = 0

	_, err = models.ProcessRollover(models.DB, types.NewMonth(2020, time.January), map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(50)}, settings)
	require.Nil(suite.T(), err)

	require.Nil(suite.T(), models.PurgeExpiredRollovers(models.DB, types.NewMonth(2026, time.August), settings))

	var count int64
	require.Nil(suite.T(), models.DB.Model(&models.RolloverPeriod{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *TestSuiteStandard) TestProjectedRollover() {
	categoryID := suite.setupRolloverBudget(100)

	budgets, err := models.CategoryBudgets(models.DB)
	require.Nil(suite.T(), err)

	settings := models.RolloverSettings{Mode: models.RolloverPercentage, Percentage: decimal.NewFromInt(50)}

	projected := models.ProjectedRollover(budgets, map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(40)}, settings)
	assert.True(suite.T(), projected.Equal(decimal.NewFromInt(30)), "Projected is %s, should be 30", projected)
}

func (suite *TestSuiteStandard) TestAvailableRollover() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	now := time.Now().UTC()
	previous := types.MonthOf(now).AddDate(0, -1)

	spent := map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(80)}

	_, err = models.ProcessRollover(models.DB, previous, spent, settings)
	require.Nil(suite.T(), err)

	// The current month is still open, the projection counts
	projected := decimal.NewFromInt(5)
	available, err := models.AvailableRollover(models.DB, now, projected, settings)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), available.Equal(decimal.NewFromInt(25)), "Available is %s, should be 25", available)

	// Closing out the current month replaces the projection with the
	// ledger total
	_, err = models.ProcessRollover(models.DB, types.MonthOf(now), spent, settings)
	require.Nil(suite.T(), err)

	available, err = models.AvailableRollover(models.DB, now, projected, settings)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), available.Equal(decimal.NewFromInt(40)), "Available is %s, should be 40", available)
}

func (suite *TestSuiteStandard) TestSpendHistory() {
	categoryID := suite.setupRolloverBudget(100)

	settings, err := models.GetRolloverSettings(models.DB)
	require.Nil(suite.T(), err)

	_, err = models.ProcessRollover(models.DB, types.NewMonth(2026, time.June), map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(50)}, settings)
	require.Nil(suite.T(), err)
	_, err = models.ProcessRollover(models.DB, types.NewMonth(2026, time.July), map[uuid.UUID]decimal.Decimal{categoryID: decimal.NewFromInt(70)}, settings)
	require.Nil(suite.T(), err)

	history, err := models.SpendHistory(models.DB)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), history, 2)
	assert.True(suite.T(), history["2026-06"].Equal(decimal.NewFromInt(50)))
	assert.True(suite.T(), history["2026-07"].Equal(decimal.NewFromInt(70)))
}
