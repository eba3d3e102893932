package v1_test

import (
	"fmt"
	"net/http"
	"time"

	v1 "github.com/subtrackd/backend/internal/controllers/v1"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/types"
	"github.com/subtrackd/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processRollover closes out the given month and returns the resulting
// ledger.
func (suite *TestSuiteStandard) processRollover(body any) v1.RolloverLedgerResponse {
	recorder := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/rollover/process", body)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverLedgerResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)

	return response
}

func (suite *TestSuiteStandard) TestRolloverProcess() {
	category := suite.createTestCategoryBudget(100)
	_ = suite.createTestSubscription(models.Subscription{
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(85),
		Active:     true,
	})

	month := types.NewMonth(2026, time.July)
	response := suite.processRollover(map[string]any{"month": month})

	assert.True(suite.T(), response.Data.Processed)
	assert.True(suite.T(), response.Data.Total.Equal(decimal.NewFromInt(15)), "Total is %s, should be 15", response.Data.Total)
	require.Len(suite.T(), response.Data.Entries, 1)

	entry := response.Data.Entries[0]
	assert.True(suite.T(), entry.UnusedAmount.Equal(decimal.NewFromInt(15)))
	assert.True(suite.T(), entry.RolloverAmount.Equal(decimal.NewFromInt(15)))
}

// TestRolloverProcessDefaultMonth verifies that an empty body closes out
// the previous month.
func (suite *TestSuiteStandard) TestRolloverProcessDefaultMonth() {
	_ = suite.createTestCategoryBudget(100)

	response := suite.processRollover("")

	previous := types.MonthOf(time.Now().UTC()).AddDate(0, -1)
	assert.Equal(suite.T(), previous, response.Data.Month)
	assert.True(suite.T(), response.Data.Processed)
}

func (suite *TestSuiteStandard) TestRolloverProcessFutureMonth() {
	future := types.MonthOf(time.Now().UTC()).AddDate(0, 1)

	recorder := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/rollover/process", map[string]any{"month": future})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

// TestRolloverProcessIdempotent verifies that closing out a month twice
// keeps the ledger of the first run.
func (suite *TestSuiteStandard) TestRolloverProcessIdempotent() {
	category := suite.createTestCategoryBudget(100)
	subscription := suite.createTestSubscription(models.Subscription{
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(85),
		Active:     true,
	})

	month := types.NewMonth(2026, time.July)
	response := suite.processRollover(map[string]any{"month": month})
	assert.True(suite.T(), response.Data.Total.Equal(decimal.NewFromInt(15)))

	// Change the spend, the closed out month must not move
	subscription.Price = decimal.NewFromInt(20)
	require.NoError(suite.T(), models.DB.Save(&subscription).Error)

	response = suite.processRollover(map[string]any{"month": month})
	assert.True(suite.T(), response.Data.Total.Equal(decimal.NewFromInt(15)), "Total is %s, should still be 15", response.Data.Total)
}

func (suite *TestSuiteStandard) TestRolloverLedgerGet() {
	category := suite.createTestCategoryBudget(100)
	_ = suite.createTestSubscription(models.Subscription{
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(40),
		Active:     true,
	})

	month := types.NewMonth(2026, time.June)
	_ = suite.processRollover(map[string]any{"month": month})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/rollover?month=%s", month), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverLedgerResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), month, response.Data.Month)
	assert.True(suite.T(), response.Data.Processed)
	assert.Len(suite.T(), response.Data.Entries, 1)
}

// TestRolloverLedgerGetOpenMonth verifies that a month that has not been
// closed out returns an empty, unprocessed ledger.
func (suite *TestSuiteStandard) TestRolloverLedgerGetOpenMonth() {
	recorder := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/rollover?month=2026-01", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverLedgerResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.False(suite.T(), response.Data.Processed)
	assert.Empty(suite.T(), response.Data.Entries)
}

func (suite *TestSuiteStandard) TestRolloverAvailable() {
	category := suite.createTestCategoryBudget(100)
	_ = suite.createTestSubscription(models.Subscription{
		CategoryID: category.ID,
		Price:      decimal.NewFromInt(85),
		Active:     true,
	})

	// Close out the previous month, the current month is still open
	previous := types.MonthOf(time.Now().UTC()).AddDate(0, -1)
	_ = suite.processRollover(map[string]any{"month": previous})

	recorder := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/rollover/available", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverAvailableResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)

	// 15 from the closed out month plus the projection of 15 for the
	// open current month
	assert.True(suite.T(), response.Data.Projected.Equal(decimal.NewFromInt(15)), "Projected is %s, should be 15", response.Data.Projected)
	assert.True(suite.T(), response.Data.Available.Equal(decimal.NewFromInt(30)), "Available is %s, should be 30", response.Data.Available)
}

func (suite *TestSuiteStandard) TestRolloverSettingsGet() {
	recorder := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/rollover/settings", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverSettingsResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), models.RolloverFull, response.Data.Mode)
	assert.Equal(suite.T(), 12, response.Data.ExpiryMonths)
}

func (suite *TestSuiteStandard) TestRolloverSettingsUpdate() {
	recorder := test.Request(suite.T(), http.MethodPatch, "http://example.com/v1/rollover/settings", map[string]any{
		"mode":       "PERCENTAGE",
		"percentage": "50",
	})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.RolloverSettingsResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), models.RolloverPercentage, response.Data.Mode)
	assert.True(suite.T(), response.Data.Percentage.Equal(decimal.NewFromInt(50)))
}

func (suite *TestSuiteStandard) TestRolloverSettingsUpdateInvalid() {
	recorder := test.Request(suite.T(), http.MethodPatch, "http://example.com/v1/rollover/settings", map[string]any{
		"percentage": "150",
	})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestRolloverOptions() {
	tests := []struct {
		url   string
		allow string
	}{
		{"http://example.com/v1/rollover", "OPTIONS, GET"},
		{"http://example.com/v1/rollover/process", "OPTIONS, POST"},
		{"http://example.com/v1/rollover/available", "OPTIONS, GET"},
		{"http://example.com/v1/rollover/settings", "OPTIONS, GET, PATCH"},
	}

	for _, tt := range tests {
		recorder := test.Request(suite.T(), http.MethodOptions, tt.url, "")
		test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)
		assert.Equal(suite.T(), tt.allow, recorder.Header().Get("allow"))
	}
}
