package v1_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/subtrackd/backend/internal/billing"
	v1 "github.com/subtrackd/backend/internal/controllers/v1"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSubscription(t *testing.T, s v1.SubscriptionEditable, expectedStatus ...int) v1.SubscriptionResponse {
	if s.Name == "" {
		s.Name = uuid.NewString()
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.SubscriptionEditable{s}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/subscriptions", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var response v1.SubscriptionCreateResponse
	test.DecodeResponse(t, &r, &response)

	if r.Code == http.StatusCreated {
		return response.Data[0]
	}

	return v1.SubscriptionResponse{}
}

func (suite *TestSuiteStandard) TestSubscriptionsCreate() {
	subscription := createTestSubscription(suite.T(), v1.SubscriptionEditable{
		Name:         "Video Unlimited",
		Price:        decimal.NewFromFloat(12.99),
		BillingCycle: billing.Yearly,
	})

	require.NotNil(suite.T(), subscription.Data)
	assert.Equal(suite.T(), "Video Unlimited", subscription.Data.Name)
	assert.True(suite.T(), subscription.Data.Active, "New subscriptions must be active")
	require.NotNil(suite.T(), subscription.Data.NextPaymentDate)

	// A yearly price of 12.99 is 1.0825 per month
	expected := decimal.NewFromFloat(12.99).Div(decimal.NewFromInt(12))
	assert.True(suite.T(), subscription.Data.MonthlyPrice.Equal(expected), "Monthly price is %s, should be %s", subscription.Data.MonthlyPrice, expected)

	// The category falls back to the reserved category
	assert.Equal(suite.T(), suite.reservedCategoryID(), subscription.Data.CategoryID)
}

func (suite *TestSuiteStandard) TestSubscriptionsCreateInvalid() {
	tests := []struct {
		name     string
		editable v1.SubscriptionEditable
	}{
		{"negative price", v1.SubscriptionEditable{Name: "n", Price: decimal.NewFromInt(-1)}},
		{"unknown category", v1.SubscriptionEditable{Name: "n", CategoryID: uuid.New()}},
		{"invalid cycle", v1.SubscriptionEditable{Name: "n", BillingCycle: "WEEKLY"}},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			createTestSubscription(t, tt.editable, http.StatusBadRequest, http.StatusNotFound)
		})
	}
}

func (suite *TestSuiteStandard) TestSubscriptionsGetList() {
	_ = suite.createTestSubscription(models.Subscription{Name: "active", Active: true})
	_ = suite.createTestSubscription(models.Subscription{Name: "paused", Active: false})

	recorder := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/subscriptions", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	assert.Len(suite.T(), response.Data, 2)
	assert.Equal(suite.T(), int64(2), response.Pagination.Total)

	// Filter for active subscriptions
	recorder = test.Request(suite.T(), http.MethodGet, "http://example.com/v1/subscriptions?active=false", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	test.DecodeResponse(suite.T(), &recorder, &response)
	require.Len(suite.T(), response.Data, 1)
	assert.Equal(suite.T(), "paused", response.Data[0].Name)
}

func (suite *TestSuiteStandard) TestSubscriptionsGetExpiring() {
	soon := time.Now().UTC().AddDate(0, 0, 3)
	later := time.Now().UTC().AddDate(0, 0, 30)

	_ = suite.createTestSubscription(models.Subscription{Name: "due soon", NextPaymentDate: &soon, Active: true})
	_ = suite.createTestSubscription(models.Subscription{Name: "due later", NextPaymentDate: &later, Active: true})
	_ = suite.createTestSubscription(models.Subscription{Name: "paused", NextPaymentDate: &soon, Active: false})

	recorder := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/subscriptions?expiringWithin=7", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.Len(suite.T(), response.Data, 1)
	assert.Equal(suite.T(), "due soon", response.Data[0].Name)
}

func (suite *TestSuiteStandard) TestSubscriptionsGetSingle() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "single", Active: true})

	recorder := test.Request(suite.T(), http.MethodGet, subscriptionURL(subscription.ID, ""), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), subscription.ID, response.Data.ID)
	assert.Equal(suite.T(), subscriptionURL(subscription.ID, ""), response.Data.Links.Self)
}

func (suite *TestSuiteStandard) TestSubscriptionsGetNotFound() {
	tests := []struct {
		id     string
		status int
	}{
		{uuid.New().String(), http.StatusNotFound},
		{"not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/subscriptions/%s", tt.id), "")
		test.AssertHTTPStatus(suite.T(), &recorder, tt.status)
	}
}

func (suite *TestSuiteStandard) TestSubscriptionsUpdate() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "before", Active: true})

	recorder := test.Request(suite.T(), http.MethodPatch, subscriptionURL(subscription.ID, ""), map[string]any{
		"name":  "after",
		"price": "19.99",
	})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), "after", response.Data.Name)
	assert.True(suite.T(), response.Data.Price.Equal(decimal.NewFromFloat(19.99)))
}

func (suite *TestSuiteStandard) TestSubscriptionsUpdateNegativePrice() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "stays", Active: true})

	recorder := test.Request(suite.T(), http.MethodPatch, subscriptionURL(subscription.ID, ""), map[string]any{
		"price": "-1",
	})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestSubscriptionsUpdateUnknownCategory() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "stays", Active: true})

	recorder := test.Request(suite.T(), http.MethodPatch, subscriptionURL(subscription.ID, ""), map[string]any{
		"categoryId": uuid.New().String(),
	})
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestSubscriptionsDelete() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "doomed", Active: true})

	recorder := test.Request(suite.T(), http.MethodDelete, subscriptionURL(subscription.ID, ""), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	// The deletion is permanent
	err := models.DB.First(&models.Subscription{}, subscription.ID).Error
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestSubscriptionsPauseResume() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "pausable", Active: true})

	recorder := test.Request(suite.T(), http.MethodPost, subscriptionURL(subscription.ID, "pause"), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.False(suite.T(), response.Data.Active)
	assert.NotNil(suite.T(), response.Data.PausedAt)

	recorder = test.Request(suite.T(), http.MethodPost, subscriptionURL(subscription.ID, "resume"), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.True(suite.T(), response.Data.Active)
	assert.Nil(suite.T(), response.Data.PausedAt)
}

func (suite *TestSuiteStandard) TestSubscriptionsSkip() {
	next := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	subscription := suite.createTestSubscription(models.Subscription{
		Name:            "skippable",
		BillingCycle:    billing.Monthly,
		NextPaymentDate: &next,
		Active:          true,
	})

	recorder := test.Request(suite.T(), http.MethodPost, subscriptionURL(subscription.ID, "skip"), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), uint(1), response.Data.SkippedPayments)
	require.NotNil(suite.T(), response.Data.NextPaymentDate)
	assert.Equal(suite.T(), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *response.Data.NextPaymentDate)
}

func (suite *TestSuiteStandard) TestSubscriptionsReactivate() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "lapsed", Active: false})

	recorder := test.Request(suite.T(), http.MethodPost, subscriptionURL(subscription.ID, "reactivate"), "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.SubscriptionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	require.NotNil(suite.T(), response.Data)
	assert.True(suite.T(), response.Data.Active)
}

func (suite *TestSuiteStandard) TestSubscriptionsLifecycleNotFound() {
	for _, operation := range []string{"pause", "resume", "skip", "reactivate"} {
		recorder := test.Request(suite.T(), http.MethodPost, subscriptionURL(uuid.New(), operation), "")
		test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
	}
}

// TestSubscriptionsOptions verifies that OPTIONS requests are handled correctly.
func (suite *TestSuiteStandard) TestSubscriptionsOptions() {
	subscription := suite.createTestSubscription(models.Subscription{Name: "existing", Active: true})

	tests := []struct {
		name   string
		url    string
		status int
		allow  string
	}{
		{"list", "http://example.com/v1/subscriptions", http.StatusNoContent, "OPTIONS, GET, POST"},
		{"detail", subscriptionURL(subscription.ID, ""), http.StatusNoContent, "OPTIONS, GET, PATCH, DELETE"},
		{"lifecycle", subscriptionURL(subscription.ID, "pause"), http.StatusNoContent, "OPTIONS, POST"},
		{"no subscription with this ID", subscriptionURL(uuid.New(), ""), http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			recorder := test.Request(t, http.MethodOptions, tt.url, "")
			test.AssertHTTPStatus(t, &recorder, tt.status)

			if tt.allow != "" {
				assert.Equal(t, tt.allow, recorder.Header().Get("allow"))
			}
		})
	}
}
