package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/billing"
	"github.com/subtrackd/backend/internal/models"
	st_uuid "github.com/subtrackd/backend/internal/uuid"
)

// SubscriptionEditable represents all user configurable parameters.
//
// The active flag is not editable, it is managed through the pause,
// resume and reactivate operations.
type SubscriptionEditable struct {
	Name            string          `json:"name" example:"Video Unlimited" default:""`                     // Name of the subscription
	Price           decimal.Decimal `json:"price" example:"12.99"`                                         // Amount charged per billing cycle
	Currency        string          `json:"currency" example:"EUR" default:""`                             // ISO 4217 code, empty means the base currency
	CategoryID      uuid.UUID       `json:"categoryId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`     // ID of the category, defaults to the reserved category
	BillingCycle    billing.Cycle   `json:"billingCycle" example:"MONTHLY" default:"MONTHLY"`              // How often the subscription is charged
	StartDate       time.Time       `json:"startDate" example:"2026-07-12T00:00:00Z"`                      // First day of the subscription, defaults to now
	NextPaymentDate *time.Time      `json:"nextPaymentDate" example:"2026-08-12T00:00:00Z" default:"null"` // Date of the next charge, defaults to one cycle after the start date
}

func (editable SubscriptionEditable) model() models.Subscription {
	return models.Subscription{
		Name:            editable.Name,
		Price:           editable.Price,
		Currency:        editable.Currency,
		CategoryID:      editable.CategoryID,
		BillingCycle:    editable.BillingCycle,
		StartDate:       editable.StartDate,
		NextPaymentDate: editable.NextPaymentDate,
		// New subscriptions are always active
		Active: true,
	}
}

type SubscriptionLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/subscriptions/d1b7ba40-b916-4f35-a418-ca9b83b0ae7b"` // The subscription itself
	Category string `json:"category" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"` // The category of the subscription
}

type Subscription struct {
	models.DefaultModel
	SubscriptionEditable
	Links SubscriptionLinks `json:"links"`

	// These fields are computed
	Active          bool            `json:"active" example:"true"`           // false means paused or lapsed
	PausedAt        *time.Time      `json:"pausedAt"`                        // Set while the subscription is paused
	SkippedPayments uint            `json:"skippedPayments" example:"2"`     // Number of payments skipped over the lifetime
	MonthlyPrice    decimal.Decimal `json:"monthlyPrice" example:"12.99"`    // Price normalized to one month, in the subscription's currency
}

func newSubscription(c *gin.Context, model models.Subscription) Subscription {
	url := c.GetString(string(models.DBContextURL))

	return Subscription{
		DefaultModel: model.DefaultModel,
		SubscriptionEditable: SubscriptionEditable{
			Name:            model.Name,
			Price:           model.Price,
			Currency:        model.Currency,
			CategoryID:      model.CategoryID,
			BillingCycle:    model.BillingCycle,
			StartDate:       model.StartDate,
			NextPaymentDate: model.NextPaymentDate,
		},
		Links: SubscriptionLinks{
			Self:     fmt.Sprintf("%s/v1/subscriptions/%s", url, model.ID),
			Category: fmt.Sprintf("%s/v1/categories/%s", url, model.CategoryID),
		},
		Active:          model.Active,
		PausedAt:        model.PausedAt,
		SkippedPayments: model.SkippedPayments,
		MonthlyPrice:    billing.MonthlyEquivalent(model.Price, model.BillingCycle),
	}
}

type SubscriptionListResponse struct {
	Data       []Subscription `json:"data"`                                                          // List of Subscriptions
	Error      *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination    `json:"pagination"`                                                    // Pagination information
}

type SubscriptionCreateResponse struct {
	Data  []SubscriptionResponse `json:"data"`                                                          // List of the created Subscriptions or their respective error
	Error *string                `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (s *SubscriptionCreateResponse) appendError(err error, currentStatus int) int {
	e := err.Error()
	s.Data = append(s.Data, SubscriptionResponse{Error: &e})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type SubscriptionResponse struct {
	Data  *Subscription `json:"data"`                                                          // Data for the Subscription
	Error *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type SubscriptionQueryFilter struct {
	Name           string       `form:"name" filterField:"false"`           // By name
	Currency       string       `form:"currency"`                           // By currency code
	CategoryID     st_uuid.UUID `form:"category"`                           // By ID of the category
	BillingCycle   string       `form:"billingCycle"`                       // By billing cycle
	Active         bool         `form:"active"`                             // Is the subscription active?
	ExpiringWithin int          `form:"expiringWithin" filterField:"false"` // Only active subscriptions with a payment due within this many days
	Offset         uint         `form:"offset" filterField:"false"`         // The offset of the first Subscription returned. Defaults to 0.
	Limit          int          `form:"limit" filterField:"false"`          // Maximum number of Subscriptions to return. Defaults to 50.
}

func (f SubscriptionQueryFilter) model() (models.Subscription, error) {
	return models.Subscription{
		Currency:     f.Currency,
		CategoryID:   f.CategoryID.UUID,
		BillingCycle: billing.Cycle(f.BillingCycle),
		Active:       f.Active,
	}, nil
}
