package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/models"
	st_uuid "github.com/subtrackd/backend/internal/uuid"
)

// BudgetEditable represents all user configurable parameters
type BudgetEditable struct {
	CategoryID *uuid.UUID      `json:"categoryId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the category the budget limits, null for the global budget
	Limit      decimal.Decimal `json:"limit" example:"100"`                                       // Maximum monthly-equivalent spend
	Threshold  decimal.Decimal `json:"threshold" example:"80" default:"80"`                       // Alert threshold in percent of the limit
}

func (editable BudgetEditable) model() models.Budget {
	return models.Budget{
		CategoryID: editable.CategoryID,
		Limit:      editable.Limit,
		Threshold:  editable.Threshold,
	}
}

type BudgetLinks struct {
	Self string `json:"self" example:"https://example.com/api/v1/budgets/6b98461d-6123-4516-bd24-ae93638bd07d"` // The budget itself
}

type Budget struct {
	models.DefaultModel
	BudgetEditable
	Links BudgetLinks `json:"links"`

	// These fields are computed from the current monthly-equivalent spend
	Spent         decimal.Decimal `json:"spent" example:"83.17"`      // Spend counting against this budget
	Percentage    decimal.Decimal `json:"percentage" example:"83.17"` // Spend in percent of the limit, 0 for a zero limit
	OverThreshold bool            `json:"overThreshold" example:"true"` // Spend has reached the alert threshold
	OverBudget    bool            `json:"overBudget" example:"false"`   // Spend exceeds the limit
}

func newBudget(c *gin.Context, model models.Budget, spentByCategory map[uuid.UUID]decimal.Decimal, totalSpend decimal.Decimal) Budget {
	url := c.GetString(string(models.DBContextURL))
	status := model.Status(spentByCategory, totalSpend)

	return Budget{
		DefaultModel: model.DefaultModel,
		BudgetEditable: BudgetEditable{
			CategoryID: model.CategoryID,
			Limit:      model.Limit,
			Threshold:  model.Threshold,
		},
		Links: BudgetLinks{
			Self: fmt.Sprintf("%s/v1/budgets/%s", url, model.ID),
		},
		Spent:         status.Spent,
		Percentage:    status.Percentage,
		OverThreshold: status.OverThreshold,
		OverBudget:    status.OverBudget,
	}
}

type BudgetListResponse struct {
	Data       []Budget    `json:"data"`                                                          // List of Budgets
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type BudgetCreateResponse struct {
	Data  []BudgetResponse `json:"data"`                                                          // List of the created Budgets or their respective error
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (b *BudgetCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	b.Data = append(b.Data, BudgetResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type BudgetResponse struct {
	Data  *Budget `json:"data"`                                                          // Data for the Budget
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type BudgetQueryFilter struct {
	CategoryID st_uuid.UUID `form:"category"`                   // By ID of the category
	Offset     uint         `form:"offset" filterField:"false"` // The offset of the first Budget returned. Defaults to 0.
	Limit      int          `form:"limit" filterField:"false"`  // Maximum number of Budgets to return. Defaults to 50.
}

func (f BudgetQueryFilter) model() (models.Budget, error) {
	// A non-nil pointer is a non-zero field that gorm always filters
	// on, so it is only set when the parameter was passed
	var categoryID *uuid.UUID
	if f.CategoryID.UUID != uuid.Nil {
		id := f.CategoryID.UUID
		categoryID = &id
	}

	return models.Budget{
		CategoryID: categoryID,
	}, nil
}
