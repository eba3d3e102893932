package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/aggregate"
	"github.com/subtrackd/backend/internal/currency"
	"github.com/subtrackd/backend/internal/httputil"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/types"
)

// RegisterStatsRoutes registers the routes for statistics with
// the RouterGroup that is passed.
func RegisterStatsRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsStats)
	r.GET("", GetStats)
}

// Stats are the aggregated spend figures over all active
// subscriptions, in the base currency.
type Stats struct {
	BaseCurrency string                    `json:"baseCurrency" example:"EUR"` // Currency all amounts are converted to
	MonthlySpend decimal.Decimal           `json:"monthlySpend" example:"59.93"` // Total monthly-equivalent spend
	YearlySpend  decimal.Decimal           `json:"yearlySpend" example:"719.16"` // Monthly spend projected to a full year
	Categories   []aggregate.CategoryShare `json:"categories"`                 // Spend grouped by category
	TopExpenses  []aggregate.Expense       `json:"topExpenses"`                // The most expensive subscriptions
	Trend        aggregate.Trend           `json:"trend"`                      // Spend movement between the two most recent months
}

type StatsResponse struct {
	Data  *Stats  `json:"data"`                                                               // The statistics
	Error *string `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Stats
// @Success		204
// @Router			/v1/stats [options]
func OptionsStats(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Get statistics
// @Description	Returns aggregated spend figures over all active subscriptions
// @Tags			Stats
// @Produce		json
// @Success		200		{object}	StatsResponse
// @Failure		400		{object}	StatsResponse
// @Failure		500		{object}	StatsResponse
// @Param			limit	query		int	false	"Number of top expenses to return. Defaults to 5."
// @Router			/v1/stats [get]
func GetStats(c *gin.Context) {
	var params struct {
		Limit int `form:"limit"`
	}

	err := c.Bind(&params)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, StatsResponse{
			Error: &s,
		})
		return
	}

	subscriptions, err := models.ActiveSubscriptions(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), StatsResponse{
			Error: &s,
		})
		return
	}

	converter := currency.FromContext(c)
	monthlySpend := aggregate.MonthlySpend(subscriptions, converter)

	// The rollover ledger holds the spend of closed-out months. The
	// current month is not in the ledger yet, the live snapshot stands
	// in for it.
	history, err := models.SpendHistory(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), StatsResponse{
			Error: &s,
		})
		return
	}
	history[types.MonthOf(time.Now().UTC()).String()] = monthlySpend

	c.JSON(http.StatusOK, StatsResponse{
		Data: &Stats{
			BaseCurrency: converter.Base(),
			MonthlySpend: monthlySpend,
			YearlySpend:  aggregate.YearlySpend(subscriptions, converter),
			Categories:   aggregate.CategoryBreakdown(subscriptions, converter),
			TopExpenses:  aggregate.TopExpenses(subscriptions, converter, params.Limit),
			Trend:        aggregate.SpendingTrend(history),
		},
	})
}
