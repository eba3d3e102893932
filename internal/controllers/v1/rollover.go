package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subtrackd/backend/internal/httputil"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/types"
)

// RegisterRolloverRoutes registers the routes for the rollover engine
// with the RouterGroup that is passed.
func RegisterRolloverRoutes(r *gin.RouterGroup) {
	// Ledger
	{
		r.OPTIONS("", OptionsRolloverLedger)
		r.GET("", GetRolloverLedger)
	}

	// Month close-out
	{
		r.OPTIONS("/process", OptionsRolloverProcess)
		r.POST("/process", ProcessRollover)
	}

	// Available carry-forward
	{
		r.OPTIONS("/available", OptionsRolloverAvailable)
		r.GET("/available", GetRolloverAvailable)
	}

	// Settings
	{
		r.OPTIONS("/settings", OptionsRolloverSettings)
		r.GET("/settings", GetRolloverSettings)
		r.PATCH("/settings", UpdateRolloverSettings)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rollover
// @Success		204
// @Router			/v1/rollover [options]
func OptionsRolloverLedger(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rollover
// @Success		204
// @Router			/v1/rollover/process [options]
func OptionsRolloverProcess(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rollover
// @Success		204
// @Router			/v1/rollover/available [options]
func OptionsRolloverAvailable(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rollover
// @Success		204
// @Router			/v1/rollover/settings [options]
func OptionsRolloverSettings(c *gin.Context) {
	httputil.OptionsGetPatch(c)
}

// @Summary		Get rollover ledger
// @Description	Returns the rollover ledger for a month
// @Tags			Rollover
// @Produce		json
// @Success		200		{object}	RolloverLedgerResponse
// @Failure		400		{object}	RolloverLedgerResponse
// @Failure		500		{object}	RolloverLedgerResponse
// @Param			month	query		string	false	"The month in YYYY-MM format. Defaults to the current month."
// @Router			/v1/rollover [get]
func GetRolloverLedger(c *gin.Context) {
	var query QueryMonth
	err := c.BindQuery(&query)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	month := types.MonthOf(query.Month)
	if query.Month.IsZero() {
		month = types.MonthOf(time.Now().UTC())
	}

	entries, err := models.RolloverEntries(models.DB, month)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	ledger := RolloverLedger{
		Month:   month,
		Entries: entries,
	}

	// A month without a period header has not been closed out, its
	// ledger is empty but valid
	var period models.RolloverPeriod
	err = models.DB.Where("month = ?", month).First(&period).Error
	if err == nil {
		ledger.Processed = period.Processed
		ledger.Total = period.Total
	}

	c.JSON(http.StatusOK, RolloverLedgerResponse{Data: &ledger})
}

// @Summary		Process rollover
// @Description	Closes out a month: writes one ledger entry per category budget with the unused budget and carry-forward. Processing an already processed month changes nothing.
// @Tags			Rollover
// @Accept			json
// @Produce		json
// @Success		200		{object}	RolloverLedgerResponse
// @Failure		400		{object}	RolloverLedgerResponse
// @Failure		500		{object}	RolloverLedgerResponse
// @Param			month	body		RolloverProcessEditable	false	"Month to close out, defaults to the previous month"
// @Router			/v1/rollover/process [post]
func ProcessRollover(c *gin.Context) {
	var editable RolloverProcessEditable

	// An empty body means the previous month
	err := httputil.BindData(c, &editable)
	if err != nil && !errors.Is(err, httputil.ErrRequestBodyEmpty) {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	now := time.Now().UTC()

	month := editable.Month
	if month.IsZero() {
		month = types.MonthOf(now).AddDate(0, -1)
	}

	if month.After(types.MonthOf(now)) {
		s := errMonthInFuture.Error()
		c.JSON(http.StatusBadRequest, RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	spentByCategory, _, err := spendSnapshot(c)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	settings, err := models.GetRolloverSettings(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	period, err := models.ProcessRollover(models.DB, month, spentByCategory, settings)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	entries, err := models.RolloverEntries(models.DB, month)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverLedgerResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RolloverLedgerResponse{
		Data: &RolloverLedger{
			Month:     month,
			Processed: period.Processed,
			Total:     period.Total,
			Entries:   entries,
		},
	})
}

// @Summary		Get available rollover
// @Description	Returns the carry-forward budget that is available right now
// @Tags			Rollover
// @Produce		json
// @Success		200	{object}	RolloverAvailableResponse
// @Failure		500	{object}	RolloverAvailableResponse
// @Router			/v1/rollover/available [get]
func GetRolloverAvailable(c *gin.Context) {
	settings, err := models.GetRolloverSettings(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverAvailableResponse{
			Error: &s,
		})
		return
	}

	budgets, err := models.CategoryBudgets(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverAvailableResponse{
			Error: &s,
		})
		return
	}

	spentByCategory, _, err := spendSnapshot(c)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverAvailableResponse{
			Error: &s,
		})
		return
	}

	projected := models.ProjectedRollover(budgets, spentByCategory, settings)

	available, err := models.AvailableRollover(models.DB, time.Now(), projected, settings)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverAvailableResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RolloverAvailableResponse{
		Data: &RolloverAvailable{
			Available: available,
			Projected: projected,
		},
	})
}

// @Summary		Get rollover settings
// @Description	Returns the rollover settings
// @Tags			Rollover
// @Produce		json
// @Success		200	{object}	RolloverSettingsResponse
// @Failure		500	{object}	RolloverSettingsResponse
// @Router			/v1/rollover/settings [get]
func GetRolloverSettings(c *gin.Context) {
	settings, err := models.GetRolloverSettings(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverSettingsResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RolloverSettingsResponse{Data: &settings})
}

// @Summary		Update rollover settings
// @Description	Update the rollover settings. Only values to be updated need to be specified.
// @Tags			Rollover
// @Accept			json
// @Produce		json
// @Success		200			{object}	RolloverSettingsResponse
// @Failure		400			{object}	RolloverSettingsResponse
// @Failure		500			{object}	RolloverSettingsResponse
// @Param			settings	body		RolloverSettingsEditable	true	"Rollover settings"
// @Router			/v1/rollover/settings [patch]
func UpdateRolloverSettings(c *gin.Context) {
	settings, err := models.GetRolloverSettings(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverSettingsResponse{
			Error: &s,
		})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, RolloverSettingsEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverSettingsResponse{
			Error: &s,
		})
		return
	}

	var data RolloverSettingsEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverSettingsResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Model(&settings).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RolloverSettingsResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RolloverSettingsResponse{Data: &settings})
}
