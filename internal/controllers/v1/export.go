package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subtrackd/backend/internal/httputil"
	"github.com/subtrackd/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

var backendVersion string

func RegisterExportRoutes(r *gin.RouterGroup, version string) {
	backendVersion = version

	{
		r.OPTIONS("", OptionsExport)
		r.GET("", GetExport)
	}

	{
		r.OPTIONS("/xlsx", OptionsExportXlsx)
		r.GET("/xlsx", GetExportXlsx)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Export
// @Success		204
// @Router			/v1/export [options]
func OptionsExport(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Export
// @Success		204
// @Router			/v1/export/xlsx [options]
func OptionsExportXlsx(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Export
// @Description	Exports all resources for the instance
// @Tags			Export
// @Produce		json
// @Success		200	{object}	ExportResponse
// @Failure		500	{object}	httpError
// @Router			/v1/export [get]
func GetExport(c *gin.Context) {
	resources := make(map[string]json.RawMessage)

	for _, model := range models.Registry {
		b, err := model.Export()
		if err != nil {
			c.JSON(status(err), httpError{
				Error: err.Error(),
			})
			return
		}

		resources[reflect.TypeOf(model).Name()] = b
	}

	c.JSON(http.StatusOK, ExportResponse{
		Version:      backendVersion,
		Data:         resources,
		CreationTime: time.Now(),
		Clacks:       "GNU Terry Pratchett",
	})
}

// @Summary		Export as spreadsheet
// @Description	Exports subscriptions, categories, budgets and the rollover ledger as an xlsx workbook
// @Tags			Export
// @Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success		200
// @Failure		500	{object}	httpError
// @Router			/v1/export/xlsx [get]
func GetExportXlsx(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	err := writeSubscriptionSheet(f)
	if err == nil {
		err = writeCategorySheet(f)
	}
	if err == nil {
		err = writeBudgetSheet(f)
	}
	if err == nil {
		err = writeRolloverSheet(f)
	}
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpError{
			Error: err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("subtrackd-export-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(
		http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buffer.Bytes(),
	)
}

func writeSubscriptionSheet(f *excelize.File) error {
	var subscriptions []models.Subscription
	err := models.DB.Preload("Category").Order("name ASC").Find(&subscriptions).Error
	if err != nil {
		return err
	}

	// The default sheet becomes the subscription sheet
	err = f.SetSheetName("Sheet1", "Subscriptions")
	if err != nil {
		return err
	}

	header := []any{"ID", "Name", "Price", "Currency", "Billing Cycle", "Category", "Start Date", "Next Payment", "Active", "Skipped Payments"}
	err = f.SetSheetRow("Subscriptions", "A1", &header)
	if err != nil {
		return err
	}

	for i, subscription := range subscriptions {
		nextPayment := ""
		if subscription.NextPaymentDate != nil {
			nextPayment = subscription.NextPaymentDate.Format("2006-01-02")
		}

		row := []any{
			subscription.ID.String(),
			subscription.Name,
			subscription.Price.InexactFloat64(),
			subscription.Currency,
			string(subscription.BillingCycle),
			subscription.Category.Name,
			subscription.StartDate.Format("2006-01-02"),
			nextPayment,
			subscription.Active,
			subscription.SkippedPayments,
		}

		err = f.SetSheetRow("Subscriptions", fmt.Sprintf("A%d", i+2), &row)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeCategorySheet(f *excelize.File) error {
	var categories []models.Category
	err := models.DB.Order("name ASC").Find(&categories).Error
	if err != nil {
		return err
	}

	_, err = f.NewSheet("Categories")
	if err != nil {
		return err
	}

	header := []any{"ID", "Name", "Note"}
	err = f.SetSheetRow("Categories", "A1", &header)
	if err != nil {
		return err
	}

	for i, category := range categories {
		row := []any{category.ID.String(), category.Name, category.Note}

		err = f.SetSheetRow("Categories", fmt.Sprintf("A%d", i+2), &row)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeBudgetSheet(f *excelize.File) error {
	var budgets []models.Budget
	err := models.DB.Order("created_at ASC").Find(&budgets).Error
	if err != nil {
		return err
	}

	_, err = f.NewSheet("Budgets")
	if err != nil {
		return err
	}

	header := []any{"ID", "Category ID", "Limit", "Threshold"}
	err = f.SetSheetRow("Budgets", "A1", &header)
	if err != nil {
		return err
	}

	for i, budget := range budgets {
		categoryID := ""
		if budget.CategoryID != nil {
			categoryID = budget.CategoryID.String()
		}

		row := []any{
			budget.ID.String(),
			categoryID,
			budget.Limit.InexactFloat64(),
			budget.Threshold.InexactFloat64(),
		}

		err = f.SetSheetRow("Budgets", fmt.Sprintf("A%d", i+2), &row)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeRolloverSheet(f *excelize.File) error {
	var entries []models.RolloverEntry
	err := models.DB.Order("month ASC").Find(&entries).Error
	if err != nil {
		return err
	}

	_, err = f.NewSheet("Rollover")
	if err != nil {
		return err
	}

	header := []any{"Month", "Category ID", "Budget", "Spent", "Unused", "Rollover"}
	err = f.SetSheetRow("Rollover", "A1", &header)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		row := []any{
			entry.Month.String(),
			entry.CategoryID.String(),
			entry.BudgetAmount.InexactFloat64(),
			entry.SpentAmount.InexactFloat64(),
			entry.UnusedAmount.InexactFloat64(),
			entry.RolloverAmount.InexactFloat64(),
		}

		err = f.SetSheetRow("Rollover", fmt.Sprintf("A%d", i+2), &row)
		if err != nil {
			return err
		}
	}

	return nil
}
