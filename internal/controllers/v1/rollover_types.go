package v1

import (
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/types"
)

// RolloverSettingsEditable represents all user configurable parameters
type RolloverSettingsEditable struct {
	Mode         models.RolloverMode `json:"mode" example:"PERCENTAGE" default:"FULL"` // FULL, PERCENTAGE or FIXED
	Percentage   decimal.Decimal     `json:"percentage" example:"70" default:"100"`    // Share of the unused budget carried forward in PERCENTAGE mode
	MaxAmount    decimal.Decimal     `json:"maxAmount" example:"50" default:"0"`       // Cap on the carry-forward in FIXED mode
	ExpiryMonths int                 `json:"expiryMonths" example:"12" default:"12"`   // Ledger entries older than this are purged, 0 keeps them forever
}

func (editable RolloverSettingsEditable) model() models.RolloverSettings {
	return models.RolloverSettings{
		Mode:         editable.Mode,
		Percentage:   editable.Percentage,
		MaxAmount:    editable.MaxAmount,
		ExpiryMonths: editable.ExpiryMonths,
	}
}

type RolloverSettingsResponse struct {
	Data  *models.RolloverSettings `json:"data"`                                              // The rollover settings
	Error *string                  `json:"error" example:"the rollover percentage must be between 0 and 100"` // The error, if any occurred
}

// RolloverLedger is the ledger of one month: the period header and its
// per-category entries.
type RolloverLedger struct {
	Month     types.Month            `json:"month" example:"2026-07"`  // The month the ledger is for
	Processed bool                   `json:"processed" example:"true"` // Has the month been closed out?
	Total     decimal.Decimal        `json:"total" example:"41.50"`    // Sum of the carry-forward of all entries
	Entries   []models.RolloverEntry `json:"entries"`                  // Per-category ledger entries
}

type RolloverLedgerResponse struct {
	Data  *RolloverLedger `json:"data"`                                                          // The ledger for the requested month
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type RolloverProcessEditable struct {
	Month types.Month `json:"month" example:"2026-07"` // Month to close out, defaults to the previous month
}

// RolloverAvailable is the carry-forward budget that is available right
// now.
type RolloverAvailable struct {
	Available decimal.Decimal `json:"available" example:"83.50"` // Ledger total plus the projection if the current month is still open
	Projected decimal.Decimal `json:"projected" example:"42.00"` // Carry-forward the current month would produce if closed out now
}

type RolloverAvailableResponse struct {
	Data  *RolloverAvailable `json:"data"`                                                               // The available rollover amounts
	Error *string            `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
}
