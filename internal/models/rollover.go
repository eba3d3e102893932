package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/types"
	"gorm.io/gorm"
)

// RolloverMode selects how much of the unused budget of a month is
// carried forward.
//
// swagger:enum RolloverMode
type RolloverMode string

const (
	RolloverFull       RolloverMode = "FULL"       // carry the full unused amount
	RolloverPercentage RolloverMode = "PERCENTAGE" // carry a percentage of the unused amount
	RolloverFixed      RolloverMode = "FIXED"      // carry the unused amount up to a fixed cap
)

// RolloverSettings configures the rollover engine. There is exactly one
// row, managed through GetRolloverSettings.
type RolloverSettings struct {
	Timestamps
	ID           uint            `gorm:"primaryKey"`
	Mode         RolloverMode
	Percentage   decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Share carried forward in PERCENTAGE mode
	MaxAmount    decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Cap in FIXED mode
	ExpiryMonths int             // Ledger entries older than this are purged, 0 keeps them forever
}

var (
	ErrRolloverModeInvalid       = errors.New("the specified rollover mode is invalid")
	ErrRolloverPercentageInvalid = errors.New("the rollover percentage must be between 0 and 100")
	ErrRolloverMaxAmountNegative = errors.New("the rollover cap must be zero or positive")
	ErrRolloverExpiryNegative    = errors.New("the rollover expiry must be zero or a positive number of months")
	ErrRolloverEntryNotUnique    = errors.New("there already is a rollover ledger entry for this category and month")
)

func (s RolloverSettings) validate() error {
	switch s.Mode {
	case RolloverFull, RolloverPercentage, RolloverFixed, "":
	default:
		return ErrRolloverModeInvalid
	}

	if s.Percentage.IsNegative() || s.Percentage.GreaterThan(oneHundred) {
		return ErrRolloverPercentageInvalid
	}

	if s.MaxAmount.IsNegative() {
		return ErrRolloverMaxAmountNegative
	}

	if s.ExpiryMonths < 0 {
		return ErrRolloverExpiryNegative
	}

	return nil
}

func (s *RolloverSettings) BeforeSave(_ *gorm.DB) error {
	if s.Mode == "" {
		s.Mode = RolloverFull
	}

	return s.validate()
}

// BeforeUpdate validates the incoming values. Partial updates pass them
// as the statement destination, the receiver still holds the stored
// state.
func (s *RolloverSettings) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(RolloverSettings)
	if !ok {
		return nil
	}

	return toSave.validate()
}

// GetRolloverSettings returns the settings singleton, creating it with
// defaults on first use: full rollover, entries kept for a year.
func GetRolloverSettings(db *gorm.DB) (RolloverSettings, error) {
	settings := RolloverSettings{
		ID:           1,
		Mode:         RolloverFull,
		Percentage:   oneHundred,
		ExpiryMonths: 12,
	}

	err := db.Where(RolloverSettings{ID: 1}).Attrs(settings).FirstOrCreate(&settings).Error
	return settings, err
}

// Amount returns the carry-forward for an unused budget amount under
// the configured mode.
func (s RolloverSettings) Amount(unused decimal.Decimal) decimal.Decimal {
	switch s.Mode {
	case RolloverPercentage:
		return unused.Mul(s.Percentage).Div(oneHundred)
	case RolloverFixed:
		return decimal.Min(unused, s.MaxAmount)
	default:
		return unused
	}
}

// RolloverPeriod is the ledger header for one closed-out month. The
// Processed flag is the idempotence guard: the close-out trigger may
// fire any number of times, the ledger is written at most once.
type RolloverPeriod struct {
	Timestamps
	Month     types.Month     `gorm:"primaryKey"`
	Total     decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Sum of the rollover amounts of all entries
	Processed bool
}

// RolloverEntry is the ledger line for one category in one month.
type RolloverEntry struct {
	Timestamps
	Month          types.Month     `gorm:"primaryKey"`
	CategoryID     uuid.UUID       `gorm:"primaryKey"`
	BudgetAmount   decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	SpentAmount    decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	UnusedAmount   decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	RolloverAmount decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

// ProcessRollover closes out a month: for every category budget it
// writes one ledger entry with the unused budget and the carry-forward
// under the settings' mode, plus the period header. Re-invocations for
// an already processed month are no-ops, expired entries are purged
// afterwards.
//
// spentByCategory is the monthly-equivalent spend per category. The
// tracker keeps no historical per-month spend, so the caller passes the
// current snapshot as a stand-in for the completed month.
//
// Without category budgets nothing is computed and no period is
// written; that is a valid state, not an error.
func ProcessRollover(db *gorm.DB, month types.Month, spentByCategory map[uuid.UUID]decimal.Decimal, settings RolloverSettings) (RolloverPeriod, error) {
	var existing RolloverPeriod
	err := db.Where("month = ?", month).First(&existing).Error
	if err == nil && existing.Processed {
		return existing, nil
	}
	if err != nil && !errors.Is(err, ErrResourceNotFound) {
		return RolloverPeriod{}, err
	}

	budgets, err := CategoryBudgets(db)
	if err != nil {
		return RolloverPeriod{}, err
	}

	if len(budgets) == 0 {
		return RolloverPeriod{}, nil
	}

	period := RolloverPeriod{Month: month, Processed: true}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, budget := range budgets {
			spent := spentByCategory[*budget.CategoryID]
			unused := decimal.Max(decimal.Zero, budget.Limit.Sub(spent))
			rollover := settings.Amount(unused)

			entry := RolloverEntry{
				Month:          month,
				CategoryID:     *budget.CategoryID,
				BudgetAmount:   budget.Limit,
				SpentAmount:    spent,
				UnusedAmount:   unused,
				RolloverAmount: rollover,
			}

			if err := tx.Create(&entry).Error; err != nil {
				return err
			}

			period.Total = period.Total.Add(rollover)
		}

		return tx.Create(&period).Error
	})
	if err != nil {
		return RolloverPeriod{}, err
	}

	if err := PurgeExpiredRollovers(db, month, settings); err != nil {
		return RolloverPeriod{}, err
	}

	return period, nil
}

// PurgeExpiredRollovers removes ledger entries older than the expiry
// window, counted back from the reference month. An expiry of 0 months
// means "never purge".
func PurgeExpiredRollovers(db *gorm.DB, reference types.Month, settings RolloverSettings) error {
	if settings.ExpiryMonths <= 0 {
		return nil
	}

	cutoff := reference.AddDate(0, -settings.ExpiryMonths)

	err := db.Where("month < ?", cutoff).Delete(&RolloverEntry{}).Error
	if err != nil {
		return err
	}

	return db.Where("month < ?", cutoff).Delete(&RolloverPeriod{}).Error
}

// ProjectedRollover computes the carry-forward the current month would
// produce if it were closed out now. It is computed on demand and never
// persisted, so a live preview can be shown before month-end.
func ProjectedRollover(budgets []Budget, spentByCategory map[uuid.UUID]decimal.Decimal, settings RolloverSettings) decimal.Decimal {
	projected := decimal.Zero

	for _, budget := range budgets {
		if budget.CategoryID == nil {
			continue
		}

		spent := spentByCategory[*budget.CategoryID]
		unused := decimal.Max(decimal.Zero, budget.Limit.Sub(spent))
		projected = projected.Add(settings.Amount(unused))
	}

	return projected
}

// AvailableRollover sums the carry-forward of all non-expired ledger
// periods and adds the current month's uncommitted projection. When the
// current month has already been closed out, its ledger total already
// counts and the projection is skipped.
func AvailableRollover(db *gorm.DB, now time.Time, projected decimal.Decimal, settings RolloverSettings) (decimal.Decimal, error) {
	current := types.MonthOf(now.UTC())

	query := db.Model(&RolloverPeriod{}).Where("processed = ?", true)
	if settings.ExpiryMonths > 0 {
		query = query.Where("month >= ?", current.AddDate(0, -settings.ExpiryMonths))
	}

	var sum decimal.NullDecimal
	err := query.Select("SUM(total)").Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	available := sum.Decimal

	var processedNow int64
	err = db.Model(&RolloverPeriod{}).Where("month = ? AND processed = ?", current, true).Count(&processedNow).Error
	if err != nil {
		return decimal.Zero, err
	}

	if processedNow == 0 {
		available = available.Add(projected)
	}

	return available, nil
}

// RolloverEntries returns the ledger entries for a month.
func RolloverEntries(db *gorm.DB, month types.Month) ([]RolloverEntry, error) {
	var entries []RolloverEntry

	err := db.Where("month = ?", month).Find(&entries).Error
	return entries, err
}

// SpendHistory returns the spend recorded in the ledger, bucketed by
// month. The ledger doubles as the only per-month spend history the
// tracker has, trend calculations build on it.
func SpendHistory(db *gorm.DB) (map[string]decimal.Decimal, error) {
	var entries []RolloverEntry
	err := db.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	history := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		key := entry.Month.String()
		history[key] = history[key].Add(entry.SpentAmount)
	}

	return history, nil
}

// Export returns all rollover ledger periods for export.
func (RolloverPeriod) Export() (json.RawMessage, error) {
	var periods []RolloverPeriod
	err := DB.Find(&periods).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&periods)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}

// Export returns all rollover ledger entries for export.
func (RolloverEntry) Export() (json.RawMessage, error) {
	var entries []RolloverEntry
	err := DB.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&entries)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}

// Export returns the rollover settings for export.
func (RolloverSettings) Export() (json.RawMessage, error) {
	var settings []RolloverSettings
	err := DB.Find(&settings).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&settings)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
