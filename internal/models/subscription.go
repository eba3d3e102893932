package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subtrackd/backend/internal/billing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Subscription is one tracked recurring payment.
type Subscription struct {
	DefaultModel
	Name            string
	Price           decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Amount charged per billing cycle
	Currency        string          // ISO 4217 code, empty means the base currency
	Category        Category        `json:"-"`
	CategoryID      uuid.UUID
	BillingCycle    billing.Cycle
	StartDate       time.Time
	NextPaymentDate *time.Time // Date of the next charge, nil only transiently
	Active          bool       // false means paused or lapsed
	PausedAt        *time.Time // Set when the subscription was paused
	SkippedPayments uint       // Number of payments skipped over the lifetime
}

var (
	ErrSubscriptionNameEmpty    = errors.New("subscription names must not be empty")
	ErrSubscriptionPriceInvalid = errors.New("subscription prices must be zero or positive")
	ErrBillingCycleInvalid      = errors.New("the specified billing cycle is invalid")
)

func (s *Subscription) BeforeSave(_ *gorm.DB) error {
	s.Name = strings.TrimSpace(s.Name)

	if s.Name == "" {
		return ErrSubscriptionNameEmpty
	}

	if s.Price.IsNegative() {
		return ErrSubscriptionPriceInvalid
	}

	if s.BillingCycle == "" {
		s.BillingCycle = billing.Monthly
	}

	if !s.BillingCycle.Valid() {
		return ErrBillingCycleInvalid
	}

	return nil
}

// BeforeCreate fills the fields a client may omit: the category falls
// back to the reserved category, the start date to the current time and
// the next payment date to one billing cycle after the start date.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	_ = s.DefaultModel.BeforeCreate(tx)

	if s.CategoryID == uuid.Nil {
		fallback, err := reservedCategory(tx)
		if err != nil {
			return err
		}
		s.CategoryID = fallback.ID
	} else {
		// Referencing an unknown category is a stale reference
		err := tx.First(&Category{}, s.CategoryID).Error
		if err != nil {
			return err
		}
	}

	if s.StartDate.IsZero() {
		s.StartDate = time.Now().UTC()
	}

	if s.NextPaymentDate == nil {
		next := billing.NextPaymentDate(s.StartDate, s.BillingCycle)
		s.NextPaymentDate = &next
	}

	return nil
}

// BeforeUpdate validates the incoming values. Partial updates through
// the API pass a Subscription value as destination, the receiver still
// holds the stored state. Full saves from the lifecycle operations pass
// a pointer and have nothing to re-validate.
func (s *Subscription) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Subscription)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("Name") && strings.TrimSpace(toSave.Name) == "" {
		return ErrSubscriptionNameEmpty
	}

	if toSave.Price.IsNegative() {
		return ErrSubscriptionPriceInvalid
	}

	if toSave.BillingCycle != "" && !toSave.BillingCycle.Valid() {
		return ErrBillingCycleInvalid
	}

	if tx.Statement.Changed("CategoryID") {
		return tx.First(&Category{}, toSave.CategoryID).Error
	}

	return nil
}

// Pause stops the subscription. The paused timestamp is kept so that a
// later resume can credit the paused time to the next payment date.
// Pausing an already paused subscription is a no-op.
func (s *Subscription) Pause(db *gorm.DB, now time.Time) error {
	if !s.Active {
		return nil
	}

	pausedAt := now.UTC()
	s.Active = false
	s.PausedAt = &pausedAt

	return s.save(db)
}

// Resume reactivates a paused subscription. The next payment date is
// advanced by the number of full days the subscription was paused, so
// paused time does not count against the user. The shift is a linear
// day shift on purpose, it is not calendar month arithmetic.
// Resuming an active subscription is a no-op.
func (s *Subscription) Resume(db *gorm.DB, now time.Time) error {
	if s.Active {
		return nil
	}

	if s.PausedAt != nil && s.NextPaymentDate != nil {
		daysPaused := int(now.Sub(*s.PausedAt) / (24 * time.Hour))
		if daysPaused > 0 {
			next := s.NextPaymentDate.AddDate(0, 0, daysPaused)
			s.NextPaymentDate = &next
		}
	}

	s.Active = true
	s.PausedAt = nil

	return s.save(db)
}

// SkipNextPayment advances the next payment date by one full billing
// cycle and counts the skip. It is a no-op for paused subscriptions and
// for subscriptions without a next payment date.
func (s *Subscription) SkipNextPayment(db *gorm.DB) error {
	if !s.Active || s.NextPaymentDate == nil {
		return nil
	}

	next := billing.NextPaymentDate(*s.NextPaymentDate, s.BillingCycle)
	s.NextPaymentDate = &next
	s.SkippedPayments++

	return s.save(db)
}

// Reactivate marks the subscription as active without touching the next
// payment date. It is meant for subscriptions that lapsed through
// expiry detection rather than an explicit pause; a stale payment date
// has to be corrected separately. Safe to call repeatedly.
func (s *Subscription) Reactivate(db *gorm.DB) error {
	if s.Active {
		return nil
	}

	s.Active = true

	return s.save(db)
}

// save persists a lifecycle mutation. The preloaded category must not
// be written back, saving the association would upsert it.
func (s *Subscription) save(db *gorm.DB) error {
	return db.Omit(clause.Associations).Save(s).Error
}

// ActiveSubscriptions returns the snapshot of active subscriptions that
// the aggregation and rollover calculations work on. Categories are
// preloaded for the name-keyed breakdowns.
func ActiveSubscriptions(db *gorm.DB) ([]Subscription, error) {
	var subscriptions []Subscription

	err := db.Preload("Category").
		Where(&Subscription{Active: true}, "Active").
		Order("name ASC").
		Find(&subscriptions).Error
	return subscriptions, err
}

// ExpiringSubscriptions returns the active subscriptions whose next
// payment falls within the horizon. Notification senders consume this
// query, the models never notify anything themselves.
func ExpiringSubscriptions(db *gorm.DB, now time.Time, horizonDays int) ([]Subscription, error) {
	cutoff := now.AddDate(0, 0, horizonDays)

	var subscriptions []Subscription
	err := db.Preload("Category").
		Where("active = ? AND next_payment_date IS NOT NULL AND next_payment_date >= ? AND next_payment_date <= ?", true, now, cutoff).
		Order("next_payment_date ASC").
		Find(&subscriptions).Error
	return subscriptions, err
}

// Export returns all subscriptions for export.
func (Subscription) Export() (json.RawMessage, error) {
	var subscriptions []Subscription
	err := DB.Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&subscriptions)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
