package models

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ReservedCategory is the name of the category that can neither be
// renamed nor deleted. Subscriptions fall back to it when their own
// category is removed, so the category set never becomes empty.
const ReservedCategory = "other"

// defaultCategories is the category set seeded on first start.
var defaultCategories = []string{"streaming", "software", "utilities", "health", ReservedCategory}

// Category groups subscriptions for budgets and spend breakdowns.
type Category struct {
	DefaultModel
	Name string `gorm:"uniqueIndex:category_name"`
	Note string
}

var (
	ErrCategoryNameNotUnique = errors.New("the category name is already in use")
	ErrCategoryNameEmpty     = errors.New("category names must not be empty")
	ErrCategoryReserved      = errors.New("the reserved category cannot be renamed or deleted")
)

func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Note = strings.TrimSpace(c.Note)

	if c.Name == "" {
		return ErrCategoryNameEmpty
	}

	return nil
}

func (c *Category) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("Name") && c.Name == ReservedCategory {
		return ErrCategoryReserved
	}

	return nil
}

// BeforeDelete reassigns the subscriptions of the category to the
// reserved category and removes the budget configured for it. The
// reserved category itself cannot be deleted.
func (c *Category) BeforeDelete(tx *gorm.DB) error {
	if c.Name == ReservedCategory {
		return ErrCategoryReserved
	}

	fallback, err := reservedCategory(tx)
	if err != nil {
		return err
	}

	err = tx.Model(&Subscription{}).
		Where("category_id = ?", c.ID).
		Update("category_id", fallback.ID).Error
	if err != nil {
		return err
	}

	return tx.Where("category_id = ?", c.ID).Delete(&Budget{}).Error
}

// reservedCategory returns the reserved fallback category.
func reservedCategory(db *gorm.DB) (Category, error) {
	var category Category
	err := db.Where(&Category{Name: ReservedCategory}).First(&category).Error
	return category, err
}

// Subscriptions returns all subscriptions assigned to the category.
func (c Category) Subscriptions(db *gorm.DB) ([]Subscription, error) {
	var subscriptions []Subscription

	err := db.Where(&Subscription{CategoryID: c.ID}).Order("name ASC").Find(&subscriptions).Error
	return subscriptions, err
}

// Export returns all categories for export.
func (Category) Export() (json.RawMessage, error) {
	var categories []Category
	err := DB.Find(&categories).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&categories)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
