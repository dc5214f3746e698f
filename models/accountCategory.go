package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/utils"
	"gorm.io/gorm"
)

// AccountCategory is a named ledger account belonging to one chart category.
// Rows are reference data for the ledger: a posting never changes them.
type AccountCategory struct {
	ID            int           `gorm:"primary_key" json:"id"`
	BusinessId    string        `gorm:"index;size:64;not null" json:"business_id"`
	Name          string        `gorm:"size:100;not null" json:"name" validate:"required"`
	CategoryCode  string        `gorm:"size:50" json:"category_code"`
	ChartCategory ChartCategory `gorm:"size:40;index;not null" json:"chart_category" validate:"required"`
	SystemCode    string        `gorm:"size:50;index" json:"system_code"`
	BankAccountId *int          `gorm:"index" json:"bank_account_id"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func accountCategoryCacheKey(businessId string, id int) string {
	return fmt.Sprintf("AccountCategory:%s:%d", businessId, id)
}

func CreateAccountCategory(ctx context.Context, db *gorm.DB, category *AccountCategory) error {
	if err := utils.ValidateStruct(category); err != nil {
		return err
	}
	if !category.ChartCategory.IsValid() {
		return utils.NewValidationError("ChartCategory", "unknown chart category %q", category.ChartCategory)
	}
	if err := db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	if category.SystemCode != "" {
		return config.RemoveRedisKey("SystemAccountCategories:" + category.BusinessId)
	}
	return nil
}

func GetAccountCategory(ctx context.Context, db *gorm.DB, businessId string, id int) (*AccountCategory, error) {
	var category AccountCategory
	exists, err := config.GetRedisObject(accountCategoryCacheKey(businessId, id), &category)
	if err != nil {
		return nil, err
	}
	if exists {
		return &category, nil
	}
	err = db.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if err := config.SetRedisObject(accountCategoryCacheKey(businessId, id), &category, 0); err != nil {
		return nil, err
	}
	return &category, nil
}

// GetAccountCategories loads every id in ids; a missing id is ErrorRecordNotFound.
func GetAccountCategories(ctx context.Context, db *gorm.DB, businessId string, ids []int) (map[int]*AccountCategory, error) {
	ids = utils.SortedUnique(ids)
	var categories []*AccountCategory
	if err := db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessId, ids).
		Find(&categories).Error; err != nil {
		return nil, err
	}
	result := make(map[int]*AccountCategory, len(categories))
	for _, c := range categories {
		result[c.ID] = c
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, fmt.Errorf("account category %d: %w", id, utils.ErrorRecordNotFound)
		}
	}
	return result, nil
}

// GetSystemAccountCategories maps system code -> category id for a business.
func GetSystemAccountCategories(ctx context.Context, db *gorm.DB, businessId string) (map[string]int, error) {
	var sysCategories map[string]int

	exists, err := config.GetRedisObject("SystemAccountCategories:"+businessId, &sysCategories)
	if err != nil {
		return nil, err
	}
	if !exists {
		var categories []*AccountCategory
		if err := db.WithContext(ctx).Select("id", "system_code").
			Where("business_id = ? AND system_code <> ''", businessId).
			Find(&categories).Error; err != nil {
			return nil, err
		}
		sysCategories = make(map[string]int)
		for _, c := range categories {
			sysCategories[c.SystemCode] = c.ID
		}
		if err := config.SetRedisObject("SystemAccountCategories:"+businessId, &sysCategories, 0); err != nil {
			return nil, err
		}
	}
	return sysCategories, nil
}

func GetSystemAccountCategoryId(ctx context.Context, db *gorm.DB, businessId string, systemCode string) (int, error) {
	sysCategories, err := GetSystemAccountCategories(ctx, db, businessId)
	if err != nil {
		return 0, err
	}
	id, ok := sysCategories[systemCode]
	if !ok || id == 0 {
		return 0, fmt.Errorf("system account category %s: %w", systemCode, utils.ErrorRecordNotFound)
	}
	return id, nil
}
