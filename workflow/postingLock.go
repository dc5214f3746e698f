package workflow

import (
	"fmt"

	"github.com/mmdatafocus/books_ledger/utils"
	"gorm.io/gorm"
)

// AcquireCategoryPostingLocks serializes posting per account category across
// instances using MySQL advisory locks, in ascending id order.
// NOTE: GET_LOCK is connection-scoped, so tx must be the transaction that does the posting.
// Other dialects are serialized by CategoryLocker alone.
func AcquireCategoryPostingLocks(tx *gorm.DB, businessId string, categoryIds []int) (func(), error) {
	if tx.Dialector.Name() != "mysql" {
		return func() {}, nil
	}
	ids := utils.SortedUnique(categoryIds)
	acquired := make([]string, 0, len(ids))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			var _ok int
			_ = tx.Raw("SELECT RELEASE_LOCK(?)", acquired[i]).Scan(&_ok).Error
		}
	}
	for _, id := range ids {
		lockName := fmt.Sprintf("posting:%s:%d", businessId, id)
		var ok int
		if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
			release()
			return nil, err
		}
		if ok != 1 {
			release()
			return nil, fmt.Errorf("could not acquire posting lock for business_id=%s account_category_id=%d", businessId, id)
		}
		acquired = append(acquired, lockName)
	}
	return release, nil
}
