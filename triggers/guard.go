package triggers

import (
	"errors"

	"refmart/distribution"
	"refmart/models"

	"gorm.io/gorm"
)

// ErrAlreadyProcessed reports an idempotency collision. It is a signal, not
// a failure: the caller gets Processed=false and zero new credits.
var ErrAlreadyProcessed = errors.New("trigger already processed")

// claim inserts the at-most-once record for this (account, trigger, source).
// The composite unique index makes the insert the gate: it either lands in
// the same commit as every credit it guards, or the duplicate key aborts the
// whole run before any credit happens.
func claim(tx *gorm.DB, accountID uint, trigger models.TriggerKind, src distribution.Source) error {
	rec := models.DistributionRecord{
		AccountID:  accountID,
		Trigger:    trigger,
		SourceType: src.Type,
		SourceID:   src.ID,
	}
	if err := tx.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyProcessed
		}
		return err
	}
	return nil
}
