package repositories

import (
	"fmt"

	"greenbasket/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRecordRepository is a GORM implementation of CartRecordRepository.
type GORMCartRecordRepository struct {
	db *gorm.DB
}

// NewGORMCartRecordRepository creates a new instance of GORMCartRecordRepository.
func NewGORMCartRecordRepository(db *gorm.DB) *GORMCartRecordRepository {
	return &GORMCartRecordRepository{
		db: db,
	}
}

// Load retrieves the cart record for a namespace key. A missing record is
// not an error; callers treat it as an empty cart.
func (r *GORMCartRecordRepository) Load(key string) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := r.db.First(&record, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart record %s: %w", key, err)
	}
	return &record, nil
}

// Save upserts the cart record for its key.
func (r *GORMCartRecordRepository) Save(record *models.CartRecord) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save cart record %s: %w", record.Key, err)
	}
	return nil
}

// Delete removes the cart record for a namespace key. Deleting an absent
// record is a no-op.
func (r *GORMCartRecordRepository) Delete(key string) error {
	if err := r.db.Delete(&models.CartRecord{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete cart record %s: %w", key, err)
	}
	return nil
}
