package repositories

import "greenbasket/internal/models"

// CartRecordRepository defines the interface for durable cart storage. One
// record per namespace key; the value is the serialized item list. Load
// returns (nil, nil) when no record exists for the key.
type CartRecordRepository interface {
	Load(key string) (*models.CartRecord, error)
	Save(record *models.CartRecord) error
	Delete(key string) error
}
