package repositories

import (
	"sync"

	"greenbasket/internal/models"
)

// MockCartRecordRepository is an in-memory implementation of CartRecordRepository.
type MockCartRecordRepository struct {
	records map[string]models.CartRecord
	mu      sync.RWMutex
}

// NewMockCartRecordRepository creates a new instance of MockCartRecordRepository.
func NewMockCartRecordRepository() *MockCartRecordRepository {
	return &MockCartRecordRepository{
		records: make(map[string]models.CartRecord),
	}
}

// Load returns the record for a key, or nil if absent.
func (r *MockCartRecordRepository) Load(key string) (*models.CartRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Save upserts a record under its key.
func (r *MockCartRecordRepository) Save(record *models.CartRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.Key] = *record
	return nil
}

// Delete removes a record by key.
func (r *MockCartRecordRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, key)
	return nil
}
