package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"greenbasket/internal/models"
	"greenbasket/internal/repositories"
)

// cartNamespace prefixes every durable cart record key.
const cartNamespace = "greenbasket:cart:"

// CartStore is the single source of truth for one client's cart. Mutations
// are synchronous and complete before returning; every mutation persists the
// new state through the record repository before notifying subscribers, so
// storage never observes a state older than the last mutation. Totals are
// always recomputed from the item mapping, never cached.
type CartStore struct {
	key         string
	items       map[string]*models.CartItem
	order       []string // product IDs in insertion order
	repo        repositories.CartRecordRepository
	subscribers []func(models.CartSnapshot)
	mu          sync.Mutex
}

// NewCartStore creates a cart store for one owner, loading any persisted
// state. A missing or corrupt record initializes an empty cart; loading
// never fails.
func NewCartStore(ownerID string, repo repositories.CartRecordRepository) *CartStore {
	s := &CartStore{
		key:   cartNamespace + ownerID,
		items: make(map[string]*models.CartItem),
		repo:  repo,
	}
	s.load()
	return s
}

func (s *CartStore) load() {
	record, err := s.repo.Load(s.key)
	if err != nil {
		log.Printf("Failed to load cart record %s, starting empty: %v", s.key, err)
		return
	}
	if record == nil {
		return
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(record.Value), &items); err != nil {
		log.Printf("Corrupt cart record %s, starting empty: %v", s.key, err)
		return
	}
	for i := range items {
		if items[i].Quantity < 1 {
			continue
		}
		item := items[i]
		s.items[item.ProductID] = &item
		s.order = append(s.order, item.ProductID)
	}
}

// AddItem inserts the product with quantity 1, or increments its quantity if
// it is already in the cart. Repeated calls accumulate quantity.
func (s *CartStore) AddItem(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[product.ID]; ok {
		item.Quantity++
	} else {
		s.items[product.ID] = &models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  1,
		}
		s.order = append(s.order, product.ID)
	}
	s.commit()
}

// UpdateQuantity sets an item's quantity. A quantity of zero or less removes
// the item entirely; an absent product ID is a no-op.
func (s *CartStore) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[productID]
	if !ok {
		return
	}
	if quantity <= 0 {
		s.remove(productID)
	} else {
		item.Quantity = quantity
	}
	s.commit()
}

// RemoveItem deletes an item from the cart; absent IDs are a no-op.
func (s *CartStore) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[productID]; !ok {
		return
	}
	s.remove(productID)
	s.commit()
}

// Clear empties the cart. Called by the checkout flow only after a verified
// successful payment.
func (s *CartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*models.CartItem)
	s.order = nil
	s.commit()
}

// remove drops an entry from both the mapping and the insertion order.
// Caller holds the lock.
func (s *CartStore) remove(productID string) {
	delete(s.items, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// commit persists the current state and then notifies subscribers. Caller
// holds the lock.
func (s *CartStore) commit() {
	snapshot := s.snapshot()

	value, err := json.Marshal(snapshot.Items)
	if err != nil {
		log.Printf("Failed to serialize cart %s: %v", s.key, err)
	} else if err := s.repo.Save(&models.CartRecord{Key: s.key, Value: string(value)}); err != nil {
		log.Printf("Failed to persist cart %s: %v", s.key, err)
	}

	for _, notify := range s.subscribers {
		notify(snapshot)
	}
}

// snapshot builds a read-only view with totals recomputed from the mapping.
// Caller holds the lock.
func (s *CartStore) snapshot() models.CartSnapshot {
	snap := models.CartSnapshot{Items: make([]models.CartItem, 0, len(s.order))}
	for _, id := range s.order {
		item := s.items[id]
		snap.Items = append(snap.Items, *item)
		snap.TotalItems += item.Quantity
		snap.TotalPrice += item.Price * item.Quantity
	}
	return snap
}

// Snapshot returns the current items in insertion order with derived totals.
func (s *CartStore) Snapshot() models.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// TotalItems returns the sum of quantities over all items.
func (s *CartStore) TotalItems() int {
	return s.Snapshot().TotalItems
}

// TotalPrice returns the sum of price × quantity over all items, in rupees.
func (s *CartStore) TotalPrice() int {
	return s.Snapshot().TotalPrice
}

// Subscribe registers a function called with a fresh snapshot after every
// mutation. Subscribers run synchronously on the mutating goroutine.
func (s *CartStore) Subscribe(fn func(models.CartSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// CartManager hands out one CartStore per owner, creating it on first use so
// persisted state is picked up lazily.
type CartManager struct {
	repo   repositories.CartRecordRepository
	stores map[string]*CartStore
	mu     sync.Mutex
}

// NewCartManager creates a new CartManager over a cart record repository.
func NewCartManager(repo repositories.CartRecordRepository) *CartManager {
	return &CartManager{
		repo:   repo,
		stores: make(map[string]*CartStore),
	}
}

// Store returns the cart store for an owner, creating and loading it if
// needed.
func (m *CartManager) Store(ownerID string) (*CartStore, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("cart owner ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[ownerID]; ok {
		return store, nil
	}
	store := NewCartStore(ownerID, m.repo)
	m.stores[ownerID] = store
	return store, nil
}
