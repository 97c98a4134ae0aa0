package cart

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/internal/storage"
	"github.com/pmendes/restaurante-client/pkg/models"
)

const storageKey = "cart_lines"

// Store holds the in-progress cart: an ordered sequence of lines with at
// most one line per product id. Every mutation persists a full snapshot to
// durable storage; construction restores the previous snapshot.
type Store struct {
	mutex   sync.RWMutex
	lines   []models.CartLine
	storage storage.Store
	logger  *logrus.Logger
}

func NewStore(store storage.Store, logger *logrus.Logger) *Store {
	s := &Store{
		storage: store,
		logger:  logger,
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	snapshot, err := s.storage.Get(storageKey)
	if err != nil {
		if err != storage.ErrNotFound {
			s.logger.WithError(err).Warn("Failed to read cart snapshot, starting empty")
		}
		return
	}

	var lines []models.CartLine
	if err := json.Unmarshal([]byte(snapshot), &lines); err != nil {
		s.logger.WithError(err).Warn("Discarding corrupt cart snapshot")
		if err := s.storage.Delete(storageKey); err != nil {
			s.logger.WithError(err).Warn("Failed to purge corrupt cart snapshot")
		}
		return
	}

	s.lines = lines
}

// AddItem merges into an existing line for the same product or appends a
// new one. Callers pass quantity >= 1.
func (s *Store) AddItem(product models.Product, quantity int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.lines {
		if s.lines[i].Product.ID == product.ID {
			s.lines[i].Quantity += quantity
			s.persist()
			return
		}
	}

	s.lines = append(s.lines, models.CartLine{Product: product, Quantity: quantity})
	s.persist()
}

// RemoveItem drops the line for the product id, if present.
func (s *Store) RemoveItem(productID int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.removeLocked(productID)
	s.persist()
}

// UpdateQuantity replaces the quantity of an existing line. A quantity of
// zero or less removes the line, same as RemoveItem.
func (s *Store) UpdateQuantity(productID, quantity int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		s.persist()
		return
	}

	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			s.lines[i].Quantity = quantity
			break
		}
	}
	s.persist()
}

// Clear empties the cart, typically after a successful order submission.
func (s *Store) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lines = nil
	s.persist()
}

func (s *Store) removeLocked(productID int) {
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.Product.ID != productID {
			kept = append(kept, line)
		}
	}
	s.lines = kept
}

// Lines returns a copy of the current cart lines in insertion order.
func (s *Store) Lines() []models.CartLine {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	lines := make([]models.CartLine, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Total is the sum of price times quantity over all lines, recomputed on
// every call.
func (s *Store) Total() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var total float64
	for _, line := range s.lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// persist writes the full cart snapshot. A write failure is logged, not
// surfaced; the in-memory cart stays authoritative for the session.
func (s *Store) persist() {
	snapshot, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal cart snapshot")
		return
	}
	if err := s.storage.Set(storageKey, string(snapshot)); err != nil {
		s.logger.WithError(err).Warn("Failed to persist cart snapshot")
	}
}
