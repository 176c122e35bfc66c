package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores feedback entries.
type Repository interface {
	Insert(ctx context.Context, req *NewEntry) (*Entry, error)
}

// InMemoryRepository keeps entries in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Insert(ctx context.Context, req *NewEntry) (*Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	entry := Entry{
		ID:             uuid.New().String(),
		BookingNumber:  req.BookingNumber,
		FeedbackOption: req.FeedbackOption,
		Rating:         req.Rating,
		Feedback:       req.Feedback,
		Name:           req.Name,
		Email:          req.Email,
		CreatedAt:      time.Now().UTC(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return &entry, nil
}

// Entries returns a copy of every stored entry in insert order.
func (r *InMemoryRepository) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}
