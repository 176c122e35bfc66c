package reviews

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists review intents.
type Repository interface {
	Insert(ctx context.Context, req *NewReviewIntent) (*ReviewIntent, error)
	MarkCompleted(ctx context.Context, id string, locations []string) (*ReviewIntent, error)
	ListRecent(ctx context.Context, limit int) ([]ReviewIntent, error)
	GetByID(ctx context.Context, id string) (*ReviewIntent, error)
}

// InMemoryRepository keeps intents in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	intents map[string]*ReviewIntent
	order   []string
	now     func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		intents: make(map[string]*ReviewIntent),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, req *NewReviewIntent) (*ReviewIntent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	intent := &ReviewIntent{
		ID:                 uuid.New().String(),
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		Rating:             req.Rating,
		ReviewText:         req.ReviewText,
		CompletedLocations: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	r.mu.Lock()
	r.intents[intent.ID] = intent
	r.order = append(r.order, intent.ID)
	r.mu.Unlock()

	return clone(intent), nil
}

func (r *InMemoryRepository) MarkCompleted(ctx context.Context, id string, locations []string) (*ReviewIntent, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	intent.CompletedLocations = dedupe(locations)
	intent.UpdatedAt = r.now()
	return clone(intent), nil
}

// ListRecent returns up to limit intents, newest first.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]ReviewIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ReviewIntent, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *clone(r.intents[r.order[i]]))
	}
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*ReviewIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intent, ok := r.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(intent), nil
}

func clone(in *ReviewIntent) *ReviewIntent {
	out := *in
	out.CompletedLocations = append([]string{}, in.CompletedLocations...)
	return &out
}
