package bookings

import (
	"context"
	"sync"
)

// Repository reads bookings and their customers.
type Repository interface {
	FindByNumber(ctx context.Context, number string) (*Booking, error)
	FindCustomerByBooking(ctx context.Context, bookingID string) (*Customer, error)
}

// InMemoryRepository is a Repository seeded in process, used in development
// and tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	bookings  map[string]Booking
	customers map[string]Customer
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings:  make(map[string]Booking),
		customers: make(map[string]Customer),
	}
}

// Add stores a booking and, when non-nil, its customer.
func (r *InMemoryRepository) Add(b Booking, c *Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.BookingNumber] = b
	if c != nil {
		c.BookingID = b.ID
		r.customers[b.ID] = *c
	}
}

func (r *InMemoryRepository) FindByNumber(ctx context.Context, number string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[number]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (r *InMemoryRepository) FindCustomerByBooking(ctx context.Context, bookingID string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[bookingID]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}
