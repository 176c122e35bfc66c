package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type bookingsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads the bookings and customers tables.
type PostgresRepository struct {
	db bookingsDB
}

// NewPostgresRepository creates a repository backed by pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db bookingsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByNumber(ctx context.Context, number string) (*Booking, error) {
	query := `
		SELECT id::text, booking_number, COALESCE(customer_id::text, ''), COALESCE(service_type, ''), COALESCE(status, '')
		FROM bookings
		WHERE booking_number = $1
		LIMIT 1
	`
	var b Booking
	if err := r.db.QueryRow(ctx, query, number).Scan(
		&b.ID,
		&b.BookingNumber,
		&b.CustomerID,
		&b.ServiceType,
		&b.Status,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: load by number: %w", err)
	}
	return &b, nil
}

func (r *PostgresRepository) FindCustomerByBooking(ctx context.Context, bookingID string) (*Customer, error) {
	query := `
		SELECT id::text, booking_id::text, first_name, last_name, COALESCE(email, ''), COALESCE(phone, '')
		FROM customers
		WHERE booking_id = $1
		LIMIT 1
	`
	var c Customer
	if err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&c.ID,
		&c.BookingID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("bookings: load customer: %w", err)
	}
	return &c, nil
}
