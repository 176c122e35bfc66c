package feedback

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
)

var feedbackTracer = otel.Tracer("reviewfunnel.internal.feedback")

type feedbackDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores entries in the feedback table.
type PostgresRepository struct {
	db feedbackDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("feedback: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db feedbackDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, req *NewEntry) (*Entry, error) {
	ctx, span := feedbackTracer.Start(ctx, "feedback.insert")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO feedback (booking_number, feedback_option, rating, feedback, name, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at
	`
	entry := Entry{
		BookingNumber:  req.BookingNumber,
		FeedbackOption: req.FeedbackOption,
		Rating:         req.Rating,
		Feedback:       req.Feedback,
		Name:           req.Name,
		Email:          req.Email,
	}
	if err := r.db.QueryRow(ctx, query,
		req.BookingNumber,
		req.FeedbackOption,
		req.Rating,
		req.Feedback,
		req.Name,
		req.Email,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("feedback: insert failed: %w", err)
	}
	return &entry, nil
}
