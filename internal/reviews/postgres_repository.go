package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var reviewsTracer = otel.Tracer("reviewfunnel.internal.reviews")

type reviewsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores intents in google_review_intents.
type PostgresRepository struct {
	db reviewsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("reviews: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db reviewsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const intentColumns = `id::text, customer_name, customer_email, rating, review_text, completed_locations, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, req *NewReviewIntent) (*ReviewIntent, error) {
	ctx, span := reviewsTracer.Start(ctx, "reviews.insert")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO google_review_intents (customer_name, customer_email, rating, review_text, completed_locations)
		VALUES ($1, $2, $3, $4, '{}')
		RETURNING ` + intentColumns
	intent, err := scanIntent(r.db.QueryRow(ctx, query,
		req.CustomerName,
		req.CustomerEmail,
		req.Rating,
		req.ReviewText,
	))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reviews: insert failed: %w", err)
	}
	span.SetAttributes(attribute.String("reviewfunnel.intent_id", intent.ID))
	return intent, nil
}

// MarkCompleted replaces the completed set on the row with the given id.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, locations []string) (*ReviewIntent, error) {
	ctx, span := reviewsTracer.Start(ctx, "reviews.mark_completed")
	defer span.End()
	span.SetAttributes(
		attribute.String("reviewfunnel.intent_id", id),
		attribute.Int("reviewfunnel.completed_count", len(locations)),
	)

	if id == "" {
		return nil, ErrMissingID
	}

	query := `
		UPDATE google_review_intents
		SET completed_locations = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + intentColumns
	intent, err := scanIntent(r.db.QueryRow(ctx, query, id, dedupe(locations)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("reviews: update failed: %w", err)
	}
	return intent, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]ReviewIntent, error) {
	ctx, span := reviewsTracer.Start(ctx, "reviews.list_recent")
	defer span.End()

	query := `
		SELECT ` + intentColumns + `
		FROM google_review_intents
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reviews: list failed: %w", err)
	}
	defer rows.Close()

	var out []ReviewIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("reviews: scan failed: %w", err)
		}
		out = append(out, *intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reviews: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*ReviewIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM google_review_intents WHERE id = $1`
	intent, err := scanIntent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reviews: select failed: %w", err)
	}
	return intent, nil
}

func scanIntent(row pgx.Row) (*ReviewIntent, error) {
	var intent ReviewIntent
	if err := row.Scan(
		&intent.ID,
		&intent.CustomerName,
		&intent.CustomerEmail,
		&intent.Rating,
		&intent.ReviewText,
		&intent.CompletedLocations,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if intent.CompletedLocations == nil {
		intent.CompletedLocations = []string{}
	}
	return &intent, nil
}
