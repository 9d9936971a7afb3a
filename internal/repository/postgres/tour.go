package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/repository"
	"github.com/utafrali/TourGo/pkg/database"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
)

// SQLSTATE foreign_key_violation.
const fkViolation = "23503"

const tourColumns = `id, title, city, address, distance_km, price, max_group_size, description, photo, featured`

const insertReviewQuery = `
	INSERT INTO tour_reviews (tour_id, username, rating, content, created_at)
	VALUES ($1, $2, $3, $4, $5)`

// TourRepository implements repository.TourRepository and
// repository.ReviewStore using PostgreSQL.
type TourRepository struct {
	pool database.DBTX
}

// NewTourRepository creates a new PostgreSQL-backed tour repository.
func NewTourRepository(pool database.DBTX) *TourRepository {
	return &TourRepository{pool: pool}
}

// GetByID returns a tour together with its reviews in submission order.
func (r *TourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`

	ctx = database.WithOperation(ctx, "GetTour")

	var t domain.Tour
	if err := scanTour(r.pool.QueryRow(ctx, query, id), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tour", id)
		}
		return nil, fmt.Errorf("scan tour: %w", err)
	}

	reviews, err := r.loadReviews(ctx, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Reviews = reviews[t.ID]
	if t.Reviews == nil {
		t.Reviews = domain.Collection{}
	}

	return &t, nil
}

// List returns a page of tours ordered by title, each with its reviews.
func (r *TourRepository) List(ctx context.Context, filter repository.TourFilter) ([]domain.Tour, int, error) {
	page := filter.Params()

	query := `
		SELECT ` + tourColumns + `, count(*) OVER() AS total_count
		FROM tours
		WHERE ($1 = FALSE OR featured)
		ORDER BY title, id
		LIMIT $2 OFFSET $3`

	ctx = database.WithOperation(ctx, "ListTours")

	rows, err := r.pool.Query(ctx, query, filter.FeaturedOnly, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var (
		tours      []domain.Tour
		ids        []string
		totalCount int
	)
	for rows.Next() {
		var t domain.Tour
		if err := rows.Scan(
			&t.ID, &t.Title, &t.City, &t.Address, &t.Distance, &t.Price,
			&t.MaxGroupSize, &t.Desc, &t.Photo, &t.Featured, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan tour row: %w", err)
		}
		tours = append(tours, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tour rows: %w", err)
	}

	if len(tours) == 0 {
		return []domain.Tour{}, totalCount, nil
	}

	reviews, err := r.loadReviews(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range tours {
		tours[i].Reviews = reviews[tours[i].ID]
		if tours[i].Reviews == nil {
			tours[i].Reviews = domain.Collection{}
		}
	}

	return tours, totalCount, nil
}

// Append stores a submitted review at the end of the tour's review list.
func (r *TourRepository) Append(ctx context.Context, tourID string, review domain.Review) error {
	ctx = database.WithOperation(ctx, "AppendReview")

	_, err := r.pool.Exec(ctx, insertReviewQuery, tourID, review.Author, review.Rating, review.Content, review.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return apperrors.NotFound("tour", tourID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// Upsert inserts or updates a tour. Reviews are written only when the tour is
// new so that re-running a seed does not duplicate them.
func (r *TourRepository) Upsert(ctx context.Context, t domain.Tour) (inserted bool, err error) {
	query := `
		INSERT INTO tours (` + tourColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			city = EXCLUDED.city,
			address = EXCLUDED.address,
			distance_km = EXCLUDED.distance_km,
			price = EXCLUDED.price,
			max_group_size = EXCLUDED.max_group_size,
			description = EXCLUDED.description,
			photo = EXCLUDED.photo,
			featured = EXCLUDED.featured
		RETURNING (xmax = 0) AS inserted`

	ctx = database.WithOperation(ctx, "UpsertTour")

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, query,
		t.ID, t.Title, t.City, t.Address, t.Distance, t.Price,
		t.MaxGroupSize, t.Desc, t.Photo, t.Featured,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert tour: %w", err)
	}

	if inserted {
		for _, rv := range t.Reviews {
			if _, err = tx.Exec(ctx, insertReviewQuery, t.ID, rv.Author, rv.Rating, rv.Content, rv.Timestamp); err != nil {
				return false, fmt.Errorf("insert seed review: %w", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// loadReviews fetches the reviews of the given tours keyed by tour ID.
func (r *TourRepository) loadReviews(ctx context.Context, tourIDs []string) (map[string]domain.Collection, error) {
	ctx = database.WithOperation(ctx, "ListTourReviews")
	query := `
		SELECT tour_id, username, rating, content, created_at
		FROM tour_reviews
		WHERE tour_id = ANY($1)
		ORDER BY tour_id, id`

	rows, err := r.pool.Query(ctx, query, tourIDs)
	if err != nil {
		return nil, fmt.Errorf("list tour reviews: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Collection, len(tourIDs))
	for rows.Next() {
		var (
			tourID string
			rv     domain.Review
		)
		if err := rows.Scan(&tourID, &rv.Author, &rv.Rating, &rv.Content, &rv.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tour review: %w", err)
		}
		rv.Timestamp = rv.Timestamp.UTC()
		out[tourID] = append(out[tourID], rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour reviews: %w", err)
	}

	return out, nil
}

func scanTour(row pgx.Row, t *domain.Tour) error {
	return row.Scan(
		&t.ID, &t.Title, &t.City, &t.Address, &t.Distance, &t.Price,
		&t.MaxGroupSize, &t.Desc, &t.Photo, &t.Featured,
	)
}
