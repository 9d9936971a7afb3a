package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/repository"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func copyFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/tours.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tours.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

func TestParse_Fixture(t *testing.T) {
	data, err := os.ReadFile("testdata/tours.yaml")
	require.NoError(t, err)

	tours, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, tours, 3)

	// Ordered by title.
	assert.Equal(t, "bali-indonesia", tours[0].ID)
	assert.Equal(t, "cherry-blossoms-spring", tours[1].ID)
	assert.Equal(t, "westminster-bridge", tours[2].ID)

	wb := tours[2]
	assert.True(t, wb.Featured)
	assert.Equal(t, 10, wb.MaxGroupSize)
	require.Len(t, wb.Reviews, 2)
	assert.Equal(t, domain.Review{
		Author:    "alex",
		Rating:    5,
		Content:   "Stunning",
		Timestamp: time.Date(2026, 1, 12, 18, 4, 0, 0, time.UTC),
	}, wb.Reviews[0])
	assert.Equal(t, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), wb.Reviews[1].Timestamp)

	assert.NotNil(t, tours[0].Reviews)
	assert.Empty(t, tours[0].Reviews)
	assert.Equal(t, domain.GuestAuthor, tours[1].Reviews[0].Author)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "tours: [", "decode catalog"},
		{"missing title", "tours:\n  - city: X\n    maxGroupSize: 1\n", "title is required"},
		{"zero group size", "tours:\n  - title: A\n", "maxGroupSize must be positive"},
		{"negative price", "tours:\n  - title: A\n    maxGroupSize: 2\n    price: -1\n", "price must not be negative"},
		{"duplicate id", "tours:\n  - title: A\n    maxGroupSize: 1\n  - id: a\n    title: Other\n    maxGroupSize: 1\n", "duplicate id"},
		{"rating out of range", "tours:\n  - title: A\n    maxGroupSize: 1\n    reviews:\n      - rating: 6\n        content: x\n", "out of range"},
		{"empty review content", "tours:\n  - title: A\n    maxGroupSize: 1\n    reviews:\n      - rating: 3\n        content: ' '\n", "content is required"},
		{"bad date", "tours:\n  - title: A\n    maxGroupSize: 1\n    reviews:\n      - rating: 3\n        content: ok\n        date: yesterday\n", "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func TestLoad_GetByID(t *testing.T) {
	c, err := Load("testdata/tours.yaml", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.LoadedAt().IsZero())

	tour, err := c.GetByID(context.Background(), "westminster-bridge")
	require.NoError(t, err)
	assert.Equal(t, "London", tour.City)
	assert.Len(t, tour.Reviews, 2)
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	c, err := Load("testdata/tours.yaml", testLogger())
	require.NoError(t, err)

	first, err := c.GetByID(context.Background(), "westminster-bridge")
	require.NoError(t, err)
	first.Reviews[0].Rating = 1
	first.Reviews = append(first.Reviews, domain.Review{Rating: 2})

	second, err := c.GetByID(context.Background(), "westminster-bridge")
	require.NoError(t, err)
	assert.Equal(t, 5, second.Reviews[0].Rating)
	assert.Len(t, second.Reviews, 2)
}

func TestGetByID_NotFound(t *testing.T) {
	c, err := Load("testdata/tours.yaml", testLogger())
	require.NoError(t, err)

	tour, err := c.GetByID(context.Background(), "atlantis")
	assert.Nil(t, tour)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read catalog")
}

func TestList(t *testing.T) {
	c, err := Load("testdata/tours.yaml", testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	all, total, err := c.List(ctx, repository.TourFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	featured, total, err := c.List(ctx, repository.TourFilter{FeaturedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, featured, 2)
	assert.Equal(t, "cherry-blossoms-spring", featured[0].ID)

	page2, total, err := c.List(ctx, repository.TourFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "westminster-bridge", page2[0].ID)

	beyond, _, err := c.List(ctx, repository.TourFilter{Page: 5, PerPage: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestReload_SwapsData(t *testing.T) {
	path := copyFixture(t)
	c, err := Load(path, testLogger())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	require.NoError(t, os.WriteFile(path, []byte("tours:\n  - title: Only One\n    maxGroupSize: 4\n"), 0o600))
	require.NoError(t, c.Reload(context.Background()))

	assert.Equal(t, 1, c.Len())
	_, err = c.GetByID(context.Background(), "only-one")
	assert.NoError(t, err)
	_, err = c.GetByID(context.Background(), "westminster-bridge")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	path := copyFixture(t)
	c, err := Load(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("tours: ["), 0o600))
	require.Error(t, c.Reload(context.Background()))

	assert.Equal(t, 3, c.Len())
}

func TestNew_InMemory(t *testing.T) {
	c := New([]domain.Tour{{ID: "t1", Title: "T1", MaxGroupSize: 1}}, testLogger())

	require.NoError(t, c.Reload(context.Background()))
	tour, err := c.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "T1", tour.Title)
}

func TestScheduleReload(t *testing.T) {
	c := New(nil, testLogger())

	_, err := c.ScheduleReload("not a schedule")
	assert.Error(t, err)

	stop, err := c.ScheduleReload("@every 1h")
	require.NoError(t, err)
	stop()
}

func TestCatalog_ImplementsTourRepository(t *testing.T) {
	var _ repository.TourRepository = (*Catalog)(nil)
}
