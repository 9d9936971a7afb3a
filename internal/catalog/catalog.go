// Package catalog serves tours from a YAML file held in memory.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/internal/repository"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/pagination"
	"github.com/utafrali/TourGo/pkg/slug"
)

type tourFile struct {
	Tours []tourEntry `yaml:"tours"`
}

type tourEntry struct {
	ID           string        `yaml:"id"`
	Title        string        `yaml:"title"`
	City         string        `yaml:"city"`
	Address      string        `yaml:"address"`
	Distance     float64       `yaml:"distance"`
	Price        int64         `yaml:"price"`
	MaxGroupSize int           `yaml:"maxGroupSize"`
	Desc         string        `yaml:"desc"`
	Photo        string        `yaml:"photo"`
	Featured     bool          `yaml:"featured"`
	Reviews      []reviewEntry `yaml:"reviews"`
}

type reviewEntry struct {
	Username string `yaml:"username"`
	Rating   int    `yaml:"rating"`
	Content  string `yaml:"content"`
	Date     string `yaml:"date"`
}

// Parse decodes and validates a YAML tour catalog. Tours without an id get
// one derived from their title. Tours are returned ordered by title.
func Parse(data []byte) ([]domain.Tour, error) {
	var f tourFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Tours))
	tours := make([]domain.Tour, 0, len(f.Tours))
	for i, e := range f.Tours {
		t, err := e.toTour()
		if err != nil {
			return nil, fmt.Errorf("tour #%d: %w", i+1, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("tour #%d: duplicate id %q", i+1, t.ID)
		}
		seen[t.ID] = true
		tours = append(tours, t)
	}

	sort.SliceStable(tours, func(i, j int) bool {
		return tours[i].Title < tours[j].Title
	})
	return tours, nil
}

func (e tourEntry) toTour() (domain.Tour, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return domain.Tour{}, fmt.Errorf("title is required")
	}
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = slug.Generate(title)
	}
	if id == "" {
		return domain.Tour{}, fmt.Errorf("cannot derive id from title %q", title)
	}
	if e.MaxGroupSize <= 0 {
		return domain.Tour{}, fmt.Errorf("%s: maxGroupSize must be positive", id)
	}
	if e.Price < 0 {
		return domain.Tour{}, fmt.Errorf("%s: price must not be negative", id)
	}

	reviews := make(domain.Collection, 0, len(e.Reviews))
	for j, r := range e.Reviews {
		rv, err := r.toReview()
		if err != nil {
			return domain.Tour{}, fmt.Errorf("%s: review #%d: %w", id, j+1, err)
		}
		reviews = append(reviews, rv)
	}

	return domain.Tour{
		ID:           id,
		Title:        title,
		City:         e.City,
		Address:      e.Address,
		Distance:     e.Distance,
		Price:        e.Price,
		MaxGroupSize: e.MaxGroupSize,
		Desc:         e.Desc,
		Photo:        e.Photo,
		Featured:     e.Featured,
		Reviews:      reviews,
	}, nil
}

func (r reviewEntry) toReview() (domain.Review, error) {
	if !domain.ValidRating(r.Rating) {
		return domain.Review{}, fmt.Errorf("rating %d out of range", r.Rating)
	}
	if strings.TrimSpace(r.Content) == "" {
		return domain.Review{}, fmt.Errorf("content is required")
	}

	author := strings.TrimSpace(r.Username)
	if author == "" {
		author = domain.GuestAuthor
	}

	var ts time.Time
	if r.Date != "" {
		var err error
		ts, err = parseDate(r.Date)
		if err != nil {
			return domain.Review{}, err
		}
	}

	return domain.Review{Author: author, Rating: r.Rating, Content: r.Content, Timestamp: ts}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Catalog is an in-memory tour source backed by a YAML file. It implements
// repository.TourRepository and is safe for concurrent use.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	byID     map[string]domain.Tour
	ordered  []domain.Tour
	loadedAt time.Time
}

// Load reads the catalog at path.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{path: path, logger: logger}
	if err := c.Reload(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// New builds a catalog from already parsed tours. It has no backing file and
// Reload is a no-op.
func New(tours []domain.Tour, logger *slog.Logger) *Catalog {
	c := &Catalog{logger: logger}
	c.swap(tours)
	return c
}

// Reload re-reads the backing file and atomically replaces the tour set. On
// failure the previous tours stay in place.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	tours, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse catalog %s: %w", c.path, err)
	}

	c.swap(tours)
	c.logger.InfoContext(ctx, "tour catalog loaded",
		slog.String("path", c.path),
		slog.Int("tours", len(tours)),
	)
	return nil
}

func (c *Catalog) swap(tours []domain.Tour) {
	byID := make(map[string]domain.Tour, len(tours))
	for _, t := range tours {
		byID[t.ID] = t
	}

	c.mu.Lock()
	c.byID = byID
	c.ordered = tours
	c.loadedAt = time.Now().UTC()
	c.mu.Unlock()
}

// ScheduleReload reloads the catalog on the given cron spec (standard
// five-field syntax or descriptors such as "@every 5m"). The returned
// function stops the schedule and waits for a running reload to finish.
func (c *Catalog) ScheduleReload(spec string) (stop func(), err error) {
	sched := cron.New()
	_, err = sched.AddFunc(spec, func() {
		if err := c.Reload(context.Background()); err != nil {
			c.logger.Error("tour catalog reload failed",
				slog.String("path", c.path),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule catalog reload: %w", err)
	}

	sched.Start()
	return func() { <-sched.Stop().Done() }, nil
}

// GetByID returns a copy of the tour with the given ID.
func (c *Catalog) GetByID(_ context.Context, id string) (*domain.Tour, error) {
	c.mu.RLock()
	t, ok := c.byID[id]
	c.mu.RUnlock()

	if !ok {
		return nil, apperrors.NotFound("tour", id)
	}
	t.Reviews = t.Reviews.Clone()
	return &t, nil
}

// List returns a page of tours ordered by title.
func (c *Catalog) List(_ context.Context, filter repository.TourFilter) ([]domain.Tour, int, error) {
	c.mu.RLock()
	all := c.ordered
	c.mu.RUnlock()

	matched := make([]domain.Tour, 0, len(all))
	for _, t := range all {
		if filter.FeaturedOnly && !t.Featured {
			continue
		}
		matched = append(matched, t)
	}

	page := pagination.Slice(matched, filter.Params())
	out := make([]domain.Tour, len(page))
	for i, t := range page {
		t.Reviews = t.Reviews.Clone()
		out[i] = t
	}
	return out, len(matched), nil
}

// Len returns the number of tours currently loaded.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ordered)
}

// LoadedAt returns when the current tour set was installed.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
