// Package sink forwards submitted reviews to optional persistence backends.
// The local review collection is always updated first; sinks never block or
// fail a submission.
package sink

import (
	"context"
	"errors"

	"github.com/utafrali/TourGo/internal/domain"
)

// Sink persists a review that was accepted for a tour.
type Sink interface {
	Persist(ctx context.Context, tourID string, review domain.Review) error
}

// Noop discards reviews. It is the default when no backend is configured.
type Noop struct{}

// Persist implements Sink.
func (Noop) Persist(context.Context, string, domain.Review) error { return nil }

// Multi fans a review out to every sink and joins their errors.
type Multi []Sink

// Persist implements Sink.
func (m Multi) Persist(ctx context.Context, tourID string, review domain.Review) error {
	var errs []error
	for _, s := range m {
		if err := s.Persist(ctx, tourID, review); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns the sinks as one: Noop when empty, the sink itself when
// there is only one, Multi otherwise.
func Combine(sinks ...Sink) Sink {
	switch len(sinks) {
	case 0:
		return Noop{}
	case 1:
		return sinks[0]
	default:
		return Multi(sinks)
	}
}
