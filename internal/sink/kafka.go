package sink

import (
	"context"

	"github.com/utafrali/TourGo/internal/domain"
)

// ReviewPublisher publishes review events. *event.Producer satisfies it.
type ReviewPublisher interface {
	PublishReviewSubmitted(ctx context.Context, tourID string, review domain.Review) error
}

// Kafka publishes every review as a review.submitted event.
type Kafka struct {
	publisher ReviewPublisher
}

// NewKafka creates a Kafka-backed sink.
func NewKafka(publisher ReviewPublisher) *Kafka {
	return &Kafka{publisher: publisher}
}

// Persist implements Sink.
func (k *Kafka) Persist(ctx context.Context, tourID string, review domain.Review) error {
	return k.publisher.PublishReviewSubmitted(ctx, tourID, review)
}
