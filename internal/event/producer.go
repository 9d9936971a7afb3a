package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/TourGo/internal/domain"
	pkgkafka "github.com/utafrali/TourGo/pkg/kafka"
	"github.com/utafrali/TourGo/pkg/logger"
)

// TopicReviewSubmitted carries reviews accepted by a viewing session.
var TopicReviewSubmitted = pkgkafka.Topic("review", "submitted")

// Aggregate type constant.
const AggregateTypeTour = "tour"

// Source identifier for events originating from the tour service.
const SourceTourService = "tour-service"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	TourID   string    `json:"tour_id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
}

// Publisher is the part of the kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes tour domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the tour service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event keyed by tour ID.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, tourID string, review domain.Review) error {
	data := ReviewSubmittedData{
		TourID:   tourID,
		Username: review.Author,
		Rating:   review.Rating,
		Content:  review.Content,
		Date:     review.Timestamp,
	}

	event, err := pkgkafka.NewEvent(TopicReviewSubmitted, tourID, AggregateTypeTour, SourceTourService, data)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if id := logger.SessionIDFromContext(ctx); id != "" {
		event.WithMetadata("session_id", id)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("tour_id", tourID),
		slog.String("username", review.Author),
	)

	return nil
}
