package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/TourGo/internal/domain"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httpclient"
	"github.com/utafrali/TourGo/pkg/tracing"
)

var dispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_sink_dispatch_total",
		Help: "Reviews handed to the persistence sinks, by outcome",
	},
	[]string{"result"},
)

// Dispatch outcomes.
const (
	resultOK      = "ok"
	resultError   = "error"
	resultDropped = "dropped"
)

// Dispatcher runs a Sink in the background, one goroutine per review, with
// at most maxInFlight reviews outstanding.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Each Persist call gets its own timeout.
func NewDispatcher(s Sink, timeout time.Duration, maxInFlight int, logger *slog.Logger) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Dispatcher{
		sink:    s,
		timeout: timeout,
		logger:  logger,
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Dispatch hands the review to the sink without waiting for it. The request
// context's values (correlation and trace IDs) are kept but its cancellation
// is not. When the dispatcher is saturated the review is dropped and logged.
func (d *Dispatcher) Dispatch(ctx context.Context, tourID string, review domain.Review) {
	select {
	case d.slots <- struct{}{}:
	default:
		dispatchTotal.WithLabelValues(resultDropped).Inc()
		d.logger.WarnContext(ctx, "review sink saturated, dropping review",
			slog.String("tour_id", tourID),
		)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		ctx, span := tracing.Start(ctx, "review.sink.persist",
			attribute.String("tour.id", tourID),
			attribute.Int("review.rating", review.Rating),
		)
		err := d.sink.Persist(ctx, tourID, review)
		tracing.Finish(span, err)

		if err != nil {
			dispatchTotal.WithLabelValues(resultError).Inc()
			// A 4xx from the endpoint will not succeed on redelivery either.
			level, msg := slog.LevelError, "failed to persist review"
			if httpclient.IsClientError(apperrors.HTTPStatus(err)) {
				level, msg = slog.LevelWarn, "review rejected by sink"
			}
			d.logger.Log(ctx, level, msg,
				slog.String("tour_id", tourID),
				slog.String("error", err.Error()),
			)
			return
		}
		dispatchTotal.WithLabelValues(resultOK).Inc()
	}()
}

// Close waits for in-flight dispatches or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
