package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robalyx/doorbell/internal/database/service"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// deliveryErrorCooldown pauses the consumer briefly after a failed delivery
// so a broken channel does not spin the loop.
const deliveryErrorCooldown = 5 * time.Second

// Item pairs a queued event with its durable arrival row. Items with a nil
// Event are operational notices: pre-rendered content that skips the filter
// and the dedup gate but still pays the delivery pacing.
type Item struct {
	ArrivalID int64
	Event     *types.Arrival
	Content   string
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	EventsProcessed   uint64 `json:"events_processed"`
	NotificationsSent uint64 `json:"notifications_sent"`
	ErrorsEncountered uint64 `json:"errors_encountered"`
}

// Queue is the single-consumer delivery pipeline. Producers enqueue
// candidates that already passed the dedup gate; the consumer filters,
// re-checks the gate right before delivery, delivers with pacing, and
// commits dedup state only after confirmed delivery.
type Queue struct {
	items     chan *Item
	filter    *PlausibilityFilter
	formatter Formatter
	deliverer Deliverer
	gate      *service.GateService
	spacing   time.Duration
	window    time.Duration
	logger    *zap.Logger

	processed atomic.Uint64
	sent      atomic.Uint64
	errors    atomic.Uint64
}

// NewQueue creates a notification queue. The window is the dedup window
// consulted again at dequeue time.
func NewQueue(
	size int,
	spacing time.Duration,
	window time.Duration,
	filter *PlausibilityFilter,
	formatter Formatter,
	deliverer Deliverer,
	gate *service.GateService,
	logger *zap.Logger,
) *Queue {
	return &Queue{
		items:     make(chan *Item, size),
		filter:    filter,
		formatter: formatter,
		deliverer: deliverer,
		gate:      gate,
		spacing:   spacing,
		window:    window,
		logger:    logger.Named("notify_queue"),
	}
}

// Enqueue adds a candidate to the queue without blocking. Returns false when
// the buffer is full and the event was dropped.
func (q *Queue) Enqueue(arrivalID int64, event *types.Arrival) bool {
	select {
	case q.items <- &Item{ArrivalID: arrivalID, Event: event}:
		return true
	default:
		return false
	}
}

// EnqueueNotice adds a pre-rendered operational message to the queue. Notices
// share the delivery channel and its pacing with arrival notifications.
func (q *Queue) EnqueueNotice(content string) bool {
	select {
	case q.items <- &Item{Content: content}:
		return true
	default:
		return false
	}
}

// Len returns the number of buffered items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		EventsProcessed:   q.processed.Load(),
		NotificationsSent: q.sent.Load(),
		ErrorsEncountered: q.errors.Load(),
	}
}

// Start drains the queue until the context is cancelled. Per-item failures
// never halt the loop.
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("Notification queue started",
		zap.Int("capacity", cap(q.items)),
		zap.Duration("spacing", q.spacing))

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Context cancelled, stopping notification queue",
				zap.Int("undelivered", len(q.items)))

			return
		case item := <-q.items:
			// Pacing only applies when the delivery channel was actually
			// used; dropped items must not delay real notifications.
			if q.process(ctx, item) {
				if utils.ContextSleep(ctx, q.spacing) == utils.SleepCancelled {
					return
				}
			}
		}
	}
}

// process runs one item through filter, dedup re-check, delivery, and dedup
// commit. Returns whether a delivery was attempted.
func (q *Queue) process(ctx context.Context, item *Item) bool {
	q.processed.Add(1)

	if item.Event == nil {
		return q.deliverNotice(ctx, item.Content)
	}

	event := item.Event

	if !q.filter.Allow(event) {
		return false
	}

	// Producers checked the gate at enqueue time, but two detections of the
	// same pair can both pass that check before either delivery commits.
	// Re-checking here, on the single consumer, closes the race.
	notified, err := q.gate.IsAlreadyNotified(ctx, event.ParticipantID, event.CommunityID, q.window)
	if err != nil {
		q.errors.Add(1)
		q.logger.Error("Failed to re-check notification state, dropping item",
			zap.Uint64("participantID", event.ParticipantID),
			zap.Error(err))

		return false
	}

	if notified {
		q.logger.Debug("Pair already notified inside window, dropping queued duplicate",
			zap.Uint64("participantID", event.ParticipantID),
			zap.String("community", event.CommunityName))

		return false
	}

	content := q.formatter.FormatArrival(event)

	if err := q.deliverer.Deliver(ctx, event, content); err != nil {
		// Leave state unmarked; a later detection of the same pair will
		// pass the dedup check and retry delivery.
		q.errors.Add(1)
		q.logger.Error("Delivery failed",
			zap.String("username", event.Username),
			zap.String("community", event.CommunityName),
			zap.Error(err))

		utils.ContextSleep(ctx, deliveryErrorCooldown)

		return true
	}

	if err := q.gate.MarkNotified(ctx, item.ArrivalID); err != nil {
		// Delivered but unmarked: the dedup window bounds the damage to at
		// most one duplicate notification.
		q.errors.Add(1)
		q.logger.Error("Failed to mark arrival notified after delivery",
			zap.Int64("arrivalID", item.ArrivalID),
			zap.Error(err))

		return true
	}

	q.sent.Add(1)
	q.logger.Info("Notification delivered",
		zap.String("username", event.Username),
		zap.String("community", event.CommunityName),
		zap.String("source", event.SourceTag))

	return true
}

// deliverNotice sends an operational message through the delivery channel.
func (q *Queue) deliverNotice(ctx context.Context, content string) bool {
	if err := q.deliverer.Deliver(ctx, nil, content); err != nil {
		q.errors.Add(1)
		q.logger.Error("Notice delivery failed", zap.Error(err))

		utils.ContextSleep(ctx, deliveryErrorCooldown)

		return true
	}

	q.sent.Add(1)

	return true
}
