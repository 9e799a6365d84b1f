package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Queue serializes access to a Notifier and spaces deliveries out so the
// transport's flood limits are never hit. Calls block until their slot.
type Queue struct {
	mu      sync.Mutex
	next    Notifier
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewQueue(next Notifier, minInterval time.Duration, logger *logrus.Logger) *Queue {
	return &Queue{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     logger.WithField("component", "notify_queue"),
	}
}

func (q *Queue) Create(ctx context.Context, text string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return q.next.Create(ctx, text)
}

func (q *Queue) Update(ctx context.Context, id int, text string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return q.next.Update(ctx, id, text)
}

func (q *Queue) Delete(ctx context.Context, id int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.limiter.Wait(ctx); err != nil {
		return err
	}
	return q.next.Delete(ctx, id)
}

// Alert posts a standalone operational message, best effort. Satisfies the
// stream ingestors' alerting dependency.
func (q *Queue) Alert(ctx context.Context, text string) {
	if _, err := q.Create(ctx, text); err != nil {
		q.log.WithError(err).Warn("Failed to deliver alert")
	}
}
