package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes messages to the application log. Used when no Telegram
// credentials are configured, so the rest of the pipeline stays identical.
type LogNotifier struct {
	mu     sync.Mutex
	nextID int
	log    *logrus.Entry
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: logger.WithField("component", "notify")}
}

func (l *LogNotifier) Create(_ context.Context, text string) (int, error) {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.mu.Unlock()
	l.log.WithField("message_id", id).Info(text)
	return id, nil
}

func (l *LogNotifier) Update(_ context.Context, id int, text string) (int, error) {
	l.log.WithField("message_id", id).Info(text)
	return id, nil
}

func (l *LogNotifier) Delete(_ context.Context, id int) error {
	l.log.WithField("message_id", id).Info("Message removed")
	return nil
}
