package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	op   string
	id   int
	text string
	at   time.Time
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  []recordedCall
	nextID int
	err    error
}

func (f *fakeNotifier) Create(_ context.Context, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.calls = append(f.calls, recordedCall{op: "create", id: f.nextID, text: text, at: time.Now()})
	return f.nextID, nil
}

func (f *fakeNotifier) Update(_ context.Context, id int, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, recordedCall{op: "update", id: id, text: text, at: time.Now()})
	return id, nil
}

func (f *fakeNotifier) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, recordedCall{op: "delete", id: id, at: time.Now()})
	return nil
}

func (f *fakeNotifier) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestQueue_PassesThroughAndPreservesIDs(t *testing.T) {
	fake := &fakeNotifier{}
	q := NewQueue(fake, time.Millisecond, quietLogger())
	ctx := context.Background()

	id, err := q.Create(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = q.Update(ctx, id, "edited")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.NoError(t, q.Delete(ctx, id))

	calls := fake.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "create", calls[0].op)
	assert.Equal(t, "update", calls[1].op)
	assert.Equal(t, "edited", calls[1].text)
	assert.Equal(t, "delete", calls[2].op)
}

func TestQueue_SpacesDeliveries(t *testing.T) {
	fake := &fakeNotifier{}
	q := NewQueue(fake, 50*time.Millisecond, quietLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := q.Create(ctx, "msg")
		require.NoError(t, err)
	}
	// First send is immediate, the next two wait a full interval each.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestQueue_SerializesConcurrentSenders(t *testing.T) {
	fake := &fakeNotifier{}
	q := NewQueue(fake, time.Millisecond, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Create(context.Background(), "msg")
		}()
	}
	wg.Wait()

	calls := fake.recorded()
	require.Len(t, calls, 8)
	seen := make(map[int]bool)
	for _, c := range calls {
		assert.False(t, seen[c.id], "message id %d issued twice", c.id)
		seen[c.id] = true
	}
}

func TestQueue_CancelledContextAborts(t *testing.T) {
	fake := &fakeNotifier{}
	q := NewQueue(fake, time.Hour, quietLogger())
	ctx := context.Background()

	_, err := q.Create(ctx, "first")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Create(cancelled, "second")
	assert.Error(t, err)
	assert.Len(t, fake.recorded(), 1)
}

func TestQueue_AlertSwallowsErrors(t *testing.T) {
	fake := &fakeNotifier{err: errors.New("transport down")}
	q := NewQueue(fake, time.Millisecond, quietLogger())

	// Must not panic or propagate.
	q.Alert(context.Background(), "🚨 venue stream terminated")
	assert.Empty(t, fake.recorded())
}

func TestLogNotifier_IssuesMonotonicIDs(t *testing.T) {
	n := NewLogNotifier(quietLogger())
	ctx := context.Background()

	a, err := n.Create(ctx, "one")
	require.NoError(t, err)
	b, err := n.Create(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, a+1, b)

	id, err := n.Update(ctx, a, "edited")
	require.NoError(t, err)
	assert.Equal(t, a, id)
	assert.NoError(t, n.Delete(ctx, a))
}
