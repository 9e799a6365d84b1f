// Package tracker maintains the bounded set of currently live opportunities
// and drives the outward notification lifecycle: one message per opportunity
// path, created on first sighting, edited on meaningful change, deleted when
// the opportunity goes stale or is evicted.
package tracker

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/models"
	"github.com/mtkach/arbscout/internal/notify"
	"github.com/mtkach/arbscout/internal/storage"
)

type entry struct {
	messageID     int
	snapshot      models.Opportunity
	lastUpdate    time.Time
	active        bool
	inactiveSince time.Time
}

// Tracker exclusively owns its entry map; all access goes through Observe
// and the read accessors.
type Tracker struct {
	mu       sync.RWMutex
	cfg      *config.Config
	notifier notify.Notifier
	store    storage.OpportunityStore
	log      *logrus.Entry
	entries  map[string]*entry
	now      func() time.Time
}

func New(cfg *config.Config, notifier notify.Notifier, store storage.OpportunityStore, logger *logrus.Logger) *Tracker {
	return &Tracker{
		cfg:      cfg,
		notifier: notifier,
		store:    store,
		log:      logger.WithField("component", "tracker"),
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

// Observe reconciles the tracked set against one scan cycle's qualifying
// opportunities, keyed by path. Notification failures are logged and
// absorbed; the affected entry is retried on the next update-worthy cycle.
func (t *Tracker) Observe(ctx context.Context, current map[string]models.Opportunity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, path := range sortedPaths(current) {
		opp := current[path]
		if e, ok := t.entries[path]; ok {
			t.refresh(ctx, path, e, opp, now)
		} else {
			t.create(ctx, path, opp, now)
		}
	}
	t.sweep(ctx, current, now)
}

func (t *Tracker) create(ctx context.Context, path string, opp models.Opportunity, now time.Time) {
	id, err := t.notifier.Create(ctx, Message(opp, true))
	if err != nil {
		t.log.WithError(err).WithField("path", path).Warn("Failed to create notification")
		return
	}
	// Make room only once the new message exists; a failed create must not
	// cost a healthy tracked entry.
	if len(t.entries) >= t.cfg.Tracker.MaxActive {
		t.evictOldest(ctx)
	}
	if err := t.store.Append(ctx, opp); err != nil {
		t.log.WithError(err).WithField("path", path).Warn("Failed to journal opportunity")
	}
	t.entries[path] = &entry{
		messageID:  id,
		snapshot:   opp,
		lastUpdate: now,
		active:     true,
	}
	t.log.WithFields(logrus.Fields{
		"path":   path,
		"profit": opp.Profit,
	}).Info("Tracking new opportunity")
}

// refresh edits the existing message when the change is worth showing: a
// reappearance after inactivity, a profit move beyond the configured delta,
// or a flip across the profit threshold. Each path throttles independently.
func (t *Tracker) refresh(ctx context.Context, path string, e *entry, opp models.Opportunity, now time.Time) {
	threshold := t.cfg.Scanner.ProfitThreshold
	warranted := !e.active ||
		math.Abs(opp.Profit-e.snapshot.Profit) > t.cfg.Tracker.MinProfitDelta ||
		(opp.Profit >= threshold) != (e.snapshot.Profit >= threshold)
	if !warranted || now.Sub(e.lastUpdate) < t.cfg.Tracker.UpdateCooldown {
		return
	}

	id, err := t.notifier.Update(ctx, e.messageID, Message(opp, true))
	if err != nil {
		t.log.WithError(err).WithField("path", path).Warn("Failed to update notification")
		return
	}
	e.messageID = id
	e.snapshot = opp
	e.lastUpdate = now
	e.active = true
}

// sweep handles paths that stopped qualifying: one final "no longer active"
// edit, then removal (and message deletion) once the entry has been inactive
// past the staleness window. Active entries are never removed on staleness.
func (t *Tracker) sweep(ctx context.Context, current map[string]models.Opportunity, now time.Time) {
	for _, path := range sortedPaths(t.entries) {
		if _, ok := current[path]; ok {
			continue
		}
		e := t.entries[path]
		if e.active {
			e.active = false
			e.inactiveSince = now
			if _, err := t.notifier.Update(ctx, e.messageID, Message(e.snapshot, false)); err != nil {
				t.log.WithError(err).WithField("path", path).Warn("Failed to mark notification inactive")
			}
			continue
		}
		if now.Sub(e.inactiveSince) > t.cfg.Tracker.StalenessWindow {
			if err := t.notifier.Delete(ctx, e.messageID); err != nil {
				t.log.WithError(err).WithField("path", path).Warn("Failed to delete notification")
			}
			delete(t.entries, path)
			t.log.WithField("path", path).Info("Dropped stale opportunity")
		}
	}
}

// evictOldest removes the least-recently-updated entry to make room.
func (t *Tracker) evictOldest(ctx context.Context) {
	var victim string
	var oldest time.Time
	for path, e := range t.entries {
		if victim == "" || e.lastUpdate.Before(oldest) ||
			(e.lastUpdate.Equal(oldest) && path < victim) {
			victim = path
			oldest = e.lastUpdate
		}
	}
	if victim == "" {
		return
	}
	if err := t.notifier.Delete(ctx, t.entries[victim].messageID); err != nil {
		t.log.WithError(err).WithField("path", victim).Warn("Failed to delete evicted notification")
	}
	delete(t.entries, victim)
	t.log.WithField("path", victim).Info("Evicted opportunity at capacity")
}

// Live returns snapshots of the currently active entries, most profitable
// first.
func (t *Tracker) Live() []models.Opportunity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Opportunity, 0, len(t.entries))
	for _, e := range t.entries {
		if e.active {
			out = append(out, e.snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Count reports tracked entries, active or not.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func sortedPaths[V any](m map[string]V) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
