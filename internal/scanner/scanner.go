// Package scanner runs the periodic detection cycle: snapshot the quote
// cache, run every detector family, feed qualifying signals to the paper
// trader, settle due trades and reconcile the opportunity tracker.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/detector"
	"github.com/mtkach/arbscout/internal/market"
	"github.com/mtkach/arbscout/internal/models"
	"github.com/mtkach/arbscout/internal/paper"
	"github.com/mtkach/arbscout/internal/stream"
)

// faultPause is the recovery delay after a cycle-level failure.
const faultPause = 5 * time.Second

// Detectors is the search surface run each cycle.
type Detectors interface {
	CrossVenue(symbol string, view detector.View) []models.Opportunity
	Triangular(venue string, view detector.View) []models.Opportunity
	Basis(venue string, view detector.View) []models.Opportunity
}

// Trades receives qualifying signals and settles due positions.
type Trades interface {
	ProcessSignal(opp models.Opportunity) bool
	UpdateTrades() []paper.CompletedTrade
}

// Observer reconciles the tracked opportunity set once per cycle.
type Observer interface {
	Observe(ctx context.Context, current map[string]models.Opportunity)
}

type Scanner struct {
	cfg       *config.Config
	cache     *market.Cache
	detectors Detectors
	trades    Trades
	observer  Observer
	alerter   stream.Alerter
	log       *logrus.Entry

	faultPause time.Duration
	// alerted suppresses repeat alerts while one failure streak lasts; a
	// successful cycle re-arms it.
	alerted bool
}

func New(cfg *config.Config, cache *market.Cache, detectors Detectors, trades Trades, observer Observer, alerter stream.Alerter, logger *logrus.Logger) *Scanner {
	return &Scanner{
		cfg:        cfg,
		cache:      cache,
		detectors:  detectors,
		trades:     trades,
		observer:   observer,
		alerter:    alerter,
		log:        logger.WithField("component", "scanner"),
		faultPause: faultPause,
	}
}

// Run loops until ctx is cancelled. A failed cycle pauses briefly and
// resumes; it never terminates the loop.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"interval": s.cfg.Scanner.Interval,
		"venues":   len(s.cfg.Market.Venues),
	}).Info("Scan loop started")

	for {
		started := time.Now()
		if err := s.cycle(ctx); err != nil {
			s.log.WithError(err).Error("Scan cycle failed")
			if !s.alerted {
				s.alerted = true
				s.alerter.Alert(ctx, fmt.Sprintf("🚨 Scan cycle failure: %v", err))
			}
			if !sleepCtx(ctx, s.faultPause) {
				return ctx.Err()
			}
			continue
		}
		s.alerted = false

		// Floor pace: even a slow cycle yields for at least the minimum.
		pause := s.cfg.Scanner.Interval - time.Since(started)
		if pause < s.cfg.Scanner.MinInterval {
			pause = s.cfg.Scanner.MinInterval
		}
		if !sleepCtx(ctx, pause) {
			return ctx.Err()
		}
	}
}

func (s *Scanner) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	started := time.Now()
	view := detector.View(s.cache.All())
	current := make(map[string]models.Opportunity)
	add := func(opps []models.Opportunity) {
		for _, opp := range opps {
			current[opp.Path] = opp
		}
	}

	for _, symbol := range sortedKeys(view) {
		symbol := symbol
		add(s.collect("cross_venue", func() []models.Opportunity {
			return s.detectors.CrossVenue(symbol, view)
		}))
	}
	for _, venue := range s.cfg.Market.Venues {
		venue := venue
		add(s.collect("triangular", func() []models.Opportunity {
			return s.detectors.Triangular(venue, view)
		}))
		add(s.collect("basis", func() []models.Opportunity {
			return s.detectors.Basis(venue, view)
		}))
	}

	for _, path := range sortedKeys(current) {
		opp := current[path]
		if s.trades.ProcessSignal(opp) {
			s.log.WithFields(logrus.Fields{
				"path":   path,
				"profit": opp.Profit,
			}).Info("Signal accepted")
		}
	}

	for _, done := range s.settle() {
		s.log.WithFields(logrus.Fields{
			"trade_id": done.ID,
			"symbol":   done.Symbol,
			"profit":   done.Profit,
			"duration": done.Duration.Seconds(),
		}).Info("Paper trade completed")
	}

	s.observer.Observe(ctx, current)

	s.log.WithFields(logrus.Fields{
		"opportunities": len(current),
		"elapsed_ms":    time.Since(started).Milliseconds(),
	}).Debug("Cycle complete")
	return nil
}

// collect isolates one detector invocation: a panic there is logged and the
// cycle continues with the remaining detectors.
func (s *Scanner) collect(name string, fn func() []models.Opportunity) (opps []models.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"detector": name,
				"panic":    r,
			}).Error("Detector failed")
			opps = nil
		}
	}()
	return fn()
}

// settle isolates settlement the same way.
func (s *Scanner) settle() (completed []paper.CompletedTrade) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("Settlement failed")
			completed = nil
		}
	}()
	return s.trades.UpdateTrades()
}

// sleepCtx waits for d, reporting false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
