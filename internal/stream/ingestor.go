package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/market"
	"github.com/mtkach/arbscout/internal/models"
)

// Alerter delivers one-off operator alerts (fatal stream faults). The
// notification queue satisfies this.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

// Ingestor consumes one venue's ticker stream for one symbol batch and keeps
// the quote cache current. A terminated ingestor never affects its siblings;
// the venue's quotes simply go stale.
type Ingestor struct {
	venue     string
	symbols   []string
	stream    Stream
	cache     *market.Cache
	alerter   Alerter
	backoff   time.Duration
	minVolume float64
	log       *logrus.Entry
}

func NewIngestor(venue string, symbols []string, s Stream, cache *market.Cache, alerter Alerter, backoff time.Duration, minVolume float64, logger *logrus.Logger) *Ingestor {
	return &Ingestor{
		venue:     venue,
		symbols:   symbols,
		stream:    s,
		cache:     cache,
		alerter:   alerter,
		backoff:   backoff,
		minVolume: minVolume,
		log: logger.WithFields(logrus.Fields{
			"component": "ingestor",
			"venue":     venue,
		}),
	}
}

// Run seeds the cache for the batch and then loops on the subscription until
// the context is cancelled or a non-recoverable fault occurs.
func (in *Ingestor) Run(ctx context.Context) error {
	for _, symbol := range in.symbols {
		in.cache.Seed(symbol, in.venue, in.minVolume)
	}
	in.log.WithField("symbols", len(in.symbols)).Info("Ingestor started")

	for {
		err := in.stream.Subscribe(ctx, in.symbols, in.apply)
		if ctx.Err() != nil {
			in.log.Info("Ingestor stopped")
			return nil
		}
		if err == nil {
			// Stream ended without fault or cancellation; treat as transient.
			err = newFault(FaultTransient, in.venue, errors.New("stream closed"))
		}

		var fault *Fault
		if !errors.As(err, &fault) {
			fault = newFault(FaultOther, in.venue, err)
		}

		switch fault.Kind {
		case FaultTransient:
			in.log.WithError(fault.Err).Warnf("Network fault, resuming in %s", in.backoff)
			select {
			case <-ctx.Done():
				in.log.Info("Ingestor stopped")
				return nil
			case <-time.After(in.backoff):
			}
		case FaultClockDesync:
			in.log.WithError(fault.Err).Error("Clock desynchronization, terminating ingestor")
			in.alerter.Alert(ctx, fmt.Sprintf("⚠️ %s: clock desynchronization, check system time", in.venue))
			return fault
		default:
			in.log.WithError(fault.Err).Error("Unexpected stream fault, terminating ingestor")
			in.alerter.Alert(ctx, fmt.Sprintf("🚨 %s stream terminated: %v", in.venue, fault.Err))
			return fault
		}
	}
}

// apply normalizes a ticker batch into the cache. Updates missing both sides
// are ignored; non-finite or non-positive values are dropped. Streams send
// delta frames that omit unchanged fields, so a one-sided update merges into
// the cached entry instead of erasing the known side or volume.
func (in *Ingestor) apply(ticks []Ticker) {
	for _, tick := range ticks {
		bid := sanitizePrice(tick.Bid)
		ask := sanitizePrice(tick.Ask)
		if bid == nil && ask == nil {
			in.log.WithField("symbol", tick.Symbol).Debug("Skipping update without prices")
			continue
		}

		prev, _ := in.cache.Quote(tick.Symbol, in.venue)
		if bid == nil {
			bid = prev.Bid
		}
		if ask == nil {
			ask = prev.Ask
		}

		volume := prev.Volume
		if tick.Volume != nil && !math.IsNaN(*tick.Volume) && *tick.Volume > 0 {
			volume = *tick.Volume
		}
		if volume <= 0 {
			volume = in.minVolume
		}

		in.cache.Update(tick.Symbol, in.venue, models.Quote{
			Bid:    bid,
			Ask:    ask,
			Volume: volume,
		})
	}
}

func sanitizePrice(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return nil
	}
	return v
}
