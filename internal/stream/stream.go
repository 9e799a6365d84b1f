// Package stream ingests venue ticker streams into the shared quote cache.
package stream

import (
	"context"
	"fmt"
)

// FaultKind classifies subscription failures so the ingestor can choose
// between resuming and terminating.
type FaultKind int

const (
	// FaultTransient covers network-class failures: the ingestor pauses for
	// a fixed backoff and resumes the subscription.
	FaultTransient FaultKind = iota
	// FaultClockDesync means the venue rejected us over a timestamp/nonce
	// mismatch. Not recoverable for this instance.
	FaultClockDesync
	// FaultOther is any unexpected failure; fatal to the instance.
	FaultOther
)

func (k FaultKind) String() string {
	switch k {
	case FaultTransient:
		return "transient"
	case FaultClockDesync:
		return "clock_desync"
	default:
		return "other"
	}
}

// Fault is the typed error surfaced by Stream implementations.
type Fault struct {
	Kind  FaultKind
	Venue string
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s stream fault (%s): %v", f.Venue, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func newFault(kind FaultKind, venue string, err error) *Fault {
	return &Fault{Kind: kind, Venue: venue, Err: err}
}

// Ticker is one normalized top-of-book update from a venue stream. Nil
// fields mean the venue omitted (or sent an unparseable) value.
type Ticker struct {
	Symbol string
	Bid    *float64
	Ask    *float64
	Volume *float64
}

// Stream is the boundary to a venue's streaming transport. Subscribe blocks,
// delivering ticker batches to the handler, until the context is cancelled
// (nil return) or the subscription fails with a *Fault. Implementations must
// release their transport resources before returning.
type Stream interface {
	Subscribe(ctx context.Context, symbols []string, handler func([]Ticker)) error
}
