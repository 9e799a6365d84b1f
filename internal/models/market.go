package models

// Quote represents the latest top-of-book entry for one symbol on one venue.
// Bid and Ask are nil until the venue has published a tradable price; a
// seeded-but-unset entry is therefore distinguishable from a missing one.
type Quote struct {
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
	Volume float64  `json:"volume"`
}

// Tradable reports whether both sides of the book are present and positive.
func (q Quote) Tradable() bool {
	return q.Bid != nil && q.Ask != nil && *q.Bid > 0 && *q.Ask > 0
}

// BidPrice returns the bid or zero when the side is absent.
func (q Quote) BidPrice() float64 {
	if q.Bid == nil {
		return 0
	}
	return *q.Bid
}

// AskPrice returns the ask or zero when the side is absent.
func (q Quote) AskPrice() float64 {
	if q.Ask == nil {
		return 0
	}
	return *q.Ask
}

// Float is a convenience helper for building optional price fields.
func Float(v float64) *float64 {
	return &v
}
