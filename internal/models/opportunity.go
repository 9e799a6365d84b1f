package models

import (
	"time"
)

// OpportunityKind identifies the detector family that produced an opportunity.
type OpportunityKind string

const (
	KindCrossVenue OpportunityKind = "cross_venue"
	KindTriangular OpportunityKind = "triangular"
	KindBasis      OpportunityKind = "basis"
)

// Opportunity is an immutable arbitrage signal produced by a detector during
// one scan cycle. Path is the stable identity used for deduplication across
// cycles: the same real-world opportunity always maps to the same Path.
//
// Profit and all related thresholds are expressed as fractions (0.002 means
// 0.2%); values are converted to percentages only when formatting text.
type Opportunity struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      OpportunityKind `json:"kind"`
	Symbol    string          `json:"symbol"`
	BuyVenue  string          `json:"buy_venue"`
	SellVenue string          `json:"sell_venue"`
	BuyPrice  float64         `json:"buy_price"`
	SellPrice float64         `json:"sell_price"`
	Profit    float64         `json:"profit"`
	Volume    float64         `json:"volume"`
	Path      string          `json:"path"`
	Details   string          `json:"details"`
	Earnings  float64         `json:"earnings"`
}
