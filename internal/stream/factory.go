package stream

import (
	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/models"
)

// ForVenue returns the streaming transport for a venue and market category.
// Venues without a built-in transport report ok=false and are skipped by the
// caller; their quotes simply never arrive.
func ForVenue(venue string, market models.MarketType, logger *logrus.Logger) (Stream, bool) {
	switch venue {
	case "bybit":
		return NewBybitStream(market, logger), true
	default:
		return nil, false
	}
}
