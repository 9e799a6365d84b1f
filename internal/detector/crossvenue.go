package detector

import (
	"fmt"
	"math"

	"github.com/mtkach/arbscout/internal/models"
)

type venueLeg struct {
	venue  string
	price  float64
	fee    float64
	volume float64
}

// CrossVenue scans every venue quoting one symbol for a buy-low/sell-high
// spread that survives both taker fees. The best buy (minimum ask) and best
// sell (maximum bid) are tracked independently; an opportunity against
// oneself is never proposed.
func (e *Engine) CrossVenue(symbol string, view View) []models.Opportunity {
	venues := view[symbol]
	if len(venues) < 2 {
		return nil
	}

	market := models.MarketTypeOf(symbol)
	bestBuy := venueLeg{price: math.Inf(1)}
	bestSell := venueLeg{}

	for _, venue := range sortedKeys(venues) {
		q := venues[venue]
		fee := e.cfg.TakerFee(venue, market)
		if q.Bid != nil && *q.Bid > bestSell.price {
			bestSell = venueLeg{venue: venue, price: *q.Bid, fee: fee, volume: q.Volume}
		}
		if q.Ask != nil && *q.Ask < bestBuy.price {
			bestBuy = venueLeg{venue: venue, price: *q.Ask, fee: fee, volume: q.Volume}
		}
	}

	if bestBuy.venue == "" || bestSell.venue == "" || bestBuy.venue == bestSell.venue {
		return nil
	}

	// Net profit of converting 1 USDT through the buy leg and back out the
	// sell leg, taker fee applied at each conversion.
	bought := (1 / bestBuy.price) * (1 - bestBuy.fee)
	netProfit := bought*bestSell.price*(1-bestSell.fee) - 1
	if netProfit < e.cfg.Scanner.ProfitThreshold {
		return nil
	}

	// Use the full deposit only when liquidity at both legs covers it.
	liquidity := minFloat(bestBuy.volume, bestSell.volume)
	volumeUsed := minFloat(e.cfg.Scanner.Deposit, liquidity)
	earnings := volumeUsed * netProfit

	return []models.Opportunity{{
		Timestamp: e.now(),
		Kind:      models.KindCrossVenue,
		Symbol:    symbol,
		BuyVenue:  bestBuy.venue,
		SellVenue: bestSell.venue,
		BuyPrice:  bestBuy.price,
		SellPrice: bestSell.price,
		Profit:    netProfit,
		Volume:    volumeUsed,
		Path:      fmt.Sprintf("cross:%s->%s:%s", bestBuy.venue, bestSell.venue, symbol),
		Details: fmt.Sprintf("buy %s@%.8f (fee %.2f%%) -> sell %s@%.8f (fee %.2f%%)",
			bestBuy.venue, bestBuy.price, bestBuy.fee*100,
			bestSell.venue, bestSell.price, bestSell.fee*100),
		Earnings: earnings,
	}}
}
