package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mtkach/arbscout/internal/models"
)

// Triangular searches one venue for profitable three-currency conversion
// cycles. Cost is O(C³·6) in the number of distinct currencies on the venue;
// the tracked symbol universe keeps C in the tens, which is the only reason
// this brute force is acceptable.
func (e *Engine) Triangular(venue string, view View) []models.Opportunity {
	pairs := make(map[string]models.Quote)
	currencySet := make(map[string]struct{})
	for _, symbol := range sortedKeys(view) {
		q, ok := view[symbol][venue]
		if !ok || !q.Tradable() || q.Volume < e.cfg.Scanner.MinVolume {
			continue
		}
		base, quote, ok := models.SplitPair(symbol)
		if !ok {
			continue
		}
		pairs[symbol] = q
		currencySet[base] = struct{}{}
		currencySet[quote] = struct{}{}
	}
	if len(pairs) < 3 || len(currencySet) < 3 {
		return nil
	}

	currencies := make([]string, 0, len(currencySet))
	for c := range currencySet {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	fee := e.cfg.TakerFee(venue, models.MarketSpot)
	var opportunities []models.Opportunity

	for i := 0; i < len(currencies); i++ {
		for j := i + 1; j < len(currencies); j++ {
			for k := j + 1; k < len(currencies); k++ {
				a, b, c := currencies[i], currencies[j], currencies[k]
				// All 6 directed cycles of one unordered triple:
				// rotations and reflections.
				for _, cycle := range [][3]string{
					{a, b, c}, {a, c, b},
					{b, a, c}, {b, c, a},
					{c, a, b}, {c, b, a},
				} {
					if opp, ok := e.evaluateCycle(venue, cycle, pairs, fee); ok {
						opportunities = append(opportunities, opp)
					}
				}
			}
		}
	}
	return opportunities
}

// evaluateCycle prices the directed conversion x -> y -> z -> x. The first
// two legs buy at the ask of y/x and z/y; the closing leg sells at the bid
// of z/x. Taker fee applies at every conversion.
func (e *Engine) evaluateCycle(venue string, cycle [3]string, pairs map[string]models.Quote, fee float64) (models.Opportunity, bool) {
	x, y, z := cycle[0], cycle[1], cycle[2]
	leg1 := y + "/" + x
	leg2 := z + "/" + y
	leg3 := z + "/" + x

	q1, ok1 := pairs[leg1]
	q2, ok2 := pairs[leg2]
	q3, ok3 := pairs[leg3]
	if !ok1 || !ok2 || !ok3 {
		return models.Opportunity{}, false
	}
	ask1, ask2, bid3 := q1.AskPrice(), q2.AskPrice(), q3.BidPrice()
	if ask1 <= 0 || ask2 <= 0 || bid3 <= 0 {
		return models.Opportunity{}, false
	}

	amount := 1.0
	amount = amount / ask1 * (1 - fee)
	amount = amount / ask2 * (1 - fee)
	amount = amount * bid3 * (1 - fee)
	profit := amount - 1
	if profit < e.cfg.Scanner.ProfitThreshold {
		return models.Opportunity{}, false
	}

	route := fmt.Sprintf("%s→%s→%s→%s", x, y, z, x)
	return models.Opportunity{
		Timestamp: e.now(),
		Kind:      models.KindTriangular,
		Symbol:    fmt.Sprintf("[%s] %s", strings.ToUpper(venue), route),
		BuyVenue:  venue,
		SellVenue: venue,
		BuyPrice:  ask1,
		SellPrice: bid3,
		Profit:    profit,
		Volume:    minFloat(q1.Volume, minFloat(q2.Volume, q3.Volume)),
		Path:      trianglePath(venue, x, y, z),
		Details: fmt.Sprintf("%s (ASK %.8f) → %s (ASK %.8f) → %s (BID %.8f)",
			leg1, ask1, leg2, ask2, leg3, bid3),
		Earnings: e.cfg.Scanner.Deposit * profit,
	}, true
}

// trianglePath is the stable identity for a triangle: built from the sorted
// currency set so the 6 directional variants of the same physical cycle
// collapse to one key across scans.
func trianglePath(venue string, currencies ...string) string {
	sorted := append([]string(nil), currencies...)
	sort.Strings(sorted)
	return fmt.Sprintf("tri:%s:%s", venue, strings.Join(sorted, "-"))
}
