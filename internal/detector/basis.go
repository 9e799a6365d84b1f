package detector

import (
	"fmt"
	"strings"

	"github.com/mtkach/arbscout/internal/models"
)

// Basis checks every spot/USDT symbol on one venue against the venue's
// equivalent derivative contract. The two directions are mutually exclusive
// per asset per scan and carry distinct path identities.
func (e *Engine) Basis(venue string, view View) []models.Opportunity {
	spotFee := e.cfg.TakerFee(venue, models.MarketSpot)
	futFee := e.cfg.TakerFee(venue, models.MarketFutures)

	var opportunities []models.Opportunity
	for _, symbol := range sortedKeys(view) {
		if !models.IsSpotUSDT(symbol) {
			continue
		}
		base := models.BaseAsset(symbol)
		contract := e.cfg.DerivativeSymbol(venue, base)
		if contract == "" {
			continue
		}

		spot, ok := view[symbol][venue]
		if !ok || !spot.Tradable() {
			continue
		}
		deriv, ok := view[contract][venue]
		if !ok || !deriv.Tradable() {
			continue
		}
		volume := minFloat(spot.Volume, deriv.Volume)
		if volume < e.cfg.Scanner.MinVolume {
			continue
		}

		spotBid, spotAsk := spot.BidPrice(), spot.AskPrice()
		derivBid, derivAsk := deriv.BidPrice(), deriv.AskPrice()

		// Contango: the contract trades above spot. Buy spot at ask, sell
		// the contract at bid.
		if derivBid > spotAsk {
			profit := (1/spotAsk)*(1-spotFee)*derivBid*(1-futFee) - 1
			if profit >= e.cfg.Scanner.ProfitThreshold {
				opportunities = append(opportunities, models.Opportunity{
					Timestamp: e.now(),
					Kind:      models.KindBasis,
					Symbol:    fmt.Sprintf("[%s] %s", strings.ToUpper(venue), base),
					BuyVenue:  venue,
					SellVenue: venue,
					BuyPrice:  spotAsk,
					SellPrice: derivBid,
					Profit:    profit,
					Volume:    volume,
					Path:      fmt.Sprintf("basis:%s:%s:contango", venue, base),
					Details: fmt.Sprintf("buy %s (ASK %.4f) → sell %s (BID %.4f), basis %.3f%%",
						symbol, spotAsk, contract, derivBid, (derivBid-spotAsk)/spotAsk*100),
					Earnings: e.cfg.Scanner.Deposit * profit,
				})
			}
		}

		// Backwardation: spot trades above the contract. Sell spot at bid,
		// buy the contract at ask.
		if spotBid > derivAsk {
			profit := spotBid*(1-spotFee)*(1/derivAsk)*(1-futFee) - 1
			if profit >= e.cfg.Scanner.ProfitThreshold {
				opportunities = append(opportunities, models.Opportunity{
					Timestamp: e.now(),
					Kind:      models.KindBasis,
					Symbol:    fmt.Sprintf("[%s] %s", strings.ToUpper(venue), base),
					BuyVenue:  venue,
					SellVenue: venue,
					BuyPrice:  derivAsk,
					SellPrice: spotBid,
					Profit:    profit,
					Volume:    volume,
					Path:      fmt.Sprintf("basis:%s:%s:backwardation", venue, base),
					Details: fmt.Sprintf("sell %s (BID %.4f) → buy %s (ASK %.4f), basis %.3f%%",
						symbol, spotBid, contract, derivAsk, (spotBid-derivAsk)/derivAsk*100),
					Earnings: e.cfg.Scanner.Deposit * profit,
				})
			}
		}
	}
	return opportunities
}
