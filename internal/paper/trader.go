// Package paper simulates trade execution for accepted arbitrage signals:
// balances are allocated at entry and released with realized profit after a
// modeled settlement delay. No real orders are ever placed.
package paper

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/models"
)

// Balance is one venue's holding of one asset. Funds move from Available to
// Locked at trade entry and back (plus signed profit) at settlement; both
// sides stay non-negative at all times.
type Balance struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
}

func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Locked)
}

// ActiveTrade is a simulated position awaiting settlement. Created
// atomically with its balance debit and removed exactly once, at settlement,
// with a single matching credit.
type ActiveTrade struct {
	ID        string
	Kind      models.OpportunityKind
	Symbol    string
	FromVenue string
	ToVenue   string
	Amount    decimal.Decimal
	BuyPrice  float64
	SellPrice float64
	Steps     []string
	StartTime time.Time
	Status    string
}

// CompletedTrade is the settlement record returned for observability.
type CompletedTrade struct {
	ID        string
	Symbol    string
	FromVenue string
	ToVenue   string
	Profit    decimal.Decimal
	Duration  time.Duration
}

// Summary is a read-only snapshot of the simulator state.
type Summary struct {
	TotalUSDT    decimal.Decimal
	ActiveTrades int
	Balances     map[string]map[string]decimal.Decimal
}

// Trader owns all balance and trade state. A single mutex serializes entry
// and settlement so concurrent signal processing can never double-spend.
type Trader struct {
	mu       sync.Mutex
	cfg      *config.Config
	log      *logrus.Entry
	balances map[string]map[string]*Balance
	trades   map[string]*ActiveTrade
	now      func() time.Time
}

func NewTrader(cfg *config.Config, logger *logrus.Logger) *Trader {
	t := &Trader{
		cfg:      cfg,
		log:      logger.WithField("component", "paper"),
		balances: make(map[string]map[string]*Balance),
		trades:   make(map[string]*ActiveTrade),
		now:      time.Now,
	}
	t.seedBalances()
	return t
}

// seedBalances gives every venue an initial stock of USDT plus each base
// asset in the tracked universe. State is in-memory only and rebuilt from
// these initial balances on every process start.
func (t *Trader) seedBalances() {
	assets := map[string]struct{}{"USDT": {}}
	for _, symbol := range t.cfg.Market.Symbols {
		if base := models.BaseAsset(symbol); base != "" {
			assets[base] = struct{}{}
		}
	}
	initial := decimal.NewFromFloat(t.cfg.Paper.InitialBalance)
	for _, venue := range t.cfg.Market.Venues {
		t.balances[venue] = make(map[string]*Balance, len(assets))
		for asset := range assets {
			t.balances[venue][asset] = &Balance{Available: initial}
		}
	}
	t.log.WithFields(logrus.Fields{
		"venues": len(t.cfg.Market.Venues),
		"assets": len(assets),
	}).Info("Seeded paper balances")
}

// balance returns the ledger cell for (venue, asset), creating it empty when
// the venue or asset was not part of the seeded universe.
func (t *Trader) balance(venue, asset string) *Balance {
	if _, ok := t.balances[venue]; !ok {
		t.balances[venue] = make(map[string]*Balance)
	}
	if _, ok := t.balances[venue][asset]; !ok {
		t.balances[venue][asset] = &Balance{}
	}
	return t.balances[venue][asset]
}

// ProcessSignal converts a qualifying opportunity into a simulated trade.
// Rejections (insufficient balance, unresolvable asset, unknown kind) leave
// all state untouched and are reported as false, never as an error.
func (t *Trader) ProcessSignal(opp models.Opportunity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch opp.Kind {
	case models.KindCrossVenue:
		return t.enterCrossVenue(opp)
	case models.KindBasis:
		return t.enterSameVenue(opp, []string{"buy_spot", "sell_contract"}, opp.BuyPrice, opp.SellPrice)
	case models.KindTriangular:
		// The cycle's legs net out locally; settlement is flat on the
		// committed amount.
		return t.enterSameVenue(opp, []string{"cycle"}, 0, 0)
	default:
		t.log.WithField("kind", opp.Kind).Warn("Unknown opportunity kind, signal rejected")
		return false
	}
}

func (t *Trader) enterCrossVenue(opp models.Opportunity) bool {
	base := models.BaseAsset(opp.Symbol)
	if base == "" {
		t.log.WithField("symbol", opp.Symbol).Warn("Cannot resolve base asset, signal rejected")
		return false
	}

	stake := decimal.NewFromFloat(t.cfg.Paper.Stake)
	funds := t.balance(opp.BuyVenue, "USDT")
	if funds.Available.LessThan(stake) {
		t.log.WithFields(logrus.Fields{
			"venue":     opp.BuyVenue,
			"available": funds.Available,
		}).Debug("Insufficient balance, signal rejected")
		return false
	}

	// Reject entries that would settle at a loss once the network fee is
	// paid; small spreads rarely survive a BTC withdrawal.
	expected := t.crossVenueProfit(stake, base, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice)
	if expected.Sign() <= 0 {
		t.log.WithFields(logrus.Fields{
			"symbol": opp.Symbol,
			"profit": expected,
		}).Debug("Expected profit non-positive after network fee, signal rejected")
		return false
	}

	funds.Available = funds.Available.Sub(stake)
	funds.Locked = funds.Locked.Add(stake)

	trade := &ActiveTrade{
		ID:        uuid.NewString(),
		Kind:      opp.Kind,
		Symbol:    opp.Symbol,
		FromVenue: opp.BuyVenue,
		ToVenue:   opp.SellVenue,
		Amount:    stake,
		BuyPrice:  opp.BuyPrice,
		SellPrice: opp.SellPrice,
		Steps:     []string{"buy", "withdraw", "deposit", "sell"},
		StartTime: t.now(),
		Status:    "active",
	}
	t.trades[trade.ID] = trade
	t.log.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"symbol":   trade.Symbol,
		"from":     trade.FromVenue,
		"to":       trade.ToVenue,
	}).Info("Opened cross-venue paper trade")
	return true
}

func (t *Trader) enterSameVenue(opp models.Opportunity, steps []string, buyPrice, sellPrice float64) bool {
	stake := decimal.NewFromFloat(t.cfg.Paper.Stake)
	funds := t.balance(opp.BuyVenue, "USDT")
	if funds.Available.LessThan(stake) {
		t.log.WithFields(logrus.Fields{
			"venue":     opp.BuyVenue,
			"available": funds.Available,
		}).Debug("Insufficient balance, signal rejected")
		return false
	}

	funds.Available = funds.Available.Sub(stake)
	funds.Locked = funds.Locked.Add(stake)

	trade := &ActiveTrade{
		ID:        uuid.NewString(),
		Kind:      opp.Kind,
		Symbol:    opp.Symbol,
		FromVenue: opp.BuyVenue,
		ToVenue:   opp.BuyVenue,
		Amount:    stake,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		Steps:     steps,
		StartTime: t.now(),
		Status:    "active",
	}
	t.trades[trade.ID] = trade
	t.log.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"kind":     trade.Kind,
		"venue":    trade.FromVenue,
	}).Info("Opened same-venue paper trade")
	return true
}

// UpdateTrades settles every active trade whose modeled duration has
// elapsed, releasing the locked commitment plus signed profit back to the
// entry venue. Called once per scan cycle.
func (t *Trader) UpdateTrades() []CompletedTrade {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var completed []CompletedTrade
	for id, trade := range t.trades {
		elapsed := now.Sub(trade.StartTime)
		if elapsed < t.settleDuration(trade) {
			continue
		}

		profit := t.realizedProfit(trade)
		funds := t.balance(trade.FromVenue, "USDT")
		funds.Locked = funds.Locked.Sub(trade.Amount)
		funds.Available = funds.Available.Add(trade.Amount).Add(profit)

		trade.Status = "completed"
		completed = append(completed, CompletedTrade{
			ID:        id,
			Symbol:    trade.Symbol,
			FromVenue: trade.FromVenue,
			ToVenue:   trade.ToVenue,
			Profit:    profit,
			Duration:  elapsed,
		})
		delete(t.trades, id)
		t.log.WithFields(logrus.Fields{
			"trade_id": id,
			"profit":   profit,
			"duration": elapsed.Seconds(),
		}).Info("Settled paper trade")
	}
	return completed
}

// settleDuration is deterministic per trade: the sum of the configured step
// durations when legs span two venues, a fixed short window otherwise.
func (t *Trader) settleDuration(trade *ActiveTrade) time.Duration {
	if trade.FromVenue == trade.ToVenue {
		return t.cfg.Paper.SameVenueSettle
	}
	steps := t.cfg.Paper.Steps
	return steps.Buy + steps.Withdraw + steps.Deposit + steps.Sell
}

func (t *Trader) realizedProfit(trade *ActiveTrade) decimal.Decimal {
	if trade.FromVenue == trade.ToVenue {
		if trade.BuyPrice <= 0 || trade.SellPrice <= 0 {
			return decimal.Zero
		}
		ratio := decimal.NewFromFloat(trade.SellPrice).Div(decimal.NewFromFloat(trade.BuyPrice))
		return trade.Amount.Mul(ratio.Sub(decimal.NewFromInt(1)))
	}
	base := models.BaseAsset(trade.Symbol)
	return t.crossVenueProfit(trade.Amount, base, trade.FromVenue, trade.ToVenue, trade.BuyPrice, trade.SellPrice)
}

// crossVenueProfit replays the full conversion in USDT terms: buy with taker
// fee on the entry venue, withdraw paying the per-asset network fee in asset
// units, sell with taker fee on the exit venue.
func (t *Trader) crossVenueProfit(amount decimal.Decimal, base, fromVenue, toVenue string, buyPrice, sellPrice float64) decimal.Decimal {
	if buyPrice <= 0 || sellPrice <= 0 {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	buyFee := decimal.NewFromFloat(t.cfg.TakerFee(fromVenue, models.MarketSpot))
	sellFee := decimal.NewFromFloat(t.cfg.TakerFee(toVenue, models.MarketSpot))
	networkFee := decimal.NewFromFloat(t.cfg.NetworkFee(base))

	baseBought := amount.Mul(one.Sub(buyFee)).Div(decimal.NewFromFloat(buyPrice))
	baseAfterWithdraw := baseBought.Sub(networkFee)
	usdtAfterSell := baseAfterWithdraw.Mul(decimal.NewFromFloat(sellPrice)).Mul(one.Sub(sellFee))
	return usdtAfterSell.Sub(amount)
}

// Summary reports total USDT across venues, active trade count and non-zero
// balances. Pure read.
func (t *Trader) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := decimal.Zero
	balances := make(map[string]map[string]decimal.Decimal)
	for venue, assets := range t.balances {
		for asset, bal := range assets {
			if asset == "USDT" {
				total = total.Add(bal.Total())
			}
			if bal.Total().IsZero() {
				continue
			}
			if _, ok := balances[venue]; !ok {
				balances[venue] = make(map[string]decimal.Decimal)
			}
			balances[venue][asset] = bal.Total()
		}
	}
	return Summary{
		TotalUSDT:    total,
		ActiveTrades: len(t.trades),
		Balances:     balances,
	}
}

// ActiveCount reports the number of unsettled trades.
func (t *Trader) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trades)
}
