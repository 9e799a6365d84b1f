package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtkach/arbscout/internal/models"
)

func basisView(spot, deriv models.Quote) View {
	return View{
		"BTC/USDT":      {"bybit": spot},
		"BTC/USDT:USDT": {"bybit": deriv},
	}
}

func TestBasis_Contango(t *testing.T) {
	e := testEngine(testConfig())

	// Contract bid above spot ask: buy spot, sell the contract.
	view := basisView(quote(99.9, 100.0, 10000), quote(100.5, 100.6, 10000))
	opps := e.Basis("bybit", view)
	require.Len(t, opps, 1)

	opp := opps[0]
	// (1/100)*(1-0.001)*100.5*(1-0.0006) - 1, bybit spot/futures taker fees.
	expected := (1.0/100.0)*(1-0.001)*100.5*(1-0.0006) - 1
	assert.InDelta(t, expected, opp.Profit, 1e-12)
	assert.Equal(t, models.KindBasis, opp.Kind)
	assert.Equal(t, "basis:bybit:BTC:contango", opp.Path)
	assert.Equal(t, 100.0, opp.BuyPrice)
	assert.Equal(t, 100.5, opp.SellPrice)
}

func TestBasis_Backwardation(t *testing.T) {
	e := testEngine(testConfig())

	// Spot bid above contract ask: sell spot, buy the contract.
	view := basisView(quote(100.5, 100.6, 10000), quote(99.8, 99.9, 10000))
	opps := e.Basis("bybit", view)
	require.Len(t, opps, 1)

	opp := opps[0]
	expected := 100.5*(1-0.001)*(1.0/99.9)*(1-0.0006) - 1
	assert.InDelta(t, expected, opp.Profit, 1e-12)
	assert.Equal(t, "basis:bybit:BTC:backwardation", opp.Path)
	assert.Equal(t, 99.9, opp.BuyPrice)
	assert.Equal(t, 100.5, opp.SellPrice)
}

func TestBasis_DirectionsAreDistinctIdentities(t *testing.T) {
	e := testEngine(testConfig())
	contango := e.Basis("bybit", basisView(quote(99.9, 100.0, 10000), quote(100.5, 100.6, 10000)))
	backward := e.Basis("bybit", basisView(quote(100.5, 100.6, 10000), quote(99.8, 99.9, 10000)))
	require.Len(t, contango, 1)
	require.Len(t, backward, 1)
	assert.NotEqual(t, contango[0].Path, backward[0].Path)
}

func TestBasis_NoGapNoSignal(t *testing.T) {
	e := testEngine(testConfig())
	// Books aligned: neither direction crosses.
	view := basisView(quote(99.9, 100.0, 10000), quote(99.95, 100.05, 10000))
	assert.Empty(t, e.Basis("bybit", view))
}

func TestBasis_VolumeFloor(t *testing.T) {
	e := testEngine(testConfig())
	view := basisView(quote(99.9, 100.0, 10000), quote(100.5, 100.6, 100))
	assert.Empty(t, e.Basis("bybit", view), "thin contract leg is rejected")
}

func TestBasis_RequiresBothLegsQuoted(t *testing.T) {
	e := testEngine(testConfig())

	// Contract leg still a sentinel.
	view := View{
		"BTC/USDT":      {"bybit": quote(99.9, 100.0, 10000)},
		"BTC/USDT:USDT": {"bybit": {Volume: 5000}},
	}
	assert.Empty(t, e.Basis("bybit", view))

	// Contract symbol entirely untracked.
	view = View{
		"BTC/USDT": {"bybit": quote(99.9, 100.0, 10000)},
	}
	assert.Empty(t, e.Basis("bybit", view))
}

func TestBasis_VenueWithoutDerivativeTransform(t *testing.T) {
	cfg := testConfig()
	e := testEngine(cfg)
	// binance has no derivatives pattern in the test config.
	view := View{
		"BTC/USDT":      {"binance": quote(99.9, 100.0, 10000)},
		"BTC/USDT:USDT": {"binance": quote(100.5, 100.6, 10000)},
	}
	assert.Empty(t, e.Basis("binance", view))
}
