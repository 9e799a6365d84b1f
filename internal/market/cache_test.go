package market

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtkach/arbscout/internal/models"
)

func TestCache_SeedInstallsSentinel(t *testing.T) {
	c := NewCache()
	c.Seed("BTC/USDT", "binance", 5000)

	q, ok := c.Quote("BTC/USDT", "binance")
	require.True(t, ok)
	assert.Nil(t, q.Bid)
	assert.Nil(t, q.Ask)
	assert.Equal(t, 5000.0, q.Volume)
	assert.False(t, q.Tradable())
}

func TestCache_UpdateOverwrites(t *testing.T) {
	c := NewCache()
	c.Seed("BTC/USDT", "binance", 5000)

	c.Update("BTC/USDT", "binance", models.Quote{
		Bid:    models.Float(99.9),
		Ask:    models.Float(100.0),
		Volume: 12000,
	})
	c.Update("BTC/USDT", "binance", models.Quote{
		Bid:    models.Float(100.1),
		Ask:    models.Float(100.2),
		Volume: 13000,
	})

	q, ok := c.Quote("BTC/USDT", "binance")
	require.True(t, ok)
	assert.Equal(t, 100.1, q.BidPrice())
	assert.Equal(t, 100.2, q.AskPrice())
	assert.Equal(t, 13000.0, q.Volume)
}

func TestCache_SnapshotIsACopy(t *testing.T) {
	c := NewCache()
	c.Update("BTC/USDT", "binance", models.Quote{Bid: models.Float(1), Ask: models.Float(2), Volume: 10})

	snap := c.Snapshot("BTC/USDT")
	require.Len(t, snap, 1)

	c.Update("BTC/USDT", "bybit", models.Quote{Bid: models.Float(3), Ask: models.Float(4), Volume: 10})
	assert.Len(t, snap, 1, "snapshot must not observe later writes")
	assert.Len(t, c.Snapshot("BTC/USDT"), 2)

	assert.Nil(t, c.Snapshot("ETH/USDT"))
}

func TestCache_SymbolsSorted(t *testing.T) {
	c := NewCache()
	c.Seed("ETH/USDT", "binance", 0)
	c.Seed("BTC/USDT", "binance", 0)
	c.Seed("ADA/USDT", "bybit", 0)

	assert.Equal(t, []string{"ADA/USDT", "BTC/USDT", "ETH/USDT"}, c.Symbols())
	assert.Equal(t, 3, c.Len())
}

func TestCache_ConcurrentWritersDistinctVenues(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	venues := []string{"binance", "bybit", "okx", "bitget", "gateio"}
	for _, venue := range venues {
		wg.Add(1)
		go func(venue string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Update("BTC/USDT", venue, models.Quote{
					Bid:    models.Float(float64(i)),
					Ask:    models.Float(float64(i) + 0.5),
					Volume: float64(i),
				})
				_ = c.Snapshot("BTC/USDT")
			}
		}(venue)
	}
	wg.Wait()

	snap := c.Snapshot("BTC/USDT")
	require.Len(t, snap, len(venues))
	for _, venue := range venues {
		q := snap[venue]
		assert.True(t, q.Tradable(), fmt.Sprintf("venue %s should have final quote", venue))
	}
}
