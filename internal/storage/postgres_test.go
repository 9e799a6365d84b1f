package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtkach/arbscout/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func sampleOpportunity() models.Opportunity {
	return models.Opportunity{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Kind:      models.KindCrossVenue,
		Symbol:    "BTC/USDT",
		BuyVenue:  "binance",
		SellVenue: "bybit",
		BuyPrice:  100.0,
		SellPrice: 100.5,
		Profit:    0.003,
		Volume:    100,
		Path:      "cross:binance->bybit:BTC/USDT",
		Details:   "buy binance (ASK 100.0000) → sell bybit (BID 100.5000)",
	}
}

func TestPostgresStore_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	opp := sampleOpportunity()
	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(pgxmock.AnyArg(), opp.Timestamp, "cross_venue", opp.Symbol,
			opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
			opp.Profit, opp.Volume, opp.Path, opp.Details).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := newPostgresWithPool(mock, quietLogger())
	require.NoError(t, store.Append(context.Background(), opp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO opportunities").
		WillReturnError(errors.New("connection reset"))

	store := newPostgresWithPool(mock, quietLogger())
	err = store.Append(context.Background(), sampleOpportunity())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append opportunity")
}

func TestPostgresStore_Bootstrap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS opportunities").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store := newPostgresWithPool(mock, quietLogger())
	require.NoError(t, store.bootstrap(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopStore_Append(t *testing.T) {
	assert.NoError(t, NopStore{}.Append(context.Background(), sampleOpportunity()))
}
