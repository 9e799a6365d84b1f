package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/models"
)

const (
	bybitSpotURL   = "wss://stream.bybit.com/v5/public/spot"
	bybitLinearURL = "wss://stream.bybit.com/v5/public/linear"

	bybitPingInterval = 20 * time.Second
	bybitReadTimeout  = 60 * time.Second
)

// BybitStream implements Stream against Bybit's public v5 ticker topics.
// One instance serves one market category (spot or linear); the caller
// partitions its symbol batches accordingly.
type BybitStream struct {
	url string
	log *logrus.Entry
}

func NewBybitStream(market models.MarketType, logger *logrus.Logger) *BybitStream {
	url := bybitSpotURL
	if market == models.MarketFutures {
		url = bybitLinearURL
	}
	return &BybitStream{
		url: url,
		log: logger.WithFields(logrus.Fields{
			"component": "stream",
			"venue":     "bybit",
		}),
	}
}

type bybitRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type bybitMessage struct {
	Topic   string          `json:"topic"`
	Op      string          `json:"op"`
	Success *bool           `json:"success"`
	RetMsg  string          `json:"ret_msg"`
	Data    json.RawMessage `json:"data"`
}

type bybitTicker struct {
	Symbol      string `json:"symbol"`
	Bid1Price   string `json:"bid1Price"`
	Ask1Price   string `json:"ask1Price"`
	Turnover24h string `json:"turnover24h"`
}

// Subscribe dials the endpoint, subscribes to the batch's ticker topics and
// pumps updates into the handler until cancellation or failure. The
// connection is always closed before returning.
func (s *BybitStream) Subscribe(ctx context.Context, symbols []string, handler func([]Ticker)) error {
	topics := make([]string, 0, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		contract := bybitContract(symbol)
		topics = append(topics, "tickers."+contract)
		bySymbol[contract] = symbol
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return newFault(FaultTransient, "bybit", fmt.Errorf("dial %s: %w", s.url, err))
	}
	defer conn.Close()

	if err := conn.WriteJSON(bybitRequest{Op: "subscribe", Args: topics}); err != nil {
		return newFault(FaultTransient, "bybit", fmt.Errorf("subscribe: %w", err))
	}
	s.log.WithField("topics", len(topics)).Info("Subscribed to ticker stream")

	// Close the connection on cancellation to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pings := time.NewTicker(bybitPingInterval)
	defer pings.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pings.C:
				if err := conn.WriteJSON(bybitRequest{Op: "ping"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(bybitReadTimeout)); err != nil {
			return newFault(FaultTransient, "bybit", err)
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return newFault(FaultTransient, "bybit", fmt.Errorf("read: %w", err))
		}

		var msg bybitMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.WithError(err).Warn("Dropping unparseable frame")
			continue
		}

		if msg.Success != nil && !*msg.Success {
			return newFault(classifyBybitReject(msg.RetMsg), "bybit", fmt.Errorf("server rejected %q: %s", msg.Op, msg.RetMsg))
		}
		if !strings.HasPrefix(msg.Topic, "tickers.") || len(msg.Data) == 0 {
			continue
		}

		var data bybitTicker
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.log.WithError(err).WithField("topic", msg.Topic).Warn("Dropping unparseable ticker")
			continue
		}
		symbol, ok := bySymbol[data.Symbol]
		if !ok {
			continue
		}

		handler([]Ticker{{
			Symbol: symbol,
			Bid:    s.parsePrice(symbol, "bid", data.Bid1Price),
			Ask:    s.parsePrice(symbol, "ask", data.Ask1Price),
			Volume: s.parsePrice(symbol, "volume", data.Turnover24h),
		}})
	}
}

// parsePrice converts a wire string, dropping (and logging) values that fail
// numeric conversion. Ticker deltas legitimately omit unchanged fields.
func (s *BybitStream) parsePrice(symbol, field, raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.log.WithFields(logrus.Fields{"symbol": symbol, "field": field}).
			WithError(err).Warn("Dropping non-numeric value")
		return nil
	}
	return &v
}

func classifyBybitReject(retMsg string) FaultKind {
	lower := strings.ToLower(retMsg)
	if strings.Contains(lower, "timestamp") || strings.Contains(lower, "expired") {
		return FaultClockDesync
	}
	return FaultOther
}

// bybitContract flattens either of bybit's tracked symbol forms ("BTC/USDT"
// spot, "BTC/USDT:USDT" linear) into the wire name "BTCUSDT".
func bybitContract(symbol string) string {
	symbol = strings.TrimSuffix(symbol, ":USDT")
	return strings.ReplaceAll(symbol, "/", "")
}
