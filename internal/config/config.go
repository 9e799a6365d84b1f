package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mtkach/arbscout/internal/models"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Market      MarketConfig   `mapstructure:"market"`
	Scanner     ScannerConfig  `mapstructure:"scanner"`
	Paper       PaperConfig    `mapstructure:"paper"`
	Tracker     TrackerConfig  `mapstructure:"tracker"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// MarketFees is one venue's fee pair for a single market type.
type MarketFees struct {
	Maker float64 `mapstructure:"maker"`
	Taker float64 `mapstructure:"taker"`
}

// VenueFees holds a venue's fee schedule per market type.
type VenueFees struct {
	Spot    MarketFees `mapstructure:"spot"`
	Futures MarketFees `mapstructure:"futures"`
}

// MarketConfig describes the venue universe and its streaming parameters.
type MarketConfig struct {
	Venues    []string             `mapstructure:"venues"`
	Symbols   []string             `mapstructure:"symbols"`
	Fees      map[string]VenueFees `mapstructure:"fees"`
	BatchSize int                  `mapstructure:"batch_size"`
	// Derivatives maps a venue to the printf pattern producing its
	// derivative-contract symbol from a base asset, e.g. "%s/USDT:USDT".
	Derivatives   map[string]string `mapstructure:"derivatives"`
	StreamBackoff time.Duration     `mapstructure:"stream_backoff"`
}

type ScannerConfig struct {
	// ProfitThreshold is a fraction: 0.002 means opportunities below 0.2%
	// net profit are discarded.
	ProfitThreshold float64       `mapstructure:"profit_threshold"`
	MinVolume       float64       `mapstructure:"min_volume"`
	Deposit         float64       `mapstructure:"deposit"`
	Interval        time.Duration `mapstructure:"interval"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
}

// StepDurations models the settlement timing of each leg of a simulated
// cross-venue trade.
type StepDurations struct {
	Buy      time.Duration `mapstructure:"buy"`
	Withdraw time.Duration `mapstructure:"withdraw"`
	Deposit  time.Duration `mapstructure:"deposit"`
	Sell     time.Duration `mapstructure:"sell"`
}

type PaperConfig struct {
	InitialBalance    float64            `mapstructure:"initial_balance"`
	Stake             float64            `mapstructure:"stake"`
	Steps             StepDurations      `mapstructure:"steps"`
	SameVenueSettle   time.Duration      `mapstructure:"same_venue_settle"`
	NetworkFees       map[string]float64 `mapstructure:"network_fees"`
	DefaultNetworkFee float64            `mapstructure:"default_network_fee"`
}

type TrackerConfig struct {
	MaxActive       int           `mapstructure:"max_active"`
	UpdateCooldown  time.Duration `mapstructure:"update_cooldown"`
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
	// MinProfitDelta is the fraction change that justifies re-notifying a
	// path (0.001 = 0.1 percentage point).
	MinProfitDelta float64 `mapstructure:"min_profit_delta"`
}

// TakerFee resolves the taker fee for a venue and market type, falling back
// to 0.1% for venues missing from the schedule.
func (c *Config) TakerFee(venue string, market models.MarketType) float64 {
	fees, ok := c.Market.Fees[venue]
	if !ok {
		return 0.001
	}
	if market == models.MarketFutures {
		return fees.Futures.Taker
	}
	return fees.Spot.Taker
}

// DerivativeSymbol applies the venue's static naming transform to a base
// asset. Returns "" when the venue has no derivative market configured.
func (c *Config) DerivativeSymbol(venue, base string) string {
	pattern, ok := c.Market.Derivatives[venue]
	if !ok {
		return ""
	}
	return fmt.Sprintf(pattern, base)
}

// NetworkFee returns the withdrawal fee for an asset in asset units.
func (c *Config) NetworkFee(asset string) float64 {
	if fee, ok := c.Paper.NetworkFees[asset]; ok {
		return fee
	}
	return c.Paper.DefaultNetworkFee
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_TOKEN: %w", err)
	}
	if err := viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_CHAT_ID: %w", err)
	}
	if err := viper.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus environment cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	return &config, nil
}

func (c *Config) validate() error {
	if c.Scanner.ProfitThreshold < 0 {
		return fmt.Errorf("scanner.profit_threshold must not be negative")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive")
	}
	if c.Paper.Stake <= 0 {
		return fmt.Errorf("paper.stake must be positive")
	}
	if c.Tracker.MaxActive <= 0 {
		return fmt.Errorf("tracker.max_active must be positive")
	}
	if len(c.Market.Venues) == 0 {
		return fmt.Errorf("market.venues must not be empty")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("market.venues", []string{"binance", "bybit", "okx", "bitget", "gateio"})
	viper.SetDefault("market.batch_size", 10)
	viper.SetDefault("market.stream_backoff", "5s")
	viper.SetDefault("market.symbols", defaultSymbols())
	viper.SetDefault("market.derivatives", map[string]string{
		"binance": "%s/USDT:USDT",
		"bybit":   "%s/USDT:USDT",
		"okx":     "%s-USDT-SWAP",
		"bitget":  "%sUSDT",
		"gateio":  "%s_USDT",
	})
	viper.SetDefault("market.fees", map[string]map[string]map[string]float64{
		"binance": {
			"spot":    {"maker": 0.00075, "taker": 0.00075},
			"futures": {"maker": 0.0002, "taker": 0.0004},
		},
		"bybit": {
			"spot":    {"maker": 0.001, "taker": 0.001},
			"futures": {"maker": 0.0001, "taker": 0.0006},
		},
		"okx": {
			"spot":    {"maker": 0.0008, "taker": 0.001},
			"futures": {"maker": 0.0002, "taker": 0.0005},
		},
		"bitget": {
			"spot":    {"maker": 0.001, "taker": 0.001},
			"futures": {"maker": 0.0002, "taker": 0.0006},
		},
		"gateio": {
			"spot":    {"maker": 0.002, "taker": 0.002},
			"futures": {"maker": 0.00015, "taker": 0.0005},
		},
	})

	viper.SetDefault("scanner.profit_threshold", 0.002)
	viper.SetDefault("scanner.min_volume", 5000.0)
	viper.SetDefault("scanner.deposit", 100.0)
	viper.SetDefault("scanner.interval", "2s")
	viper.SetDefault("scanner.min_interval", "2s")

	viper.SetDefault("paper.initial_balance", 10.0)
	viper.SetDefault("paper.stake", 10.0)
	viper.SetDefault("paper.steps.buy", "5s")
	viper.SetDefault("paper.steps.withdraw", "120s")
	viper.SetDefault("paper.steps.deposit", "60s")
	viper.SetDefault("paper.steps.sell", "5s")
	viper.SetDefault("paper.same_venue_settle", "15s")
	viper.SetDefault("paper.network_fees", map[string]float64{
		"BTC":  1.0,
		"ETH":  0.5,
		"SOL":  0.01,
		"USDT": 0.1,
	})
	viper.SetDefault("paper.default_network_fee", 0.1)

	viper.SetDefault("tracker.max_active", 8)
	viper.SetDefault("tracker.update_cooldown", "30s")
	viper.SetDefault("tracker.staleness_window", "300s")
	viper.SetDefault("tracker.min_profit_delta", 0.001)
}

func defaultSymbols() []string {
	return []string{
		// Spot
		"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "XRP/USDT", "ADA/USDT",
		"AVAX/USDT", "DOGE/USDT", "DOT/USDT", "TRX/USDT", "LTC/USDT", "BCH/USDT",
		"MATIC/USDT", "LINK/USDT", "NEAR/USDT", "ATOM/USDT", "UNI/USDT", "ETC/USDT",
		"FIL/USDT", "XLM/USDT", "AAVE/USDT", "SAND/USDT", "MANA/USDT", "GALA/USDT",

		// Derivatives, one naming convention per venue family
		"BTC/USDT:USDT", "ETH/USDT:USDT", "BNB/USDT:USDT", "SOL/USDT:USDT",
		"XRP/USDT:USDT", "ADA/USDT:USDT", "AVAX/USDT:USDT", "DOGE/USDT:USDT",
		"BTC-USDT-SWAP", "ETH-USDT-SWAP", "BNB-USDT-SWAP", "SOL-USDT-SWAP",
		"XRP-USDT-SWAP", "ADA-USDT-SWAP", "AVAX-USDT-SWAP", "DOGE-USDT-SWAP",
		"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT",
		"BTC_USDT", "ETH_USDT", "BNB_USDT", "SOL_USDT", "XRP_USDT", "ADA_USDT",

		// Cross pairs for triangular cycles
		"ETH/BTC", "SOL/BTC", "XRP/BTC", "ADA/BTC", "DOT/BTC", "LTC/BTC",
		"SOL/ETH", "XRP/ETH", "ADA/ETH", "DOT/ETH", "LTC/ETH",
	}
}
