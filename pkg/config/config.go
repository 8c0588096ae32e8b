package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading core.
type Config struct {
	Port string

	// Binance
	BinanceTestnet   bool
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceSymbols   []string

	// Strategies
	StrategiesFile string

	// Streaming
	ReconnectDelay time.Duration

	// Order lifecycle polling
	OrderPollDelay time.Duration
	OrderMaxChecks int // 0 = retry forever

	// Candle warm-up
	WarmupCandles int

	// Journal (write-only audit trail; empty path disables it)
	JournalPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		BinanceTestnet:   getEnv("BINANCE_TESTNET", "true") == "true",
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		BinanceSymbols:   splitAndTrim(getEnv("BINANCE_SYMBOLS", "BTCUSDT,ETHUSDT")),
		StrategiesFile:   getEnv("STRATEGIES_FILE", "strategies.yaml"),
		ReconnectDelay:   getEnvDuration("WS_RECONNECT_DELAY", 2*time.Second),
		OrderPollDelay:   getEnvDuration("ORDER_POLL_DELAY", 2*time.Second),
		OrderMaxChecks:   getEnvInt("ORDER_MAX_CHECKS", 0),
		WarmupCandles:    getEnvInt("WARMUP_CANDLES", 100),
		JournalPath:      getEnv("JOURNAL_PATH", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
