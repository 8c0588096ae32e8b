package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"futures-core/internal/candle"
	"futures-core/internal/events"
	"futures-core/pkg/exchanges/common"
)

// Config represents one strategy instance entry in YAML.
type Config struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"` // technical | breakout
	Symbol     string             `yaml:"symbol"`
	Timeframe  string             `yaml:"timeframe"`
	BalancePct float64            `yaml:"balance_pct"`
	Parameters map[string]float64 `yaml:"parameters"`
}

// ConfigFile represents the top-level YAML structure.
type ConfigFile struct {
	Strategies []Config `yaml:"strategies"`
}

// LoadConfig reads strategy instances from a YAML file.
func LoadConfig(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Strategies, nil
}

// Build constructs a strategy instance from its config entry.
func Build(cfg Config, contracts map[string]common.Contract, exchange Exchange, watcher Watcher, bus *events.Bus) (*Strategy, error) {
	contract, ok := contracts[cfg.Symbol]
	if !ok {
		return nil, fmt.Errorf("strategy %s: unknown symbol %s", cfg.Name, cfg.Symbol)
	}
	if _, ok := candle.Timeframes[cfg.Timeframe]; !ok {
		return nil, fmt.Errorf("strategy %s: unknown timeframe %s", cfg.Name, cfg.Timeframe)
	}
	if cfg.BalancePct <= 0 || cfg.BalancePct > 100 {
		return nil, fmt.Errorf("strategy %s: balance_pct %v out of range", cfg.Name, cfg.BalancePct)
	}

	param := func(key string, def float64) float64 {
		if v, ok := cfg.Parameters[key]; ok {
			return v
		}
		return def
	}

	var signaler Signaler
	switch cfg.Type {
	case "technical":
		signaler = TechnicalSignaler{
			EMAFast:   int(param("ema_fast", 12)),
			EMASlow:   int(param("ema_slow", 26)),
			EMASignal: int(param("ema_signal", 9)),
			RSILength: int(param("rsi_length", 14)),
		}
	case "breakout":
		signaler = BreakoutSignaler{MinVolume: param("min_volume", 0)}
	default:
		return nil, fmt.Errorf("strategy %s: unknown type %s", cfg.Name, cfg.Type)
	}

	return New(cfg.Name, cfg.Type, contract, cfg.Timeframe, cfg.BalancePct, signaler, exchange, watcher, bus), nil
}
