package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/imdario/mergo"
)

var validate = validator.New()

// Defaults returns the baseline configuration merged under every loaded file.
// The split percentages mirror the prize-proportional scheme: 80/10/5/5 across
// the main pools and 80/10/10 of the reserve slice, leaving nothing implicit.
func Defaults() Config {
	return Config{
		Environment: "development",
		Game: GameConfig{
			TicketPrice:    1_000_000,
			PickCount:      4,
			NumberRange:    25,
			DayLength:      24 * time.Hour,
			DrawInterval:   24 * time.Hour,
			MaintenanceGap: time.Hour,
		},
		Splits: SplitConfig{
			ReserveBps:         2000,
			MainFirstBps:       8000,
			MainSecondBps:      1000,
			MainThirdBps:       500,
			MainDevelopmentBps: 500,
			ReserveFirstBps:    8000,
			ReserveSecondBps:   1000,
			ReserveThirdBps:    1000,
		},
		Poller: PollerConfig{
			PollInterval: 30 * time.Second,
		},
		KVStore: BadgerKVCfg{
			Directory: "data/ledger",
			Prefix:    "lottery",
		},
		NATS: NATSConfig{
			SubjectPrefix: "lottery.events",
		},
		Token: TokenConfig{
			Decimals:      6,
			EngineAccount: "engine",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Defaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var loaded Config
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return cfg, err
	}

	// merge defaults under the loaded values
	if err := mergo.Merge(&loaded, cfg); err != nil {
		return cfg, err
	}
	cfg = loaded

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("struct validation failed: %w", err)
	}
	if err := cfg.Splits.Validate(); err != nil {
		return cfg, fmt.Errorf("split validation failed: %w", err)
	}
	return cfg, nil
}
