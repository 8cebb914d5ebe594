package config

import (
	"fmt"
	"time"
)

type Config struct {
	Environment string        `yaml:"environment" validate:"required,oneof=production development"`
	Game        GameConfig    `yaml:"game"        validate:"required"`
	Splits      SplitConfig   `yaml:"splits"      validate:"required"`
	Poller      PollerConfig  `yaml:"poller"`
	KVStore     BadgerKVCfg   `yaml:"kvstore"`
	NATS        NATSConfig    `yaml:"nats"`
	Token       TokenConfig   `yaml:"token"`
}

type GameConfig struct {
	// TicketPrice is denominated in the settlement token's smallest unit.
	TicketPrice int64 `yaml:"ticket_price" validate:"required,gt=0"`
	// PickCount numbers per ticket, each in [0, NumberRange-1].
	PickCount   int `yaml:"pick_count"   validate:"required,gt=0"`
	NumberRange int `yaml:"number_range" validate:"required,gt=1"`

	// DayLength and DayAnchorOffset derive the game-day index:
	// floor((now - anchor) / day_length).
	DayLength       time.Duration `yaml:"day_length"        validate:"required"`
	DayAnchorOffset time.Duration `yaml:"day_anchor_offset"`
	// DrawInterval rate-limits draws; at most one per game-day regardless.
	DrawInterval time.Duration `yaml:"draw_interval" validate:"required"`
	// MaintenanceGap spaces the non-draw housekeeping runs; zero disables them.
	MaintenanceGap time.Duration `yaml:"maintenance_gap"`

	// AdminAccount is the only caller allowed on the administrative surface.
	AdminAccount string `yaml:"admin_account" validate:"required"`
}

// SplitConfig expresses every revenue split in basis points. The exact
// percentages vary between operator deployments, so they are configuration
// rather than constants. Whatever the reserve tier shares leave unassigned
// goes to the undistributed buffer.
type SplitConfig struct {
	// ReserveBps is the slice of each purchase diverted to the reserves.
	ReserveBps int64 `yaml:"reserve_bps" validate:"gte=0,lte=10000"`

	// Main pool shares of the main portion; must sum to exactly 10000.
	MainFirstBps       int64 `yaml:"main_first_bps"`
	MainSecondBps      int64 `yaml:"main_second_bps"`
	MainThirdBps       int64 `yaml:"main_third_bps"`
	MainDevelopmentBps int64 `yaml:"main_development_bps"`

	// Reserve pool shares of the reserve portion; may sum to less than
	// 10000, the rest stays in the buffer.
	ReserveFirstBps  int64 `yaml:"reserve_first_bps"`
	ReserveSecondBps int64 `yaml:"reserve_second_bps"`
	ReserveThirdBps  int64 `yaml:"reserve_third_bps"`
}

func (s SplitConfig) Validate() error {
	mainSum := s.MainFirstBps + s.MainSecondBps + s.MainThirdBps + s.MainDevelopmentBps
	if mainSum != 10000 {
		return fmt.Errorf("main pool shares must sum to 10000 bps, got %d", mainSum)
	}
	reserveSum := s.ReserveFirstBps + s.ReserveSecondBps + s.ReserveThirdBps
	if reserveSum > 10000 {
		return fmt.Errorf("reserve pool shares exceed 10000 bps: %d", reserveSum)
	}
	for _, bps := range []int64{
		s.ReserveBps,
		s.MainFirstBps, s.MainSecondBps, s.MainThirdBps, s.MainDevelopmentBps,
		s.ReserveFirstBps, s.ReserveSecondBps, s.ReserveThirdBps,
	} {
		if bps < 0 {
			return fmt.Errorf("negative share: %d bps", bps)
		}
	}
	return nil
}

type PollerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type BadgerKVCfg struct {
	Directory string `yaml:"directory" validate:"required"`
	Prefix    string `yaml:"prefix"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type TokenConfig struct {
	// Decimals is only used for human-readable amount formatting.
	Decimals int32 `yaml:"decimals"`
	// EngineAccount holds collected revenue and pays out prizes.
	EngineAccount string `yaml:"engine_account" validate:"required"`
}
