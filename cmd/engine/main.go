package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luckypool/lottery-engine/internal/engine"
	"github.com/luckypool/lottery-engine/internal/oracle"
	"github.com/luckypool/lottery-engine/internal/token"
	"github.com/luckypool/lottery-engine/internal/worker"
	"github.com/luckypool/lottery-engine/pkg/common/config"
	"github.com/luckypool/lottery-engine/pkg/common/logger"
	"github.com/luckypool/lottery-engine/pkg/common/utils"
	"github.com/luckypool/lottery-engine/pkg/events"
	"github.com/luckypool/lottery-engine/pkg/infra"
	"github.com/luckypool/lottery-engine/pkg/kvstore"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "engine",
		Short: "Lottery draw and prize-pool accounting engine",
	}
	root.PersistentFlags().
		StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")

	root.AddCommand(runCmd(), statusCmd(), dumpCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func openStack() (config.Config, infra.KVStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	kv, err := kvstore.NewBadgerStore(cfg.KVStore.Directory, cfg.KVStore.Prefix, infra.JSON)
	if err != nil {
		return cfg, nil, fmt.Errorf("open ledger store: %w", err)
	}
	return cfg, kv, nil
}

func runCmd() *cobra.Command {
	var oracleDelay time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine with the draw poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()

			cfg, kv, err := openStack()
			if err != nil {
				return err
			}
			defer kv.Close()
			slog.Info("Config loaded", "environment", cfg.Environment)

			emitter := events.Emitter(events.NopEmitter{})
			if cfg.NATS.Enabled {
				nc, err := infra.GetNATSConnection(cfg.NATS.URL)
				if err != nil {
					return fmt.Errorf("connect NATS: %w", err)
				}
				defer nc.Close()

				manager, err := infra.NewNATSMessageQueueManager(
					"lottery", []string{cfg.NATS.SubjectPrefix + ".>"}, nc)
				if err != nil {
					return err
				}
				queue, err := manager.NewMessageQueue("engine")
				if err != nil {
					return err
				}
				emitter = events.NewEmitter(queue, cfg.NATS.SubjectPrefix)
			}
			defer emitter.Close()

			eng, err := engine.New(cfg, kv, token.NewLedger(kv), emitter)
			if err != nil {
				return fmt.Errorf("create engine: %w", err)
			}

			orc, err := oracle.NewLocalOracle(oracleDelay, eng.HandleRandomness)
			if err != nil {
				return fmt.Errorf("create oracle: %w", err)
			}
			eng.WithOracle(orc)

			poller := worker.NewDrawPoller(context.Background(), eng, cfg.Poller.PollInterval)
			poller.Start()

			slog.Info("Engine is running. Press Ctrl+C to stop.")
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c

			slog.Info("Shutting down engine...")
			poller.Stop()
			slog.Info("Engine stopped.")
			return nil
		},
	}
	cmd.Flags().DurationVar(&oracleDelay, "oracle-delay", 5*time.Second,
		"Simulated oracle fulfillment latency")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print pool balances and scheduler state",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()

			cfg, kv, err := openStack()
			if err != nil {
				return err
			}
			defer kv.Close()

			eng, err := engine.New(cfg, kv, token.NewLedger(kv), events.NopEmitter{})
			if err != nil {
				return err
			}

			status, err := eng.Status()
			if err != nil {
				return err
			}
			report, err := eng.AuditConservation()
			if err != nil {
				return err
			}
			stats, err := eng.AuditStats()
			if err != nil {
				return err
			}

			dec := cfg.Token.Decimals
			fmt.Printf("current game day:   %d\n", status.CurrentDay)
			fmt.Printf("automation active:  %v\n", status.Scheduler.AutomationActive)
			fmt.Printf("emergency pause:    %v\n", status.Scheduler.EmergencyPause)
			fmt.Printf("pending draw:       %q\n", status.PendingDraw.RequestID)
			fmt.Printf("ticket price:       %s\n", utils.FormatAmount(status.Scheduler.TicketPrice, dec))
			fmt.Println()
			fmt.Printf("main pools    first=%s second=%s third=%s development=%s\n",
				utils.FormatAmount(status.Main.First, dec),
				utils.FormatAmount(status.Main.Second, dec),
				utils.FormatAmount(status.Main.Third, dec),
				utils.FormatAmount(status.Main.Development, dec))
			fmt.Printf("reserve pools first=%s second=%s third=%s buffer=%s\n",
				utils.FormatAmount(status.Reserve.First, dec),
				utils.FormatAmount(status.Reserve.Second, dec),
				utils.FormatAmount(status.Reserve.Third, dec),
				utils.FormatAmount(status.Reserve.Buffer, dec))
			fmt.Println()
			fmt.Printf("tickets issued:     %d\n", stats.TicketsSold)
			fmt.Printf("days drawn:         %d\n", stats.DaysDrawn)
			fmt.Printf("claims settled:     %d\n", stats.ClaimsSettled)
			fmt.Printf("prizes paid:        %s\n", utils.FormatAmount(stats.PrizesPaid, dec))
			fmt.Println()
			fmt.Printf("token balance:      %s\n", utils.FormatAmount(report.TokenBalance, dec))
			fmt.Printf("accounted total:    %s\n", utils.FormatAmount(report.Accounted(), dec))
			fmt.Printf("conserved:          %v\n", report.Balanced())
			return nil
		},
	}
}

func dumpCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump raw ledger entries by key prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()

			_, kv, err := openStack()
			if err != nil {
				return err
			}
			defer kv.Close()

			pairs, err := kv.List(prefix)
			if err != nil {
				return err
			}
			for _, pair := range pairs {
				fmt.Printf("%s\t%s\n", pair.Key, pair.Value)
			}
			slog.Info("Dump complete", "prefix", prefix, "entries", len(pairs))
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "tickets", "Key prefix to dump")
	return cmd
}
