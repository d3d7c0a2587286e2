package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lightctl/internal/buttons"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var level float64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fixture with push-button control until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runFixture(ctx, opts, level)
		},
	}
	cmd.Flags().Float64Var(&level, "level", 0, "brightness percent to fade to on start")
	return cmd
}

func runFixture(ctx context.Context, opts *rootOptions, level float64) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log, opts.stderr)

	rt, err := buildRuntime(cfg, opts.dryRun, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	svc := buttons.New(rt.fixture, buttons.Config{
		Enable:   cfg.Buttons.Enable,
		PowerPin: cfg.Buttons.PowerPin,
		ModePin:  cfg.Buttons.ModePin,
		UpPin:    cfg.Buttons.UpPin,
		DownPin:  cfg.Buttons.DownPin,
		Step:     cfg.Buttons.Step,
		Debounce: cfg.Buttons.Debounce,
		Consumer: cfg.Board.Consumer + "-buttons",
		Logger:   log.Named("buttons"),
	})
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	log.Info("lightctl starting", "channels", len(rt.channels), "driver", driverName(cfg.Board.Driver, opts.dryRun), "buttons", cfg.Buttons.Enable)
	if level > 0 {
		if err := rt.fixture.Level(level); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info("lightctl stopping")
	return nil
}

func driverName(driver string, dryRun bool) string {
	if dryRun {
		return "sim"
	}
	return driver
}
