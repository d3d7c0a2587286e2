package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type levelOptions struct {
	transition time.Duration
	// transitionSet is true when --transition was given, so that an explicit
	// zero means instant instead of the fixture default.
	transitionSet bool
	channel    int
	hold       bool
}

func newLevelCmd(opts *rootOptions) *cobra.Command {
	lo := &levelOptions{}
	cmd := &cobra.Command{
		Use:   "level <percent>",
		Short: "Fade the fixture to a brightness and hold it",
		Long: `Fade the fixture to a brightness percent (0-100) on the chosen channel.

Outputs are released when lightctl exits, so by default the level is held
until interrupted. The fixture state is printed as JSON once the fade ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[0], err)
			}
			lo.transitionSet = cmd.Flags().Changed("transition")
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return setLevel(ctx, opts, lo, percent)
		},
	}
	cmd.Flags().DurationVarP(&lo.transition, "transition", "t", 0, "fade duration, 0 for instant (default fixture.transition)")
	cmd.Flags().IntVar(&lo.channel, "channel", 0, "index of the channel to light")
	cmd.Flags().BoolVar(&lo.hold, "hold", true, "keep outputs driven until interrupted")
	return cmd
}

func setLevel(ctx context.Context, opts *rootOptions, lo *levelOptions, percent float64) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log, opts.stderr)

	if lo.transition < 0 {
		return fmt.Errorf("transition %s must be >= 0", lo.transition)
	}
	if lo.channel < 0 || lo.channel >= len(cfg.Channels) {
		return fmt.Errorf("channel %d out of range (0..%d)", lo.channel, len(cfg.Channels)-1)
	}

	rt, err := buildRuntime(cfg, opts.dryRun, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	for i := 0; i < lo.channel; i++ {
		if err := rt.fixture.ToggleMode(); err != nil {
			return err
		}
	}
	if lo.transitionSet {
		err = rt.fixture.LevelOver(percent, lo.transition)
	} else {
		err = rt.fixture.Level(percent)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(opts.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rt.fixture.Snapshot()); err != nil {
		return err
	}

	if lo.hold && rt.sim == nil {
		log.Info("holding level, interrupt to release", "percent", percent)
		<-ctx.Done()
	}
	return nil
}
