package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	dryRun     bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "lightctl",
		Short: "Perceptual PWM dimmer for LED fixtures",
		Long: `lightctl drives one or more PWM channels of an LED fixture with
perceptually corrected, eased transitions and switches the fixture fan
with the light.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("lightctl %s (built: %s)\n", Version, BuildTime))
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "use the in-memory simulator instead of GPIO hardware")

	root.AddCommand(
		newRunCmd(opts),
		newLevelCmd(opts),
		newCurveCmd(opts),
	)
	return root
}
