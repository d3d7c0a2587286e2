package main

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"lightctl/internal/dimmer"
	"lightctl/internal/easing"
)

type curveOptions struct {
	width   int
	height  int
	samples int
	target  float64
}

func newCurveCmd(opts *rootOptions) *cobra.Command {
	co := &curveOptions{}
	cmd := &cobra.Command{
		Use:   "curve [name]",
		Short: "Plot an easing curve, or list curves when no name is given",
		Long: `Plot the duty percent written during a fade from off to --target
brightness with the named easing curve. The target is perceptually
corrected first, so low targets produce small duty values.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(opts.stdout, strings.Join(easing.Names(), "\n"))
				return nil
			}
			plot, err := plotCurve(args[0], co)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.stdout, plot)
			return nil
		},
	}
	cmd.Flags().IntVar(&co.width, "width", 60, "plot width in columns")
	cmd.Flags().IntVar(&co.height, "height", 15, "plot height in rows")
	cmd.Flags().IntVar(&co.samples, "samples", 120, "number of samples across the fade")
	cmd.Flags().Float64Var(&co.target, "target", 100, "brightness percent at the end of the fade")
	return cmd
}

// sampleFade evaluates a fade from 0 to the corrected target at n+1 evenly
// spaced points, in duty percent.
func sampleFade(fn easing.Func, n int, target float64) []float64 {
	if n < 1 {
		n = 1
	}
	duty := dimmer.Correct(target)
	out := make([]float64, n+1)
	for i := range out {
		out[i] = fn(float64(i), 0, duty, float64(n))
	}
	return out
}

func plotCurve(name string, co *curveOptions) (string, error) {
	fn, err := easing.Lookup(name)
	if err != nil {
		return "", err
	}
	if co.target < 0 || co.target > 100 {
		return "", fmt.Errorf("target %v outside 0-100", co.target)
	}
	data := sampleFade(fn, co.samples, co.target)
	return asciigraph.Plot(data,
		asciigraph.Width(co.width),
		asciigraph.Height(co.height),
		asciigraph.Caption(fmt.Sprintf("%s to %.0f%%", name, co.target)),
	), nil
}
