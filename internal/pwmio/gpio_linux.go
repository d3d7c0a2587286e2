//go:build linux

package pwmio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

var gpioDevDir = "/dev"

// LocateLine finds the chip and offset of a BCM GPIO by its line name
// ("GPIO18"). Header GPIOs live on gpiochip0 on most Pis and on gpiochip4 on
// some Pi 5 kernels; every other chip is tried after those.
func LocateLine(bcm int) (chip string, offset int, err error) {
	if bcm < 0 {
		return "", 0, fmt.Errorf("pwmio: invalid gpio %d", bcm)
	}
	lineName := fmt.Sprintf("GPIO%d", bcm)

	candidates := []string{filepath.Join(gpioDevDir, "gpiochip0"), filepath.Join(gpioDevDir, "gpiochip4")}
	entries, _ := os.ReadDir(gpioDevDir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			candidates = append(candidates, filepath.Join(gpioDevDir, e.Name()))
		}
	}

	tried := make(map[string]bool, len(candidates))
	for _, chipPath := range candidates {
		if tried[chipPath] {
			continue
		}
		tried[chipPath] = true
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		off, err := c.FindLine(lineName)
		_ = c.Close()
		if err != nil {
			continue
		}
		return chipPath, off, nil
	}
	return "", 0, fmt.Errorf("pwmio: gpio line %q not found", lineName)
}

// openOutput requests a BCM GPIO as an output, initially low, with the
// pull-down bias an N-channel MOSFET gate expects.
func openOutput(line int, consumer string) (digitalOut, error) {
	chip, offset, err := LocateLine(line)
	if err != nil {
		return nil, err
	}
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithPullDown,
		gpiocdev.WithConsumer(consumer),
	)
	if err != nil {
		return nil, fmt.Errorf("pwmio: request gpio %d: %w", line, err)
	}
	return &gpiodOutput{line: l}, nil
}

type gpiodOutput struct {
	line *gpiocdev.Line
}

func (g *gpiodOutput) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("pwmio: gpio output not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodOutput) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	return err
}
