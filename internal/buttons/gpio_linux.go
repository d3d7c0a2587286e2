//go:build linux

package buttons

import (
	"fmt"
	"io"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"lightctl/internal/pwmio"
)

func openInput(pin int, consumer string, onPress func(at time.Duration)) (io.Closer, error) {
	chip, offset, err := pwmio.LocateLine(pin)
	if err != nil {
		return nil, err
	}
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			onPress(evt.Timestamp)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request gpio %d: %w", pin, err)
	}
	return l, nil
}
