//go:build !linux

package buttons

import (
	"io"
	"time"

	"lightctl/internal/pwmio"
)

func openInput(pin int, consumer string, onPress func(at time.Duration)) (io.Closer, error) {
	return nil, pwmio.ErrUnsupported
}
