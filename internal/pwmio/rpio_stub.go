//go:build !linux || (!arm && !arm64)

package pwmio

func newRPIOBackend() (pwmBackend, error) {
	return nil, ErrUnsupported
}
