//go:build !linux

package pwmio

func newSysfsBackend(base string) (pwmBackend, error) {
	return nil, ErrUnsupported
}

func openOutput(line int, consumer string) (digitalOut, error) {
	return nil, ErrUnsupported
}

// LocateLine is only available on Linux.
func LocateLine(bcm int) (chip string, offset int, err error) {
	return "", 0, ErrUnsupported
}
