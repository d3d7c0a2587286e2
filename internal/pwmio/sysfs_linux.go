//go:build linux

package pwmio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsBackend drives hardware PWM through /sys/class/pwm.
//
// On Raspberry Pi 1-4 the pwm-2chan overlay exposes GPIO12/18 as channel 0
// and GPIO13/19 as channel 1. On the Pi 5 the RP1 chip has four channels,
// one per line: GPIO12, 13, 18 and 19.
type sysfsBackend struct {
	base string
	pi5  bool
}

var isRaspberryPi5Fn = isRaspberryPi5

func newSysfsBackend(base string) (pwmBackend, error) {
	if _, err := os.Stat(base); err != nil {
		return nil, fmt.Errorf("pwmio: %s: %w", base, err)
	}
	return &sysfsBackend{base: base, pi5: isRaspberryPi5Fn()}, nil
}

func (b *sysfsBackend) channelFor(line int) (int, error) {
	if b.pi5 {
		switch line {
		case 12:
			return 0, nil
		case 13:
			return 1, nil
		case 18:
			return 2, nil
		case 19:
			return 3, nil
		}
	} else {
		switch line {
		case 12, 18:
			return 0, nil
		case 13, 19:
			return 1, nil
		}
	}
	return 0, fmt.Errorf("pwmio: gpio %d has no hardware pwm channel", line)
}

func (b *sysfsBackend) open(line int) (pwmDriver, error) {
	channel, err := b.channelFor(line)
	if err != nil {
		return nil, err
	}
	chipPath, err := findPWMChip(b.base, channel)
	if err != nil {
		return nil, err
	}
	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	if err := d.writeBool("enable", false); err == nil {
		d.enabled = false
	}
	return d, nil
}

func (b *sysfsBackend) close() error { return nil }

// sysfsPWM is one exported channel of a pwmchip.
type sysfsPWM struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	hz       int
	periodNS uint64
	dutyNS   uint64
	enabled  bool
}

// findPWMChip returns the first pwmchip with more than channel outputs,
// preferring the low-numbered chips.
func findPWMChip(base string, channel int) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("pwmio: read %s: %w", base, err)
	}

	preferred := []string{"pwmchip0", "pwmchip1", "pwmchip2"}
	// In sysfs, pwmchipN entries are commonly symlinks, not directories.
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			seen[e.Name()] = true
		}
	}
	candidates := make([]string, 0, len(entries))
	for _, name := range preferred {
		if seen[name] {
			candidates = append(candidates, name)
			delete(seen, name)
		}
	}
	for _, e := range entries {
		if seen[e.Name()] {
			candidates = append(candidates, e.Name())
		}
	}

	for _, name := range candidates {
		chip := filepath.Join(base, name)
		n, err := readInt(filepath.Join(chip, "npwm"))
		if err != nil || n <= channel {
			continue
		}
		return chip, nil
	}
	return "", fmt.Errorf("pwmio: no pwmchip with channel %d under %s (is a pwm overlay enabled?)", channel, base)
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(d.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		// Already exported by someone else.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("pwmio: export pwm: %w", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("pwmio: pwm path not created after export: %w", err)
	}
	return nil
}

func (d *sysfsPWM) Apply(hz int, duty uint32) error {
	if hz <= 0 {
		return fmt.Errorf("pwmio: invalid frequency %d", hz)
	}
	if hz != d.hz {
		periodNS := uint64(1_000_000_000 / hz)
		if periodNS == 0 {
			periodNS = 1
		}
		// The kernel rejects a period shorter than the current duty cycle.
		if d.dutyNS > periodNS {
			if err := d.writeUint("duty_cycle", 0); err != nil {
				return err
			}
			d.dutyNS = 0
		}
		if err := d.writeUint("period", periodNS); err != nil {
			return err
		}
		d.periodNS = periodNS
		d.hz = hz
	}

	dutyNS := d.periodNS * uint64(duty) / MaxHardwareDuty
	if dutyNS > d.periodNS {
		dutyNS = d.periodNS
	}
	if dutyNS != d.dutyNS || !d.enabled {
		if err := d.writeUint("duty_cycle", dutyNS); err != nil {
			return err
		}
		d.dutyNS = dutyNS
	}

	if !d.enabled {
		if err := d.writeBool("enable", true); err != nil {
			return err
		}
		d.enabled = true
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	err1 := d.writeUint("duty_cycle", 0)
	err2 := d.writeBool("enable", false)
	d.enabled = false
	d.dutyNS = 0
	return errors.Join(err1, err2)
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

// sysfsRetryWindow bounds how long writeSysfs retries EACCES/ENOENT.
var sysfsRetryWindow = 2 * time.Second

func writeSysfs(path string, value string) error {
	// Use O_WRONLY without O_TRUNC/O_CREATE: some sysfs attributes reject
	// truncation flags. Right after export udev may still be fixing
	// permissions, so EACCES/ENOENT are retried for a short window.
	deadline := time.Now().Add(sysfsRetryWindow)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return errors.Join(werr, cerr)
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("pwmio: %s is empty", path)
	}
	return strconv.Atoi(s)
}
