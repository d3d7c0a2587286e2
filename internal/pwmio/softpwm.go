package pwmio

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// softPWM toggles a GPIO output from its own goroutine. Duty, range and
// period are read once per cycle, so updates apply from the next period.
type softPWM struct {
	out digitalOut
	log hclog.Logger

	duty   atomic.Uint32
	rng    atomic.Uint32
	period atomic.Int64 // ns

	stop chan struct{}
	done chan struct{}
}

func startSoftPWM(out digitalOut, rng uint32, hz int, log hclog.Logger) *softPWM {
	s := &softPWM{
		out:  out,
		log:  log,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.rng.Store(rng)
	s.setFrequency(hz)
	go s.run()
	return s
}

func (s *softPWM) setDuty(d uint32)  { s.duty.Store(d) }
func (s *softPWM) setRange(r uint32) { s.rng.Store(r) }

func (s *softPWM) setFrequency(hz int) {
	if hz <= 0 {
		hz = DefaultSoftwareHz
	}
	s.period.Store(int64(time.Second) / int64(hz))
}

func (s *softPWM) run() {
	defer close(s.done)

	level := -1
	failed := false
	set := func(v int) {
		if v == level {
			return
		}
		if err := s.out.SetValue(v); err != nil {
			if !failed {
				s.log.Warn("software pwm write failed", "error", err)
				failed = true
			}
			return
		}
		failed = false
		level = v
	}

	for {
		select {
		case <-s.stop:
			set(0)
			return
		default:
		}

		period := time.Duration(s.period.Load())
		duty, rng := s.duty.Load(), s.rng.Load()
		switch {
		case duty == 0:
			set(0)
			time.Sleep(period)
		case duty >= rng:
			set(1)
			time.Sleep(period)
		default:
			on := time.Duration(int64(period) * int64(duty) / int64(rng))
			set(1)
			time.Sleep(on)
			set(0)
			time.Sleep(period - on)
		}
	}
}

// close stops the goroutine, leaves the line low and releases it.
func (s *softPWM) close() error {
	close(s.stop)
	<-s.done
	return s.out.Close()
}
