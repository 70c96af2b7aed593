package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	statusUpdateInterval = 100 * time.Millisecond
	clearLineSequence    = "\r\033[K"
)

// statusLine prints a single in-place progress line with the current phase
// and elapsed (or, with a duration, remaining) seconds.
//
// Single-use: Start at most once, Stop exactly once. Stop is safe to call
// repeatedly and from the phase callback.
type statusLine struct {
	prefix    string
	phase     atomic.Value // string
	stopPhase string
	duration  time.Duration // >0 switches to countdown display
	startTime time.Time
	ticker    atomic.Pointer[time.Ticker]
	stopChan  chan struct{}
	done      chan struct{}
	started   atomic.Bool
}

// newStatusLine creates a count-up status line. Setting the phase to
// stopPhase via Callback shuts the line down.
func newStatusLine(prefix, phase, stopPhase string) *statusLine {
	s := &statusLine{prefix: prefix, stopPhase: stopPhase}
	s.phase.Store(phase)
	return s
}

// newCountdownStatusLine creates a status line counting down from duration.
func newCountdownStatusLine(prefix, phase string, duration time.Duration, stopPhase string) *statusLine {
	s := newStatusLine(prefix, phase, stopPhase)
	s.duration = duration
	return s
}

func (s *statusLine) Start() {
	if !s.started.CompareAndSwap(false, true) {
		panic("statusLine.Start called more than once")
	}

	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.startTime = time.Now()
	ticker := time.NewTicker(statusUpdateInterval)
	s.ticker.Store(ticker)

	fmt.Printf("\r%s (%s...)   ", s.prefix, s.phase.Load().(string))

	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				phase := s.phase.Load().(string)
				if phase == s.stopPhase {
					return
				}
				s.print(phase)
			}
		}
	}()
}

func (s *statusLine) print(phase string) {
	elapsed := time.Since(s.startTime)
	seconds := int(elapsed.Seconds())
	if s.duration > 0 {
		remaining := s.duration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		// Round to the nearest whole second so 3.7s reads as 4s
		seconds = int(remaining.Seconds() + 0.5)
	}

	if seconds > 0 {
		fmt.Printf("\r%s (%s %ds)   ", s.prefix, phase, seconds)
	} else {
		fmt.Printf("\r%s (%s...)   ", s.prefix, phase)
	}
}

// Callback adapts the status line to scanner/link progress callbacks. Safe
// for concurrent use.
func (s *statusLine) Callback() func(phase string) {
	return func(phase string) {
		s.phase.Store(phase)
		if phase == s.stopPhase {
			s.Stop()
		}
	}
}

// Stop clears the line. Only the first call tears the goroutine down.
func (s *statusLine) Stop() {
	ticker := s.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(s.stopChan)
	<-s.done

	fmt.Print(clearLineSequence)
}
