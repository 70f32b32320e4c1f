// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// State is the lifecycle position of a Session.
type State int

const (
	Unloaded State = iota
	Loaded
	Injected
	Reinforced
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Injected:
		return "injected"
	case Reinforced:
		return "reinforced"
	}
	return "unknown"
}

// DefaultRetryDelays are the offsets, from the first injection, of the
// reinforcement passes that rewrite slots a template script may reset.
var DefaultRetryDelays = []time.Duration{800 * time.Millisecond, 2 * time.Second, 4 * time.Second}

// Session binds flat content to one frame and keeps it injected.
type Session struct {
	frame   Frame
	content map[string]any
	delays  []time.Duration

	mu     sync.Mutex
	state  State
	passes int
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession returns an Unloaded session. A nil delays slice uses
// DefaultRetryDelays; an empty one disables reinforcement.
func NewSession(frame Frame, content map[string]any, delays []time.Duration) *Session {
	if delays == nil {
		delays = DefaultRetryDelays
	}
	return &Session{frame: frame, content: content, delays: delays}
}

// Loaded reports that the frame finished loading. The first successful
// call hides preloaders, injects the content and schedules the
// reinforcement burst; later calls do nothing. When the frame is
// inaccessible a warning is logged and the session stays Loaded, so the
// next load event tries again.
func (s *Session) Loaded(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unloaded && s.state != Loaded {
		return
	}
	s.state = Loaded

	if !s.pass() {
		return
	}
	s.state = Injected

	if len(s.delays) == 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.reinforce(ctx, time.Now())
}

// reinforce runs one pass at each delay, measured from start.
func (s *Session) reinforce(ctx context.Context, start time.Time) {
	defer s.wg.Done()
	for _, d := range s.delays {
		timer := time.NewTimer(time.Until(start.Add(d)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.pass() {
			s.state = Reinforced
		}
		s.mu.Unlock()
	}
}

// pass runs one hide-and-inject pass. Callers hold s.mu.
func (s *Session) pass() bool {
	filled := 0
	err := s.frame.Access(func(doc *html.Node) {
		HidePreloaders(doc)
		filled = Inject(doc, s.content)
	})
	if err != nil {
		if errors.Is(err, ErrInaccessible) {
			slog.Warn("injection target not accessible", "state", s.state.String())
		} else {
			slog.Warn("injection pass failed", "error", err)
		}
		return false
	}
	s.passes++
	slog.Debug("injection pass", "pass", s.passes, "slots", filled)
	return true
}

// Stop cancels pending reinforcement passes and waits for the scheduler
// to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until every scheduled pass has run or the session stops.
func (s *Session) Wait() {
	s.wg.Wait()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Passes returns the number of successful injection passes so far.
func (s *Session) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}
