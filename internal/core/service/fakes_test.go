package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/Wyydra/callsim/internal/core/port"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeNegotiator struct {
	mu          sync.Mutex
	persona     domain.PersonaConfig
	cb          port.Callbacks
	connects    int
	disconnects int
	connectErr  *domain.CallError
	onConnect   func(n *fakeNegotiator)
}

func (n *fakeNegotiator) Connect(ctx context.Context) error {
	n.mu.Lock()
	n.connects++
	hook := n.onConnect
	ce := n.connectErr
	n.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if ce != nil {
		n.cb.OnError(ce)
		return ce
	}
	return nil
}

func (n *fakeNegotiator) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnects++
}

func (n *fakeNegotiator) Counts() (connects, disconnects int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connects, n.disconnects
}

type negotiatorFactory struct {
	mu        sync.Mutex
	created   []*fakeNegotiator
	configure func(n *fakeNegotiator)
}

func (f *negotiatorFactory) New(p domain.PersonaConfig, cb port.Callbacks) port.Negotiator {
	n := &fakeNegotiator{persona: p, cb: cb}
	if f.configure != nil {
		f.configure(n)
	}
	f.mu.Lock()
	f.created = append(f.created, n)
	f.mu.Unlock()
	return n
}

func (f *negotiatorFactory) Created() []*fakeNegotiator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeNegotiator(nil), f.created...)
}

func (f *negotiatorFactory) Last() *fakeNegotiator {
	created := f.Created()
	if len(created) == 0 {
		return nil
	}
	return created[len(created)-1]
}

type recordingGateway struct {
	mu     sync.Mutex
	events []domain.CallEvent
}

func (g *recordingGateway) Publish(ctx context.Context, ev domain.CallEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, ev)
	return nil
}

func (g *recordingGateway) Events() []domain.CallEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.CallEvent(nil), g.events...)
}

func (g *recordingGateway) States() []domain.CallState {
	var states []domain.CallState
	for _, ev := range g.Events() {
		if ev.Type == domain.EventCallState {
			states = append(states, ev.Snapshot.State)
		}
	}
	return states
}

type stubPersonas struct {
	persona domain.PersonaConfig
	err     error
}

func (s stubPersonas) Persona(ctx context.Context) (domain.PersonaConfig, error) {
	return s.persona, s.err
}

type memoryPersonaRepo struct {
	mu     sync.Mutex
	stored *domain.PersonaConfig
	getErr error
}

func (r *memoryPersonaRepo) Get(ctx context.Context) (domain.PersonaConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.PersonaConfig{}, false, r.getErr
	}
	if r.stored == nil {
		return domain.PersonaConfig{}, false, nil
	}
	return *r.stored, true, nil
}

func (r *memoryPersonaRepo) Save(ctx context.Context, p domain.PersonaConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = &p
	return nil
}

var errStoreDown = errors.New("store down")
