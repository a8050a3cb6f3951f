// Package qr keeps a WhatsApp login QR code fresh until the device pairs.
//
// A Poller counts down from the refresh interval and asks the backend for a
// new code when the countdown expires or an operator asks for one. It stops
// as soon as the backend reports the connection as open, and falls back to a
// manual retry when the backend reports a terminal state. At most one request
// is in flight at a time.
package qr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zulandar/wapanel/internal/models"
)

// Default timings.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultTickInterval    = time.Second
	DefaultCloseDelay      = 1500 * time.Millisecond
)

// Toast texts.
const (
	msgConnected = "¡WhatsApp conectado correctamente!"
	msgFetchErr  = "Error al obtener el código QR."
	msgNoQR      = "No se pudo obtener el código QR."
)

// Phase is the poller's position in its lifecycle.
type Phase int

const (
	PhaseIdle       Phase = iota // no code yet
	PhaseDisplaying              // code shown, countdown running
	PhaseConnected               // paired, closing shortly
	PhaseFailed                  // terminal state, manual retry only
	PhaseClosed
)

var phaseNames = [...]string{"idle", "displaying", "connected", "failed", "closed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Fetcher asks the backend for the connection state and a fresh code.
type Fetcher interface {
	RefreshQR(ctx context.Context, locationID, instanceName string) (models.QRStatus, error)
}

// Notifier receives one-shot toasts.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Options configures a Poller.
type Options struct {
	Fetcher      Fetcher
	LocationID   string
	InstanceName string
	InitialQR    string

	RefreshInterval time.Duration // countdown length; default 30s
	StatusInterval  time.Duration // separate connection check; 0 disables
	TickInterval    time.Duration // countdown granularity; default 1s
	CloseDelay      time.Duration // delay between connect and close; default 1.5s

	Notifier Notifier

	// OnConnected is called exactly once, when the backend reports the
	// connection as open.
	OnConnected func()
	// OnQRUpdated is called with every new code received.
	OnQRUpdated func(qr string)
	// OnClose is called once the poller closes itself after connecting.
	OnClose func()
}

// Snapshot is a point-in-time view of the poller for rendering.
type Snapshot struct {
	Phase       Phase  `json:"-"`
	PhaseName   string `json:"phase"`
	Image       string `json:"image,omitempty"` // data URI; empty when nothing to show
	ImageError  bool   `json:"imageError,omitempty"`
	SecondsLeft int    `json:"secondsLeft"`
	State       string `json:"state,omitempty"` // last connection state from the backend
	Loading     bool   `json:"loading"`
	CanRefresh  bool   `json:"canRefresh"`
	Retry       bool   `json:"retry"`
}

// Poller drives the QR refresh cycle for one instance.
type Poller struct {
	opts Options

	mu         sync.Mutex
	phase      Phase
	qr         string
	state      string
	remaining  time.Duration
	inFlight   bool
	connected  bool // OnConnected already fired
	closeTimer *time.Timer
	done       chan struct{}
	subs       map[int]chan Snapshot
	nextSub    int
}

// New creates a Poller. When an initial code is supplied it is displayed
// and the countdown starts immediately.
func New(opts Options) (*Poller, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("qr: fetcher is required")
	}
	if opts.LocationID == "" || opts.InstanceName == "" {
		return nil, errors.New("qr: location and instance are required")
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.CloseDelay <= 0 {
		opts.CloseDelay = DefaultCloseDelay
	}
	p := &Poller{
		opts: opts,
		done: make(chan struct{}),
		subs: make(map[int]chan Snapshot),
	}
	if opts.InitialQR != "" {
		p.qr = opts.InitialQR
		p.phase = PhaseDisplaying
		p.remaining = opts.RefreshInterval
	}
	return p, nil
}

// Run drives the countdown and, when configured, the connection check until
// ctx is cancelled or the poller stops. Without an initial code it fetches
// one straight away.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	idle := p.phase == PhaseIdle
	p.mu.Unlock()
	if idle {
		p.Refresh(ctx)
	}

	tick := time.NewTicker(p.opts.TickInterval)
	defer tick.Stop()

	var status <-chan time.Time
	if p.opts.StatusInterval > 0 {
		st := time.NewTicker(p.opts.StatusInterval)
		defer st.Stop()
		status = st.C
	}

	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case <-p.done:
			return
		case <-tick.C:
			p.Tick(ctx)
		case <-status:
			p.CheckStatus(ctx)
		}
	}
}

// Tick advances the countdown by one tick and fetches a new code when it
// runs out. It is a no-op while a request is in flight or when the poller
// is not displaying a code.
func (p *Poller) Tick(ctx context.Context) {
	p.mu.Lock()
	if p.phase != PhaseDisplaying || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.remaining -= p.opts.TickInterval
	expired := p.remaining <= 0
	if expired {
		p.remaining = 0
	}
	p.mu.Unlock()

	if expired {
		p.fetch(ctx, false)
	} else {
		p.publish()
	}
}

// Refresh fetches a new code on operator request. It reports false, and
// does nothing, while another request is in flight or once the device is
// connected or the poller closed.
func (p *Poller) Refresh(ctx context.Context) bool {
	return p.fetch(ctx, false)
}

// CheckStatus asks the backend whether the device has paired. Unlike a
// refresh it never replaces the displayed code and failures are only
// logged.
func (p *Poller) CheckStatus(ctx context.Context) bool {
	return p.fetch(ctx, true)
}

// fetch issues one request and applies the response. statusOnly requests
// only look for the connected state.
func (p *Poller) fetch(ctx context.Context, statusOnly bool) bool {
	p.mu.Lock()
	if p.inFlight || p.phase == PhaseConnected || p.phase == PhaseClosed {
		p.mu.Unlock()
		return false
	}
	if statusOnly && p.phase == PhaseFailed {
		p.mu.Unlock()
		return false
	}
	p.inFlight = true
	p.mu.Unlock()
	p.publish()

	st, err := p.opts.Fetcher.RefreshQR(ctx, p.opts.LocationID, p.opts.InstanceName)

	p.mu.Lock()
	p.inFlight = false
	if p.phase == PhaseClosed {
		p.mu.Unlock()
		return true
	}

	var after []func()
	switch {
	case err != nil:
		log.Printf("qr: %s: fetch failed: %v", p.opts.InstanceName, err)
		if !statusOnly {
			p.remaining = p.opts.RefreshInterval
			if p.phase == PhaseIdle {
				p.phase = PhaseFailed
			}
			after = append(after, func() { p.toastError(ctx, userMessage(err)) })
		}
	case st.State == models.StateOpen:
		p.state = st.State
		after = p.connectLocked(ctx)
	case statusOnly:
		p.state = st.State
	case st.QRCode != "":
		p.state = st.State
		p.qr = st.QRCode
		p.phase = PhaseDisplaying
		p.remaining = p.opts.RefreshInterval
		if cb := p.opts.OnQRUpdated; cb != nil {
			code := st.QRCode
			after = append(after, func() { cb(code) })
		}
	case st.Terminal():
		p.state = st.State
		p.qr = ""
		p.phase = PhaseFailed
		if st.Error != "" {
			after = append(after, func() { p.toastError(ctx, st.Error) })
		}
	default:
		p.state = st.State
		p.phase = PhaseFailed
		msg := msgNoQR
		if st.Error != "" {
			msg = st.Error
		}
		log.Printf("qr: %s: no code received (state %q)", p.opts.InstanceName, st.State)
		after = append(after, func() { p.toastError(ctx, msg) })
	}
	p.mu.Unlock()

	for _, fn := range after {
		fn()
	}
	p.publish()
	return true
}

// connectLocked moves to the connected phase, stops the timers and
// schedules the close. It returns the callbacks to run once the lock is
// released. Callers hold p.mu.
func (p *Poller) connectLocked(ctx context.Context) []func() {
	p.phase = PhaseConnected
	p.stopLocked()
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.opts.CloseDelay, p.finish)
	}
	if p.connected {
		return nil
	}
	p.connected = true
	after := []func(){func() {
		if p.opts.Notifier != nil {
			p.opts.Notifier.Success(ctx, msgConnected)
		}
	}}
	if cb := p.opts.OnConnected; cb != nil {
		after = append(after, cb)
	}
	return after
}

// finish closes the poller after the post-connect delay.
func (p *Poller) finish() {
	p.mu.Lock()
	if p.phase == PhaseClosed {
		p.mu.Unlock()
		return
	}
	p.phase = PhaseClosed
	subs := p.detachLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	deliver(subs, snap)
	if p.opts.OnClose != nil {
		p.opts.OnClose()
	}
}

// Close stops all timers and releases subscribers. It is safe to call more
// than once.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.phase == PhaseClosed {
		p.mu.Unlock()
		return
	}
	p.phase = PhaseClosed
	p.stopLocked()
	if p.closeTimer != nil {
		p.closeTimer.Stop()
	}
	subs := p.detachLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	deliver(subs, snap)
}

// Done is closed once the poller stops ticking.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) stopLocked() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// Snapshot returns the current view.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:     p.phase,
		PhaseName: p.phase.String(),
		State:     p.state,
		Loading:   p.inFlight,
	}
	if p.qr != "" && (p.phase == PhaseDisplaying || p.phase == PhaseFailed) {
		uri, ok := DataURI(p.qr)
		s.Image = uri
		s.ImageError = !ok
	}
	if p.phase == PhaseDisplaying {
		s.SecondsLeft = int((p.remaining + time.Second - 1) / time.Second)
	}
	s.CanRefresh = !p.inFlight && p.phase != PhaseConnected && p.phase != PhaseClosed
	s.Retry = p.phase == PhaseFailed
	return s
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the most recent value. The channel is closed
// when the poller closes; cancel detaches early.
func (p *Poller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	if p.phase == PhaseClosed {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		ch <- snap
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.snapshotLocked()
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

func (p *Poller) publish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.snapshotLocked()
	for _, ch := range p.subs {
		offer(ch, snap)
	}
}

// detachLocked removes all subscribers so they can be closed outside the lock.
func (p *Poller) detachLocked() []chan Snapshot {
	subs := make([]chan Snapshot, 0, len(p.subs))
	for id, ch := range p.subs {
		subs = append(subs, ch)
		delete(p.subs, id)
	}
	return subs
}

func deliver(subs []chan Snapshot, snap Snapshot) {
	for _, ch := range subs {
		offer(ch, snap)
		close(ch)
	}
}

// offer replaces any unread snapshot with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (p *Poller) toastError(ctx context.Context, msg string) {
	if p.opts.Notifier != nil {
		p.opts.Notifier.Error(ctx, msg)
	}
}

// userMessage prefers an error's operator-facing text.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return msgFetchErr
}
