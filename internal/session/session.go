package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/BioHazard786/SpaceLink/cli/internal/signaling"
	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a session whose event loop has
// stopped.
var ErrClosed = errors.New("session closed")

const (
	DefaultGatherTimeout = 5 * time.Second
	eventBuffer          = 64
	channelPoll          = 20 * time.Millisecond
)

// Signaler performs the offer/answer round trips with the host.
type Signaler interface {
	RequestOffer(ctx context.Context, server string) (*signaling.OfferResponse, error)
	SubmitAnswer(ctx context.Context, server, sessionID string, answer link.SessionDescription) error
}

// Observer is told about state transitions and signaling latency.
type Observer interface {
	Transition(from, to string)
	SignalingFinished(d time.Duration, err error)
}

type Options struct {
	Signaler      Signaler
	Factory       link.Factory
	GatherTimeout time.Duration
	Observer      Observer
	Logger        *slog.Logger
	SenderOptions []control.SenderOption
}

// Session negotiates and owns one peer session at a time. Every mutation
// happens on a single event loop goroutine; transport callbacks and the
// signaling goroutine only post events to it.
type Session struct {
	signaler      Signaler
	factory       link.Factory
	gatherTimeout time.Duration
	observer      Observer
	logger        *slog.Logger
	sender        *control.Sender

	events    chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the event loop.
	gen        uint64
	cancel     context.CancelFunc
	transport  link.Transport
	attemptLog *slog.Logger

	// Snapshot for readers outside the loop.
	mu        sync.RWMutex
	state     State
	channel   link.DataChannel
	lastErr   error
	sessionID string

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
}

type connectRequest struct {
	server string
	reply  chan error
}

type disconnectRequest struct {
	reply chan struct{}
}

type signalingDone struct {
	gen       uint64
	sessionID string
	err       error
}

type connectivityChanged struct {
	gen   uint64
	state link.ConnectionState
}

type channelAnnounced struct {
	gen     uint64
	channel link.DataChannel
}

type channelChanged struct {
	gen   uint64
	state link.ChannelState
}

// New starts the event loop of a session in the disconnected state.
func New(opts Options) (*Session, error) {
	if opts.Signaler == nil {
		return nil, fmt.Errorf("session: signaler is required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("session: transport factory is required")
	}
	if opts.GatherTimeout <= 0 {
		opts.GatherTimeout = DefaultGatherTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Session{
		signaler:      opts.Signaler,
		factory:       opts.Factory,
		gatherTimeout: opts.GatherTimeout,
		observer:      opts.Observer,
		logger:        opts.Logger.With("module", "session"),
		events:        make(chan any, eventBuffer),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		state:         StateDisconnected,
		subs:          make(map[int]chan State),
	}
	s.attemptLog = s.logger
	s.sender = control.NewSender(s.currentChannel, opts.SenderOptions...)

	go s.run()
	return s, nil
}

// Connect starts negotiating with the host at server. It returns once the
// attempt has started; the outcome is observed through Subscribe, State and
// LastError.
func (s *Session) Connect(server string) error {
	reply := make(chan error, 1)
	if !s.post(connectRequest{server: server, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Disconnect tears down any attempt or live session. It is safe to call in
// any state and more than once.
func (s *Session) Disconnect() error {
	reply := make(chan struct{})
	if !s.post(disconnectRequest{reply: reply}) {
		return nil
	}
	select {
	case <-reply:
	case <-s.done:
	}
	return nil
}

// ConnectAndWait connects and blocks until the session is connected or the
// attempt ends.
func (s *Session) ConnectAndWait(ctx context.Context, server string) error {
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()
	<-updates

	if err := s.Connect(server); err != nil {
		return err
	}

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return ErrClosed
			}
			switch st {
			case StateConnected:
				return nil
			case StateDisconnected:
				if err := s.LastError(); err != nil {
					return err
				}
				return link.WrapError("connect", link.ErrTransportDisconnected, "disconnected before a path was established")
			}
		case <-ctx.Done():
			s.Disconnect()
			return ctx.Err()
		}
	}
}

// WaitFor blocks until the session reaches want.
func (s *Session) WaitFor(ctx context.Context, want State) error {
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return ErrClosed
			}
			if st == want {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AwaitChannel blocks until the host's control channel is open. It fails
// as soon as the session settles in disconnected.
func (s *Session) AwaitChannel(ctx context.Context) error {
	ticker := time.NewTicker(channelPoll)
	defer ticker.Stop()

	for {
		if ch := s.currentChannel(); ch != nil && ch.ReadyState() == link.ChannelStateOpen {
			return nil
		}
		if s.State() == StateDisconnected {
			if err := s.LastError(); err != nil {
				return err
			}
			return link.WrapError("await channel", link.ErrChannelNotReady, "session disconnected")
		}
		select {
		case <-ctx.Done():
			return link.Cause("await channel", link.ErrChannelNotReady, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Flush waits until commands already accepted by the channel have left the
// local buffer. Channels that cannot report this return immediately.
func (s *Session) Flush(ctx context.Context) error {
	if f, ok := s.currentChannel().(link.Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// SendCommand sends cmd on the control channel of the current session.
func (s *Session) SendCommand(cmd control.Command) error {
	return s.sender.Send(cmd)
}

// Send makes a Session usable wherever a command sink is expected.
func (s *Session) Send(cmd control.Command) error {
	return s.SendCommand(cmd)
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError is the error that ended the most recent attempt, or nil.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// SessionID is the identifier issued by the host for the current attempt.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Subscribe returns a channel that receives the current state immediately
// and every later state. A slow reader may miss intermediate states but
// always sees the latest. The returned function unsubscribes.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	select {
	case <-s.done:
		s.subMu.Unlock()
		ch <- s.State()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subs[id] = ch
	deliver(ch, s.State())
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close disconnects and stops the event loop.
func (s *Session) Close() error {
	s.Disconnect()
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

func deliver(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

func (s *Session) currentChannel() link.DataChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

func (s *Session) post(ev any) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run() {
	defer func() {
		s.subMu.Lock()
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
		close(s.done)
		s.subMu.Unlock()
	}()

	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.quit:
			s.teardown()
			return
		}
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case connectRequest:
		ev.reply <- s.startAttempt(ev.server)
	case disconnectRequest:
		s.stop(nil)
		close(ev.reply)
	case signalingDone:
		if s.stale(ev.gen) {
			return
		}
		if ev.err != nil {
			s.stop(ev.err)
			return
		}
		s.mu.Lock()
		s.sessionID = ev.sessionID
		s.mu.Unlock()
		s.attemptLog.Info("answer submitted", "session", ev.sessionID)
	case connectivityChanged:
		if s.stale(ev.gen) {
			return
		}
		s.onConnectivity(ev.state)
	case channelAnnounced:
		if s.stale(ev.gen) {
			ev.channel.Close()
			return
		}
		s.onChannel(ev.channel)
	case channelChanged:
		if s.stale(ev.gen) {
			return
		}
		s.attemptLog.Debug("control channel state", "state", ev.state)
		if ev.state == link.ChannelStateClosed && s.State() == StateConnected {
			s.stop(link.WrapError("control channel", link.ErrTransportDisconnected, "closed by peer"))
		}
	}
}

func (s *Session) stale(gen uint64) bool {
	return gen != s.gen || s.State() == StateDisconnected
}

func (s *Session) startAttempt(server string) error {
	if st := s.State(); st != StateDisconnected {
		return link.WrapError("connect", link.ErrSessionActive, st.String())
	}

	s.gen++
	gen := s.gen
	attempt := uuid.NewString()
	s.attemptLog = s.logger.With("attempt", attempt, "server", server)

	s.mu.Lock()
	s.lastErr = nil
	s.sessionID = ""
	s.mu.Unlock()
	s.transition(StateConnecting)

	transport, err := s.factory.NewTransport()
	if err != nil {
		err = link.Cause("create transport", link.ErrTransportSetupFailed, err)
		s.stop(err)
		return err
	}
	s.transport = transport

	transport.OnConnectionStateChange(func(cs link.ConnectionState) {
		s.post(connectivityChanged{gen: gen, state: cs})
	})
	transport.OnDataChannel(func(ch link.DataChannel) {
		s.post(channelAnnounced{gen: gen, channel: ch})
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.attemptLog.Info("negotiation started")
	go s.negotiate(ctx, gen, server, transport, s.attemptLog)
	return nil
}

func (s *Session) onConnectivity(cs link.ConnectionState) {
	st := s.State()
	s.attemptLog.Debug("transport state", "state", cs, "session_state", st)

	switch {
	case st == StateConnecting && cs.Stable():
		s.transition(StateConnected)
		s.attemptLog.Info("session connected")
	case st == StateConnecting && (cs == link.ConnectionStateFailed || cs == link.ConnectionStateClosed):
		s.stop(link.WrapError("connect", link.ErrTransportSetupFailed, "transport "+cs.String()))
	case st == StateConnected && (cs == link.ConnectionStateDisconnected || cs == link.ConnectionStateFailed || cs == link.ConnectionStateClosed):
		s.stop(link.WrapError("session", link.ErrTransportDisconnected, "transport "+cs.String()))
	}
}

func (s *Session) onChannel(ch link.DataChannel) {
	if s.currentChannel() != nil {
		s.attemptLog.Warn("ignoring extra data channel", "label", ch.Label())
		ch.Close()
		return
	}

	gen := s.gen
	ch.OnOpen(func() {
		s.post(channelChanged{gen: gen, state: link.ChannelStateOpen})
	})
	ch.OnClose(func() {
		s.post(channelChanged{gen: gen, state: link.ChannelStateClosed})
	})

	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	s.attemptLog.Debug("control channel announced", "label", ch.Label(), "state", ch.ReadyState())
}

// stop ends the current attempt and settles in disconnected. cause is
// recorded as the last error when non-nil.
func (s *Session) stop(cause error) {
	if s.State() == StateDisconnected {
		return
	}
	s.teardown()

	if cause != nil {
		s.mu.Lock()
		s.lastErr = cause
		s.mu.Unlock()
		s.attemptLog.Warn("session ended", "error", cause)
	} else {
		s.attemptLog.Info("session disconnected")
	}
	s.transition(StateDisconnected)
}

// teardown releases the channel and transport of the current attempt and
// invalidates its pending events.
func (s *Session) teardown() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			s.attemptLog.Debug("closing control channel", "error", err)
		}
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.attemptLog.Debug("closing transport", "error", err)
		}
		s.transport = nil
	}
}

func (s *Session) transition(to State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.mu.Lock()
	from := s.state
	if !from.CanTransition(to) {
		s.mu.Unlock()
		s.attemptLog.Error("illegal state transition", "from", from, "to", to)
		return
	}
	s.state = to
	s.mu.Unlock()

	for _, ch := range s.subs {
		deliver(ch, to)
	}
	if s.observer != nil {
		s.observer.Transition(from.String(), to.String())
	}
}

func (s *Session) negotiate(ctx context.Context, gen uint64, server string, transport link.Transport, logger *slog.Logger) {
	start := time.Now()
	sessionID, err := s.exchange(ctx, server, transport, logger)
	if s.observer != nil && ctx.Err() == nil {
		s.observer.SignalingFinished(time.Since(start), err)
	}
	s.post(signalingDone{gen: gen, sessionID: sessionID, err: err})
}

// exchange runs offer, answer and candidate gathering. Failures are terminal
// for the attempt.
func (s *Session) exchange(ctx context.Context, server string, transport link.Transport, logger *slog.Logger) (string, error) {
	offer, err := s.signaler.RequestOffer(ctx, server)
	if err != nil {
		return "", err
	}
	logger.Debug("offer received", "session", offer.SessionID)

	if err := transport.SetRemoteDescription(*offer.Offer); err != nil {
		return offer.SessionID, link.Cause("apply offer", link.ErrTransportSetupFailed, err)
	}
	if _, err := transport.CreateAnswer(); err != nil {
		return offer.SessionID, link.Cause("create answer", link.ErrTransportSetupFailed, err)
	}

	answer, err := s.gather(ctx, transport, logger)
	if err != nil {
		return offer.SessionID, err
	}

	if err := s.signaler.SubmitAnswer(ctx, server, offer.SessionID, answer); err != nil {
		return offer.SessionID, err
	}
	return offer.SessionID, nil
}

// gather waits for candidate gathering, bounded by the gather timeout, and
// returns the local description with whatever candidates are known.
func (s *Session) gather(ctx context.Context, transport link.Transport, logger *slog.Logger) (link.SessionDescription, error) {
	timer := time.NewTimer(s.gatherTimeout)
	defer timer.Stop()

	select {
	case <-transport.GatheringComplete():
		logger.Debug("candidate gathering complete")
	case <-timer.C:
		logger.Warn("candidate gathering timed out, submitting partial answer", "timeout", s.gatherTimeout)
	case <-ctx.Done():
		return link.SessionDescription{}, ctx.Err()
	}

	desc, ok := transport.LocalDescription()
	if !ok {
		return link.SessionDescription{}, link.WrapError("gather candidates", link.ErrTransportSetupFailed, "no local description")
	}
	return desc, nil
}
