package control

import (
	"log/slog"
	"sync"

	"github.com/BioHazard786/SpaceLink/cli/internal/link"
)

// Rejection reasons reported to observers.
const (
	ReasonNotReady   = "not_ready"
	ReasonEncode     = "encode"
	ReasonSendFailed = "send_failed"
)

// Recorder keeps a copy of every accepted command.
type Recorder interface {
	Record(kind Kind, payload []byte)
}

// Observer is told about every send attempt.
type Observer interface {
	CommandSent(kind Kind)
	CommandRejected(kind Kind, reason string)
}

// Encoder turns a command into the bytes a channel carries.
type Encoder func(Command) ([]byte, error)

// ChannelSource returns the channel commands should go to, or nil when there
// is none yet. The sender never creates or closes channels.
type ChannelSource func() link.DataChannel

// Sender serializes commands onto the control channel. Commands are dropped,
// not queued, while the channel is not open.
type Sender struct {
	source   ChannelSource
	encode   Encoder
	recorder Recorder
	observer Observer
	logger   *slog.Logger

	mu sync.Mutex
}

type SenderOption func(*Sender)

func WithRecorder(r Recorder) SenderOption {
	return func(s *Sender) { s.recorder = r }
}

func WithObserver(o Observer) SenderOption {
	return func(s *Sender) { s.observer = o }
}

// WithEncoder replaces the data channel envelope, for endpoints that speak
// a different dialect.
func WithEncoder(e Encoder) SenderOption {
	return func(s *Sender) { s.encode = e }
}

func WithLogger(l *slog.Logger) SenderOption {
	return func(s *Sender) { s.logger = l }
}

func NewSender(source ChannelSource, opts ...SenderOption) *Sender {
	s := &Sender{source: source, encode: Encode, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "control")
	return s
}

// Send encodes cmd and hands it to the channel's buffer. A nil error means
// the local transport accepted it, not that the host executed it.
func (s *Sender) Send(cmd Command) error {
	if cmd == nil {
		return link.WrapError("send", ErrInvalidCommand, "nil command")
	}
	kind := cmd.Kind()

	ch := s.source()
	if ch == nil || ch.ReadyState() != link.ChannelStateOpen {
		state := "absent"
		if ch != nil {
			state = ch.ReadyState().String()
		}
		s.logger.Debug("command dropped", "kind", kind, "channel", state)
		s.rejected(kind, ReasonNotReady)
		return link.WrapError("send "+string(kind), link.ErrChannelNotReady, state)
	}

	data, err := s.encode(cmd)
	if err != nil {
		s.logger.Debug("command not encodable", "kind", kind, "error", err)
		s.rejected(kind, ReasonEncode)
		return link.Cause("send "+string(kind), ErrInvalidCommand, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ch.Send(data); err != nil {
		s.logger.Warn("command send failed", "kind", kind, "error", err)
		s.rejected(kind, ReasonSendFailed)
		return link.NewError("send "+string(kind), err)
	}

	if s.recorder != nil {
		s.recorder.Record(kind, data)
	}
	if s.observer != nil {
		s.observer.CommandSent(kind)
	}
	return nil
}

func (s *Sender) rejected(kind Kind, reason string) {
	if s.observer != nil {
		s.observer.CommandRejected(kind, reason)
	}
}
