package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/audit"
	"github.com/BioHazard786/SpaceLink/cli/internal/config"
	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/gesture"
	"github.com/BioHazard786/SpaceLink/cli/internal/lan"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/BioHazard786/SpaceLink/cli/internal/metrics"
	"github.com/BioHazard786/SpaceLink/cli/internal/session"
	"github.com/BioHazard786/SpaceLink/cli/internal/signaling"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime bundles what every command needs: configuration, the command
// history and metrics.
type Runtime struct {
	Config  *config.Config
	History *audit.Buffer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile:  flagConfig,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		ForceRelay:  flagRelay,
		MetricsAddr: flagMetricsAddr,
	})
	if err != nil {
		return nil, link.NewError("load config", err)
	}
	return cfg, nil
}

// NewRuntime loads configuration and, when an address is configured, starts
// the metrics endpoint for the lifetime of ctx.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		metrics.Serve(ctx, cfg.MetricsAddr, reg, logger)
	}

	return &Runtime{
		Config:  cfg,
		History: audit.NewBuffer(cfg.AuditSize),
		Metrics: m,
		Logger:  logger,
	}, nil
}

func (r *Runtime) senderOptions() []control.SenderOption {
	return []control.SenderOption{
		control.WithRecorder(r.History),
		control.WithObserver(r.Metrics),
		control.WithLogger(r.Logger),
	}
}

// NewSession builds a session that negotiates over HTTP signaling and a
// pion transport.
func (r *Runtime) NewSession() (*session.Session, error) {
	return session.New(session.Options{
		Signaler:      signaling.NewClient(r.Config.SignalingTimeout, r.Logger),
		Factory:       &link.PionFactory{Config: r.Config, Logger: r.Logger},
		GatherTimeout: r.Config.GatherTimeout,
		Observer:      r.Metrics,
		Logger:        r.Logger,
		SenderOptions: r.senderOptions(),
	})
}

// GestureOptions maps the configured thresholds onto the translator.
func (r *Runtime) GestureOptions() gesture.Options {
	return gesture.Options{
		ClickDelay:      r.Config.ClickDelay,
		DragThreshold:   r.Config.DragThreshold,
		ScrollMagnitude: gesture.ConstantScroll(r.Config.ScrollAmount),
		Logger:          r.Logger,
	}
}

// connectTimeout bounds a whole negotiation: both signaling round trips,
// gathering, and a few seconds for connectivity checks.
func (r *Runtime) connectTimeout() time.Duration {
	return 2*r.Config.SignalingTimeout + r.Config.GatherTimeout + 10*time.Second
}

// Connect negotiates a peer session and waits for the control channel.
func (r *Runtime) Connect(ctx context.Context, server string) (*session.Session, error) {
	s, err := r.NewSession()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.connectTimeout())
	defer cancel()

	sp := ui.NewConnectionSpinner("Negotiating session with " + server + "...").Start()
	if err := s.ConnectAndWait(ctx, server); err != nil {
		sp.Stop()
		s.Close()
		return nil, err
	}

	sp.UpdateMessage("Waiting for the control channel...")
	if err := s.AwaitChannel(ctx); err != nil {
		sp.Stop()
		s.Close()
		return nil, err
	}
	sp.Success("Connected to " + server)
	return s, nil
}

// Commander is where one-shot and replayed commands are sent.
type Commander interface {
	Send(cmd control.Command) error
	Flush(ctx context.Context) error
	Close() error
}

// lanCommander sends over the host's WebSocket endpoint and checks each
// reply.
type lanCommander struct {
	ch     *lan.Channel
	sender *control.Sender
}

func (c *lanCommander) Send(cmd control.Command) error {
	if err := c.sender.Send(cmd); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := c.ch.AwaitReply(ctx)
	if err != nil {
		return err
	}
	if !reply.OK() {
		return link.WrapError("host "+string(cmd.Kind()), link.ErrSignalingRejected, reply.Message)
	}
	return nil
}

func (c *lanCommander) Flush(ctx context.Context) error { return c.ch.Flush(ctx) }

func (c *lanCommander) Close() error { return c.ch.Close() }

// OpenCommander connects to server over the peer link, or over the LAN
// endpoint when useLAN is set.
func (r *Runtime) OpenCommander(ctx context.Context, server string, useLAN bool) (Commander, error) {
	if !useLAN {
		s, err := r.Connect(ctx, server)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.Config.SignalingTimeout)
	defer cancel()
	ch, err := lan.Dial(dialCtx, server, r.Logger)
	if err != nil {
		return nil, err
	}
	opts := append(r.senderOptions(), control.WithEncoder(lan.Encode))
	sender := control.NewSender(func() link.DataChannel { return ch }, opts...)
	return &lanCommander{ch: ch, sender: sender}, nil
}
