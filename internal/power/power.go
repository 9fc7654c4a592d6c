// Package power triggers the host's system actions: shutdown, restart,
// lock and friends.
package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/link"
)

// Path prefixes every action endpoint.
const Path = "/power/"

type Action string

const (
	Shutdown  Action = "shutdown"
	Restart   Action = "restart"
	Cancel    Action = "cancel"
	Lock      Action = "lock"
	Sleep     Action = "sleep"
	Hibernate Action = "hibernate"
)

// Actions lists every action the host understands.
var Actions = []Action{Shutdown, Restart, Cancel, Lock, Sleep, Hibernate}

var (
	ErrUnknownAction  = errors.New("unknown power action")
	ErrInvalidRequest = errors.New("invalid power request")
)

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownAction, s)
}

// Scheduled reports whether the action accepts a delay and force flag.
func (a Action) Scheduled() bool {
	return a == Shutdown || a == Restart
}

// Request is the body of a scheduled action. Delay is sent in whole seconds.
type Request struct {
	Delay int  `json:"delay"`
	Force bool `json:"force"`
}

// Result is the host's answer to an action.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SystemInfo struct {
	Platform  string `json:"platform"`
	Release   string `json:"release"`
	Machine   string `json:"machine"`
	Processor string `json:"processor"`
}

// HostAPI is the slice of the host's HTTP API power actions travel over.
// *signaling.Client implements it.
type HostAPI interface {
	PostJSON(ctx context.Context, server, path string, body, out any) error
	GetJSON(ctx context.Context, server, path string, out any) error
}

type Client struct {
	api    HostAPI
	logger *slog.Logger
}

func NewClient(api HostAPI, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger.With("module", "power")}
}

// Do asks the host to perform action. delay and force only apply to
// shutdown and restart and are rejected for the others.
func (c *Client) Do(ctx context.Context, server string, action Action, delay time.Duration, force bool) (*Result, error) {
	op := "power " + string(action)
	if _, err := ParseAction(string(action)); err != nil {
		return nil, link.NewError(op, err)
	}
	if delay < 0 {
		return nil, link.WrapError(op, ErrInvalidRequest, "negative delay")
	}

	var body any = struct{}{}
	if action.Scheduled() {
		body = Request{Delay: int(delay.Round(time.Second) / time.Second), Force: force}
	} else if delay > 0 || force {
		return nil, link.WrapError(op, ErrInvalidRequest, "delay and force only apply to shutdown and restart")
	}

	var res Result
	if err := c.api.PostJSON(ctx, server, Path+string(action), body, &res); err != nil {
		return nil, err
	}
	if res.Status != "ok" {
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("host returned status %q", res.Status)
		}
		return nil, link.WrapError(op, link.ErrSignalingRejected, msg)
	}

	c.logger.Info("power action accepted", "action", action, "message", res.Message)
	return &res, nil
}

// Info fetches the host's platform description.
func (c *Client) Info(ctx context.Context, server string) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.api.GetJSON(ctx, server, Path+"info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}
