package gesture

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
)

// ErrNoSurface is returned when the input surface has no usable size.
var ErrNoSurface = errors.New("input surface has no size")

// Default thresholds.
const (
	DefaultClickDelay    = 50 * time.Millisecond
	DefaultLongPress     = 500 * time.Millisecond
	DefaultDragThreshold = 10.0
	DefaultScrollAmount  = 100
)

// CommandSender accepts commands for the remote host.
type CommandSender interface {
	Send(cmd control.Command) error
}

// Point is a position on the input surface in surface units.
type Point struct {
	X, Y float64
}

// Size is the current extent of the input surface.
type Size struct {
	Width, Height float64
}

// SurfaceFunc reports the surface size. It is queried on every sample so
// resizes take effect immediately.
type SurfaceFunc func() Size

// ScrollFunc maps a vertical delta to a scroll magnitude. The sign of the
// emitted amount is derived from the delta, not from the result.
type ScrollFunc func(dy float64) int

// ConstantScroll ignores the delta and always scrolls by n.
func ConstantScroll(n int) ScrollFunc {
	return func(float64) int { return n }
}

type Options struct {
	ClickDelay      time.Duration
	DragThreshold   float64
	ScrollMagnitude ScrollFunc
	Sleep           func(time.Duration)
	Logger          *slog.Logger
}

func (o *Options) setDefaults() {
	if o.ClickDelay <= 0 {
		o.ClickDelay = DefaultClickDelay
	}
	if o.DragThreshold <= 0 {
		o.DragThreshold = DefaultDragThreshold
	}
	if o.ScrollMagnitude == nil {
		o.ScrollMagnitude = ConstantScroll(DefaultScrollAmount)
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Translator turns recognized gestures into control commands.
type Translator struct {
	sender  CommandSender
	surface SurfaceFunc
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	dragging bool
	last     control.MouseMove
}

func NewTranslator(sender CommandSender, surface SurfaceFunc, opts Options) *Translator {
	opts.setDefaults()
	return &Translator{
		sender:  sender,
		surface: surface,
		opts:    opts,
		logger:  opts.Logger.With("module", "gesture"),
	}
}

// Normalize converts p to surface-relative coordinates in [0,1].
func (t *Translator) Normalize(p Point) (control.MouseMove, error) {
	size := t.surface()
	if size.Width <= 0 || size.Height <= 0 {
		return control.MouseMove{}, ErrNoSurface
	}
	return control.MoveTo(p.X/size.Width, p.Y/size.Height), nil
}

// OnTap moves the pointer to p and clicks the left button after the click
// delay.
func (t *Translator) OnTap(p Point) error {
	return t.click(p, control.ButtonLeft, t.opts.ClickDelay)
}

// OnLongPress moves the pointer to p and clicks the right button.
func (t *Translator) OnLongPress(p Point) error {
	return t.click(p, control.ButtonRight, 0)
}

func (t *Translator) click(p Point, button control.Button, delay time.Duration) error {
	move, err := t.Normalize(p)
	if err != nil {
		return err
	}
	if err := t.sender.Send(move); err != nil {
		return err
	}
	if delay > 0 {
		t.opts.Sleep(delay)
	}
	return t.sender.Send(control.MouseClick{Button: button})
}

// OnDragChanged handles a drag sample. Nothing is emitted until current is
// at least the drag threshold away from start; the first sample past it
// presses the left button and then moves to current. The press lands
// wherever the host pointer last was, which is not necessarily start.
func (t *Translator) OnDragChanged(start, current Point) error {
	move, err := t.Normalize(current)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dragging {
		if math.Hypot(current.X-start.X, current.Y-start.Y) < t.opts.DragThreshold {
			return nil
		}
		if err := t.sender.Send(control.MouseDown{Button: control.ButtonLeft}); err != nil {
			return err
		}
		t.dragging = true
		t.logger.Debug("drag started", "nx", move.NX, "ny", move.NY)
	}

	t.last = move
	return t.sender.Send(move)
}

// OnDragEnded releases the button if a drag is in progress. Releasing a
// contact that never crossed the threshold is a no-op.
func (t *Translator) OnDragEnded(p Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.release("drag ended")
}

// Dragging reports whether the left button is currently held by a drag.
func (t *Translator) Dragging() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dragging
}

// OnTwoFingerScroll emits one scroll for a vertical delta. Content moves
// against the fingers: a negative delta scrolls up.
func (t *Translator) OnTwoFingerScroll(dy float64) error {
	if dy == 0 || math.IsNaN(dy) {
		return nil
	}
	amount := t.opts.ScrollMagnitude(dy)
	if amount < 0 {
		amount = -amount
	}
	if amount == 0 {
		return nil
	}
	if dy > 0 {
		amount = -amount
	}
	return t.sender.Send(control.Scroll{Amount: amount})
}

// Cancel abandons the current gesture, releasing the button if held.
func (t *Translator) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.release("gesture cancelled")
}

// release must be called with t.mu held. Drag state is cleared even when the
// mouse_up cannot be sent.
func (t *Translator) release(reason string) error {
	if !t.dragging {
		return nil
	}
	t.dragging = false
	t.last = control.MouseMove{}
	t.logger.Debug(reason)
	return t.sender.Send(control.MouseUp{Button: control.ButtonLeft})
}
