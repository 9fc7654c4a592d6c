package control

import (
	"fmt"
	"math"
)

// Kind names a command on the wire.
type Kind string

const (
	KindMouseMove         Kind = "mouse_move"
	KindMouseMoveRelative Kind = "mouse_move_relative"
	KindMouseClick        Kind = "mouse_click"
	KindDoubleClick       Kind = "double_click"
	KindMouseDown         Kind = "mouse_down"
	KindMouseUp           Kind = "mouse_up"
	KindScroll            Kind = "scroll"
	KindScrollHorizontal  Kind = "scroll_horizontal"
	KindKeyPress          Kind = "key_press"
	KindKeyType           Kind = "key_type"
	KindHotkey            Kind = "hotkey"
	KindOpenApp           Kind = "open_app"
	KindAIPrompt          Kind = "ai_prompt"
	KindConfig            Kind = "config"
)

// Button is a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

func ParseButton(s string) (Button, error) {
	switch b := Button(s); b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return b, nil
	default:
		return "", fmt.Errorf("unknown mouse button %q", s)
	}
}

// Command is one instruction for the host. The set of implementations is
// closed; each carries its own payload.
type Command interface {
	Kind() Kind
	isCommand()
}

type MouseMove struct {
	NX float64 `json:"nx"`
	NY float64 `json:"ny"`
}

// MoveTo builds a MouseMove with both coordinates clamped to [0,1].
func MoveTo(nx, ny float64) MouseMove {
	return MouseMove{NX: Clamp01(nx), NY: Clamp01(ny)}
}

type MouseMoveRelative struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

type MouseClick struct {
	Button Button `json:"button"`
	Clicks int    `json:"clicks,omitempty"`
}

type DoubleClick struct {
	Button Button `json:"button"`
}

type MouseDown struct {
	Button Button `json:"button"`
}

type MouseUp struct {
	Button Button `json:"button"`
}

// Scroll scrolls vertically; positive amounts scroll up.
type Scroll struct {
	Amount int `json:"amount"`
}

type ScrollHorizontal struct {
	Amount int `json:"amount"`
}

type KeyPress struct {
	Key string `json:"key"`
}

type KeyType struct {
	Text string `json:"text"`
}

// Hotkey presses Keys together, modifiers first.
type Hotkey struct {
	Keys []string `json:"keys"`
}

type OpenApp struct {
	App string `json:"app"`
}

type AIPrompt struct {
	Prompt string `json:"prompt"`
}

// StreamConfig adjusts the host's screen stream.
type StreamConfig struct {
	FPS      int `json:"fps,omitempty"`
	MaxWidth int `json:"max_width,omitempty"`
}

func (MouseMove) Kind() Kind { return KindMouseMove }
func (MouseMoveRelative) Kind() Kind { return KindMouseMoveRelative }
func (MouseClick) Kind() Kind { return KindMouseClick }
func (DoubleClick) Kind() Kind { return KindDoubleClick }
func (MouseDown) Kind() Kind { return KindMouseDown }
func (MouseUp) Kind() Kind { return KindMouseUp }
func (Scroll) Kind() Kind { return KindScroll }
func (ScrollHorizontal) Kind() Kind { return KindScrollHorizontal }
func (KeyPress) Kind() Kind { return KindKeyPress }
func (KeyType) Kind() Kind { return KindKeyType }
func (Hotkey) Kind() Kind { return KindHotkey }
func (OpenApp) Kind() Kind { return KindOpenApp }
func (AIPrompt) Kind() Kind { return KindAIPrompt }
func (StreamConfig) Kind() Kind { return KindConfig }

func (MouseMove) isCommand() {}
func (MouseMoveRelative) isCommand() {}
func (MouseClick) isCommand() {}
func (DoubleClick) isCommand() {}
func (MouseDown) isCommand() {}
func (MouseUp) isCommand() {}
func (Scroll) isCommand() {}
func (ScrollHorizontal) isCommand() {}
func (KeyPress) isCommand() {}
func (KeyType) isCommand() {}
func (Hotkey) isCommand() {}
func (OpenApp) isCommand() {}
func (AIPrompt) isCommand() {}
func (StreamConfig) isCommand() {}

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
