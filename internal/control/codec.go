package control

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// envelope is the JSON shape the host decodes: {"type": ..., "data": {...}}.
type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes cmd for the control channel.
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("nil command")
	}
	if hk, ok := cmd.(Hotkey); ok && hk.Keys == nil {
		cmd = Hotkey{Keys: []string{}}
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	return json.Marshal(envelope{Type: cmd.Kind(), Data: data})
}

// Decode parses an encoded command.
func Decode(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}

	var cmd Command
	var err error
	switch env.Type {
	case KindMouseMove:
		var c MouseMove
		err = decodeData(env.Data, &c)
		cmd = MoveTo(c.NX, c.NY)
	case KindMouseMoveRelative:
		cmd, err = decodeAs[MouseMoveRelative](env.Data)
	case KindMouseClick:
		cmd, err = decodeAs[MouseClick](env.Data)
	case KindDoubleClick:
		cmd, err = decodeAs[DoubleClick](env.Data)
	case KindMouseDown:
		cmd, err = decodeAs[MouseDown](env.Data)
	case KindMouseUp:
		cmd, err = decodeAs[MouseUp](env.Data)
	case KindScroll:
		cmd, err = decodeAs[Scroll](env.Data)
	case KindScrollHorizontal:
		cmd, err = decodeAs[ScrollHorizontal](env.Data)
	case KindKeyPress:
		cmd, err = decodeAs[KeyPress](env.Data)
	case KindKeyType:
		cmd, err = decodeAs[KeyType](env.Data)
	case KindHotkey:
		cmd, err = decodeAs[Hotkey](env.Data)
	case KindOpenApp:
		cmd, err = decodeAs[OpenApp](env.Data)
	case KindAIPrompt:
		cmd, err = decodeAs[AIPrompt](env.Data)
	case KindConfig:
		cmd, err = decodeAs[StreamConfig](env.Data)
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return cmd, nil
}

func decodeAs[T Command](data json.RawMessage) (Command, error) {
	var c T
	if err := decodeData(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Parse builds a command from a kind name and its positional arguments, as
// typed on the command line.
func Parse(kind string, args []string) (Command, error) {
	switch Kind(kind) {
	case KindMouseMove:
		x, y, err := twoFloats(args)
		if err != nil {
			return nil, err
		}
		return MoveTo(x, y), nil
	case KindMouseMoveRelative:
		if len(args) != 2 {
			return nil, fmt.Errorf("%s needs dx and dy", kind)
		}
		dx, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid dx %q", args[0])
		}
		dy, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid dy %q", args[1])
		}
		return MouseMoveRelative{DX: dx, DY: dy}, nil
	case KindMouseClick:
		button, err := optionalButton(args)
		if err != nil {
			return nil, err
		}
		click := MouseClick{Button: button}
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid click count %q", args[1])
			}
			click.Clicks = n
		}
		return click, nil
	case KindDoubleClick:
		button, err := optionalButton(args)
		return DoubleClick{Button: button}, err
	case KindMouseDown:
		button, err := optionalButton(args)
		return MouseDown{Button: button}, err
	case KindMouseUp:
		button, err := optionalButton(args)
		return MouseUp{Button: button}, err
	case KindScroll:
		n, err := oneInt(kind, args)
		return Scroll{Amount: n}, err
	case KindScrollHorizontal:
		n, err := oneInt(kind, args)
		return ScrollHorizontal{Amount: n}, err
	case KindKeyPress:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s needs exactly one key", kind)
		}
		return KeyPress{Key: strings.ToLower(args[0])}, nil
	case KindKeyType:
		return KeyType{Text: strings.Join(args, " ")}, requireText(kind, args)
	case KindHotkey:
		if len(args) < 2 {
			return nil, fmt.Errorf("%s needs at least two keys", kind)
		}
		keys := make([]string, len(args))
		for i, k := range args {
			keys[i] = strings.ToLower(k)
		}
		return Hotkey{Keys: keys}, nil
	case KindOpenApp:
		return OpenApp{App: strings.Join(args, " ")}, requireText(kind, args)
	case KindAIPrompt:
		return AIPrompt{Prompt: strings.Join(args, " ")}, requireText(kind, args)
	case KindConfig:
		if len(args) == 0 || len(args) > 2 {
			return nil, fmt.Errorf("%s needs fps and optionally max_width", kind)
		}
		cfg := StreamConfig{}
		fps, err := strconv.Atoi(args[0])
		if err != nil || fps <= 0 {
			return nil, fmt.Errorf("invalid fps %q", args[0])
		}
		cfg.FPS = fps
		if len(args) == 2 {
			width, err := strconv.Atoi(args[1])
			if err != nil || width <= 0 {
				return nil, fmt.Errorf("invalid max_width %q", args[1])
			}
			cfg.MaxWidth = width
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown command %q", kind)
	}
}

func twoFloats(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected two coordinates, got %d", len(args))
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid coordinate %q", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid coordinate %q", args[1])
	}
	return x, y, nil
}

func optionalButton(args []string) (Button, error) {
	if len(args) == 0 {
		return ButtonLeft, nil
	}
	return ParseButton(strings.ToLower(args[0]))
}

func oneInt(kind string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s needs one amount", kind)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", args[0])
	}
	return n, nil
}

func requireText(kind string, args []string) error {
	if len(args) == 0 || strings.TrimSpace(strings.Join(args, "")) == "" {
		return fmt.Errorf("%s needs text", kind)
	}
	return nil
}
