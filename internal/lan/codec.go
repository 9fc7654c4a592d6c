package lan

import (
	"encoding/json"
	"errors"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
)

// ErrUnsupported is returned for commands the WebSocket endpoint does not
// route. Stream settings only exist on the peer data channel.
var ErrUnsupported = errors.New("command not supported over lan")

// prompt is the only message the endpoint hands to its AI agent; anything
// without a top-level "prompt" key is executed as a command envelope.
type prompt struct {
	Prompt string `json:"prompt"`
}

// Encode serializes cmd in the endpoint's dialect.
func Encode(cmd control.Command) ([]byte, error) {
	switch c := cmd.(type) {
	case control.AIPrompt:
		return json.Marshal(prompt{Prompt: c.Prompt})
	case control.StreamConfig:
		return nil, ErrUnsupported
	default:
		return control.Encode(cmd)
	}
}
