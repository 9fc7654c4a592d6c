package audit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/vmihailenco/msgpack/v5"
)

const macroVersion = 1

// Macro is a recorded command sequence that can be replayed against any
// host.
type Macro struct {
	Version int       `msgpack:"version"`
	Created time.Time `msgpack:"created"`
	Entries []Entry   `msgpack:"entries"`
}

// Step is one replayable command and the pause that preceded it.
type Step struct {
	Delay   time.Duration
	Command control.Command
}

func NewMacro(entries []Entry) *Macro {
	return &Macro{Version: macroVersion, Created: time.Now(), Entries: entries}
}

func (m *Macro) WriteTo(w io.Writer) (int64, error) {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("encode macro: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

func ReadMacro(r io.Reader) (*Macro, error) {
	var m Macro
	if err := msgpack.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode macro: %w", err)
	}
	if m.Version != macroVersion {
		return nil, fmt.Errorf("unsupported macro version %d", m.Version)
	}
	return &m, nil
}

// SaveMacro writes the buffer's entries to path.
func SaveMacro(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := NewMacro(b.Entries()).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadMacro(path string) (*Macro, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMacro(f)
}

// Steps decodes every entry, keeping the original spacing between commands
// capped at maxDelay.
func (m *Macro) Steps(maxDelay time.Duration) ([]Step, error) {
	steps := make([]Step, 0, len(m.Entries))
	for i, e := range m.Entries {
		cmd, err := e.Command()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var delay time.Duration
		if i > 0 {
			delay = e.At.Sub(m.Entries[i-1].At)
			if delay < 0 {
				delay = 0
			}
			if maxDelay > 0 && delay > maxDelay {
				delay = maxDelay
			}
		}
		steps = append(steps, Step{Delay: delay, Command: cmd})
	}
	return steps, nil
}
