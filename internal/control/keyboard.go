package control

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var ErrInvalidCommand = errors.New("invalid command")

// Modifiers the host understands, in the order the console shows them.
var Modifiers = []string{"ctrl", "alt", "shift", "win"}

func IsModifier(key string) bool {
	return slices.Contains(Modifiers, strings.ToLower(key))
}

// Keyboard folds toggled modifiers into the next key press. Modifiers are
// one-shot: the set is cleared by the press that consumes it.
type Keyboard struct {
	mu     sync.Mutex
	active []string
}

// Toggle flips mod and reports whether it is now active.
func (k *Keyboard) Toggle(mod string) (bool, error) {
	mod = strings.ToLower(mod)
	if !IsModifier(mod) {
		return false, fmt.Errorf("%w: %q is not a modifier", ErrInvalidCommand, mod)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if i := slices.Index(k.active, mod); i >= 0 {
		k.active = slices.Delete(k.active, i, i+1)
		return false, nil
	}
	k.active = append(k.active, mod)
	return true, nil
}

// Active returns the toggled modifiers in toggle order.
func (k *Keyboard) Active() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return slices.Clone(k.active)
}

// Press returns a Hotkey of the active modifiers followed by key, clearing
// them, or a plain KeyPress when none are active.
func (k *Keyboard) Press(key string) Command {
	return k.PressWith(key)
}

// PressWith is Press with extra modifiers held for this key only. They follow
// the toggled ones and are never latched.
func (k *Keyboard) PressWith(key string, held ...string) Command {
	key = strings.ToLower(key)

	k.mu.Lock()
	mods := k.active
	k.active = nil
	k.mu.Unlock()

	for _, m := range held {
		m = strings.ToLower(m)
		if !slices.Contains(mods, m) {
			mods = append(mods, m)
		}
	}
	if len(mods) == 0 {
		return KeyPress{Key: key}
	}
	return Hotkey{Keys: append(mods, key)}
}

func (k *Keyboard) Reset() {
	k.mu.Lock()
	k.active = nil
	k.mu.Unlock()
}
