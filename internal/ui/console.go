package ui

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/gesture"
	"github.com/BioHazard786/SpaceLink/cli/internal/session"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal cells are coarse, so a drag starts after two cells rather than
// the touch threshold.
const consoleDragThreshold = 2

// Remote is the session the console drives.
type Remote interface {
	Send(cmd control.Command) error
	Subscribe() (<-chan session.State, func())
	SessionID() string
	LastError() error
}

// countingSender tallies what the remote accepted and refused. Input jobs
// that end without sending anything are not counted.
type countingSender struct {
	remote   Remote
	sent     atomic.Int64
	rejected atomic.Int64
}

func (s *countingSender) Send(cmd control.Command) error {
	if err := s.remote.Send(cmd); err != nil {
		s.rejected.Add(1)
		return err
	}
	s.sent.Add(1)
	return nil
}

type ConsoleOptions struct {
	Server    string
	Gesture   gesture.Options
	LongPress time.Duration
}

// Console is the interactive control surface: keys go to the host keyboard,
// mouse input is classified into gestures, and F10 opens an AI prompt.
type Console struct {
	remote     Remote
	out        *countingSender
	server     string
	keyboard   *control.Keyboard
	translator *gesture.Translator
	classifier *gesture.Classifier

	states      <-chan session.State
	unsubscribe func()

	jobs    chan inputJob
	results chan inputResult
	stop    chan struct{}

	surfaceMu sync.Mutex
	surface   gesture.Size

	spinner   spinner.Model
	prompt    textinput.Model
	prompting bool

	state    session.State
	started  time.Time
	overflow int
	activity string
	lastErr  string
	quitting bool
}

type inputJob struct {
	label string
	run   func() error
}

type inputResult struct {
	label string
	err   error
}

type stateMsg session.State

type stateClosedMsg struct{}

func NewConsole(remote Remote, opts ConsoleOptions) *Console {
	c := &Console{
		remote:   remote,
		out:      &countingSender{remote: remote},
		server:   opts.Server,
		keyboard: &control.Keyboard{},
		jobs:     make(chan inputJob, 64),
		results:  make(chan inputResult, 64),
		stop:     make(chan struct{}),
		surface:  gesture.Size{Width: 80, Height: 24},
		started:  time.Now(),
	}

	gopts := opts.Gesture
	gopts.DragThreshold = consoleDragThreshold
	c.translator = gesture.NewTranslator(c.out, c.surfaceSize, gopts)
	c.classifier = gesture.NewClassifier(c.translator, opts.LongPress)
	c.states, c.unsubscribe = remote.Subscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	c.spinner = s

	ti := textinput.New()
	ti.Placeholder = "Ask the host to do something..."
	ti.Prompt = IconPrompt + " "
	ti.CharLimit = 500
	c.prompt = ti

	go c.work()
	return c
}

// Stats returns the number of commands the session accepted and the number
// that were refused or never queued.
func (c *Console) Stats() (sent, dropped int) {
	return int(c.out.sent.Load()), int(c.out.rejected.Load()) + c.overflow
}

func (c *Console) surfaceSize() gesture.Size {
	c.surfaceMu.Lock()
	defer c.surfaceMu.Unlock()
	return c.surface
}

// work runs input jobs one at a time so commands keep their order and a
// tap's click delay never blocks rendering.
func (c *Console) work() {
	for {
		select {
		case job := <-c.jobs:
			res := inputResult{label: job.label, err: job.run()}
			select {
			case c.results <- res:
			case <-c.stop:
				return
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Console) enqueue(label string, run func() error) {
	select {
	case c.jobs <- inputJob{label: label, run: run}:
	default:
		c.overflow++
		c.lastErr = "input queue full, dropped " + label
	}
}

func (c *Console) send(cmd control.Command) {
	c.enqueue(string(cmd.Kind()), func() error { return c.out.Send(cmd) })
}

func (c *Console) waitForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-c.states
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(st)
	}
}

func (c *Console) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-c.results:
			return res
		case <-c.stop:
			return nil
		}
	}
}

func (c *Console) Init() tea.Cmd {
	return tea.Batch(
		c.spinner.Tick,
		c.waitForState(),
		c.waitForResult(),
	)
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.surfaceMu.Lock()
		c.surface = gesture.Size{Width: float64(msg.Width), Height: float64(msg.Height)}
		c.surfaceMu.Unlock()

	case stateMsg:
		c.state = session.State(msg)
		if c.state == session.StateDisconnected {
			if err := c.remote.LastError(); err != nil {
				c.lastErr = err.Error()
			}
		}
		cmds = append(cmds, c.waitForState())

	case stateClosedMsg:
		return c, c.quit()

	case inputResult:
		if msg.err != nil {
			c.lastErr = fmt.Sprintf("%s: %v", msg.label, msg.err)
		} else {
			c.activity = msg.label
		}
		cmds = append(cmds, c.waitForResult())

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return c, c.quit()
		}
		if c.prompting {
			cmds = append(cmds, c.updatePrompt(msg))
		} else {
			cmds = append(cmds, c.handleKey(msg))
		}

	case tea.MouseMsg:
		c.handleMouse(msg)
	}

	return c, tea.Batch(cmds...)
}

func (c *Console) quit() tea.Cmd {
	if !c.quitting {
		c.quitting = true
		c.classifier.Cancel()
		c.unsubscribe()
		close(c.stop)
	}
	return tea.Quit
}

func (c *Console) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyF10:
		c.prompting = false
		c.prompt.Blur()
		return nil
	case tea.KeyEnter:
		text := strings.TrimSpace(c.prompt.Value())
		c.prompt.SetValue("")
		c.prompting = false
		c.prompt.Blur()
		if text != "" {
			c.send(control.AIPrompt{Prompt: text})
		}
		return nil
	}

	var cmd tea.Cmd
	c.prompt, cmd = c.prompt.Update(msg)
	return cmd
}

var modifierKeys = map[tea.KeyType]string{
	tea.KeyF1: "ctrl",
	tea.KeyF2: "alt",
	tea.KeyF3: "shift",
	tea.KeyF4: "win",
}

func (c *Console) handleKey(msg tea.KeyMsg) tea.Cmd {
	if mod, ok := modifierKeys[msg.Type]; ok {
		c.keyboard.Toggle(mod)
		return nil
	}
	if msg.Type == tea.KeyF10 {
		c.prompting = true
		return c.prompt.Focus()
	}

	if text, ok := typedText(msg); ok && len(c.keyboard.Active()) == 0 {
		c.send(control.KeyType{Text: text})
		return nil
	}

	key, held, ok := hostKey(msg)
	if !ok {
		return nil
	}
	c.send(c.keyboard.PressWith(key, held...))
	return nil
}

func (c *Console) handleMouse(msg tea.MouseMsg) {
	p := gesture.Point{X: float64(msg.X), Y: float64(msg.Y)}
	now := time.Now()

	switch {
	case msg.Button == tea.MouseButtonWheelUp && msg.Action == tea.MouseActionPress:
		c.enqueue("scroll", func() error { return c.translator.OnTwoFingerScroll(-1) })
	case msg.Button == tea.MouseButtonWheelDown && msg.Action == tea.MouseActionPress:
		c.enqueue("scroll", func() error { return c.translator.OnTwoFingerScroll(1) })
	case msg.Button == tea.MouseButtonRight && msg.Action == tea.MouseActionPress:
		c.enqueue("right click", func() error { return c.translator.OnLongPress(p) })
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		c.enqueue("press", func() error { return c.classifier.Down(0, p, now) })
	case msg.Action == tea.MouseActionMotion:
		c.enqueue("move", func() error { return c.classifier.Move(0, p, now) })
	case msg.Action == tea.MouseActionRelease:
		c.enqueue("click", func() error { return c.classifier.Up(0, p, now) })
	}
}

func (c *Console) View() string {
	if c.quitting {
		return ""
	}

	var b strings.Builder

	state := StateStyle(c.state.String()).Render(c.state.String())
	if c.state == session.StateConnecting {
		state = c.spinner.View() + " " + state
	}
	header := fmt.Sprintf("%s SpaceLink  %s  %s", IconConnect, state, MutedStyle.Render(c.server))
	if id := c.remote.SessionID(); id != "" {
		header += MutedStyle.Render("  session " + id)
	}
	b.WriteString(HeaderStyle.Render(header) + "\n\n")

	mods := c.keyboard.Active()
	var parts []string
	for _, m := range control.Modifiers {
		style := MutedStyle.Padding(0, 1)
		for _, active := range mods {
			if active == m {
				style = ModifierStyle
			}
		}
		parts = append(parts, style.Render(m))
	}
	b.WriteString(IconKeyboard + " " + lipgloss.JoinHorizontal(lipgloss.Center, parts...) + "\n")

	sent, dropped := c.Stats()
	b.WriteString(fmt.Sprintf("%s sent %d  dropped %d", IconMouse, sent, dropped))
	if c.activity != "" {
		b.WriteString(MutedStyle.Render("  last " + c.activity))
	}
	b.WriteString("\n")
	if c.lastErr != "" {
		b.WriteString(ErrorStyle.Render(c.lastErr) + "\n")
	}

	if c.prompting {
		b.WriteString("\n" + PromptBoxStyle.Render(c.prompt.View()) + "\n")
	}

	help := "F1-F4 latch ctrl/alt/shift/win · F10 prompt · mouse drives the pointer · ctrl+c quit"
	if c.prompting {
		help = "enter send · esc cancel"
	}
	b.WriteString(FooterStyle.Render(help))
	return b.String()
}

var namedKeys = map[tea.KeyType]string{
	tea.KeyEnter:     "enter",
	tea.KeyTab:       "tab",
	tea.KeyBackspace: "backspace",
	tea.KeyEsc:       "esc",
	tea.KeyUp:        "up",
	tea.KeyDown:      "down",
	tea.KeyLeft:      "left",
	tea.KeyRight:     "right",
	tea.KeyHome:      "home",
	tea.KeyEnd:       "end",
	tea.KeyPgUp:      "pageup",
	tea.KeyPgDown:    "pagedown",
	tea.KeyDelete:    "delete",
	tea.KeyInsert:    "insert",
	tea.KeyF5:        "f5",
	tea.KeyF6:        "f6",
	tea.KeyF7:        "f7",
	tea.KeyF8:        "f8",
	tea.KeyF9:        "f9",
	tea.KeyF11:       "f11",
	tea.KeyF12:       "f12",
}

// typedText reports input that should be typed verbatim rather than pressed:
// pastes, and single characters a key name cannot express such as capitals
// and punctuation.
func typedText(msg tea.KeyMsg) (string, bool) {
	if msg.Type != tea.KeyRunes || msg.Alt {
		return "", false
	}
	if msg.Paste || len(msg.Runes) > 1 {
		return string(msg.Runes), true
	}
	r := msg.Runes[0]
	if unicode.IsUpper(r) || (r > unicode.MaxASCII) || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
		return string(r), true
	}
	return "", false
}

// hostKey maps a terminal key to the host's key name and any modifiers the
// terminal reported with it.
func hostKey(msg tea.KeyMsg) (string, []string, bool) {
	var held []string
	if msg.Alt {
		held = append(held, "alt")
	}

	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return "", nil, false
		}
		return string(msg.Runes[0]), held, true
	case tea.KeySpace:
		return "space", held, true
	case tea.KeyShiftTab:
		return "tab", append(held, "shift"), true
	}
	if name, ok := namedKeys[msg.Type]; ok {
		return name, held, true
	}

	// ctrl+a, ctrl+up, shift+left and friends.
	parts := strings.Split(strings.TrimPrefix(msg.String(), "alt+"), "+")
	if len(parts) < 2 {
		return "", nil, false
	}
	for _, p := range parts[:len(parts)-1] {
		if !control.IsModifier(p) {
			return "", nil, false
		}
		held = append(held, p)
	}
	return parts[len(parts)-1], held, true
}
