package audit

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func record(t *testing.T, b *Buffer, cmd control.Command) {
	t.Helper()
	data, err := control.Encode(cmd)
	if err != nil {
		t.Fatal(err)
	}
	b.Record(cmd.Kind(), data)
}

func TestBufferKeepsNewest(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		record(t, b, control.Scroll{Amount: i})
	}

	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	var amounts []int
	for _, e := range b.Entries() {
		cmd, err := e.Command()
		if err != nil {
			t.Fatal(err)
		}
		amounts = append(amounts, cmd.(control.Scroll).Amount)
	}
	if !reflect.DeepEqual(amounts, []int{3, 4, 5}) {
		t.Errorf("amounts = %v, want [3 4 5]", amounts)
	}
}

func TestBufferCopiesPayload(t *testing.T) {
	b := NewBuffer(2)
	payload := []byte(`{"type":"key_press","data":{"key":"a"}}`)
	b.Record(control.KindKeyPress, payload)
	payload[0] = 'X'

	if got := b.Entries()[0].Payload[0]; got != '{' {
		t.Errorf("buffer aliases caller payload: %q", got)
	}
}

func TestMacroRoundTrip(t *testing.T) {
	b := NewBuffer(10)
	b.now = fixedClock(time.Unix(1700000000, 0), 2*time.Second)

	cmds := []control.Command{
		control.MoveTo(0.1, 0.2),
		control.MouseClick{Button: control.ButtonLeft},
		control.Hotkey{Keys: []string{"ctrl", "s"}},
	}
	for _, cmd := range cmds {
		record(t, b, cmd)
	}

	var buf bytes.Buffer
	if _, err := NewMacro(b.Entries()).WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	m, err := ReadMacro(&buf)
	if err != nil {
		t.Fatalf("ReadMacro: %v", err)
	}

	steps, err := m.Steps(500 * time.Millisecond)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != len(cmds) {
		t.Fatalf("got %d steps, want %d", len(steps), len(cmds))
	}
	for i, step := range steps {
		if !reflect.DeepEqual(step.Command, cmds[i]) {
			t.Errorf("step %d = %#v, want %#v", i, step.Command, cmds[i])
		}
	}
	if steps[0].Delay != 0 || steps[1].Delay != 500*time.Millisecond {
		t.Errorf("delays = %s, %s; want 0 and capped 500ms", steps[0].Delay, steps[1].Delay)
	}
}

func TestReadMacroRejectsGarbage(t *testing.T) {
	if _, err := ReadMacro(bytes.NewReader([]byte{0xc1})); err == nil {
		t.Fatal("expected decode error")
	}
}
