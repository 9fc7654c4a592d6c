package lan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/gorilla/websocket"
)

// routingHost routes messages the way the host endpoint does: a top-level
// "prompt" goes to the agent, everything else must be a known command type.
func routingHost(t *testing.T) *httptest.Server {
	t.Helper()
	known := map[string]bool{
		"mouse_move": true, "mouse_click": true, "key_press": true,
		"key_type": true, "hotkey": true, "open_app": true,
	}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			reply := Reply{Status: "ok"}
			if p, ok := msg["prompt"]; ok {
				reply.Message = "agent: " + p.(string)
			} else if typ, _ := msg["type"].(string); !known[typ] {
				reply = Reply{Status: "error", Message: "Unknown command: " + typ}
			}
			out, _ := json.Marshal(reply)
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  control.Command
		want string
	}{
		{"prompt", control.AIPrompt{Prompt: "open notepad"}, `{"prompt":"open notepad"}`},
		{"command", control.KeyPress{Key: "enter"}, `{"type":"key_press","data":{"key":"enter"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := Encode(control.StreamConfig{FPS: 30}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Encode(StreamConfig) error = %v, want ErrUnsupported", err)
	}
}

func TestPromptReachesAgent(t *testing.T) {
	srv := routingHost(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer ch.Close()

	sender := control.NewSender(func() link.DataChannel { return ch }, control.WithEncoder(Encode))

	for _, cmd := range []control.Command{
		control.AIPrompt{Prompt: "open notepad"},
		control.Hotkey{Keys: []string{"ctrl", "c"}},
	} {
		if err := sender.Send(cmd); err != nil {
			t.Fatalf("Send(%s) error: %v", cmd.Kind(), err)
		}
		reply, err := ch.AwaitReply(ctx)
		if err != nil {
			t.Fatalf("AwaitReply() error: %v", err)
		}
		if !reply.OK() {
			t.Errorf("%s reply = %+v, want ok", cmd.Kind(), reply)
		}
	}

	err = sender.Send(control.StreamConfig{FPS: 30})
	if !errors.Is(err, ErrUnsupported) || !errors.Is(err, control.ErrInvalidCommand) {
		t.Errorf("Send(StreamConfig) error = %v, want ErrUnsupported", err)
	}
}
