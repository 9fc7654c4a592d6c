package lan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/gorilla/websocket"
)

// echoHost mimics the host endpoint: every command gets a status reply.
func echoHost(t *testing.T, received chan<- string) *httptest.Server {
	t.Helper()
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
			received <- string(data)

			reply := Reply{Status: "ok"}
			if strings.Contains(string(data), "bogus") {
				reply = Reply{Status: "error", Message: "unknown command"}
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

func TestURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"192.168.1.20:8000", "ws://192.168.1.20:8000/ws"},
		{"http://host:8000/", "ws://host:8000/ws"},
		{"https://remote.example/api", "wss://remote.example/api/ws"},
	}
	for _, tt := range tests {
		got, err := URL(tt.server)
		if err != nil {
			t.Fatalf("URL(%q) error: %v", tt.server, err)
		}
		if got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}

	if _, err := URL("ftp://host"); err == nil {
		t.Error("URL accepted an ftp address")
	}
}

func TestSendThroughSender(t *testing.T) {
	received := make(chan string, 4)
	srv := echoHost(t, received)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer ch.Close()

	sender := control.NewSender(func() link.DataChannel { return ch })
	if err := sender.Send(control.MouseClick{Button: control.ButtonLeft}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	select {
	case got := <-received:
		want := `{"type":"mouse_click","data":{"button":"left"}}`
		if got != want {
			t.Errorf("host received %s, want %s", got, want)
		}
	case <-ctx.Done():
		t.Fatal("host never received the command")
	}

	reply, err := ch.AwaitReply(ctx)
	if err != nil {
		t.Fatalf("AwaitReply() error: %v", err)
	}
	if !reply.OK() {
		t.Errorf("reply = %+v, want ok", reply)
	}
}

func TestErrorReply(t *testing.T) {
	received := make(chan string, 4)
	srv := echoHost(t, received)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	if err := ch.Send([]byte(`{"type":"bogus","data":{}}`)); err != nil {
		t.Fatal(err)
	}
	reply, err := ch.AwaitReply(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reply.OK() || reply.Message != "unknown command" {
		t.Errorf("reply = %+v, want error reply", reply)
	}
}

func TestClosedChannelRejectsSend(t *testing.T) {
	srv := echoHost(t, make(chan string, 4))

	ch, err := Dial(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	closed := make(chan struct{})
	ch.OnClose(func() { close(closed) })
	ch.Close()
	ch.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose callback not run")
	}
	if ch.ReadyState() != link.ChannelStateClosed {
		t.Errorf("ReadyState() = %s, want closed", ch.ReadyState())
	}
	if err := ch.Send([]byte("{}")); !errors.Is(err, link.ErrChannelNotReady) {
		t.Errorf("Send() after Close error = %v, want ErrChannelNotReady", err)
	}
}

func TestDialUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr, nil); !errors.Is(err, link.ErrTransportSetupFailed) {
		t.Errorf("Dial() error = %v, want ErrTransportSetupFailed", err)
	}
}
