package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/link"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "192.168.1.5:8000", want: "http://192.168.1.5:8000"},
		{in: "https://desk.example.com/spacelink/", want: "https://desk.example.com/spacelink"},
		{in: "  http://host:8000?x=1 ", want: "http://host:8000"},
		{in: "", wantErr: true},
		{in: "ftp://host", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := BaseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BaseURL(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("BaseURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestOfferAnswerRoundTrip(t *testing.T) {
	var gotAnswer map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/offer", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"sessionId":"abc123","offer":{"sdp":"v=0 offer","type":"offer"}}`)
	})
	mux.HandleFunc("POST /session/answer", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotAnswer); err != nil {
			t.Errorf("decode answer: %v", err)
		}
		io.WriteString(w, `{"status":"connected"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(time.Second, testLogger())
	ctx := context.Background()

	offer, err := client.RequestOffer(ctx, server.URL)
	if err != nil {
		t.Fatalf("RequestOffer: %v", err)
	}
	if offer.SessionID != "abc123" || offer.Offer.SDP != "v=0 offer" || offer.Offer.Type != link.SDPTypeOffer {
		t.Fatalf("offer = %+v", offer)
	}

	answer := link.SessionDescription{Type: link.SDPTypeAnswer, SDP: "v=0 answer"}
	if err := client.SubmitAnswer(ctx, server.URL, offer.SessionID, answer); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if gotAnswer["sessionId"] != "abc123" {
		t.Errorf("sessionId = %v", gotAnswer["sessionId"])
	}
	inner, ok := gotAnswer["answer"].(map[string]any)
	if !ok || inner["sdp"] != "v=0 answer" || inner["type"] != "answer" {
		t.Errorf("answer body = %v", gotAnswer["answer"])
	}
}

func TestRequestOfferFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusServiceUnavailable, `busy`, link.ErrSignalingRejected},
		{"error body", http.StatusOK, `{"error":"no display"}`, link.ErrSignalingRejected},
		{"not json", http.StatusOK, `<html>`, link.ErrSignalingMalformedResponse},
		{"missing session", http.StatusOK, `{"offer":{"sdp":"v=0","type":"offer"}}`, link.ErrSignalingMalformedResponse},
		{"missing offer", http.StatusOK, `{"sessionId":"x"}`, link.ErrSignalingMalformedResponse},
		{"wrong type", http.StatusOK, `{"sessionId":"x","offer":{"sdp":"v=0","type":"answer"}}`, link.ErrSignalingMalformedResponse},
		{"empty body", http.StatusOK, ``, link.ErrSignalingMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(time.Second, testLogger()).RequestOffer(context.Background(), server.URL)
			if !errors.Is(err, tt.want) {
				t.Fatalf("RequestOffer = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitAnswerRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"Invalid sessionId"}`)
	}))
	defer server.Close()

	err := NewClient(time.Second, testLogger()).SubmitAnswer(context.Background(), server.URL, "stale",
		link.SessionDescription{Type: link.SDPTypeAnswer, SDP: "v=0"})
	if !errors.Is(err, link.ErrSignalingRejected) {
		t.Fatalf("SubmitAnswer = %v, want ErrSignalingRejected", err)
	}
}

func TestRequestOfferTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(50*time.Millisecond, testLogger()).RequestOffer(context.Background(), server.URL)
	if !errors.Is(err, link.ErrSignalingTimeout) {
		t.Fatalf("RequestOffer = %v, want ErrSignalingTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestRequestOfferCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := NewClient(5*time.Second, testLogger()).RequestOffer(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RequestOffer = %v, want context.Canceled", err)
	}
}

func TestRequestOfferUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := NewClient(time.Second, testLogger()).RequestOffer(context.Background(), addr)
	if !errors.Is(err, link.ErrSignalingUnavailable) {
		t.Fatalf("RequestOffer = %v, want ErrSignalingUnavailable", err)
	}
}
