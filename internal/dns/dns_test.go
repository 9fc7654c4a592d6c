package dns

import (
	"context"
	"errors"
	"testing"
)

func TestLookupIPLiteral(t *testing.T) {
	r := &Resolver{lookup: func(context.Context, string, string) ([]string, error) {
		t.Fatal("IP literals must not be resolved")
		return nil, nil
	}}

	ip, err := r.Lookup(context.Background(), "192.168.1.20")
	if err != nil || ip != "192.168.1.20" {
		t.Fatalf("Lookup = %q, %v", ip, err)
	}
}

func TestLookupPrefersIPv4(t *testing.T) {
	r := &Resolver{lookup: func(_ context.Context, _, server string) ([]string, error) {
		if server != "" {
			t.Fatalf("unexpected fallback to %s", server)
		}
		return []string{"2001:db8::1", "10.0.0.7"}, nil
	}}

	ip, err := r.Lookup(context.Background(), "desktop.lan")
	if err != nil || ip != "10.0.0.7" {
		t.Fatalf("Lookup = %q, %v", ip, err)
	}
}

func TestLookupFallsBackToPublicServers(t *testing.T) {
	r := &Resolver{
		Servers: []string{"192.0.2.1", "192.0.2.2"},
		lookup: func(_ context.Context, _, server string) ([]string, error) {
			switch server {
			case "":
				return nil, errors.New("system resolver broken")
			case "192.0.2.2":
				return []string{"203.0.113.9"}, nil
			default:
				return nil, errors.New("refused")
			}
		},
	}

	ip, err := r.Lookup(context.Background(), "host.example")
	if err != nil || ip != "203.0.113.9" {
		t.Fatalf("Lookup = %q, %v", ip, err)
	}
}

func TestLookupAllFail(t *testing.T) {
	r := &Resolver{
		Servers: []string{"192.0.2.1"},
		lookup: func(context.Context, string, string) ([]string, error) {
			return nil, errors.New("nope")
		},
	}

	if _, err := r.Lookup(context.Background(), "host.example"); err == nil {
		t.Fatal("expected error when every resolver fails")
	}
}
