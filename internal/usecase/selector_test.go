package usecase

import (
	"errors"
	"net"
	"testing"

	"auravoice/internal/domain"
)

func TestChoosePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name             string
		primaryAvailable bool
		online           bool
		want             domain.SessionMode
	}{
		{"primary when available and online", true, true, domain.ModePrimary},
		{"secondary when offline", true, false, domain.ModeSecondary},
		{"secondary when unavailable", false, true, domain.ModeSecondary},
		{"secondary when unavailable and offline", false, false, domain.ModeSecondary},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ChoosePath(tc.primaryAvailable, tc.online); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestShouldRestart(t *testing.T) {
	t.Parallel()

	if !ShouldRestart(nil, false) {
		t.Fatalf("clean stream end should restart")
	}
	if !ShouldRestart(errors.New("no speech detected"), false) {
		t.Fatalf("transient recognition error should restart")
	}
	if ShouldRestart(nil, true) {
		t.Fatalf("manual stop must suppress restart")
	}
	if ShouldRestart(domain.MarkNetwork(errors.New("conn reset")), false) {
		t.Fatalf("network failure must not restart, fallback handles it")
	}
	if ShouldRestart(&net.OpError{Op: "read", Err: errors.New("reset")}, false) {
		t.Fatalf("net.OpError must not restart")
	}
}
