package domain

import (
	"strings"
	"testing"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusStarted, StatusSuccess, StatusFailed, StatusCompleted} {
		if !s.Valid() {
			t.Fatalf("%q must be valid", s)
		}
	}
	for _, s := range []Status{"", "running", "SUCCESS"} {
		if s.Valid() {
			t.Fatalf("%q must be invalid", s)
		}
	}
}

func TestShortCommand(t *testing.T) {
	n := Notification{Command: "make test"}
	if got := n.ShortCommand(40); got != "make test" {
		t.Fatalf("short command must pass through: %q", got)
	}

	n.Command = strings.Repeat("x", 41)
	got := n.ShortCommand(40)
	if got != strings.Repeat("x", 40)+"..." {
		t.Fatalf("elision wrong: %q", got)
	}

	// Rune-safe, not byte-safe.
	n.Command = strings.Repeat("ä", 41)
	got = n.ShortCommand(40)
	if got != strings.Repeat("ä", 40)+"..." {
		t.Fatalf("rune elision wrong: %q", got)
	}

	if got := n.ShortCommand(0); got != n.Command {
		t.Fatalf("non-positive cap must pass through: %q", got)
	}
}
