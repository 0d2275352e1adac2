package bot

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestProgressBar(t *testing.T) {
	cases := []struct {
		current, total, length int
		wantDone               int
	}{
		{0, 10, 50, 0},
		{5, 10, 50, 25},
		{10, 10, 50, 50},
		{15, 10, 50, 50}, // clamped
		{-1, 10, 50, 0},  // clamped
	}
	for _, c := range cases {
		bar := ProgressBar(c.current, c.total, c.length)
		done := strings.Count(bar, "█")
		rest := strings.Count(bar, "-")
		if done != c.wantDone || done+rest != c.length {
			t.Fatalf("ProgressBar(%d,%d,%d): %d done, %d rest", c.current, c.total, c.length, done, rest)
		}
	}
}

func TestLiveness_RendersEveryTick(t *testing.T) {
	var buf strings.Builder
	l := &Liveness{Out: &buf, Period: 3, Tick: time.Millisecond}

	l.Run(context.Background())

	out := buf.String()
	for _, want := range []string{"0/3", "1/3", "2/3", "3/3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing tick %q in output", want)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("output must end with a newline")
	}
}

func TestLiveness_CancelledContextEndsEarly(t *testing.T) {
	var buf strings.Builder
	l := &Liveness{Out: &buf, Period: 1000, Tick: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("liveness did not stop on cancellation")
	}
}
