// Package bot – liveness ticker
//
// After the wrapped command finishes, the process stays responsive to remote
// commands for a configured period. The ticker renders an in-place progress
// bar on the terminal so the operator can see how long the window stays open.
package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// barLength is the character width of the rendered bar.
const barLength = 50

// ProgressBar renders a text bar for current out of total steps.
func ProgressBar(current, total, length int) string {
	if length <= 0 {
		length = barLength
	}
	if total <= 0 {
		total = 1
	}
	if current > total {
		current = total
	}
	if current < 0 {
		current = 0
	}
	done := length * current / total
	return strings.Repeat("█", done) + strings.Repeat("-", length-done)
}

// Liveness counts down the alive period, redrawing the bar once per tick.
type Liveness struct {
	Out    io.Writer
	Period int           // seconds the process stays responsive
	Tick   time.Duration // 1s in production, shortened in tests
}

// Run blocks for the whole alive period, redrawing in place each tick.
// A cancelled context ends the countdown early.
func (l *Liveness) Run(ctx context.Context) {
	tick := l.Tick
	if tick <= 0 {
		tick = time.Second
	}
	for i := 0; i <= l.Period; i++ {
		bar := ProgressBar(i, l.Period, barLength)
		fmt.Fprintf(l.Out, "\r🤖 Bot still alive for: [%s] %d/%d [seconds]", bar, i, l.Period)
		if i == l.Period {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out)
			return
		case <-time.After(tick):
		}
	}
	fmt.Fprintln(l.Out)
}
