package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// ----- Fake notifier -----

type notifyCall struct {
	chatID  string
	text    string
	command string
	status  domain.Status
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (f *fakeNotifier) Send(ctx context.Context, chatID, text, command string, status domain.Status) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{chatID: chatID, text: text, command: command, status: status})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Notification{ChatID: chatID, MessageID: len(f.calls), Status: status}, nil
}

func newTestRunner(t *testing.T, n *fakeNotifier, logPath string) *Runner {
	t.Helper()
	r := New(n, "c1", "hostA", logPath, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC) }
	return r
}

func TestRun_SuccessClassification(t *testing.T) {
	n := &fakeNotifier{}
	r := newTestRunner(t, n, "")

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo ok"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 || res.Status != domain.StatusSuccess {
		t.Fatalf("classification wrong: %+v", res)
	}
	if res.ErrorSummary != "" {
		t.Fatalf("success must carry no error summary: %q", res.ErrorSummary)
	}

	if len(n.calls) != 2 {
		t.Fatalf("expected start + terminal notification, got %d", len(n.calls))
	}
	if n.calls[0].status != domain.StatusStarted || !strings.Contains(n.calls[0].text, "started on hostA") {
		t.Fatalf("start notification wrong: %+v", n.calls[0])
	}
	if n.calls[1].status != domain.StatusSuccess || !strings.Contains(n.calls[1].text, "succeeded on `hostA`") {
		t.Fatalf("terminal notification wrong: %+v", n.calls[1])
	}
	if !strings.Contains(n.calls[1].text, "Runtime 0d00:00:") {
		t.Fatalf("terminal notification missing runtime: %q", n.calls[1].text)
	}
}

func TestRun_FailureClassification(t *testing.T) {
	n := &fakeNotifier{}
	dir := t.TempDir()
	r := newTestRunner(t, n, dir)

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo 'ValueError: bad input' >&2; exit 3"})
	if err != nil {
		t.Fatalf("a non-zero exit is a classification, not an error: %v", err)
	}
	if res.ExitCode != 3 || res.Status != domain.StatusFailed {
		t.Fatalf("classification wrong: %+v", res)
	}
	if res.ErrorSummary != "ValueError: bad input" {
		t.Fatalf("summary wrong: %q", res.ErrorSummary)
	}

	terminal := n.calls[len(n.calls)-1]
	if terminal.status != domain.StatusFailed {
		t.Fatalf("terminal status wrong: %+v", terminal)
	}
	if !strings.Contains(terminal.text, "ValueError: bad input") {
		t.Fatalf("terminal notification missing summary: %q", terminal.text)
	}
	if !strings.Contains(terminal.text, res.StderrLog) {
		t.Fatalf("terminal notification must point at the stderr log: %q", terminal.text)
	}
}

func TestRun_WritesPrefixedLogs(t *testing.T) {
	n := &fakeNotifier{}
	dir := t.TempDir()
	r := newTestRunner(t, n, dir)

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDir := filepath.Join(dir, "2025-07-01", "10-30-00")
	if res.StdoutLog != filepath.Join(wantDir, "stdout.log") {
		t.Fatalf("stdout log path wrong: %q", res.StdoutLog)
	}

	out, err := os.ReadFile(res.StdoutLog)
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	if !strings.HasPrefix(string(out), "$ sh -c echo out; echo err >&2\n\nSTDOUT:\n") {
		t.Fatalf("stdout log missing command prefix: %q", out)
	}
	if !strings.Contains(string(out), "out") {
		t.Fatalf("stdout log missing output: %q", out)
	}

	errLog, err := os.ReadFile(res.StderrLog)
	if err != nil {
		t.Fatalf("read stderr log: %v", err)
	}
	if !strings.Contains(string(errLog), "STDERR:\nerr") {
		t.Fatalf("stderr log wrong: %q", errLog)
	}
}

func TestRun_NoLogPathOmitsLogPointer(t *testing.T) {
	n := &fakeNotifier{}
	r := newTestRunner(t, n, "")

	res, err := r.Run(context.Background(), []string{"sh", "-c", "exit 1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StdoutLog != "" || res.StderrLog != "" {
		t.Fatalf("no logs expected: %+v", res)
	}
	terminal := n.calls[len(n.calls)-1]
	if strings.Contains(terminal.text, "Full log in") {
		t.Fatalf("log pointer must be omitted when no logs were written: %q", terminal.text)
	}
}

func TestRun_NotificationFailureIsNotRunFatal(t *testing.T) {
	n := &fakeNotifier{err: context.DeadlineExceeded}
	r := newTestRunner(t, n, "")

	res, err := r.Run(context.Background(), []string{"sh", "-c", "exit 0"})
	if err != nil {
		t.Fatalf("notification failures must not fail the run: %v", err)
	}
	if res.Status != domain.StatusSuccess {
		t.Fatalf("classification wrong: %+v", res)
	}
}

func TestRun_SpawnFailureIsAnError(t *testing.T) {
	n := &fakeNotifier{}
	r := newTestRunner(t, n, "")

	_, err := r.Run(context.Background(), []string{"/definitely/not/a/binary"})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0d00:00:00.00"},
		{90*time.Second + 450*time.Millisecond, "0d00:01:30.45"},
		{25*time.Hour + 2*time.Minute + 3*time.Second, "1d01:02:03.00"},
		{48 * time.Hour, "2d00:00:00.00"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
