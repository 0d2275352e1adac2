// Package runner executes the wrapped shell command and reports around it.
// The runner is purely an observer: it never retries the command and never
// masks a non-zero exit code. It brackets execution with a "started" and a
// terminal notification, both best-effort — a failed notification is logged
// and never aborts or fails the run.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// Notifier is the dispatch surface the runner needs; *services.Dispatcher
// satisfies it.
type Notifier interface {
	Send(ctx context.Context, chatID, text, command string, status domain.Status) (*domain.Notification, error)
}

// Result classifies one finished run. A non-zero exit code is an outcome,
// not an error.
type Result struct {
	ExitCode     int
	Status       domain.Status // StatusSuccess or StatusFailed
	Elapsed      time.Duration
	ErrorSummary string // non-empty only on failure
	StdoutLog    string // path, empty when log writing was disabled or failed
	StderrLog    string
}

// Runner wraps one subprocess execution with notifications and log capture.
type Runner struct {
	Notifier   Notifier
	ChatID     string
	DeviceName string

	// LogPath is the root directory for per-run stdout/stderr logs.
	// Empty disables log files (and the log pointer in failure messages).
	LogPath string

	Log zerolog.Logger

	// now is injectable for deterministic log-directory names in tests.
	now func() time.Time
}

// New constructs a Runner.
func New(n Notifier, chatID, deviceName, logPath string, log zerolog.Logger) *Runner {
	return &Runner{
		Notifier:   n,
		ChatID:     chatID,
		DeviceName: deviceName,
		LogPath:    logPath,
		Log:        log,
		now:        time.Now,
	}
}

// Run executes argv, streams both output channels to log files, classifies
// the exit, and dispatches the start and terminal notifications. The
// returned error covers only spawn failures (command not found etc.); a
// command that ran and exited non-zero yields a failed Result and nil error.
func (r *Runner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("no command given")
	}
	commandStr := strings.Join(argv, " ")

	r.notify(ctx, startText(commandStr, r.DeviceName), commandStr, domain.StatusStarted)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Elapsed: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		// The process never ran; there is nothing to classify or log.
		r.notify(ctx, spawnFailureText(commandStr, r.DeviceName, err), commandStr, domain.StatusFailed)
		return Result{}, fmt.Errorf("spawn %q: %w", argv[0], err)
	}

	outStr := strings.TrimSpace(stdout.String())
	errStr := strings.TrimSpace(stderr.String())
	res.StdoutLog, res.StderrLog = r.writeLogs(commandStr, outStr, errStr)

	elapsed := FormatDuration(res.Elapsed)
	var text string
	if res.ExitCode == 0 {
		res.Status = domain.StatusSuccess
		text = successText(commandStr, r.DeviceName, elapsed)
	} else {
		res.Status = domain.StatusFailed
		res.ErrorSummary = ExtractMainError(errStr)
		text = failureText(commandStr, r.DeviceName, elapsed, res.ErrorSummary, res.StderrLog)
	}
	r.notify(ctx, text, commandStr, res.Status)

	return res, nil
}

// notify dispatches one notification, appending scheduler job metadata when
// present in the environment. Failures are logged and swallowed.
func (r *Runner) notify(ctx context.Context, text, command string, status domain.Status) {
	if block := slurmBlock(); block != "" {
		text += block
	}
	if _, err := r.Notifier.Send(ctx, r.ChatID, text, command, status); err != nil {
		r.Log.Error().Err(err).
			Str("status", string(status)).
			Msg("failed to send notification")
	}
}

// writeLogs persists both streams under <LogPath>/<date>/<time-of-day>/,
// each file prefixed with the invoked command line. Both writes complete
// before the run is considered finished. Returns the two paths, or empty
// strings when log writing is disabled or fails.
func (r *Runner) writeLogs(commandStr, stdout, stderr string) (outPath, errPath string) {
	if r.LogPath == "" {
		return "", ""
	}
	now := r.now()
	dir := filepath.Join(r.LogPath, now.Format("2006-01-02"), now.Format("15-04-05"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.Log.Error().Err(err).Str("dir", dir).Msg("failed to create log directory")
		return "", ""
	}

	outPath = filepath.Join(dir, "stdout.log")
	errPath = filepath.Join(dir, "stderr.log")
	outData := fmt.Sprintf("$ %s\n\nSTDOUT:\n%s", commandStr, stdout)
	errData := fmt.Sprintf("$ %s\n\nSTDERR:\n%s", commandStr, stderr)

	if err := os.WriteFile(outPath, []byte(outData), 0o644); err != nil {
		r.Log.Error().Err(err).Str("path", outPath).Msg("failed to write stdout log")
		outPath = ""
	}
	if err := os.WriteFile(errPath, []byte(errData), 0o644); err != nil {
		r.Log.Error().Err(err).Str("path", errPath).Msg("failed to write stderr log")
		errPath = ""
	}
	return outPath, errPath
}

// FormatDuration renders an elapsed duration as DdHH:MM:SS.ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := d.Seconds()
	return fmt.Sprintf("%dd%02d:%02d:%05.2f", days, hours, minutes, seconds)
}

func startText(commandStr, device string) string {
	return fmt.Sprintf("🚀 Command `%s` started on %s! 🚀", commandStr, device)
}

func successText(commandStr, device, elapsed string) string {
	return fmt.Sprintf(
		"✅ Command `%s` succeeded on `%s`!\n%s\nRuntime %s ✅",
		commandStr, device, strings.Repeat("=", 30), elapsed,
	)
}

func failureText(commandStr, device, elapsed, summary, errLog string) string {
	text := fmt.Sprintf(
		"❌ Command `%s` failed on `%s` after %s ❌\n\n**Error:** `%s`\n\n",
		commandStr, device, elapsed, summary,
	)
	if errLog != "" {
		text += fmt.Sprintf("Full log in: `%s`", errLog)
	}
	return text
}

func spawnFailureText(commandStr, device string, err error) string {
	return fmt.Sprintf(
		"❌ Command `%s` could not be started on `%s`: %v ❌",
		commandStr, device, err,
	)
}

// slurmBlock renders the scheduler metadata footer when the process runs
// inside a SLURM job.
func slurmBlock() string {
	jobID := os.Getenv("SLURM_JOB_ID")
	jobName := os.Getenv("SLURM_JOB_NAME")
	if jobName == "" {
		jobName = "unknown"
	}
	if jobID == "" || jobName == "unknown" {
		return ""
	}
	return fmt.Sprintf("\n%s\nJob ID: `%s`\nJob Name: `%s`", strings.Repeat("=", 30), jobID, jobName)
}
