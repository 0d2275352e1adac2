// Package services – Retraction protocol
//
// Retraction reconciles a chat's notification history against the remote
// service: load the current records, sweep-delete each remote message with
// per-item fault isolation, purge the chat's history, then run a
// self-updating countdown confirmation and a disclaimer teardown. Only store
// failures during load and purge propagate; every remote call is wrapped
// individually, logged on failure, and never halts the surrounding loop.
// Once a sweep has been attempted the stale entries carry no further value,
// so the purge is unconditional.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CountdownState is a state of the confirmation countdown machine.
type CountdownState int

const (
	// CountdownDone: every tick was displayed and the countdown finished.
	CountdownDone CountdownState = iota
	// CountdownAborted: a remote edit failed or the context was cancelled;
	// remaining ticks were skipped without retry.
	CountdownAborted
)

const (
	// countdownSeconds is the number of countdown ticks displayed.
	countdownSeconds = 5
	// disclaimerDwellTicks is how many tick units the disclaimer stays up.
	disclaimerDwellTicks = 10
)

const disclaimerText = "⚠️ <b>Telegram does not allow bots to delete your own messages.</b> ⚠️\n\n" +
	"To clear full history, long-press the chat > tap 'Delete' > tap 'Clear Chat History'."

// RetractionResult reports what a retraction actually did.
type RetractionResult struct {
	// Swept is the number of history records the sweep iterated over.
	Swept int
	// Deleted is the number of remote messages confirmed deleted.
	Deleted int
	// Purged is the number of history rows removed from the store.
	Purged int64
	// Countdown is the terminal state the countdown machine reached.
	Countdown CountdownState
}

// Retractor runs the retraction protocol for one chat at a time per chat.
type Retractor struct {
	Transport Transport
	Store     HistoryStore
	Log       zerolog.Logger

	// Tick is the countdown time unit; 1s in production, shortened in tests.
	Tick time.Duration

	// locks serializes concurrent retractions for the same chat across
	// load, sweep, and purge. Different chats interleave freely.
	locks sync.Map // chatID -> *sync.Mutex
}

// NewRetractor constructs a Retractor with a 1-second tick.
func NewRetractor(tr Transport, store HistoryStore, log zerolog.Logger) *Retractor {
	return &Retractor{
		Transport: tr,
		Store:     store,
		Log:       log,
		Tick:      time.Second,
	}
}

// Retract deletes every remote message recorded for chatID, purges the
// chat's history, and runs the countdown confirmation and disclaimer
// teardown. It returns an error only when the store itself fails during
// load or purge; all remote-call failures are logged and swallowed.
func (r *Retractor) Retract(ctx context.Context, chatID string) (RetractionResult, error) {
	mu := r.chatLock(chatID)
	mu.Lock()

	var res RetractionResult

	// Load: always a fresh read, never a cached copy that could be stale
	// relative to concurrent writes from other runs.
	records, err := r.Store.ListForChat(ctx, chatID, 0)
	if err != nil {
		mu.Unlock()
		return res, err
	}

	// Sweep: total over all records, one failure never aborts the batch.
	res.Swept = len(records)
	for _, rec := range records {
		if rec.MessageID <= 0 {
			r.Log.Error().
				Str("chat_id", chatID).
				Int64("record_id", rec.ID).
				Msg("record has no message id, skipping remote delete")
			continue
		}
		if err := r.Transport.Delete(ctx, chatID, rec.MessageID); err != nil {
			r.Log.Error().Err(err).
				Str("chat_id", chatID).
				Int("message_id", rec.MessageID).
				Msg("failed to delete message")
			continue
		}
		res.Deleted++
	}

	// Purge: unconditional regardless of sweep outcome.
	purged, err := r.Store.DeleteForChat(ctx, chatID)
	if err != nil {
		mu.Unlock()
		return res, err
	}
	res.Purged = purged
	mu.Unlock()

	res.Countdown = r.countdown(ctx, chatID, res.Deleted)
	r.teardownDisclaimer(ctx, chatID)
	return res, nil
}

// countdown sends the confirmation message and edits it once per tick,
// decrementing the displayed number. The machine moves Counting(n) ->
// Counting(n-1) -> Done; a failed edit or cancelled context reaches Aborted
// without retrying remaining ticks.
func (r *Retractor) countdown(ctx context.Context, chatID string, deleted int) CountdownState {
	msgID, err := r.Transport.Send(ctx, chatID, countdownText(deleted, countdownSeconds))
	if err != nil {
		r.Log.Error().Err(err).Str("chat_id", chatID).Msg("failed to send countdown message")
		return CountdownAborted
	}

	state := CountdownDone
	for n := countdownSeconds - 1; n > 0; n-- {
		if !r.wait(ctx) {
			state = CountdownAborted
			break
		}
		if err := r.Transport.Edit(ctx, chatID, msgID, countdownText(deleted, n)); err != nil {
			r.Log.Error().Err(err).
				Str("chat_id", chatID).
				Int("message_id", msgID).
				Msg("failed to update countdown message")
			state = CountdownAborted
			break
		}
	}

	// Leave room for the last edit to render before removing the message.
	r.wait(ctx)
	if err := r.Transport.Delete(ctx, chatID, msgID); err != nil {
		r.Log.Warn().Err(err).
			Str("chat_id", chatID).
			Int("message_id", msgID).
			Msg("failed to delete countdown message")
	}
	return state
}

// teardownDisclaimer posts the platform-limitation disclaimer, lets it
// dwell, and removes it. Best effort on both calls.
func (r *Retractor) teardownDisclaimer(ctx context.Context, chatID string) {
	msgID, err := r.Transport.Send(ctx, chatID, disclaimerText)
	if err != nil {
		r.Log.Error().Err(err).Str("chat_id", chatID).Msg("failed to send disclaimer")
		return
	}
	for i := 0; i < disclaimerDwellTicks; i++ {
		if !r.wait(ctx) {
			break
		}
	}
	if err := r.Transport.Delete(ctx, chatID, msgID); err != nil {
		r.Log.Warn().Err(err).
			Str("chat_id", chatID).
			Int("message_id", msgID).
			Msg("failed to delete disclaimer")
	}
}

// wait sleeps one tick unit; false means the context was cancelled.
func (r *Retractor) wait(ctx context.Context) bool {
	tick := r.Tick
	if tick <= 0 {
		tick = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(tick):
		return true
	}
}

func (r *Retractor) chatLock(chatID string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(chatID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func countdownText(deleted, seconds int) string {
	return fmt.Sprintf(
		"🧹 Cleared %d message(s). 🧹\nThis message will self-destruct in %d seconds...",
		deleted, seconds,
	)
}
