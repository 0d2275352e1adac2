// Package bot – inbound command handlers
//
// The router consumes inbound bot commands from an UpdateSource and
// dispatches them to the retraction protocol or the read-only reporting
// handlers. Handler replies are transient chat furniture and are not
// recorded in the history store.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-notify-bot/internal/domain"
	"github.com/tbourn/go-notify-bot/internal/services"
)

// statsCommandLen is the display cap for command lines in the stats report.
const statsCommandLen = 40

// statsRecent is how many of the chat's latest records the report includes.
const statsRecent = 5

// Command is one inbound bot command scoped to the chat that issued it.
type Command struct {
	Name   string
	ChatID string
}

// UpdateSource emits inbound commands until its context is cancelled.
// *Telegram satisfies it via long polling.
type UpdateSource interface {
	Commands(ctx context.Context) <-chan Command
}

// StatsProvider is the read-only store surface the stats handler needs.
// *repo.NotificationStore satisfies it.
type StatsProvider interface {
	Statistics(ctx context.Context) (domain.Statistics, error)
	ListForChat(ctx context.Context, chatID string, limit int) ([]domain.Notification, error)
}

// Retractor runs the retraction protocol for one chat.
// *services.Retractor satisfies it.
type Retractor interface {
	Retract(ctx context.Context, chatID string) (services.RetractionResult, error)
}

// Router serves the remote command surface: /start, /clearchat, /stats.
type Router struct {
	Transport services.Transport
	Retractor Retractor
	Stats     StatsProvider
	Log       zerolog.Logger
}

// NewRouter constructs a Router with the given collaborators.
func NewRouter(tr services.Transport, r Retractor, stats StatsProvider, log zerolog.Logger) *Router {
	return &Router{Transport: tr, Retractor: r, Stats: stats, Log: log}
}

// Serve consumes commands from src until the context is cancelled or the
// source closes its channel. Each command is handled in its own goroutine so
// a long-running retraction never blocks commands for other chats; Serve
// returns only after every in-flight handler has finished.
func (r *Router) Serve(ctx context.Context, src UpdateSource) {
	var wg sync.WaitGroup
	for cmd := range src.Commands(ctx) {
		wg.Add(1)
		go func(cmd Command) {
			defer wg.Done()
			r.handle(ctx, cmd)
		}(cmd)
	}
	wg.Wait()
}

func (r *Router) handle(ctx context.Context, cmd Command) {
	lg := r.Log.With().Str("command", cmd.Name).Str("chat_id", cmd.ChatID).Logger()
	switch cmd.Name {
	case "start":
		r.reply(ctx, lg, cmd.ChatID, greetingText)
	case "clearchat":
		res, err := r.Retractor.Retract(ctx, cmd.ChatID)
		if err != nil {
			lg.Error().Err(err).Msg("retraction failed")
			return
		}
		lg.Info().
			Int("swept", res.Swept).
			Int("deleted", res.Deleted).
			Int64("purged", res.Purged).
			Msg("chat history retracted")
	case "stats":
		text, err := r.statsText(ctx, cmd.ChatID)
		if err != nil {
			lg.Error().Err(err).Msg("failed to build stats report")
			return
		}
		r.reply(ctx, lg, cmd.ChatID, text)
	default:
		lg.Debug().Msg("ignoring unknown command")
	}
}

// reply sends a transient handler response; failures are logged only.
func (r *Router) reply(ctx context.Context, lg zerolog.Logger, chatID, text string) {
	if _, err := r.Transport.Send(ctx, chatID, text); err != nil {
		lg.Error().Err(err).Msg("failed to send reply")
	}
}

// statsText composes the aggregate report plus the chat's recent commands.
func (r *Router) statsText(ctx context.Context, chatID string) (string, error) {
	stats, err := r.Stats.Statistics(ctx)
	if err != nil {
		return "", err
	}
	recent, err := r.Stats.ListForChat(ctx, chatID, statsRecent)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		"📊 <b>Database Statistics</b> 📊\n\n"+
			"Total notifications: %d\n"+
			"Unique chats: %d\n"+
			"Unique devices: %d\n\n"+
			"Recent commands in this chat:\n",
		stats.TotalNotifications, stats.UniqueChats, stats.UniqueDevices,
	)
	for _, n := range recent {
		device := "unknown"
		if n.DeviceName != nil && *n.DeviceName != "" {
			device = *n.DeviceName
		}
		fmt.Fprintf(&b, "  • <code>%s</code> (%s)\n", n.ShortCommand(statsCommandLen), device)
	}
	return b.String(), nil
}

const greetingText = "👋 Bot is ready.👋\n" +
	"Available commands:\n" +
	"  - /clearchat to clear pre-existing bot notifications.\n" +
	"  - /stats to view usage statistics."
