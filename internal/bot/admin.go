package bot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/bloodlife/core/logger"
	"github.com/m3rciful/bloodlife/core/telegram/helpers"
	"github.com/m3rciful/bloodlife/core/telegram/netutil"
	"github.com/m3rciful/bloodlife/internal/store"

	tele "gopkg.in/telebot.v4"
)

const broadcastAttempts = 3

func (a *App) handleAdminPanel(c tele.Context) error {
	if !a.isAdmin(c.Sender().ID) {
		return a.sendMainMenu(c, "🚫 This area is for administrators.")
	}

	ctx := helpers.WithHandler(c, "admin_panel")
	count, err := a.store.Count(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return a.sendMainMenu(c, storageUnavailableText)
		}
		return err
	}

	text := fmt.Sprintf(
		"📢 *Admin Panel*\n\n👥 Registered donors: %d\n\n"+
			"`/broadcast <text>` — message every donor\n"+
			"`/export` — download the snapshot",
		count,
	)
	return helpers.SendMD(c, text, mainMenuMarkup(true))
}

// handleBroadcast delivers one message to every registered donor. Failures
// are isolated per recipient and summarized back to the admin.
func (a *App) handleBroadcast(c tele.Context) error {
	ctx := helpers.WithHandler(c, "broadcast")

	text := strings.TrimSpace(strings.TrimPrefix(c.Text(), "/broadcast"))
	if text == "" {
		return helpers.SendText(c, "Usage: /broadcast <message>")
	}

	snapshot, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return helpers.SendText(c, storageUnavailableText)
		}
		return err
	}

	var (
		sent int
		errs *multierror.Error
	)
	for id := range snapshot {
		recipient, perr := strconv.ParseInt(id, 10, 64)
		if perr != nil {
			errs = multierror.Append(errs, fmt.Errorf("donor %s: malformed id", id))
			continue
		}
		if serr := sendWithRetry(c.Bot(), &tele.User{ID: recipient}, text); serr != nil {
			errs = multierror.Append(errs, fmt.Errorf("donor %s: %w", id, serr))
			continue
		}
		sent++
	}

	failed := 0
	if errs != nil {
		failed = errs.Len()
	}
	logger.Info(ctx, "bot.admin", "broadcast",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn(ctx, "bot.admin", "broadcast.failures",
			slog.String("err", err.Error()),
		)
	}

	return helpers.SendText(c, fmt.Sprintf("📣 Broadcast finished: %d delivered, %d failed.", sent, failed))
}

// sendWithRetry retries transient network failures with a linear backoff;
// API-level rejections (blocked bot, deleted account) are final.
func sendWithRetry(b tele.API, to tele.Recipient, what any) error {
	var err error
	for attempt := 1; attempt <= broadcastAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * 500 * time.Millisecond)
		}
		_, err = b.Send(to, what)
		if err == nil || !netutil.ShouldRetry(err) {
			return err
		}
	}
	return err
}

// handleExport sends the full snapshot to the admin as a JSON document.
func (a *App) handleExport(c tele.Context) error {
	ctx := helpers.WithHandler(c, "export")

	snapshot, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return helpers.SendText(c, storageUnavailableText)
		}
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode snapshot: %w", err)
	}

	logger.Info(ctx, "bot.admin", "export",
		slog.Int("count", len(snapshot)),
	)

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "donors.json",
		MIME:     "application/json",
	}
	return c.Send(doc)
}
