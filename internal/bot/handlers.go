package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/bloodlife/core/logger"
	"github.com/m3rciful/bloodlife/core/telegram/commands"
	"github.com/m3rciful/bloodlife/core/telegram/format"
	"github.com/m3rciful/bloodlife/core/telegram/helpers"
	"github.com/m3rciful/bloodlife/core/telegram/keyboard"
	"github.com/m3rciful/bloodlife/internal/donor"
	"github.com/m3rciful/bloodlife/internal/store"

	tele "gopkg.in/telebot.v4"
)

const (
	welcomeText = "🩸 Welcome to BloodLife!\n\n" +
		"Register as a donor, keep your profile up to date, and help people " +
		"find blood when it matters. Pick an option below."

	storageUnavailableText = "😞 Storage is temporarily unavailable, please try again in a moment."
	notRegisteredText      = "📄 You don't have a donor profile yet. Tap \"" + btnRegister + "\" to create one."
)

func (a *App) registerHandlers() {
	reg := a.registry

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Show the main menu",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current registration",
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.handleBroadcast,
		Description: "Send a message to all registered donors",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/export", commands.Command{
		Handler:     a.handleExport,
		Description: "Export the donor snapshot as JSON",
		AdminOnly:   true,
		Hidden:      true,
	})

	reg.RegisterButton(btnRegister, a.handleRegister)
	reg.RegisterButton(btnSearch, a.handleSearch)
	reg.RegisterButton(btnProfile, a.handleProfile)
	reg.RegisterButton(btnEdit, a.handleEdit)
	reg.RegisterButton(btnAdmin, a.handleAdminPanel)

	reg.SetTextFallback(a.handleUnknownText)
}

func (a *App) sendMainMenu(c tele.Context, text string) error {
	return c.Send(text, &tele.SendOptions{
		ReplyMarkup: mainMenuMarkup(a.isAdmin(c.Sender().ID)),
	})
}

// handleStart discards any half-finished registration and shows the menu,
// so /start is always a clean slate.
func (a *App) handleStart(c tele.Context) error {
	a.manager.Cancel(donorID(c.Sender().ID))
	a.clearSearchPending(c.Sender().ID)
	return a.sendMainMenu(c, welcomeText)
}

func (a *App) handleCancel(c tele.Context) error {
	uid := donorID(c.Sender().ID)
	a.clearSearchPending(c.Sender().ID)
	if !a.manager.InProgress(uid) {
		return a.sendMainMenu(c, "Nothing to cancel.")
	}
	a.manager.Cancel(uid)
	return a.sendMainMenu(c, "❌ Registration cancelled. Your previous profile, if any, is unchanged.")
}

func (a *App) handleRegister(c tele.Context) error {
	ctx := helpers.WithHandler(c, "register")
	a.clearSearchPending(c.Sender().ID)
	prompt := a.manager.Start(ctx, donorID(c.Sender().ID))
	return a.sendPrompt(c, prompt)
}

// handleEdit walks the same steps as registration with the stored profile
// pre-filled, so every answer can be reviewed or replaced.
func (a *App) handleEdit(c tele.Context) error {
	ctx := helpers.WithHandler(c, "edit")
	a.clearSearchPending(c.Sender().ID)
	prompt, err := a.manager.StartEdit(ctx, donorID(c.Sender().ID))
	if err != nil {
		switch {
		case errors.Is(err, donor.ErrNotRegistered):
			return a.sendMainMenu(c, notRegisteredText)
		case errors.Is(err, store.ErrUnavailable):
			return a.sendMainMenu(c, storageUnavailableText)
		}
		return err
	}
	if err := c.Send(
		"✏️ Let's update your profile. You'll be asked each question again.",
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()},
	); err != nil {
		return err
	}
	return a.sendPrompt(c, prompt)
}

func (a *App) handleProfile(c tele.Context) error {
	ctx := helpers.WithHandler(c, "profile")
	p, err := a.store.Get(ctx, donorID(c.Sender().ID))
	if err != nil {
		switch {
		case errors.Is(err, donor.ErrNotRegistered):
			return a.sendMainMenu(c, notRegisteredText)
		case errors.Is(err, store.ErrUnavailable):
			return a.sendMainMenu(c, storageUnavailableText)
		}
		return err
	}
	return helpers.SendMD(c, renderProfile(p), mainMenuMarkup(a.isAdmin(c.Sender().ID)))
}

func renderProfile(p donor.Profile) string {
	availability := "❌ Not available"
	if p.Available {
		availability = "✅ Available"
	}
	social := p.SocialLink
	if social == "" {
		social = "—"
	}

	var b strings.Builder
	b.WriteString("📄 *Your donor profile*\n\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", format.EscapeMarkdown(p.Name))
	fmt.Fprintf(&b, "🎂 Age: %d\n", p.Age)
	fmt.Fprintf(&b, "🩸 Blood group: %s\n", p.BloodGroup)
	fmt.Fprintf(&b, "🏙 City: %s\n", format.EscapeMarkdown(p.City))
	fmt.Fprintf(&b, "📞 Phone: %s\n", format.EscapeMarkdown(p.Phone))
	fmt.Fprintf(&b, "🔗 Social: %s\n", format.EscapeMarkdown(social))
	fmt.Fprintf(&b, "⚖️ Weight: %d kg\n", p.Weight)
	fmt.Fprintf(&b, "🗓 Last donation: %s\n", format.EscapeMarkdown(p.LastDonationDate))
	fmt.Fprintf(&b, "🔔 %s\n", availability)
	fmt.Fprintf(&b, "🤕 Body issues: %s\n", format.EscapeMarkdown(p.BodyIssues))
	fmt.Fprintf(&b, "💊 Medical issues: %s\n", format.EscapeMarkdown(p.MedicalIssues))
	fmt.Fprintf(&b, "\nRegistered: %s", p.RegisteredAt.Format("2006-01-02"))
	return b.String()
}

// handleSearch asks for a location share first. The share is an engagement
// gate only; results are not ranked by distance.
func (a *App) handleSearch(c tele.Context) error {
	a.markSearchPending(c.Sender().ID)

	return c.Send(
		"📍 Share your location and I'll list the donors currently available.",
		&tele.SendOptions{ReplyMarkup: keyboard.LocationRequest(locationButtonLabel)},
	)
}

func (a *App) handleSearchLocation(c tele.Context) error {
	uid := c.Sender().ID
	if !a.takeSearchPending(uid) {
		return nil
	}

	ctx := helpers.WithHandler(c, "search")
	available, err := a.store.FilterAvailable(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return a.sendMainMenu(c, storageUnavailableText)
		}
		return err
	}

	logger.Info(ctx, "bot", "search",
		slog.Int("count", len(available)),
	)

	if len(available) == 0 {
		return a.sendMainMenu(c, "😔 No donors are available right now. Please check back later.")
	}

	sort.Slice(available, func(i, j int) bool { return available[i].Name < available[j].Name })

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Available donors* (%d)\n\n", len(available))
	for _, p := range available {
		fmt.Fprintf(&b, "• %s — %s — %s\n",
			format.EscapeMarkdown(p.Name), p.BloodGroup, format.EscapeMarkdown(p.City))
	}
	return helpers.SendMD(c, b.String(), mainMenuMarkup(a.isAdmin(uid)))
}

func (a *App) handleUnknownText(c tele.Context) error {
	return a.sendMainMenu(c, "🤖 I didn't understand that. Use the menu below.")
}
