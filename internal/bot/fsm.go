package bot

import (
	"errors"
	"strconv"

	"github.com/m3rciful/bloodlife/core/telegram/callbacks"
	"github.com/m3rciful/bloodlife/core/telegram/helpers"
	"github.com/m3rciful/bloodlife/internal/workflow"

	tele "gopkg.in/telebot.v4"
)

// fsmAdapter exposes the workflow manager through the router's FSM
// interface, translating Telegram updates into workflow events.
type fsmAdapter struct {
	app *App
}

func (f fsmAdapter) InProgress(userID int64) bool {
	return f.app.manager.InProgress(donorID(userID))
}

func (f fsmAdapter) Handle(c tele.Context) error {
	return f.app.advanceWorkflow(c)
}

func donorID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// eventFrom classifies one inbound update for the workflow. Inline button
// presses become button events carrying either the callback payload (blood
// group labels) or the unique itself (yes/no style buttons).
func eventFrom(c tele.Context) workflow.Event {
	if c.Callback() != nil {
		token := callbacks.CallbackKey(c)
		if payload := callbacks.CallbackPayload(c); payload != "" {
			token = payload
		}
		return workflow.ButtonEvent(token)
	}
	if msg := c.Message(); msg != nil {
		if msg.Location != nil {
			return workflow.LocationEvent(float64(msg.Location.Lat), float64(msg.Location.Lng))
		}
		if msg.Contact != nil {
			return workflow.ContactEvent(msg.Contact.PhoneNumber)
		}
	}
	return workflow.TextEvent(c.Text())
}

func (a *App) advanceWorkflow(c tele.Context) error {
	ctx := helpers.WithHandler(c, "workflow")
	uid := donorID(c.Sender().ID)

	prompt, err := a.manager.Advance(ctx, uid, eventFrom(c))
	if err != nil {
		if errors.Is(err, workflow.ErrNoActiveRun) {
			return a.sendMainMenu(c, "🤖 There's nothing in progress. Use the menu below.")
		}
		// Commit failures come back with a retry prompt attached; the
		// manager already logged the cause and kept the run pending.
		if prompt.Text != "" {
			return a.sendPrompt(c, prompt)
		}
		return err
	}
	return a.sendPrompt(c, prompt)
}
