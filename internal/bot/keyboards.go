package bot

import (
	"github.com/m3rciful/bloodlife/core/telegram/keyboard"
	"github.com/m3rciful/bloodlife/internal/donor"
	"github.com/m3rciful/bloodlife/internal/workflow"

	tele "gopkg.in/telebot.v4"
)

// Main menu button labels. The registry routes these by exact text.
const (
	btnRegister = "🩸 Register as Donor"
	btnSearch   = "🔍 Search Donors"
	btnProfile  = "📄 My Profile"
	btnEdit     = "✏️ Edit Profile"
	btnAdmin    = "📢 Admin Panel"
)

// cbBloodGroup is the callback unique for blood group inline buttons;
// the payload carries the group label.
const cbBloodGroup = "blood"

const (
	locationButtonLabel = "📍 Share Location"
	contactButtonLabel  = "📞 Share Phone Number"
)

func mainMenuMarkup(admin bool) *tele.ReplyMarkup {
	rows := [][]string{
		{btnRegister, btnSearch},
		{btnProfile, btnEdit},
	}
	if admin {
		rows = append(rows, []string{btnAdmin})
	}
	return keyboard.ReplyButtons(rows...)
}

func bloodGroupMarkup() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(donor.BloodGroups))
	for _, bg := range donor.BloodGroups {
		btns = append(btns, keyboard.InlineBtn{
			Text:   string(bg),
			Unique: cbBloodGroup,
			Data:   string(bg),
		})
	}
	return keyboard.InlineButtonsNPerRow(btns, 2)
}

func availabilityMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: workflow.AvailableLabel, Unique: workflow.AvailableToken},
		{Text: workflow.UnavailableLabel, Unique: workflow.UnavailableToken},
	})
}

func policyMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: workflow.PolicyLabel, Unique: workflow.PolicyToken},
	})
}

// markupFor maps the workflow's abstract keyboard names onto concrete
// Telegram markups. Prompts without a keyboard hide any lingering one.
func (a *App) markupFor(c tele.Context, k workflow.Keyboard) *tele.ReplyMarkup {
	switch k {
	case workflow.KeyboardMainMenu:
		return mainMenuMarkup(a.isAdmin(c.Sender().ID))
	case workflow.KeyboardBloodGroups:
		return bloodGroupMarkup()
	case workflow.KeyboardAvailability:
		return availabilityMarkup()
	case workflow.KeyboardPolicy:
		return policyMarkup()
	case workflow.KeyboardLocationRequest:
		return keyboard.LocationRequest(locationButtonLabel)
	case workflow.KeyboardContactRequest:
		return keyboard.ContactRequest(contactButtonLabel)
	default:
		return keyboard.RemoveKeyboard()
	}
}

func (a *App) sendPrompt(c tele.Context, p workflow.Prompt) error {
	return c.Send(p.Text, &tele.SendOptions{ReplyMarkup: a.markupFor(c, p.Keyboard)})
}
