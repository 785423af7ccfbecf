package workflow

import (
	"strconv"
	"strings"

	"github.com/m3rciful/bloodlife/internal/donor"
)

const (
	minAge    = 18
	maxAge    = 60
	minWeight = 45
)

type step struct {
	state  State
	prompt Prompt
	// apply validates ev and writes one draft field. It returns
	// *ValidationError or ErrUnrecognizedInput when the input must be
	// re-asked; the draft field stays untouched in that case.
	apply func(d *donor.Profile, ev Event) error
}

var steps = []step{
	{
		state:  StateAwaitingName,
		prompt: Prompt{Text: "👤 What's your full name?"},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			name := strings.TrimSpace(ev.Text)
			if name == "" {
				return validationf("name cannot be empty")
			}
			d.Name = name
			return nil
		},
	},
	{
		state:  StateAwaitingAge,
		prompt: Prompt{Text: "🎂 How old are you? (18–60)"},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			age, err := strconv.Atoi(strings.TrimSpace(ev.Text))
			if err != nil {
				return validationf("please send your age as a number")
			}
			if age < minAge || age > maxAge {
				return validationf("donors must be between %d and %d years old", minAge, maxAge)
			}
			d.Age = age
			return nil
		},
	},
	{
		state:  StateAwaitingBloodGroup,
		prompt: Prompt{Text: "🩸 Choose your blood group:", Keyboard: KeyboardBloodGroups},
		apply: func(d *donor.Profile, ev Event) error {
			// Reply keyboards deliver the label as text, inline keyboards
			// as a button token; both are accepted here.
			var raw string
			switch ev.Kind {
			case KindButton:
				raw = ev.Token
			case KindText:
				raw = ev.Text
			default:
				return ErrUnrecognizedInput
			}
			bg, ok := donor.ParseBloodGroup(raw)
			if !ok {
				return validationf("please pick one of the listed blood groups")
			}
			d.BloodGroup = bg
			return nil
		},
	},
	{
		state:  StateAwaitingCity,
		prompt: Prompt{Text: "🏙 Which city do you live in?"},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			city := strings.TrimSpace(ev.Text)
			if city == "" {
				return validationf("city cannot be empty")
			}
			d.City = city
			return nil
		},
	},
	{
		state:  StateAwaitingLocation,
		prompt: Prompt{Text: "📍 Please share your location using the button below.", Keyboard: KeyboardLocationRequest},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindLocation {
				return ErrUnrecognizedInput
			}
			if ev.Latitude < -90 || ev.Latitude > 90 || ev.Longitude < -180 || ev.Longitude > 180 {
				return validationf("that location looks malformed, please share it again")
			}
			d.Location = &donor.Location{Latitude: ev.Latitude, Longitude: ev.Longitude}
			return nil
		},
	},
	{
		state:  StateAwaitingPhone,
		prompt: Prompt{Text: "📞 Share your phone number using the button below.", Keyboard: KeyboardContactRequest},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindContact {
				return ErrUnrecognizedInput
			}
			phone := strings.TrimSpace(ev.Phone)
			if phone == "" {
				return validationf("the shared contact has no phone number")
			}
			d.Phone = phone
			return nil
		},
	},
	{
		state:  StateAwaitingSocial,
		prompt: Prompt{Text: "🔗 Send a link to your social profile, or type \"skip\"."},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			text := strings.TrimSpace(ev.Text)
			if strings.EqualFold(text, SkipSentinel) {
				d.SocialLink = ""
				return nil
			}
			d.SocialLink = text
			return nil
		},
	},
	{
		state:  StateAwaitingWeight,
		prompt: Prompt{Text: "⚖️ What's your weight in kg? (at least 45)"},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			weight, err := strconv.Atoi(strings.TrimSpace(ev.Text))
			if err != nil {
				return validationf("please send your weight as a number of kilograms")
			}
			if weight < minWeight {
				return validationf("donors must weigh at least %d kg", minWeight)
			}
			d.Weight = weight
			return nil
		},
	},
	{
		state:  StateAwaitingLastDonation,
		prompt: Prompt{Text: "🗓 When did you last donate blood? (e.g. 2024-01-10, or \"never\")"},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			date := strings.TrimSpace(ev.Text)
			if date == "" {
				return validationf("please tell us when you last donated")
			}
			d.LastDonationDate = date
			return nil
		},
	},
	{
		state:  StateAwaitingAvailability,
		prompt: Prompt{Text: "🔔 Are you currently available to donate?", Keyboard: KeyboardAvailability},
		apply: func(d *donor.Profile, ev Event) error {
			choice := ""
			switch ev.Kind {
			case KindButton:
				choice = ev.Token
			case KindText:
				choice = strings.TrimSpace(ev.Text)
			default:
				return ErrUnrecognizedInput
			}
			switch {
			case choice == AvailableToken || strings.EqualFold(choice, AvailableLabel):
				d.Available = true
			case choice == UnavailableToken || strings.EqualFold(choice, UnavailableLabel):
				d.Available = false
			default:
				return validationf("please answer with one of the two buttons")
			}
			return nil
		},
	},
	{
		state:  StateAwaitingBodyIssues,
		prompt: Prompt{Text: "🤕 Any body issues we should know about? Type \"none\" if not."},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			d.BodyIssues = strings.TrimSpace(ev.Text)
			return nil
		},
	},
	{
		state:  StateAwaitingMedicalIssues,
		prompt: Prompt{Text: "💊 Any medical issues or conditions? Type \"none\" if not."},
		apply: func(d *donor.Profile, ev Event) error {
			if ev.Kind != KindText {
				return ErrUnrecognizedInput
			}
			d.MedicalIssues = strings.TrimSpace(ev.Text)
			return nil
		},
	},
	{
		state: StateAwaitingPolicyAcceptance,
		prompt: Prompt{
			Text:     "📜 By registering you agree to be contacted by people in need of blood.\n\nPress the button below to accept.",
			Keyboard: KeyboardPolicy,
		},
		apply: func(d *donor.Profile, ev Event) error {
			// No decline path exists: anything other than the accept action
			// keeps the run pending on this step.
			accepted := false
			switch ev.Kind {
			case KindButton:
				accepted = ev.Token == PolicyToken
			case KindText:
				accepted = strings.EqualFold(strings.TrimSpace(ev.Text), PolicyLabel)
			}
			if !accepted {
				return validationf("registration finishes once you accept the donor policy")
			}
			d.AcceptedPolicy = true
			return nil
		},
	},
}

var stepByState = func() map[State]step {
	m := make(map[State]step, len(steps))
	for _, s := range steps {
		m[s.state] = s
	}
	return m
}()
