package workflow

// Kind classifies an inbound update as delivered by the transport layer.
type Kind string

const (
	KindText     Kind = "text"
	KindButton   Kind = "button"
	KindLocation Kind = "location"
	KindContact  Kind = "contact"
)

// Event is one inbound user action, already tagged by the transport layer.
// Exactly the fields matching Kind are meaningful.
type Event struct {
	Kind      Kind
	Text      string
	Token     string
	Latitude  float64
	Longitude float64
	Phone     string
}

// TextEvent wraps a plain text message.
func TextEvent(text string) Event { return Event{Kind: KindText, Text: text} }

// ButtonEvent wraps an inline button press identified by its token.
func ButtonEvent(token string) Event { return Event{Kind: KindButton, Token: token} }

// LocationEvent wraps a shared coordinate pair.
func LocationEvent(lat, lon float64) Event {
	return Event{Kind: KindLocation, Latitude: lat, Longitude: lon}
}

// ContactEvent wraps a shared contact attachment.
func ContactEvent(phone string) Event { return Event{Kind: KindContact, Phone: phone} }

// Keyboard names the markup the transport should render with a prompt.
// The workflow stays transport-agnostic; the bot layer maps these to
// concrete Telegram keyboards.
type Keyboard string

const (
	KeyboardNone            Keyboard = ""
	KeyboardMainMenu        Keyboard = "main_menu"
	KeyboardBloodGroups     Keyboard = "blood_groups"
	KeyboardAvailability    Keyboard = "availability"
	KeyboardPolicy          Keyboard = "policy"
	KeyboardLocationRequest Keyboard = "location_request"
	KeyboardContactRequest  Keyboard = "contact_request"
)

// Prompt is what the workflow asks the transport to render next.
type Prompt struct {
	Text     string
	Keyboard Keyboard
}

// Recognized button tokens and text sentinels.
const (
	AvailableToken   = "avail_yes"
	UnavailableToken = "avail_no"
	PolicyToken      = "policy_accept"

	AvailableLabel   = "✅ Available"
	UnavailableLabel = "❌ Not Available"
	PolicyLabel      = "✅ I Accept"

	// SkipSentinel is a case-insensitive free-text shortcut for optional
	// steps, not a distinct input type.
	SkipSentinel = "skip"
)
