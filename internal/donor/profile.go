package donor

import (
	"errors"
	"strings"
	"time"
)

// ErrNotRegistered is returned when a profile is requested for a user
// that has never completed registration.
var ErrNotRegistered = errors.New("donor: not registered")

// Location holds the coordinates shared during registration.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Profile is a single donor record keyed by the stringified Telegram user id.
// A profile becomes durable only after the policy step was accepted.
type Profile struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Age              int        `json:"age"`
	BloodGroup       BloodGroup `json:"blood_group"`
	City             string     `json:"city"`
	Location         *Location  `json:"location,omitempty"`
	Phone            string     `json:"phone"`
	SocialLink       string     `json:"social_link"`
	Weight           int        `json:"weight"`
	LastDonationDate string     `json:"last_donation_date"`
	Available        bool       `json:"available"`
	BodyIssues       string     `json:"body_issues"`
	MedicalIssues    string     `json:"medical_issues"`
	AcceptedPolicy   bool       `json:"accepted_policy"`
	RegisteredAt     time.Time  `json:"registered_at"`
}

// BloodGroup is one of the recognized blood group labels.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"

	// Rare types kept selectable so registrations from rare-type drives
	// are not lost to an "other" bucket.
	Bombay   BloodGroup = "Bombay"
	INRA     BloodGroup = "INRA"
	Lutheran BloodGroup = "Lutheran"
	Duffy    BloodGroup = "Duffy"
)

// BloodGroups lists every selectable group in keyboard order.
var BloodGroups = []BloodGroup{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
	Bombay, INRA,
	Lutheran, Duffy,
}

// ParseBloodGroup resolves user input to a canonical blood group.
// Matching ignores case and surrounding whitespace.
func ParseBloodGroup(s string) (BloodGroup, bool) {
	needle := strings.TrimSpace(s)
	for _, bg := range BloodGroups {
		if strings.EqualFold(needle, string(bg)) {
			return bg, true
		}
	}
	return "", false
}
