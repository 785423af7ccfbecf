package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/bloodlife/internal/donor"
)

func TestRenderProfileEscapesMarkdown(t *testing.T) {
	p := donor.Profile{
		ID: "1", Name: "_asha_", Age: 29, BloodGroup: donor.APositive,
		City: "Pune", Phone: "+919900112233", Weight: 58,
		LastDonationDate: "never", Available: true,
		BodyIssues: "none", MedicalIssues: "none",
		RegisteredAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	out := renderProfile(p)
	if strings.Contains(out, "_asha_") {
		t.Fatalf("markdown characters in user input must be escaped:\n%s", out)
	}
	if !strings.Contains(out, `\_asha\_`) {
		t.Fatalf("escaped name missing:\n%s", out)
	}
	if !strings.Contains(out, "A+") || !strings.Contains(out, "2025-06-01") {
		t.Fatalf("profile fields missing:\n%s", out)
	}
	if !strings.Contains(out, "✅ Available") {
		t.Fatalf("availability missing:\n%s", out)
	}
}

func TestRenderProfileEmptySocial(t *testing.T) {
	out := renderProfile(donor.Profile{ID: "1"})
	if !strings.Contains(out, "🔗 Social: —") {
		t.Fatalf("empty social link should render a placeholder:\n%s", out)
	}
}

func TestSearchPendingLifecycle(t *testing.T) {
	a := &App{searchPending: make(map[int64]bool)}

	if a.takeSearchPending(7) {
		t.Fatal("pending without a mark")
	}

	a.markSearchPending(7)
	if !a.takeSearchPending(7) {
		t.Fatal("mark not consumable")
	}
	if a.takeSearchPending(7) {
		t.Fatal("mark should be consumed exactly once")
	}

	// A menu action between the search press and the share drops the mark,
	// so a later unrelated location share does not trigger a listing.
	a.markSearchPending(7)
	a.clearSearchPending(7)
	if a.takeSearchPending(7) {
		t.Fatal("cleared mark still pending")
	}
}

func TestMainMenuMarkup(t *testing.T) {
	plain := mainMenuMarkup(false)
	if len(plain.ReplyKeyboard) != 2 {
		t.Fatalf("non-admin menu rows = %d, want 2", len(plain.ReplyKeyboard))
	}

	admin := mainMenuMarkup(true)
	if len(admin.ReplyKeyboard) != 3 {
		t.Fatalf("admin menu rows = %d, want 3", len(admin.ReplyKeyboard))
	}
	last := admin.ReplyKeyboard[len(admin.ReplyKeyboard)-1]
	if len(last) != 1 || last[0].Text != btnAdmin {
		t.Fatalf("admin row = %+v, want single %q button", last, btnAdmin)
	}
}

func TestBloodGroupMarkupCoversAllGroups(t *testing.T) {
	markup := bloodGroupMarkup()
	var total int
	for _, row := range markup.InlineKeyboard {
		total += len(row)
		if len(row) > 2 {
			t.Fatalf("blood group rows should hold at most 2 buttons, got %d", len(row))
		}
	}
	if total != len(donor.BloodGroups) {
		t.Fatalf("keyboard has %d buttons, want %d", total, len(donor.BloodGroups))
	}
}
