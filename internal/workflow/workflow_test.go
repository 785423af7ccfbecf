package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/bloodlife/internal/donor"
	"github.com/m3rciful/bloodlife/internal/store"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(st store.Store) *Manager {
	m := NewManager(st)
	m.now = func() time.Time { return testNow }
	return m
}

// happyPathEvents answers every step in order for a complete registration.
func happyPathEvents() []Event {
	return []Event{
		TextEvent("Asha"),
		TextEvent("29"),
		ButtonEvent("A+"),
		TextEvent("Pune"),
		LocationEvent(18.52, 73.85),
		ContactEvent("+919900112233"),
		TextEvent("skip"),
		TextEvent("58"),
		TextEvent("never"),
		ButtonEvent(AvailableToken),
		TextEvent("none"),
		TextEvent("none"),
		ButtonEvent(PolicyToken),
	}
}

func mustAdvance(t *testing.T, m *Manager, uid string, ev Event) Prompt {
	t.Helper()
	p, err := m.Advance(context.Background(), uid, ev)
	if err != nil {
		t.Fatalf("Advance(%v): unexpected error: %v", ev.Kind, err)
	}
	return p
}

func TestRegistrationHappyPath(t *testing.T) {
	st := store.NewMemStore()
	m := newTestManager(st)

	first := m.Start(context.Background(), "u1")
	if !strings.Contains(first.Text, "name") {
		t.Fatalf("first prompt should ask for a name, got %q", first.Text)
	}

	var last Prompt
	for _, ev := range happyPathEvents() {
		last = mustAdvance(t, m, "u1", ev)
	}

	if last.Text != CommittedText {
		t.Fatalf("final prompt = %q, want committed confirmation", last.Text)
	}
	if last.Keyboard != KeyboardMainMenu {
		t.Fatalf("final keyboard = %q, want main menu", last.Keyboard)
	}
	if m.InProgress("u1") {
		t.Fatal("run should be discarded after commit")
	}

	p, err := st.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get after commit: %v", err)
	}
	if p.Name != "Asha" || p.Age != 29 || p.BloodGroup != donor.APositive {
		t.Fatalf("committed profile mismatch: %+v", p)
	}
	if p.City != "Pune" || p.Phone != "+919900112233" || p.Weight != 58 {
		t.Fatalf("committed profile mismatch: %+v", p)
	}
	if p.SocialLink != "" {
		t.Fatalf("skip should leave social link empty, got %q", p.SocialLink)
	}
	if p.Location == nil || p.Location.Latitude != 18.52 || p.Location.Longitude != 73.85 {
		t.Fatalf("location not recorded: %+v", p.Location)
	}
	if !p.Available || !p.AcceptedPolicy {
		t.Fatalf("availability/policy flags not set: %+v", p)
	}
	if !p.RegisteredAt.Equal(testNow) {
		t.Fatalf("RegisteredAt = %v, want %v", p.RegisteredAt, testNow)
	}
}

func TestAgeValidationReprompts(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	mustAdvance(t, m, "u1", TextEvent("Asha"))

	for _, bad := range []string{"abc", "12", "99"} {
		p := mustAdvance(t, m, "u1", TextEvent(bad))
		if !strings.HasPrefix(p.Text, "⚠️") {
			t.Fatalf("age %q should re-prompt with a warning, got %q", bad, p.Text)
		}
		if s, _ := m.State("u1"); s != StateAwaitingAge {
			t.Fatalf("state after bad age %q = %v, want %v", bad, s, StateAwaitingAge)
		}
	}

	m.mu.Lock()
	age := m.runs["u1"].draft.Age
	m.mu.Unlock()
	if age != 0 {
		t.Fatalf("rejected input must not touch the draft, age = %d", age)
	}

	mustAdvance(t, m, "u1", TextEvent("30"))
	if s, _ := m.State("u1"); s != StateAwaitingBloodGroup {
		t.Fatalf("valid age should advance, state = %v", s)
	}
}

func TestUnrecognizedInputReprompts(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")

	p, err := m.Advance(context.Background(), "u1", LocationEvent(1, 2))
	if err != nil {
		t.Fatalf("mismatched input kind must not surface an error: %v", err)
	}
	if !strings.HasPrefix(p.Text, "⚠️") {
		t.Fatalf("expected a correction note, got %q", p.Text)
	}
	if s, _ := m.State("u1"); s != StateAwaitingName {
		t.Fatalf("state moved on unrecognized input: %v", s)
	}
}

func TestPolicyStepOnlyAcceptsAcceptance(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	events := happyPathEvents()
	for _, ev := range events[:len(events)-1] {
		mustAdvance(t, m, "u1", ev)
	}

	for _, ev := range []Event{TextEvent("no thanks"), ButtonEvent("avail_yes")} {
		p := mustAdvance(t, m, "u1", ev)
		if !strings.HasPrefix(p.Text, "⚠️") {
			t.Fatalf("non-acceptance %v should re-prompt, got %q", ev, p.Text)
		}
	}
	if s, _ := m.State("u1"); s != StateAwaitingPolicyAcceptance {
		t.Fatalf("state = %v, want policy step", s)
	}

	last := mustAdvance(t, m, "u1", ButtonEvent(PolicyToken))
	if last.Text != CommittedText {
		t.Fatalf("acceptance should commit, got %q", last.Text)
	}
}

func TestStartReplacesRun(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	mustAdvance(t, m, "u1", TextEvent("Asha"))
	mustAdvance(t, m, "u1", TextEvent("29"))

	m.Start(context.Background(), "u1")
	if s, _ := m.State("u1"); s != StateAwaitingName {
		t.Fatalf("restart should rewind to the first step, state = %v", s)
	}
	m.mu.Lock()
	name := m.runs["u1"].draft.Name
	m.mu.Unlock()
	if name != "" {
		t.Fatalf("restart should discard the old draft, name = %q", name)
	}
}

func TestAdvanceWithoutRun(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	if _, err := m.Advance(context.Background(), "u1", TextEvent("hello")); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("err = %v, want ErrNoActiveRun", err)
	}
}

// flakyStore fails Upserts on demand while behaving normally otherwise.
type flakyStore struct {
	*store.MemStore
	failUpsert bool
}

func (f *flakyStore) Upsert(ctx context.Context, p donor.Profile) error {
	if f.failUpsert {
		return fmt.Errorf("%w: disk gone", store.ErrUnavailable)
	}
	return f.MemStore.Upsert(ctx, p)
}

func TestCommitFailureKeepsRunPending(t *testing.T) {
	st := &flakyStore{MemStore: store.NewMemStore(), failUpsert: true}
	m := newTestManager(st)

	m.Start(context.Background(), "u1")
	events := happyPathEvents()
	for _, ev := range events[:len(events)-1] {
		mustAdvance(t, m, "u1", ev)
	}

	p, err := m.Advance(context.Background(), "u1", ButtonEvent(PolicyToken))
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("commit failure must surface ErrUnavailable, got %v", err)
	}
	if !strings.HasPrefix(p.Text, "⚠️") {
		t.Fatalf("commit failure should return a retry prompt, got %q", p.Text)
	}
	if s, ok := m.State("u1"); !ok || s != StateAwaitingPolicyAcceptance {
		t.Fatalf("run must stay pending at the policy step, state = %v ok = %v", s, ok)
	}

	st.failUpsert = false
	last := mustAdvance(t, m, "u1", ButtonEvent(PolicyToken))
	if last.Text != CommittedText {
		t.Fatalf("retry after recovery should commit, got %q", last.Text)
	}
	if m.InProgress("u1") {
		t.Fatal("run should be discarded after the retried commit")
	}
}

// blockingStore parks the first Upsert until released, simulating a slow
// storage medium during commit.
type blockingStore struct {
	*store.MemStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Upsert(ctx context.Context, p donor.Profile) error {
	close(s.entered)
	<-s.release
	return s.MemStore.Upsert(ctx, p)
}

func TestDuplicateAcceptanceDuringCommit(t *testing.T) {
	st := &blockingStore{
		MemStore: store.NewMemStore(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	m := newTestManager(st)

	m.Start(context.Background(), "u1")
	events := happyPathEvents()
	for _, ev := range events[:len(events)-1] {
		mustAdvance(t, m, "u1", ev)
	}

	type result struct {
		prompt Prompt
		err    error
	}
	done := make(chan result, 1)
	go func() {
		p, err := m.Advance(context.Background(), "u1", ButtonEvent(PolicyToken))
		done <- result{p, err}
	}()
	<-st.entered

	// A second tap of the accept button while the first commit is still
	// writing must come back immediately, not wedge on the manager lock.
	second := make(chan error, 1)
	go func() {
		_, err := m.Advance(context.Background(), "u1", ButtonEvent(PolicyToken))
		second <- err
	}()
	select {
	case err := <-second:
		if !errors.Is(err, ErrNoActiveRun) {
			t.Fatalf("duplicate acceptance err = %v, want ErrNoActiveRun", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("duplicate acceptance blocked on the in-flight commit")
	}

	close(st.release)
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("commit: %v", r.err)
		}
		if r.prompt.Text != CommittedText {
			t.Fatalf("commit prompt = %q, want confirmation", r.prompt.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commit never finished")
	}
	if m.InProgress("u1") {
		t.Fatal("run should be gone after commit")
	}
}

func TestAdvanceUnknownStateDiscardsRun(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.mu.Lock()
	m.runs["u1"] = &run{state: StateCommitted, draft: donor.Profile{ID: "u1"}}
	m.mu.Unlock()

	if _, err := m.Advance(context.Background(), "u1", TextEvent("hi")); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("err = %v, want ErrNoActiveRun for a run past its last step", err)
	}
	if m.InProgress("u1") {
		t.Fatal("unusable run should be discarded")
	}
}

func TestWeightValidationReprompts(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	for _, ev := range happyPathEvents()[:7] {
		mustAdvance(t, m, "u1", ev)
	}
	if s, _ := m.State("u1"); s != StateAwaitingWeight {
		t.Fatalf("setup state = %v, want %v", s, StateAwaitingWeight)
	}

	for _, bad := range []string{"44", "-5", "xyz"} {
		p := mustAdvance(t, m, "u1", TextEvent(bad))
		if !strings.HasPrefix(p.Text, "⚠️") {
			t.Fatalf("weight %q should re-prompt with a warning, got %q", bad, p.Text)
		}
		if s, _ := m.State("u1"); s != StateAwaitingWeight {
			t.Fatalf("state after bad weight %q = %v, want %v", bad, s, StateAwaitingWeight)
		}
	}

	m.mu.Lock()
	weight := m.runs["u1"].draft.Weight
	m.mu.Unlock()
	if weight != 0 {
		t.Fatalf("rejected input must not touch the draft, weight = %d", weight)
	}

	mustAdvance(t, m, "u1", TextEvent("50"))
	if s, _ := m.State("u1"); s != StateAwaitingLastDonation {
		t.Fatalf("valid weight should advance, state = %v", s)
	}
}

func TestStartEditSeedsDraft(t *testing.T) {
	st := store.NewMemStore()
	existing := donor.Profile{
		ID: "u1", Name: "Asha", Age: 29, BloodGroup: donor.APositive,
		City: "Pune", Phone: "+919900112233", SocialLink: "https://t.me/asha",
		Weight: 58, LastDonationDate: "never", Available: true,
		BodyIssues: "none", MedicalIssues: "none", AcceptedPolicy: true,
		RegisteredAt: testNow.AddDate(0, -3, 0),
	}
	if err := st.Upsert(context.Background(), existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := newTestManager(st)
	if _, err := m.StartEdit(context.Background(), "u1"); err != nil {
		t.Fatalf("StartEdit: %v", err)
	}

	// Re-answer every step, changing only the city.
	events := happyPathEvents()
	events[3] = TextEvent("Mumbai")
	for _, ev := range events {
		mustAdvance(t, m, "u1", ev)
	}

	p, err := st.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get after edit: %v", err)
	}
	if p.City != "Mumbai" {
		t.Fatalf("city = %q, want Mumbai", p.City)
	}
	if p.Name != "Asha" || p.BloodGroup != donor.APositive {
		t.Fatalf("unchanged answers mangled: %+v", p)
	}
	if !p.RegisteredAt.Equal(testNow) {
		t.Fatalf("edit commit should refresh RegisteredAt, got %v", p.RegisteredAt)
	}
}

func TestStartEditNotRegistered(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	if _, err := m.StartEdit(context.Background(), "ghost"); !errors.Is(err, donor.ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestCancelDiscardsRun(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	m.Cancel("u1")
	if m.InProgress("u1") {
		t.Fatal("cancelled run still in progress")
	}
	if _, err := m.Advance(context.Background(), "u1", TextEvent("hi")); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("err = %v, want ErrNoActiveRun after cancel", err)
	}
}

func TestBloodGroupAcceptsTypedText(t *testing.T) {
	m := newTestManager(store.NewMemStore())
	m.Start(context.Background(), "u1")
	mustAdvance(t, m, "u1", TextEvent("Asha"))
	mustAdvance(t, m, "u1", TextEvent("29"))

	p := mustAdvance(t, m, "u1", TextEvent("o-"))
	if strings.HasPrefix(p.Text, "⚠️") {
		t.Fatalf("typed blood group should be accepted, got %q", p.Text)
	}
	m.mu.Lock()
	bg := m.runs["u1"].draft.BloodGroup
	m.mu.Unlock()
	if bg != donor.ONegative {
		t.Fatalf("blood group = %q, want O-", bg)
	}
}
