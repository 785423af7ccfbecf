package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/bloodlife/core/logger"
	"github.com/m3rciful/bloodlife/internal/donor"
	"github.com/m3rciful/bloodlife/internal/store"
)

// CommittedText is the final confirmation rendered after a successful commit.
const CommittedText = "✅ Registration completed! Thank you for becoming a donor. 🩸"

type run struct {
	state State
	draft donor.Profile
}

// Manager owns one in-progress run per user. A user's run is only advanced
// by that user's own next message, so per-run access is single-threaded;
// the mutex guards the map across users.
type Manager struct {
	mu    sync.Mutex
	runs  map[string]*run
	store store.Store
	now   func() time.Time
}

// NewManager creates a workflow manager committing into st.
func NewManager(st store.Store) *Manager {
	return &Manager{
		runs:  make(map[string]*run),
		store: st,
		now:   time.Now,
	}
}

// Start begins a fresh registration with an empty draft, replacing any run
// already in progress for the user. It returns the first prompt.
func (m *Manager) Start(ctx context.Context, userID string) Prompt {
	m.mu.Lock()
	_, replaced := m.runs[userID]
	m.runs[userID] = &run{
		state: stateOrder[0],
		draft: donor.Profile{ID: userID},
	}
	m.mu.Unlock()

	logger.Info(ctx, "wf", "run.start",
		slog.String("donor_id", userID),
		slog.Bool("replaced", replaced),
	)
	return stepByState[stateOrder[0]].prompt
}

// StartEdit begins a profile edit. The draft is seeded with the currently
// persisted profile, but the walk still visits every state in order.
// Returns donor.ErrNotRegistered when the user has no stored profile.
func (m *Manager) StartEdit(ctx context.Context, userID string) (Prompt, error) {
	existing, err := m.store.Get(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}

	m.mu.Lock()
	m.runs[userID] = &run{
		state: stateOrder[0],
		draft: existing,
	}
	m.mu.Unlock()

	logger.Info(ctx, "wf", "run.start_edit",
		slog.String("donor_id", userID),
	)
	return stepByState[stateOrder[0]].prompt, nil
}

// InProgress reports whether the user has an active run.
func (m *Manager) InProgress(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[userID]
	return ok
}

// Cancel discards the user's run, if any.
func (m *Manager) Cancel(userID string) {
	m.mu.Lock()
	delete(m.runs, userID)
	m.mu.Unlock()
}

// State returns the current state of the user's run for diagnostics.
func (m *Manager) State(userID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[userID]
	if !ok {
		return "", false
	}
	return r.state, true
}

// Advance feeds one inbound event into the user's run. Validation failures
// and mismatched input types re-prompt the current state with a correction
// note and a nil error. Reaching the final state commits the draft; a
// storage failure is returned to the caller and the run stays pending so
// acceptance can be retried.
func (m *Manager) Advance(ctx context.Context, userID string, ev Event) (Prompt, error) {
	m.mu.Lock()
	r, ok := m.runs[userID]
	if !ok {
		m.mu.Unlock()
		return Prompt{}, ErrNoActiveRun
	}
	cur, known := stepByState[r.state]
	if !known {
		delete(m.runs, userID)
		m.mu.Unlock()
		return Prompt{}, ErrNoActiveRun
	}

	if err := cur.apply(&r.draft, ev); err != nil {
		m.mu.Unlock()
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			logger.Debug(ctx, "wf", "step.rejected",
				slog.String("donor_id", userID),
				slog.String("state", string(cur.state)),
				slog.String("reason", verr.Reason),
			)
			return rePrompt(cur, verr.Reason), nil
		case errors.Is(err, ErrUnrecognizedInput):
			logger.Debug(ctx, "wf", "step.rejected",
				slog.String("donor_id", userID),
				slog.String("state", string(cur.state)),
				slog.String("reason", "unrecognized input"),
			)
			return rePrompt(cur, "that's not the kind of answer this step expects"), nil
		default:
			return Prompt{}, err
		}
	}

	r.state = next(r.state)
	if r.state != StateCommitted {
		prompt := stepByState[r.state].prompt
		m.mu.Unlock()
		return prompt, nil
	}

	// The run leaves the map before the storage call, so a duplicate
	// acceptance arriving mid-commit sees no active run instead of a
	// half-committed one.
	draft := r.draft
	delete(m.runs, userID)
	m.mu.Unlock()
	return m.commit(ctx, userID, cur, draft)
}

// commit persists the finished draft. The run was already removed from the
// map; on storage failure it is reinstated at the policy step so acceptance
// can be retried, unless the user has started a fresh run meanwhile.
func (m *Manager) commit(ctx context.Context, userID string, policyStep step, draft donor.Profile) (Prompt, error) {
	draft.RegisteredAt = m.now()

	if err := m.store.Upsert(ctx, draft); err != nil {
		m.mu.Lock()
		if _, exists := m.runs[userID]; !exists {
			m.runs[userID] = &run{state: policyStep.state, draft: draft}
		}
		m.mu.Unlock()
		logger.Error(ctx, "wf", "run.commit",
			slog.String("status", "fail"),
			slog.String("donor_id", userID),
			slog.String("err", err.Error()),
		)
		return rePrompt(policyStep, "we couldn't save your registration, please try again"),
			fmt.Errorf("commit donor %s: %w", userID, err)
	}

	logger.Info(ctx, "wf", "run.commit",
		slog.String("status", "ok"),
		slog.String("donor_id", userID),
		slog.String("blood_group", string(draft.BloodGroup)),
		slog.String("city", draft.City),
	)
	return Prompt{Text: CommittedText, Keyboard: KeyboardMainMenu}, nil
}

func rePrompt(s step, reason string) Prompt {
	return Prompt{
		Text:     "⚠️ " + capitalizeFirst(reason) + ".\n\n" + s.prompt.Text,
		Keyboard: s.prompt.Keyboard,
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
