// Package workflow implements the donor registration conversation as a
// linear per-user state machine. Each state expects one typed input,
// validates it, writes one field of the draft profile, and moves to the
// next state. Invalid input re-prompts the same state and leaves the
// draft untouched. The completed draft becomes durable only at commit.
package workflow

// State identifies one step of the registration conversation.
type State string

const (
	StateAwaitingName             State = "awaiting_name"
	StateAwaitingAge              State = "awaiting_age"
	StateAwaitingBloodGroup       State = "awaiting_blood_group"
	StateAwaitingCity             State = "awaiting_city"
	StateAwaitingLocation         State = "awaiting_location"
	StateAwaitingPhone            State = "awaiting_phone"
	StateAwaitingSocial           State = "awaiting_social"
	StateAwaitingWeight           State = "awaiting_weight"
	StateAwaitingLastDonation     State = "awaiting_last_donation"
	StateAwaitingAvailability     State = "awaiting_availability"
	StateAwaitingBodyIssues       State = "awaiting_body_issues"
	StateAwaitingMedicalIssues    State = "awaiting_medical_issues"
	StateAwaitingPolicyAcceptance State = "awaiting_policy_acceptance"

	// StateCommitted is terminal. The run is discarded once reached, so no
	// input is ever dispatched to it.
	StateCommitted State = "committed"
)

// stateOrder fixes the traversal sequence. Registration and profile edit
// walk the same sequence; edit only differs in the draft's initial contents.
var stateOrder = []State{
	StateAwaitingName,
	StateAwaitingAge,
	StateAwaitingBloodGroup,
	StateAwaitingCity,
	StateAwaitingLocation,
	StateAwaitingPhone,
	StateAwaitingSocial,
	StateAwaitingWeight,
	StateAwaitingLastDonation,
	StateAwaitingAvailability,
	StateAwaitingBodyIssues,
	StateAwaitingMedicalIssues,
	StateAwaitingPolicyAcceptance,
	StateCommitted,
}

var stateIndex = func() map[State]int {
	idx := make(map[State]int, len(stateOrder))
	for i, s := range stateOrder {
		idx[s] = i
	}
	return idx
}()

// next returns the state that follows s in the fixed order.
func next(s State) State {
	i, ok := stateIndex[s]
	if !ok || i+1 >= len(stateOrder) {
		return StateCommitted
	}
	return stateOrder[i+1]
}
