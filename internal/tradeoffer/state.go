package tradeoffer

import "strconv"

// State is ETradeOfferState.
type State uint8

const (
	StateInvalid State = iota + 1
	StateActive
	StateAccepted
	StateCountered
	StateExpired
	StateCanceled
	StateDeclined
	StateInvalidItems
	StateCreatedNeedsConfirmation
	StateCanceledBySecondFactor
	StateInEscrow
)

var stateNames = map[State]string{
	StateInvalid:                  "Invalid",
	StateActive:                   "Active",
	StateAccepted:                 "Accepted",
	StateCountered:                "Countered",
	StateExpired:                  "Expired",
	StateCanceled:                 "Canceled",
	StateDeclined:                 "Declined",
	StateInvalidItems:             "InvalidItems",
	StateCreatedNeedsConfirmation: "CreatedNeedsConfirmation",
	StateCanceledBySecondFactor:   "CanceledBySecondFactor",
	StateInEscrow:                 "InEscrow",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// IsTerminal reports whether the offer can no longer change. Active offers,
// offers awaiting confirmation and offers in escrow may still move. Unknown
// states are never terminal.
func (s State) IsTerminal() bool {
	switch s {
	case StateActive, StateCreatedNeedsConfirmation, StateInEscrow:
		return false
	}
	return s.Valid()
}

// ConfirmationMethod is how the offer creator must confirm it.
type ConfirmationMethod uint8

const (
	ConfirmationNone ConfirmationMethod = iota
	ConfirmationEmail
	ConfirmationMobileApp
)

// Valid reports whether m is a known method.
func (m ConfirmationMethod) Valid() bool { return m <= ConfirmationMobileApp }

func (m ConfirmationMethod) String() string {
	switch m {
	case ConfirmationNone:
		return "None"
	case ConfirmationEmail:
		return "Email"
	case ConfirmationMobileApp:
		return "MobileApp"
	}
	return "ConfirmationMethod(" + strconv.Itoa(int(m)) + ")"
}
