package mobileconf

import (
	"errors"
	"fmt"
)

type ConfirmationType uint8

const (
	TypeUnknown ConfirmationType = iota
	TypeTrade
	TypeMarketListing
)

func (t ConfirmationType) String() string {
	switch t {
	case TypeTrade:
		return "Trade"
	case TypeMarketListing:
		return "MarketListing"
	}
	return "Unknown"
}

// parseConfirmationType maps the data-type attribute. Unrecognised values
// are not an error.
func parseConfirmationType(s string) ConfirmationType {
	switch s {
	case "2":
		return TypeTrade
	case "3":
		return TypeMarketListing
	}
	return TypeUnknown
}

// Confirmation is one pending entry of the confirmation listing. Key must be
// echoed back when acting on it. For trades Creator is the trade offer id.
type Confirmation struct {
	ID          uint64
	Key         uint64
	Type        ConfirmationType
	Creator     uint64
	Description string
}

func (c Confirmation) String() string {
	return fmt.Sprintf("%s confirmation %d (creator %d): %s", c.Type, c.ID, c.Creator, c.Description)
}

var (
	// ErrMalformedPage means the listing page lacked a required selector or
	// attribute.
	ErrMalformedPage = errors.New("mobileconf: malformed confirmation page")

	// ErrActionRejected is returned when an accept or deny was refused
	// without an explanation.
	ErrActionRejected = errors.New("mobileconf: confirmation unsuccessful; it may no longer exist or another trade may be going through, fetch the confirmation list again to verify")

	// ErrNoIdentitySecret is returned by operations that sign requests when
	// no identity secret is configured.
	ErrNoIdentitySecret = errors.New("mobileconf: no identity secret configured")
)

// RemoteError carries a failure message reported by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "mobileconf: remote error: " + e.Message
}
