// Package tradeoffer holds the typed trade-offer model and the parser for
// the offers API response.
package tradeoffer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/econ"
	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

// SteamID64 of account id 0 in the public individual universe.
const steamID64Base = 76561197960265728

// TradeOffer is one observation of an offer. Each poll produces fresh
// values; nothing mutates an offer after parsing.
type TradeOffer struct {
	ID                 uint64
	TradeID            uint64 // 0 until the offer is accepted
	Partner            uint64 // SteamID64
	Message            string
	ItemsToGive        []econ.Asset
	ItemsToReceive     []econ.Asset
	IsOurOffer         bool
	FromRealTimeTrade  bool
	ExpirationTime     time.Time
	TimeCreated        time.Time
	TimeUpdated        time.Time
	EscrowEndDate      time.Time
	State              State
	ConfirmationMethod ConfirmationMethod
}

func (o *TradeOffer) String() string {
	return fmt.Sprintf("[%d:%d]", o.Partner, o.ID)
}

// IsGlitched reports an offer that lists no items on either side.
func (o *TradeOffer) IsGlitched() bool {
	return len(o.ItemsToGive) == 0 && len(o.ItemsToReceive) == 0
}

// rawOffer is an offer whose item lists still need descriptions.
type rawOffer struct {
	offer   TradeOffer
	give    []econ.RawAsset
	receive []econ.RawAsset
}

func parseRawOffer(path string, raw json.RawMessage) (rawOffer, error) {
	d := normalize.NewDecoder(path, raw)
	o := TradeOffer{
		ID:                 d.Uint64("tradeofferid"),
		Message:            d.OptionalString("message"),
		IsOurOffer:         d.Bool("is_our_offer"),
		ExpirationTime:     d.Timestamp("expiration_time"),
		TimeCreated:        d.Timestamp("time_created"),
		TimeUpdated:        d.Timestamp("time_updated"),
		State:              State(d.Enum("trade_offer_state", func(v uint8) bool { return State(v).Valid() })),
		ConfirmationMethod: ConfirmationMethod(d.Enum("confirmation_method", func(v uint8) bool { return ConfirmationMethod(v).Valid() })),
	}
	o.Partner = steamID64Base + uint64(d.Uint32("accountid_other"))
	o.TradeID, _ = d.OptionalUint64("tradeid")
	o.FromRealTimeTrade, _ = d.OptionalBool("from_real_time_trade")
	if d.Has("escrow_end_date") {
		o.EscrowEndDate = d.Timestamp("escrow_end_date")
	}
	r := rawOffer{
		offer:   o,
		give:    normalize.DecodeSeq(d, "items_to_give", econ.ParseRawAsset),
		receive: normalize.DecodeSeq(d, "items_to_receive", econ.ParseRawAsset),
	}
	if err := d.Err(); err != nil {
		return rawOffer{}, err
	}
	return r, nil
}

func (r rawOffer) assemble(descs econ.Descriptions) (*TradeOffer, error) {
	o := r.offer
	var err error
	if o.ItemsToGive, err = econ.Assemble(r.give, descs); err != nil {
		return nil, fmt.Errorf("tradeoffer %d: %w", o.ID, err)
	}
	if o.ItemsToReceive, err = econ.Assemble(r.receive, descs); err != nil {
		return nil, fmt.Errorf("tradeoffer %d: %w", o.ID, err)
	}
	return &o, nil
}
