package tradeoffer

import (
	"errors"
	"testing"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/econ"
	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

const offersBody = `{
  "response": {
    "trade_offers_sent": [{
      "tradeofferid": "4507194327",
      "accountid_other": 46143802,
      "message": "",
      "expiration_time": 1701209600,
      "trade_offer_state": 2,
      "items_to_give": [
        {"appid": 440, "contextid": "2", "assetid": "111", "classid": "101785959", "instanceid": "11040578", "amount": "1", "missing": false}
      ],
      "is_our_offer": true,
      "time_created": "1700000000",
      "time_updated": 1700000500,
      "from_real_time_trade": false,
      "escrow_end_date": 0,
      "confirmation_method": 2
    }],
    "trade_offers_received": {
      "0": {
        "tradeofferid": 4507194400,
        "tradeid": "3151402834612378845",
        "accountid_other": "1",
        "expiration_time": 1701209600,
        "trade_offer_state": "3",
        "items_to_receive": {"0": {"appid": 440, "contextid": "2", "assetid": "222", "classid": "101785959", "instanceid": "11040578", "amount": "1"}},
        "items_to_give": "",
        "is_our_offer": 0,
        "time_created": 1700000100,
        "time_updated": 1700000900,
        "confirmation_method": 0
      }
    },
    "descriptions": [
      {"appid": 440, "classid": "101785959", "instanceid": "11040578", "name": "Mann Co. Supply Crate Key", "tradable": 1, "marketable": 1},
      {"appid": 440, "classid": "5", "tradable": "bogus", "marketable": 1}
    ]
  }
}`

func TestParseOffersResponse(t *testing.T) {
	resp, err := ParseOffersResponse([]byte(offersBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Sent) != 1 || len(resp.Received) != 1 {
		t.Fatalf("expected 1 sent and 1 received, got %d/%d", len(resp.Sent), len(resp.Received))
	}

	sent := resp.Sent[0]
	if sent.ID != 4507194327 || !sent.IsOurOffer || sent.State != StateActive {
		t.Errorf("unexpected sent offer %+v", sent)
	}
	if sent.ConfirmationMethod != ConfirmationMobileApp {
		t.Errorf("unexpected confirmation method %v", sent.ConfirmationMethod)
	}
	if sent.Partner != 76561198006409530 {
		t.Errorf("unexpected partner %d", sent.Partner)
	}
	if !sent.EscrowEndDate.IsZero() {
		t.Errorf("expected zero escrow end date, got %v", sent.EscrowEndDate)
	}
	if !sent.TimeCreated.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected time_created %v", sent.TimeCreated)
	}
	if len(sent.ItemsToGive) != 1 || sent.ItemsToGive[0].Description.Name != "Mann Co. Supply Crate Key" {
		t.Errorf("unexpected items %+v", sent.ItemsToGive)
	}

	recv := resp.Received[0]
	if recv.TradeID != 3151402834612378845 || recv.State != StateAccepted || recv.IsOurOffer {
		t.Errorf("unexpected received offer %+v", recv)
	}
	if len(recv.ItemsToGive) != 0 || len(recv.ItemsToReceive) != 1 {
		t.Errorf("unexpected item counts %d/%d", len(recv.ItemsToGive), len(recv.ItemsToReceive))
	}
	if recv.ItemsToReceive[0].Description != sent.ItemsToGive[0].Description {
		t.Error("offers in one response should share descriptions")
	}

	if got := resp.All(); len(got) != 2 || got[0] != sent {
		t.Errorf("All() should list sent offers first")
	}
}

func TestParseOffersResponse_MissingDescription(t *testing.T) {
	body := `{"response": {"trade_offers_received": [{
		"tradeofferid": "1", "accountid_other": 2, "expiration_time": 0, "trade_offer_state": 2,
		"items_to_receive": [{"appid": 730, "contextid": "2", "assetid": "9", "classid": "77", "instanceid": "8", "amount": "1"}],
		"is_our_offer": false, "time_created": 0, "time_updated": 0, "confirmation_method": 0
	}]}}`

	_, err := ParseOffersResponse([]byte(body))
	var md *econ.MissingDescriptionError
	if !errors.As(err, &md) {
		t.Fatalf("expected *econ.MissingDescriptionError, got %v", err)
	}
	if md.AppID != 730 || md.ClassID != 77 || md.InstanceID != 8 {
		t.Errorf("unexpected key %+v", md)
	}
}

func TestParseOffersResponse_MalformedField(t *testing.T) {
	body := `{"response": {"trade_offers_sent": [{"tradeofferid": "12a"}]}}`
	_, err := ParseOffersResponse([]byte(body))
	var fe *normalize.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *normalize.FieldError, got %v", err)
	}
	if fe.Field != "response.trade_offers_sent[0].tradeofferid" {
		t.Errorf("unexpected field %q", fe.Field)
	}
}

func TestParseOffersResponse_Empty(t *testing.T) {
	resp, err := ParseOffersResponse([]byte(`{"response": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.All()) != 0 {
		t.Errorf("expected no offers")
	}

	if _, err := ParseOffersResponse([]byte(`{}`)); !errors.Is(err, ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
}

func TestParseOfferResponse(t *testing.T) {
	body := `{"response": {
		"offer": {"tradeofferid": "55", "accountid_other": 3, "expiration_time": 0, "trade_offer_state": 9,
			"items_to_give": [], "is_our_offer": 1, "time_created": 0, "time_updated": 10, "confirmation_method": 2},
		"descriptions": []
	}}`
	o, err := ParseOfferResponse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != 55 || o.State != StateCreatedNeedsConfirmation {
		t.Errorf("unexpected offer %+v", o)
	}
	if !o.IsGlitched() {
		t.Error("offer without items should be glitched")
	}
	if o.String() != "[76561197960265731:55]" {
		t.Errorf("unexpected String() %q", o.String())
	}
}

func TestStateIsTerminal(t *testing.T) {
	live := map[State]bool{StateActive: true, StateCreatedNeedsConfirmation: true, StateInEscrow: true}
	for s := StateInvalid; s <= StateInEscrow; s++ {
		if s.IsTerminal() == live[s] {
			t.Errorf("%v: IsTerminal() = %v", s, s.IsTerminal())
		}
	}
	if State(42).Valid() || State(42).String() != "State(42)" {
		t.Errorf("unexpected handling of unknown state")
	}
	if State(42).IsTerminal() {
		t.Error("unknown state must not count as terminal")
	}
}

func TestParseOffersResponse_UnknownEnums(t *testing.T) {
	tests := []struct {
		name  string
		state string
		conf  string
		field string
	}{
		{"state", "42", "0", "response.trade_offers_sent[0].trade_offer_state"},
		{"state zero", "0", "0", "response.trade_offers_sent[0].trade_offer_state"},
		{"confirmation method", "2", "9", "response.trade_offers_sent[0].confirmation_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"response": {"trade_offers_sent": [{
				"tradeofferid": "1", "accountid_other": 2, "expiration_time": 0,
				"trade_offer_state": ` + tt.state + `, "is_our_offer": true,
				"time_created": 0, "time_updated": 0, "confirmation_method": ` + tt.conf + `
			}]}}`
			_, err := ParseOffersResponse([]byte(body))
			if !errors.Is(err, normalize.ErrMalformedField) {
				t.Fatalf("expected ErrMalformedField, got %v", err)
			}
			var fe *normalize.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *normalize.FieldError, got %T", err)
			}
			if fe.Field != tt.field {
				t.Errorf("field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}
