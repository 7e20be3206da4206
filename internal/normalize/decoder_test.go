package normalize

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecoder_ReadsMixedEncodings(t *testing.T) {
	raw := json.RawMessage(`{
		"appid": 440,
		"classid": "101785959",
		"instanceid": "0",
		"tradable": "1",
		"marketable": 0,
		"name": "Mann Co. Supply Crate Key",
		"tags": {"0": "a", "1": "b"}
	}`)

	d := NewDecoder("descriptions[0]", raw)
	appID := d.Uint32("appid")
	classID := d.Uint64("classid")
	instanceID := d.Uint64ZeroAsNone("instanceid")
	tradable := d.Bool("tradable")
	marketable := d.Bool("marketable")
	name := d.String("name")
	tags := DecodeSeq(d, "tags", String)
	missing, set := d.OptionalBool("missing")

	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appID != 440 || classID != 101785959 || instanceID != 0 {
		t.Errorf("unexpected ids: %d %d %d", appID, classID, instanceID)
	}
	if !tradable || marketable {
		t.Errorf("unexpected flags: tradable=%v marketable=%v", tradable, marketable)
	}
	if name != "Mann Co. Supply Crate Key" {
		t.Errorf("unexpected name %q", name)
	}
	if len(tags) != 2 || tags[0] != "a" {
		t.Errorf("unexpected tags %v", tags)
	}
	if missing || set {
		t.Errorf("absent optional bool should be unset")
	}
}

func TestDecoder_FirstErrorWins(t *testing.T) {
	d := NewDecoder("offer", json.RawMessage(`{"tradeofferid": "abc", "time_updated": "x"}`))
	d.Uint64("tradeofferid")
	d.Timestamp("time_updated")

	var fe *FieldError
	if !errors.As(d.Err(), &fe) {
		t.Fatalf("expected *FieldError, got %v", d.Err())
	}
	if fe.Field != "offer.tradeofferid" {
		t.Errorf("expected first failing field offer.tradeofferid, got %q", fe.Field)
	}
}

func TestDecoder_RequiresObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"x"`, ``, `null`} {
		d := NewDecoder("offer", json.RawMessage(raw))
		if !errors.Is(d.Err(), ErrMalformedField) {
			t.Errorf("NewDecoder(%q): expected ErrMalformedField, got %v", raw, d.Err())
		}
	}
}

func TestDecoder_MissingRequiredField(t *testing.T) {
	d := NewDecoder("", json.RawMessage(`{}`))
	d.Uint64("classid")
	var fe *FieldError
	if !errors.As(d.Err(), &fe) || fe.Field != "classid" {
		t.Fatalf("expected missing classid error, got %v", d.Err())
	}
}

func TestDecoder_Enum(t *testing.T) {
	small := func(v uint8) bool { return v < 3 }

	d := NewDecoder("offer", json.RawMessage(`{"method": "2", "state": 7}`))
	if got := d.Enum("method", small); got != 2 || d.Err() != nil {
		t.Fatalf("Enum(method) = %d, %v", got, d.Err())
	}
	d.Enum("state", small)
	var fe *FieldError
	if !errors.As(d.Err(), &fe) || !errors.Is(d.Err(), ErrMalformedField) {
		t.Fatalf("expected malformed field error, got %v", d.Err())
	}
	if fe.Field != "offer.state" || fe.Value != "7" {
		t.Errorf("unexpected error fields %+v", fe)
	}
}
