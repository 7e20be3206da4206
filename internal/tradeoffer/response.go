package tradeoffer

import (
	"errors"
	"fmt"

	"github.com/caesar-terminal/offerwatch/internal/econ"
	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

var ErrNoResponse = errors.New("tradeoffer: body has no response object")

// OffersResponse is a parsed GetTradeOffers result.
type OffersResponse struct {
	Sent     []*TradeOffer
	Received []*TradeOffer
}

// All returns sent offers followed by received offers.
func (r *OffersResponse) All() []*TradeOffer {
	all := make([]*TradeOffer, 0, len(r.Sent)+len(r.Received))
	all = append(all, r.Sent...)
	return append(all, r.Received...)
}

// ParseOffersResponse parses a GetTradeOffers body. Only descriptions that
// some offer references are parsed.
func ParseOffersResponse(body []byte) (*OffersResponse, error) {
	d, err := responseDecoder(body)
	if err != nil {
		return nil, err
	}
	sent := normalize.DecodeSeq(d, "trade_offers_sent", parseRawOffer)
	received := normalize.DecodeSeq(d, "trade_offers_received", parseRawOffer)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}

	var refs [][]econ.RawAsset
	for _, list := range [][]rawOffer{sent, received} {
		for _, r := range list {
			refs = append(refs, r.give, r.receive)
		}
	}
	rawDescs, err := econ.ParseRawDescriptions(d.Path("descriptions"), d.Raw("descriptions"))
	if err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}
	descs, err := rawDescs.Resolve(econ.ReferencedKeys(refs...))
	if err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}

	resp := &OffersResponse{}
	if resp.Sent, err = assembleAll(sent, descs); err != nil {
		return nil, err
	}
	if resp.Received, err = assembleAll(received, descs); err != nil {
		return nil, err
	}
	return resp, nil
}

// ParseOfferResponse parses a GetTradeOffer body.
func ParseOfferResponse(body []byte) (*TradeOffer, error) {
	d, err := responseDecoder(body)
	if err != nil {
		return nil, err
	}
	if !d.Has("offer") {
		return nil, fmt.Errorf("tradeoffer: parse: %w", ErrNoResponse)
	}
	r, err := parseRawOffer(d.Path("offer"), d.Raw("offer"))
	if err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}
	descs, err := econ.ParseDescriptions(d.Path("descriptions"), d.Raw("descriptions"))
	if err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}
	return r.assemble(descs)
}

func responseDecoder(body []byte) (*normalize.Decoder, error) {
	outer := normalize.NewDecoder("", body)
	if err := outer.Err(); err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}
	if !outer.Has("response") {
		return nil, ErrNoResponse
	}
	d := normalize.NewDecoder("response", outer.Raw("response"))
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("tradeoffer: parse: %w", err)
	}
	return d, nil
}

func assembleAll(raws []rawOffer, descs econ.Descriptions) ([]*TradeOffer, error) {
	offers := make([]*TradeOffer, 0, len(raws))
	for _, r := range raws {
		o, err := r.assemble(descs)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}
