// Package econ models item descriptions and the assets that reference them.
//
// Descriptions are shared: many assets in one response point at the same
// (classid, instanceid) record, so they are parsed once into a Descriptions
// map and every Asset holds a pointer into it. Descriptions are never
// mutated after parsing.
package econ

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

// ClassKey identifies a description. InstanceID zero means the class has no
// instance component; the wire value "0" is read the same way.
type ClassKey struct {
	ClassID    uint64
	InstanceID uint64
}

// String renders the key as "<classid>" or "<classid>_<instanceid>".
func (k ClassKey) String() string {
	if k.InstanceID == 0 {
		return strconv.FormatUint(k.ClassID, 10)
	}
	return strconv.FormatUint(k.ClassID, 10) + "_" + strconv.FormatUint(k.InstanceID, 10)
}

var classKeyPattern = regexp.MustCompile(`^(\d+)(?:_(\d+))?$`)

// ParseClassKey reads a "<classid>[_<instanceid>]" map key.
func ParseClassKey(s string) (ClassKey, bool) {
	m := classKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return ClassKey{}, false
	}
	classID, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return ClassKey{}, false
	}
	var instanceID uint64
	if m[2] != "" {
		instanceID, err = strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return ClassKey{}, false
		}
	}
	return ClassKey{ClassID: classID, InstanceID: instanceID}, true
}

type DescriptionLine struct {
	Type  string
	Value string
	Color string
}

type Tag struct {
	Category              string
	InternalName          string
	LocalizedCategoryName string
	LocalizedTagName      string
	Color                 string
}

type Action struct {
	Name string
	Link string
}

// Description (classinfo) describes one kind of tradable item.
type Description struct {
	AppID           uint32
	ClassID         uint64
	InstanceID      uint64
	Name            string
	MarketName      string
	MarketHashName  string
	Type            string
	IconURL         string
	IconURLLarge    string
	NameColor       string
	BackgroundColor string
	Tradable        bool
	Marketable      bool
	Commodity       bool

	// Days before the item may be traded or listed after acquisition.
	MarketTradableRestriction   uint64
	MarketMarketableRestriction uint64

	// FraudWarnings is nil when the item carries none.
	FraudWarnings []string
	Descriptions  []DescriptionLine
	Tags          []Tag
	Actions       []Action
}

// Key returns the composite identity of the description.
func (d *Description) Key() ClassKey {
	return ClassKey{ClassID: d.ClassID, InstanceID: d.InstanceID}
}

// ParseDescription normalises one raw description record.
func ParseDescription(path string, raw json.RawMessage) (*Description, error) {
	d := normalize.NewDecoder(path, raw)
	desc := &Description{
		AppID:           d.Uint32("appid"),
		ClassID:         d.Uint64("classid"),
		InstanceID:      d.Uint64ZeroAsNone("instanceid"),
		Name:            d.OptionalString("name"),
		MarketName:      d.OptionalString("market_name"),
		MarketHashName:  d.OptionalString("market_hash_name"),
		Type:            d.OptionalString("type"),
		IconURL:         d.OptionalString("icon_url"),
		IconURLLarge:    d.OptionalString("icon_url_large"),
		NameColor:       d.OptionalString("name_color"),
		BackgroundColor: d.OptionalString("background_color"),
		Tradable:        d.Bool("tradable"),
		Marketable:      d.Bool("marketable"),
		FraudWarnings:   d.FraudWarnings("fraudwarnings"),
		Descriptions:    normalize.DecodeSeq(d, "descriptions", parseDescriptionLine),
		Tags:            normalize.DecodeSeq(d, "tags", parseTag),
		Actions:         normalize.DecodeSeq(d, "actions", parseAction),
	}
	desc.Commodity, _ = d.OptionalBool("commodity")
	desc.MarketTradableRestriction, _ = d.OptionalUint64("market_tradable_restriction")
	desc.MarketMarketableRestriction, _ = d.OptionalUint64("market_marketable_restriction")

	if err := d.Err(); err != nil {
		return nil, err
	}
	return desc, nil
}

func parseDescriptionLine(path string, raw json.RawMessage) (DescriptionLine, error) {
	d := normalize.NewDecoder(path, raw)
	line := DescriptionLine{
		Type:  d.OptionalString("type"),
		Value: d.OptionalString("value"),
		Color: d.OptionalString("color"),
	}
	return line, d.Err()
}

func parseTag(path string, raw json.RawMessage) (Tag, error) {
	d := normalize.NewDecoder(path, raw)
	tag := Tag{
		Category:              d.OptionalString("category"),
		InternalName:          d.OptionalString("internal_name"),
		LocalizedCategoryName: d.OptionalString("localized_category_name"),
		LocalizedTagName:      d.OptionalString("localized_tag_name"),
		Color:                 d.OptionalString("color"),
	}
	// Older endpoints use category_name/name instead of the localized pair.
	if tag.LocalizedCategoryName == "" {
		tag.LocalizedCategoryName = d.OptionalString("category_name")
	}
	if tag.LocalizedTagName == "" {
		tag.LocalizedTagName = d.OptionalString("name")
	}
	return tag, d.Err()
}

func parseAction(path string, raw json.RawMessage) (Action, error) {
	d := normalize.NewDecoder(path, raw)
	action := Action{
		Name: d.OptionalString("name"),
		Link: d.OptionalString("link"),
	}
	return action, d.Err()
}

// Descriptions is the shared description cache for one batch of data.
type Descriptions map[ClassKey]*Description

// ParseDescriptions builds the cache from a sequence of records or from a
// map of records keyed by "<classid>[_<instanceid>]". Map entries whose key
// does not match that pattern (e.g. a "success" flag next to the records)
// are skipped. Duplicate keys: the last record wins.
func ParseDescriptions(field string, raw json.RawMessage) (Descriptions, error) {
	if isObject(raw) {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("econ: %s: %w", field, err)
		}
		descs := make(Descriptions, len(m))
		for _, k := range normalize.SortedKeys(m) {
			if _, ok := ParseClassKey(k); !ok {
				continue
			}
			desc, err := ParseDescription(normalize.Join(field, k), m[k])
			if err != nil {
				return nil, err
			}
			descs[desc.Key()] = desc
		}
		return descs, nil
	}

	list, err := normalize.Seq(field, raw, ParseDescription)
	if err != nil {
		return nil, err
	}
	descs := make(Descriptions, len(list))
	for _, desc := range list {
		descs[desc.Key()] = desc
	}
	return descs, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
