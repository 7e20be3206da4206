package econ

import (
	"encoding/json"
	"fmt"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

// RawAsset is an item reference before its description is attached.
type RawAsset struct {
	AppID      uint32
	ContextID  uint64
	AssetID    uint64
	ClassID    uint64
	InstanceID uint64
	Amount     uint64
	// Missing is set on offer items that have left the owner's inventory.
	Missing bool
}

func (a RawAsset) Key() ClassKey {
	return ClassKey{ClassID: a.ClassID, InstanceID: a.InstanceID}
}

// ParseRawAsset normalises one item reference. Inventory pages name the
// asset id "assetid" while some older payloads use "id".
func ParseRawAsset(path string, raw json.RawMessage) (RawAsset, error) {
	d := normalize.NewDecoder(path, raw)
	a := RawAsset{
		AppID:      d.Uint32("appid"),
		ContextID:  d.Uint64("contextid"),
		ClassID:    d.Uint64("classid"),
		InstanceID: d.Uint64ZeroAsNone("instanceid"),
		Amount:     d.Uint64("amount"),
	}
	if d.Has("assetid") || !d.Has("id") {
		a.AssetID = d.Uint64("assetid")
	} else {
		a.AssetID = d.Uint64("id")
	}
	a.Missing, _ = d.OptionalBool("missing")
	return a, d.Err()
}

// Asset is an item with its shared description attached.
type Asset struct {
	AppID       uint32
	ContextID   uint64
	AssetID     uint64
	Amount      uint64
	Missing     bool
	Description *Description
}

// MissingDescriptionError reports an item whose description was not part of
// the batch it arrived in.
type MissingDescriptionError struct {
	AppID      uint32
	ClassID    uint64
	InstanceID uint64
}

func (e *MissingDescriptionError) Error() string {
	return fmt.Sprintf("econ: missing description for appid %d class %s",
		e.AppID, ClassKey{ClassID: e.ClassID, InstanceID: e.InstanceID})
}

// ReferencedKeys returns the distinct description keys used by raws, in
// first-seen order.
func ReferencedKeys(raws ...[]RawAsset) []ClassKey {
	seen := make(map[ClassKey]struct{})
	var keys []ClassKey
	for _, list := range raws {
		for _, a := range list {
			k := a.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// Assemble attaches descriptions to raws. A single unresolved reference
// fails the whole batch.
func Assemble(raws []RawAsset, descs Descriptions) ([]Asset, error) {
	assets := make([]Asset, 0, len(raws))
	for _, r := range raws {
		desc, ok := descs[r.Key()]
		if !ok {
			return nil, &MissingDescriptionError{AppID: r.AppID, ClassID: r.ClassID, InstanceID: r.InstanceID}
		}
		assets = append(assets, Asset{
			AppID:       r.AppID,
			ContextID:   r.ContextID,
			AssetID:     r.AssetID,
			Amount:      r.Amount,
			Missing:     r.Missing,
			Description: desc,
		})
	}
	return assets, nil
}
