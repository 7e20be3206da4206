package econ

import (
	"errors"
	"fmt"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

var ErrInventoryUnavailable = errors.New("econ: inventory request was not successful")

// InventoryPage is one page of an inventory listing. Fetching the next page
// (start_assetid = LastAssetID) is left to the caller.
type InventoryPage struct {
	Assets              []Asset
	MoreItems           bool
	LastAssetID         uint64
	TotalInventoryCount uint64
}

// ParseInventoryPage parses an inventory response body. Descriptions are
// resolved lazily: only the classes present on this page are parsed.
func ParseInventoryPage(body []byte) (*InventoryPage, error) {
	d := normalize.NewDecoder("", body)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("econ: inventory: %w", err)
	}
	if d.Has("success") {
		ok, _ := d.OptionalBool("success")
		if !ok {
			if msg := d.OptionalString("error"); msg != "" {
				return nil, fmt.Errorf("%w: %s", ErrInventoryUnavailable, msg)
			}
			return nil, ErrInventoryUnavailable
		}
	}

	page := &InventoryPage{}
	page.MoreItems, _ = d.OptionalBool("more_items")
	page.LastAssetID, _ = d.OptionalUint64("last_assetid")
	page.TotalInventoryCount, _ = d.OptionalUint64("total_inventory_count")
	raws := normalize.DecodeSeq(d, "assets", ParseRawAsset)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("econ: inventory: %w", err)
	}

	rawDescs, err := ParseRawDescriptions("descriptions", d.Raw("descriptions"))
	if err != nil {
		return nil, fmt.Errorf("econ: inventory: %w", err)
	}
	descs, err := rawDescs.Resolve(ReferencedKeys(raws))
	if err != nil {
		return nil, fmt.Errorf("econ: inventory: %w", err)
	}
	page.Assets, err = Assemble(raws, descs)
	if err != nil {
		return nil, err
	}
	return page, nil
}
