package econ

import (
	"encoding/json"
	"fmt"

	"github.com/caesar-terminal/offerwatch/internal/normalize"
)

// RawDescriptions holds description records still in wire form. Only the
// records referenced by assets are parsed, through Resolve.
type RawDescriptions map[ClassKey]json.RawMessage

// ParseRawDescriptions indexes raw records by key without parsing them.
// Keyed maps use the map key; sequences are indexed by reading only the
// classid and instanceid of each record.
func ParseRawDescriptions(field string, raw json.RawMessage) (RawDescriptions, error) {
	if isObject(raw) {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("econ: %s: %w", field, err)
		}
		out := make(RawDescriptions, len(m))
		for k, v := range m {
			key, ok := ParseClassKey(k)
			if !ok {
				continue
			}
			out[key] = v
		}
		return out, nil
	}

	elems, err := normalize.Elems(field, raw)
	if err != nil {
		return nil, err
	}
	out := make(RawDescriptions, len(elems))
	for i, e := range elems {
		d := normalize.NewDecoder(normalize.Index(field, i), e)
		key := ClassKey{
			ClassID:    d.Uint64("classid"),
			InstanceID: d.Uint64ZeroAsNone("instanceid"),
		}
		if err := d.Err(); err != nil {
			return nil, err
		}
		out[key] = e
	}
	return out, nil
}

// Resolve parses the records for keys. Keys without a record are left out;
// Assemble reports them.
func (r RawDescriptions) Resolve(keys []ClassKey) (Descriptions, error) {
	descs := make(Descriptions, len(keys))
	for _, key := range keys {
		if _, done := descs[key]; done {
			continue
		}
		raw, ok := r[key]
		if !ok {
			continue
		}
		desc, err := ParseDescription("descriptions."+key.String(), raw)
		if err != nil {
			return nil, err
		}
		descs[key] = desc
	}
	return descs, nil
}
