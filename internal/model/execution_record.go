package model

import (
	"encoding/json"
)

// ExecutionRecord is the record emitted once per settled invocation:
// the two venues, the borrowed amount, and the realized profit.
type ExecutionRecord struct {
	VenueA    string `json:"venue_a"`
	VenueB    string `json:"venue_b"`
	OwedAsset string `json:"owed_asset"`
	Amount    string `json:"amount"`
	Profit    string `json:"profit"`
	MinProfit string `json:"min_profit"`
	Height    uint64 `json:"height"`
	SettledAt string `json:"settled_at"`
}

// MarshalJSON ensures ExecutionRecord is encoded with stable field names.
func (r ExecutionRecord) MarshalJSON() ([]byte, error) {
	type Alias ExecutionRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an ExecutionRecord from JSON.
func (r *ExecutionRecord) UnmarshalJSON(data []byte) error {
	type Alias ExecutionRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ExecutionRecord(a)
	return nil
}
