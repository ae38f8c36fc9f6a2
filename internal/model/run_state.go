package model

// RunState is the engine's persisted progress: the last height it acted
// on and the profit accumulated across the session.
type RunState struct {
	LastHeight       uint64 `json:"last_height"`
	SettledCount     uint64 `json:"settled_count"`
	RevertedCount    uint64 `json:"reverted_count"`
	CumulativeProfit string `json:"cumulative_profit"`
	UpdatedAt        string `json:"updated_at"`
}
