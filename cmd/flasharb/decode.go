package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"flashArb/internal/wire"
)

// decodedPayload is the human-readable view of a wire request.
type decodedPayload struct {
	VenueA        string `json:"venue_a"`
	VenueB        string `json:"venue_b"`
	OwedAsset     string `json:"owed_asset"`
	ReceivedAsset string `json:"received_asset"`
	Amount        string `json:"amount"`
	DirectionA    bool   `json:"direction_a"`
	DirectionB    bool   `json:"direction_b"`
	MinProfit     string `json:"min_profit"`
	DeadlineBlock uint64 `json:"deadline_block"`
}

func runDecode(_ *cobra.Command, args []string) error {
	raw := strings.TrimPrefix(strings.TrimSpace(args[0]), "0x")
	data, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}

	p, err := wire.Decode(data)
	if err != nil {
		return err
	}

	out := decodedPayload{
		VenueA:        p.VenueA.Hex(),
		VenueB:        p.VenueB.Hex(),
		OwedAsset:     p.OwedAsset.Hex(),
		ReceivedAsset: p.ReceivedAsset.Hex(),
		Amount:        p.Amount.String(),
		DirectionA:    p.DirectionA,
		DirectionB:    p.DirectionB,
		MinProfit:     p.MinProfit.String(),
		DeadlineBlock: p.DeadlineBlock,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
