package runner

import "fmt"

// BlockRange is inclusive on both ends.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts [from, to] into windows of at most batchSize blocks, so
// one eth_getLogs call never exceeds a provider's range limit.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	var ranges []BlockRange
	for start := from; start <= to; {
		end := start + batchSize - 1
		// end < start catches wraparound near the top of uint64.
		if end > to || end < start {
			end = to
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
