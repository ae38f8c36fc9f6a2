package runner

import (
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	cases := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "even split",
			from: 10, to: 15, batchSize: 3,
			want: []BlockRange{{From: 10, To: 12}, {From: 13, To: 15}},
		},
		{
			name: "uneven tail",
			from: 0, to: 6, batchSize: 5,
			want: []BlockRange{{From: 0, To: 4}, {From: 5, To: 6}},
		},
		{
			name: "batch larger than range",
			from: 100, to: 103, batchSize: 1_000,
			want: []BlockRange{{From: 100, To: 103}},
		},
		{
			name: "single block",
			from: 5, to: 5, batchSize: 10,
			want: []BlockRange{{From: 5, To: 5}},
		},
		{
			name: "near max uint64",
			from: math.MaxUint64 - 2, to: math.MaxUint64, batchSize: 100,
			want: []BlockRange{{From: math.MaxUint64 - 2, To: math.MaxUint64}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitRange(tc.from, tc.to, tc.batchSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ranges = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSplitRangeRejectsBadInput(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error when to < from")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
