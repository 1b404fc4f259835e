package dagconsensus

import (
	"testing"

	"github.com/xdagjgo/xdagd/dagconfig"
)

func TestCoinbaseSubsidyHalvingSchedule(t *testing.T) {
	params := dagconfig.DevNetParams
	base := uint64(params.BaseSubsidy)
	flat := params.SubsidyFlatPeriodBlocks
	interval := params.SubsidyHalvingIntervalBlocks

	cases := []struct {
		name   string
		height uint64
		want   uint64
	}{
		{"last flat block", flat, base},
		{"first block past flat period halves immediately", flat + 1, base / 2},
		{"last block of first halving interval", flat + interval, base / 2},
		{"first block of second halving interval", flat + interval + 1, base / 4},
	}

	for _, c := range cases {
		if got := coinbaseSubsidy(params, c.height); got != c.want {
			t.Errorf("%s: coinbaseSubsidy(height=%d) = %d, want %d", c.name, c.height, got, c.want)
		}
	}
}
