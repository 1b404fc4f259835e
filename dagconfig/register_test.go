package dagconfig_test

import (
	"testing"

	"github.com/xdagjgo/xdagd/dagconfig"
)

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		wantNet dagconfig.Network
		wantOK  bool
	}{
		{"main", dagconfig.MainNet, true},
		{"test", dagconfig.TestNet, true},
		{"dev", dagconfig.DevNet, true},
		{"nonexistent", 0, false},
	}

	for _, tt := range tests {
		params, ok := dagconfig.ByName(tt.name)
		if ok != tt.wantOK {
			t.Errorf("ByName(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if ok && params.NetworkID != tt.wantNet {
			t.Errorf("ByName(%q).NetworkID = %v, want %v", tt.name, params.NetworkID, tt.wantNet)
		}
	}
}

func TestDevNetShrunkenSchedule(t *testing.T) {
	if dagconfig.DevNetParams.SubsidyFlatPeriodBlocks >= dagconfig.MainNetParams.SubsidyFlatPeriodBlocks {
		t.Error("devnet must shrink the flat period relative to mainnet for fast local testing")
	}
	if dagconfig.DevNetParams.SubsidyHalvingIntervalBlocks >= dagconfig.MainNetParams.SubsidyHalvingIntervalBlocks {
		t.Error("devnet must shrink the halving interval relative to mainnet for fast local testing")
	}
}

func TestNetworksHaveDistinctIDs(t *testing.T) {
	ids := map[dagconfig.Network]string{}
	for _, p := range []dagconfig.Params{dagconfig.MainNetParams, dagconfig.TestNetParams, dagconfig.DevNetParams} {
		if existing, ok := ids[p.NetworkID]; ok {
			t.Errorf("network id %v used by both %s and %s", p.NetworkID, existing, p.Name)
		}
		ids[p.NetworkID] = p.Name
	}
}

func TestGenesisHashMatchesAcrossNetworks(t *testing.T) {
	for _, p := range []dagconfig.Params{dagconfig.MainNetParams, dagconfig.TestNetParams, dagconfig.DevNetParams} {
		if p.GenesisLowHash != dagconfig.GenesisHash.LowHash() {
			t.Errorf("%s genesis low hash was not wired from the computed genesis block", p.Name)
		}
	}
}
