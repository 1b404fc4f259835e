// Package dagconfig holds the network-parameterised consensus
// constants: per-network identifiers plus the reward schedule and
// admission tolerances that are the same shape across networks but
// differ in value, the way this package's teacher parameterised
// btcd-family nodes.
package dagconfig

import "github.com/xdagjgo/xdagd/xdagtype"

// Network identifies one of the three supported networks.
type Network uint32

const (
	MainNet Network = 1
	TestNet Network = 2
	DevNet  Network = 3
)

func (n Network) String() string {
	switch n {
	case MainNet:
		return "main"
	case TestNet:
		return "test"
	case DevNet:
		return "dev"
	default:
		return "unknown"
	}
}

// Params bundles every network-parameterised consensus constant.
type Params struct {
	Name      string
	NetworkID Network
	// DefaultPort is the P2P listen port new nodes bind by default.
	DefaultPort uint16
	// GenesisLowHash is the low hash of the network's genesis block.
	GenesisLowHash xdagtype.Hash256

	// FutureTimestampToleranceMillis bounds how far into the future a
	// block's timestamp may be of local clock (spec.md §4.3 step 1).
	FutureTimestampToleranceMillis int64

	// BaseSubsidy is the coinbase reward paid by the first main block
	// (spec.md §4.4): 1024 XDAG.
	BaseSubsidy xdagtype.XAmount
	// SubsidyFlatPeriodBlocks is the number of main blocks that pay
	// BaseSubsidy unchanged before halving begins.
	SubsidyFlatPeriodBlocks uint64
	// SubsidyHalvingIntervalBlocks is how many main blocks elapse
	// between halvings once the flat period ends.
	SubsidyHalvingIntervalBlocks uint64

	// OrphanExpiryMillis bounds how long an orphan may wait for its
	// missing links before it is evicted (spec.md §7).
	OrphanExpiryMillis int64

	// SyncRequestTimeoutMillis / SyncWindowSize / SyncMaxReissues
	// parameterise the sync controller (spec.md §4.6).
	SyncRequestTimeoutMillis int64
	SyncWindowSize           uint64
	SyncMaxReissues          int
	// SyncLagThreshold is the "N" in "remote.totalnmain > local.nmain +
	// N" that gates entry into SYNCING (spec.md §4.6).
	SyncLagThreshold uint64

	// HandshakeTimeoutMillis / PingIntervalMillis / MaxMissedPongs
	// parameterise peer liveness (spec.md §4.7).
	HandshakeTimeoutMillis int64
	PingIntervalMillis     int64
	MaxMissedPongs         int
}

// MainNetParams are the production network's consensus parameters.
var MainNetParams = Params{
	Name:                           "mainnet",
	NetworkID:                      MainNet,
	DefaultPort:                    8001,
	FutureTimestampToleranceMillis: 2000,
	BaseSubsidy:                    xdagtype.XAmountFromXDAG(1024),
	SubsidyFlatPeriodBlocks:        1_017_323,
	SubsidyHalvingIntervalBlocks:   2_097_152,
	OrphanExpiryMillis:             10 * 60 * 1000,
	SyncRequestTimeoutMillis:       5000,
	SyncWindowSize:                 128,
	SyncMaxReissues:                3,
	SyncLagThreshold:               2,
	HandshakeTimeoutMillis:         5000,
	PingIntervalMillis:             15000,
	MaxMissedPongs:                 2,
}

// TestNetParams relax nothing structurally but run on a distinct
// network id so nodes never cross-connect with mainnet.
var TestNetParams = func() Params {
	p := MainNetParams
	p.Name = "testnet"
	p.NetworkID = TestNet
	p.DefaultPort = 18001
	return p
}()

// DevNetParams shrink the reward schedule so local development chains
// reach halving without running for years.
var DevNetParams = func() Params {
	p := MainNetParams
	p.Name = "devnet"
	p.NetworkID = DevNet
	p.DefaultPort = 28001
	p.SubsidyFlatPeriodBlocks = 128
	p.SubsidyHalvingIntervalBlocks = 256
	return p
}()

// ByName resolves one of "main", "test", "dev" to its Params, matching
// the CLI surface's --network flag (spec.md §6).
func ByName(name string) (Params, bool) {
	switch name {
	case "main":
		return MainNetParams, true
	case "test":
		return TestNetParams, true
	case "dev":
		return DevNetParams, true
	default:
		return Params{}, false
	}
}
