package dagconfig

import "github.com/xdagjgo/xdagd/xdagtype"

// genesisBlock is the single main-network genesis block: a header slot
// with no links, no signatures, and a remark identifying the network.
// It has no input or output links, matching spec.md §4.3's treatment
// of the genesis block as the unique block admitted without any link
// resolution step.
var genesisBlock = func() *xdagtype.Block {
	b := &xdagtype.Block{
		Timestamp: 1577836800000, // 2020-01-01T00:00:00Z, in millis
	}
	b.SetRemark(0, "xdagj genesis")
	return b
}()

// GenesisHash is the main network's genesis block hash, computed the
// same way every other block's hash is computed (spec.md §4.1).
var GenesisHash = xdagtype.Hash(genesisBlock)

// GenesisBlock returns the network's genesis block. All three networks
// currently share the same genesis body; they are kept distinct by
// NetworkID, not by a different genesis block.
func GenesisBlock() *xdagtype.Block {
	return genesisBlock
}

func init() {
	MainNetParams.GenesisLowHash = GenesisHash.LowHash()
	TestNetParams.GenesisLowHash = GenesisHash.LowHash()
	DevNetParams.GenesisLowHash = GenesisHash.LowHash()
}
