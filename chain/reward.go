package chain

import (
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
)

// GetRewardByHeight is the fixed issuance schedule: a pure function of
// height. The subsidy starts at InitialReward and halves every
// RewardHalvingInterval blocks until it reaches zero. The genesis block
// carries no subsidy.
func GetRewardByHeight(height uint32) common.Fixed64 {
	if height == 0 {
		return 0
	}
	halvings := (height - 1) / config.RewardHalvingInterval
	if halvings >= 63 {
		return 0
	}
	return config.InitialReward >> halvings
}
