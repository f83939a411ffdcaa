package chain

import (
	"math"
	"math/big"

	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
)

const (
	radixBits = 16
	radix     = 1 << radixBits
)

// ComputeDifficultyTarget retargets from a reference header to the block
// at newHeight/newTimestamp using the aserti3-2d schedule: drifting one
// half-life behind the 20s-per-block schedule doubles the target (halves
// the difficulty), drifting ahead halves it. The reference header is the
// tip for pre-upgrade heights and the fixed upgrade anchor afterwards;
// it never advances past the anchor, which keeps the retarget continuous
// across the protocol upgrade.
func ComputeDifficultyTarget(reference *block.Header, newTimestamp int64, newHeight uint32) uint64 {
	return asertRetarget(
		reference.Timestamp,
		reference.DifficultyTarget,
		reference.Height,
		newTimestamp,
		newHeight,
	)
}

func asertRetarget(anchorTimestamp int64, anchorTarget uint64, anchorHeight uint32, blockTimestamp int64, blockHeight uint32) uint64 {
	if anchorTarget == 0 {
		anchorTarget = 1
	}

	drift := (blockTimestamp - anchorTimestamp) - config.TargetBlockTime*int64(blockHeight-anchorHeight)
	exponent := (drift * radix) / config.DifficultyHalfLife

	// split into integral halvings and a fractional part in [0, radix)
	integral := exponent >> radixBits
	fractional := uint64(exponent - integral<<radixBits)

	// cubic approximation of 2^(fractional/radix), scaled by 2^16; the
	// constants keep every term inside uint64 (aserti3-2d)
	multiplier := uint64(radix) + ((195766423245049*fractional +
		971821376*fractional*fractional +
		5127*fractional*fractional*fractional +
		1<<47) >> 48)

	target := new(big.Int).Mul(
		new(big.Int).SetUint64(anchorTarget),
		new(big.Int).SetUint64(multiplier),
	)
	if shift := radixBits - integral; shift >= 0 {
		target.Rsh(target, uint(shift))
	} else {
		target.Lsh(target, uint(-shift))
	}

	if target.Sign() == 0 {
		return 1
	}
	if target.BitLen() > 64 {
		return math.MaxUint64
	}
	return target.Uint64()
}

// NextCumulativeWeight accumulates the chain-selection metric: the new
// block contributes the inverse of its difficulty target, so harder
// blocks weigh more. The sum saturates instead of wrapping.
func NextCumulativeWeight(tipWeight common.Uint128, difficultyTarget uint64) common.Uint128 {
	if difficultyTarget == 0 {
		difficultyTarget = 1
	}
	return tipWeight.SaturatingAddUint64(math.MaxUint64 / difficultyTarget)
}
