package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashpool/snarkOS-1/common"
	"github.com/pbnjay/memory"
)

// Consensus constants. These are part of the protocol and are not
// configurable at runtime.
const (
	SoftwareName    = "hashpoold"
	Version         = "v1.3.2"
	ProtocolVersion = 12

	// NetworkID of the network carrying the v12 retarget upgrade. Networks
	// with a different ID stay on the original rule set.
	UpgradedNetworkID uint16 = 2

	// UpgradeAnchorHeight is the height whose header becomes the fixed
	// retarget reference for every block past it (v12 upgrade anchor).
	UpgradeAnchorHeight uint32 = 131520

	// MaxBlockRequest bounds every blocks/hashes range query; requests for
	// wider spans are narrowed, not rejected.
	MaxBlockRequest uint32 = 50

	// TargetBlockTime is the expected seconds between blocks.
	TargetBlockTime int64 = 20

	// DifficultyHalfLife is the ASERT half-life in seconds: a block
	// arriving this far behind schedule doubles the difficulty target.
	DifficultyHalfLife int64 = 720 * TargetBlockTime

	// GenesisDifficultyTarget is the difficulty target of the genesis
	// header and the floor for retargeting.
	GenesisDifficultyTarget uint64 = 1<<60 - 1

	// InitialReward is the block issuance before the first halving.
	InitialReward = common.Fixed64(256 * common.StorageFactor)

	// RewardHalvingInterval is four years of target-rate blocks.
	RewardHalvingInterval uint32 = 4 * 365 * 24 * 60 * 60 / uint32(TargetBlockTime)

	ConsensusDuration = time.Duration(TargetBlockTime) * time.Second
)

const (
	defaultConfigFile             = "config.json"
	defaultTxPoolMaxMemoryPercent = 0.4
	estimatedTxSize               = 2 * 1024
	defaultRPCRateLimit           = 1024
	defaultRPCRateBurst           = 4096
	defaultRPCReadTimeout         = 10 // seconds
	defaultMailboxCapacity        = 1024
)

var GenesisTimestamp = time.Date(2021, time.December, 22, 14, 5, 31, 0, time.UTC).Unix()

// Configuration holds the runtime-tunable parameters. Zero values are
// replaced by defaults in Init.
type Configuration struct {
	NetworkID       uint16        `json:"NetworkID"`
	HttpJsonPort    uint16        `json:"HttpJsonPort"`
	HttpWsPort      uint16        `json:"HttpWsPort"`
	LogLevel        int           `json:"LogLevel"`
	LogPath         string        `json:"LogPath"`
	ChainDBPath     string        `json:"ChainDBPath"`
	TxPoolCap       uint32        `json:"TxPoolCap"`
	RPCRateLimit    float64       `json:"RPCRateLimit"`
	RPCRateBurst    int           `json:"RPCRateBurst"`
	RPCReadTimeout  time.Duration `json:"RPCReadTimeout"` // in seconds
	MailboxCapacity uint32        `json:"MailboxCapacity"`
	OperatorAddress string        `json:"OperatorAddress"`
}

var Parameters = &Configuration{
	NetworkID:       UpgradedNetworkID,
	HttpJsonPort:    30003,
	HttpWsPort:      30002,
	LogLevel:        1,
	LogPath:         "Log",
	ChainDBPath:     "ChainDB",
	RPCRateLimit:    defaultRPCRateLimit,
	RPCRateBurst:    defaultRPCRateBurst,
	RPCReadTimeout:  defaultRPCReadTimeout,
	MailboxCapacity: defaultMailboxCapacity,
}

// Init loads the config file if present and fills derived defaults. A
// missing file is not an error; a malformed one is.
func Init() error {
	if b, err := os.ReadFile(defaultConfigFile); err == nil {
		if err := json.Unmarshal(b, Parameters); err != nil {
			return fmt.Errorf("parse %s: %v", defaultConfigFile, err)
		}
	}

	if Parameters.TxPoolCap == 0 {
		// scale the default mempool capacity with available memory
		budget := float64(memory.TotalMemory()) * defaultTxPoolMaxMemoryPercent / 100.0
		Parameters.TxPoolCap = uint32(budget / estimatedTxSize)
		if Parameters.TxPoolCap < 1024 {
			Parameters.TxPoolCap = 1024
		}
	}
	if Parameters.MailboxCapacity == 0 {
		Parameters.MailboxCapacity = defaultMailboxCapacity
	}
	if Parameters.RPCRateLimit <= 0 {
		Parameters.RPCRateLimit = defaultRPCRateLimit
	}
	if Parameters.RPCRateBurst <= 0 {
		Parameters.RPCRateBurst = defaultRPCRateBurst
	}
	if Parameters.RPCReadTimeout <= 0 {
		Parameters.RPCReadTimeout = defaultRPCReadTimeout
	}

	return nil
}
