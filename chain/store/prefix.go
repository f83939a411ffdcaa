package store

import (
	"encoding/binary"

	"github.com/hashpool/snarkOS-1/common"
)

type dataEntryPrefix byte

const (
	// DATA
	dataBlock       dataEntryPrefix = 0x00
	dataTransaction dataEntryPrefix = 0x02

	// INDEX
	ixBlockHeight  dataEntryPrefix = 0x10
	ixTransition   dataEntryPrefix = 0x11
	ixSerialNumber dataEntryPrefix = 0x12
	ixCommitment   dataEntryPrefix = 0x13

	// SYSTEM
	sysCurrentBlock dataEntryPrefix = 0x40
	sysVersion      dataEntryPrefix = 0x41
)

func paddingKey(prefix dataEntryPrefix, key []byte) []byte {
	return append([]byte{byte(prefix)}, key...)
}

func currentBlockKey() []byte {
	return paddingKey(sysCurrentBlock, nil)
}

func versionKey() []byte {
	return paddingKey(sysVersion, nil)
}

func blockKey(height uint32) []byte {
	heightBuffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(heightBuffer, height)
	return paddingKey(dataBlock, heightBuffer)
}

func blockHeightKey(hash common.Uint256) []byte {
	return paddingKey(ixBlockHeight, hash.ToArray())
}

func transactionKey(txID common.Uint256) []byte {
	return paddingKey(dataTransaction, txID.ToArray())
}

func transitionKey(transitionID common.Uint256) []byte {
	return paddingKey(ixTransition, transitionID.ToArray())
}

func serialNumberKey(sn common.Uint256) []byte {
	return paddingKey(ixSerialNumber, sn.ToArray())
}

func commitmentKey(cm common.Uint256) []byte {
	return paddingKey(ixCommitment, cm.ToArray())
}
