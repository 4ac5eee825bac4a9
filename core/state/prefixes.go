package state

import (
	"encoding/binary"
	"strings"
)

var (
	farmingGlobalFarmPrefix  = []byte("farming/global-farm/")
	farmingYieldFarmPrefix   = []byte("farming/yield-farm/")
	farmingDepositPrefix     = []byte("farming/deposit/")
	farmingOwnerIndexPrefix  = []byte("farming/owner-index/")
	farmingActivePoolPrefix  = []byte("farming/active-pool/")
	farmingFarmCounterKey    = []byte("farming/counter/farm")
	farmingDepositCounterKey = []byte("farming/counter/deposit")
)

// FarmingGlobalFarmKey returns the storage key of a global farm record.
func FarmingGlobalFarmKey(id uint32) []byte {
	return appendUint32(farmingGlobalFarmPrefix, id)
}

// FarmingYieldFarmKey returns the storage key of a yield farm record.
func FarmingYieldFarmKey(id uint32) []byte {
	return appendUint32(farmingYieldFarmPrefix, id)
}

// FarmingDepositKey returns the storage key of a deposit record.
func FarmingDepositKey(id uint64) []byte {
	buf := make([]byte, len(farmingDepositPrefix)+8)
	copy(buf, farmingDepositPrefix)
	binary.BigEndian.PutUint64(buf[len(farmingDepositPrefix):], id)
	return buf
}

// FarmingOwnerIndexKey returns the key listing an owner's deposits in a
// yield farm.
func FarmingOwnerIndexKey(owner [20]byte, yieldFarmID uint32) []byte {
	buf := make([]byte, 0, len(farmingOwnerIndexPrefix)+len(owner)+4)
	buf = append(buf, farmingOwnerIndexPrefix...)
	buf = append(buf, owner[:]...)
	return appendUint32(buf, yieldFarmID)
}

// FarmingActivePoolKey returns the key holding the active yield farm of a
// pool within a global farm.
func FarmingActivePoolKey(globalFarmID uint32, poolID string) []byte {
	buf := appendUint32(farmingActivePoolPrefix, globalFarmID)
	buf = append(buf, '/')
	return append(buf, strings.ToUpper(strings.TrimSpace(poolID))...)
}

func appendUint32(prefix []byte, v uint32) []byte {
	buf := make([]byte, len(prefix)+4)
	copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[len(prefix):], v)
	return buf
}

func encodeDepositID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}
