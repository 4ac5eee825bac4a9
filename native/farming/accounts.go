package farming

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	globalFarmPotPrefix = []byte("farming/global-farm-pot/")
	yieldFarmPotPrefix  = []byte("farming/yield-farm-pot/")
)

// GlobalFarmPot derives the account that escrows a global farm's reward
// budget. Rewards are paid straight out of it.
func GlobalFarmPot(id uint32) [20]byte {
	return potAccount(globalFarmPotPrefix, id)
}

// YieldFarmPot derives the account holding the pool shares staked in a yield
// farm.
func YieldFarmPot(globalFarmID, yieldFarmID uint32) [20]byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[:4], globalFarmID)
	binary.BigEndian.PutUint32(buf[4:], yieldFarmID)
	return potAccountBytes(yieldFarmPotPrefix, buf)
}

func potAccount(prefix []byte, id uint32) [20]byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return potAccountBytes(prefix, buf)
}

func potAccountBytes(prefix, suffix []byte) [20]byte {
	payload := make([]byte, 0, len(prefix)+len(suffix))
	payload = append(payload, prefix...)
	payload = append(payload, suffix...)
	hash := ethcrypto.Keccak256(payload)
	var out [20]byte
	copy(out[:], hash[len(hash)-20:])
	return out
}
