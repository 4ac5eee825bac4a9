package bank

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const accountHexLength = 40

// ParseAccount normalises and validates an account expressed as a hex string.
// The returned array always contains the raw 20-byte address.
func ParseAccount(ref string) ([20]byte, error) {
	var account [20]byte
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return account, fmt.Errorf("bank: account required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != accountHexLength {
		return account, fmt.Errorf("bank: account must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hexutil.Decode("0x" + trimmed)
	if err != nil {
		return account, fmt.Errorf("bank: decode account: %w", err)
	}
	copy(account[:], decoded)
	return account, nil
}

// FormatAccount renders an account as 0x-prefixed hex.
func FormatAccount(account [20]byte) string {
	return hexutil.Encode(account[:])
}
