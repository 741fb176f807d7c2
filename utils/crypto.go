package utils

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeyFromHex creates a private key from hex string
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	// Remove 0x prefix if present
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// AddressFromPrivateKey returns the account a key signs for.
func AddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// ValidateAddress reports whether address is 20 bytes of hex, with or
// without the 0x prefix. The checksum is not enforced.
func ValidateAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

// ParseAddress parses a hex account or contract address. The zero address
// is refused: no deployment or account can live there.
func ParseAddress(address string) (common.Address, error) {
	if !ValidateAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}
	addr := common.HexToAddress(strings.TrimSpace(address))
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}
