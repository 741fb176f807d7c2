package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NetworkKey is the registry's identifier for a supported network.
type NetworkKey string

func (k NetworkKey) String() string {
	return string(k)
}

// NativeCurrency describes the gas currency of a network.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required"`
	Decimals int    `json:"decimals" yaml:"decimals" validate:"gte=0,lte=36"`
}

// NetworkDescriptor is the static chain metadata of one registry entry. Its
// shape matches what wallets expect for wallet_addEthereumChain.
type NetworkDescriptor struct {
	Key            NetworkKey     `json:"key" yaml:"key" validate:"required"`
	ChainName      string         `json:"chainName" yaml:"chainName" validate:"required"`
	ChainIDHex     string         `json:"chainId" yaml:"chainId" validate:"required,hexadecimal"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency"`
	RPCURLs        []string       `json:"rpcUrls" yaml:"rpcUrls" validate:"required,min=1,dive,url"`
	ExplorerURLs   []string       `json:"blockExplorerUrls" yaml:"blockExplorerUrls" validate:"dive,url"`
}

// NormalizedChainID returns the lower-case chain id used for comparisons.
func (d NetworkDescriptor) NormalizedChainID() string {
	return strings.ToLower(strings.TrimSpace(d.ChainIDHex))
}

// ContractAddressSet holds the two deployments the gateway pays through on a
// single network: the fungible token and the invoice contract that receives
// the tokens and tracks per-user credit.
type ContractAddressSet struct {
	Token   common.Address `json:"token"`
	Invoice common.Address `json:"invoice"`
}

// IsZero reports whether either address is unset.
func (s ContractAddressSet) IsZero() bool {
	return s.Token == (common.Address{}) || s.Invoice == (common.Address{})
}
