package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const tokenABI = `
[
  {
    "name": "transfer",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

const invoiceABI = `
[
  {
    "name": "getUserTokens",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

var (
	TokenABI   = mustParseABI(tokenABI)
	InvoiceABI = mustParseABI(invoiceABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TransactionSender broadcasts signed contract calls.
type TransactionSender interface {
	SendContractTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
}

// TokenContract binds the fungible token used for metering.
type TokenContract struct {
	address common.Address
}

func NewTokenContract(address common.Address) *TokenContract {
	return &TokenContract{address: address}
}

func (t *TokenContract) Address() common.Address { return t.address }

// Transfer sends amount base units of the token from the wallet to `to`.
// It returns once the transaction is accepted for broadcast, not when mined.
func (t *TokenContract) Transfer(ctx context.Context, sender TransactionSender, to common.Address, amount *big.Int) (common.Hash, error) {
	data, err := TokenABI.Pack("transfer", to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack transfer: %w", err)
	}
	return sender.SendContractTransaction(ctx, t.address, data)
}

// BalanceOf returns the raw token balance of owner.
func (t *TokenContract) BalanceOf(ctx context.Context, caller ContractCaller, owner common.Address) (*big.Int, error) {
	data, err := TokenABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	return callUint256(ctx, caller, TokenABI, "balanceOf", ethereum.CallMsg{To: &t.address, Data: data})
}

// InvoiceContract binds the contract that receives payments and tracks the
// credit of each account.
type InvoiceContract struct {
	address common.Address
}

func NewInvoiceContract(address common.Address) *InvoiceContract {
	return &InvoiceContract{address: address}
}

func (c *InvoiceContract) Address() common.Address { return c.address }

// GetUserTokens returns the credit of account in base units. The contract
// keys the answer on msg.sender, so the call is made from account.
func (c *InvoiceContract) GetUserTokens(ctx context.Context, caller ContractCaller, account common.Address) (*big.Int, error) {
	data, err := InvoiceABI.Pack("getUserTokens")
	if err != nil {
		return nil, fmt.Errorf("pack getUserTokens: %w", err)
	}
	return callUint256(ctx, caller, InvoiceABI, "getUserTokens", ethereum.CallMsg{From: account, To: &c.address, Data: data})
}

func callUint256(ctx context.Context, caller ContractCaller, parsed abi.ABI, method string, msg ethereum.CallMsg) (*big.Int, error) {
	raw, err := caller.CallContract(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(out))
	}

	value, ok := out[0].(*big.Int)
	if !ok || value == nil {
		return nil, errors.New("unpack " + method + ": not a uint256")
	}
	return value, nil
}
