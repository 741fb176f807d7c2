// Package clientstest provides an in-memory clients.Wallet for tests.
package clientstest

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/meter/clients"
	"github.com/vitwit/meter/types"
)

// Method names counted by Wallet.Calls.
const (
	MethodChainID       = "chainId"
	MethodGetUserTokens = "getUserTokens"
	MethodBalanceOf     = "balanceOf"
	MethodCall          = "call"
	MethodSend          = "send"
	MethodReceipt       = "receipt"
	MethodSwitch        = "switch"
)

// Transfer is a token transfer submitted through the wallet.
type Transfer struct {
	Token  common.Address
	To     common.Address
	Amount *big.Int
	Hash   common.Hash
}

// Wallet simulates a connected account on a chain holding the token and
// invoice contracts. A transfer debits the credit reported by
// getUserTokens once its receipt has been fetched.
//
// The exported fields are read under the wallet's lock but must be set
// before the wallet is shared between goroutines, or through Update.
type Wallet struct {
	mu        sync.Mutex
	account   common.Address
	chainID   *big.Int
	credit    *big.Int
	calls     map[string]int
	transfers []Transfer
	mined     map[common.Hash]*gethtypes.Receipt
	polls     map[common.Hash]int

	ChainIDErr error
	CallErr    error
	SendErr    error
	ReceiptErr error
	SwitchErr  error

	// RefreshErr fails every getUserTokens call made after a transfer was
	// mined.
	RefreshErr error
	// Reverted makes every mined transfer fail with status 0.
	Reverted bool
	// NeverMined keeps every receipt lookup returning ethereum.NotFound.
	NeverMined bool
	// PendingPolls is the number of NotFound answers before a receipt appears.
	PendingPolls int
	// OnSend runs inside SendContractTransaction before anything is recorded.
	OnSend func(ctx context.Context)
}

// NewWallet returns a wallet on chainIDHex with credit in base units.
func NewWallet(chainIDHex string, credit *big.Int) *Wallet {
	return &Wallet{
		account: common.HexToAddress("0x00000000000000000000000000000000000a11ce"),
		chainID: hexutil.MustDecodeBig(chainIDHex),
		credit:  new(big.Int).Set(credit),
		calls:   map[string]int{},
		mined:   map[common.Hash]*gethtypes.Receipt{},
		polls:   map[common.Hash]int{},
	}
}

// Tokens converts whole tokens to 18-decimal base units.
func Tokens(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(types.TokenDecimals), nil))
}

// Update runs fn under the wallet's lock.
func (w *Wallet) Update(fn func(w *Wallet)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

func (w *Wallet) SetChainID(chainIDHex string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = hexutil.MustDecodeBig(chainIDHex)
}

func (w *Wallet) SetCredit(credit *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credit = new(big.Int).Set(credit)
}

func (w *Wallet) Credit() *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.credit)
}

// Calls returns how often method was invoked.
func (w *Wallet) Calls(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[method]
}

// TotalCalls returns the number of wallet calls of any kind.
func (w *Wallet) TotalCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, n := range w.calls {
		total += n
	}
	return total
}

func (w *Wallet) Transfers() []Transfer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Transfer(nil), w.transfers...)
}

func (w *Wallet) Account() common.Address { return w.account }

func (w *Wallet) ChainID(context.Context) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[MethodChainID]++
	if w.ChainIDErr != nil {
		return nil, w.ChainIDErr
	}
	return new(big.Int).Set(w.chainID), nil
}

func (w *Wallet) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[MethodCall]++
	if w.CallErr != nil {
		return nil, w.CallErr
	}
	if len(msg.Data) < 4 {
		return nil, errors.New("clientstest: short call data")
	}

	switch selector := msg.Data[:4]; {
	case bytes.Equal(selector, clients.InvoiceABI.Methods["getUserTokens"].ID):
		w.calls[MethodGetUserTokens]++
		if w.RefreshErr != nil && len(w.mined) > 0 {
			return nil, w.RefreshErr
		}
		if msg.From != w.account {
			return clients.InvoiceABI.Methods["getUserTokens"].Outputs.Pack(big.NewInt(0))
		}
		return clients.InvoiceABI.Methods["getUserTokens"].Outputs.Pack(w.credit)
	case bytes.Equal(selector, clients.TokenABI.Methods["balanceOf"].ID):
		w.calls[MethodBalanceOf]++
		return clients.TokenABI.Methods["balanceOf"].Outputs.Pack(w.credit)
	default:
		return nil, errors.New("clientstest: unknown method")
	}
}

func (w *Wallet) SendContractTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	w.mu.Lock()
	hook := w.OnSend
	w.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[MethodSend]++
	if w.SendErr != nil {
		return common.Hash{}, w.SendErr
	}

	if len(data) < 4 {
		return common.Hash{}, errors.New("clientstest: short call data")
	}
	method, err := clients.TokenABI.MethodById(data[:4])
	if err != nil || method.Name != "transfer" {
		return common.Hash{}, errors.New("clientstest: only transfer is supported")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Hash{}, err
	}

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], uint64(len(w.transfers)))
	hash := crypto.Keccak256Hash(data, nonce[:])

	w.transfers = append(w.transfers, Transfer{
		Token:  to,
		To:     args[0].(common.Address),
		Amount: args[1].(*big.Int),
		Hash:   hash,
	})
	return hash, nil
}

func (w *Wallet) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[MethodReceipt]++
	if w.ReceiptErr != nil {
		return nil, w.ReceiptErr
	}
	if receipt, ok := w.mined[hash]; ok {
		return receipt, nil
	}

	var transfer *Transfer
	for i := range w.transfers {
		if w.transfers[i].Hash == hash {
			transfer = &w.transfers[i]
		}
	}
	if transfer == nil || w.NeverMined {
		return nil, ethereum.NotFound
	}
	if w.polls[hash] < w.PendingPolls {
		w.polls[hash]++
		return nil, ethereum.NotFound
	}

	receipt := &gethtypes.Receipt{
		Status:      gethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(1000 + len(w.mined))),
		Logs:        []*gethtypes.Log{},
	}
	if w.Reverted {
		receipt.Status = gethtypes.ReceiptStatusFailed
	} else {
		w.credit = new(big.Int).Sub(w.credit, transfer.Amount)
	}
	w.mined[hash] = receipt
	return receipt, nil
}

func (w *Wallet) SwitchNetwork(_ context.Context, network types.NetworkDescriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[MethodSwitch]++
	if w.SwitchErr != nil {
		return w.SwitchErr
	}
	id, err := hexutil.DecodeBig(network.NormalizedChainID())
	if err != nil {
		return err
	}
	w.chainID = id
	return nil
}

var _ clients.Wallet = (*Wallet)(nil)
