package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

var _ Wallet = (*EVMWallet)(nil)

// ErrWalletClosed is returned by every network call after Close.
var ErrWalletClosed = errors.New("wallet closed")

// EVMWallet is a headless wallet: a private key plus an ethclient connection
// to the network it currently pays on.
type EVMWallet struct {
	mu      sync.RWMutex
	eth     *ethclient.Client
	rpcURL  string
	chainID *big.Int

	signer  *ecdsa.PrivateKey
	account common.Address

	dial func(ctx context.Context, rpcURL string) (*ethclient.Client, error)
}

// NewEVMWallet dials rpcURL and loads the signing key from hex.
func NewEVMWallet(ctx context.Context, rpcURL string, signerPrivHex string) (*EVMWallet, error) {
	signer, err := utils.PrivateKeyFromHex(signerPrivHex)
	if err != nil {
		return nil, err
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum rpc dial: %w", err)
	}

	w, err := NewEVMWalletFromClient(ctx, eth, signer)
	if err != nil {
		eth.Close()
		return nil, err
	}
	w.rpcURL = rpcURL
	return w, nil
}

// NewEVMWalletFromClient wraps an existing connection. The chain id is read
// once so transactions can be signed without another round trip.
func NewEVMWalletFromClient(ctx context.Context, eth *ethclient.Client, signer *ecdsa.PrivateKey) (*EVMWallet, error) {
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	return &EVMWallet{
		eth:     eth,
		chainID: chainID,
		signer:  signer,
		account: utils.AddressFromPrivateKey(signer),
		dial:    ethclient.DialContext,
	}, nil
}

func (w *EVMWallet) Account() common.Address { return w.account }

// RPCURL returns the endpoint the wallet is connected to, if it was dialed
// by the wallet itself.
func (w *EVMWallet) RPCURL() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rpcURL
}

func (w *EVMWallet) client() (*ethclient.Client, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.eth == nil {
		return nil, ErrWalletClosed
	}
	return w.eth, nil
}

// ChainID asks the node rather than returning the cached id so a node that
// was reconfigured underneath the wallet is noticed.
func (w *EVMWallet) ChainID(ctx context.Context) (*big.Int, error) {
	eth, err := w.client()
	if err != nil {
		return nil, err
	}
	return eth.ChainID(ctx)
}

func (w *EVMWallet) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	eth, err := w.client()
	if err != nil {
		return nil, err
	}
	return eth.CallContract(ctx, msg, nil)
}

func (w *EVMWallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	eth, err := w.client()
	if err != nil {
		return nil, err
	}
	return eth.TransactionReceipt(ctx, hash)
}

// SendContractTransaction estimates gas, signs a legacy transaction with the
// wallet key and broadcasts it.
func (w *EVMWallet) SendContractTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	w.mu.RLock()
	eth, chainID := w.eth, w.chainID
	w.mu.RUnlock()
	if eth == nil {
		return common.Hash{}, ErrWalletClosed
	}

	gasLimit, err := eth.EstimateGas(ctx, ethereum.CallMsg{From: w.account, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas failed: %w", err)
	}

	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price failed: %w", err)
	}

	nonce, err := eth.PendingNonceAt(ctx, w.account)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce failed: %w", err)
	}

	tx := gethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), w.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx failed: %w", err)
	}

	if err := eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx failed: %w", err)
	}
	return signed.Hash(), nil
}

// SwitchNetwork dials the descriptor's RPC URLs in order and keeps the first
// one whose chain id matches. The previous connection is closed on success
// and kept on failure.
func (w *EVMWallet) SwitchNetwork(ctx context.Context, network types.NetworkDescriptor) error {
	want, err := hexutil.DecodeBig(network.NormalizedChainID())
	if err != nil {
		return fmt.Errorf("invalid chain id %q: %w", network.ChainIDHex, err)
	}

	var errs []error
	for _, url := range network.RPCURLs {
		eth, err := w.dial(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}

		got, err := eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		if got.Cmp(want) != 0 {
			eth.Close()
			errs = append(errs, fmt.Errorf("%s: chain id %s, want %s", url, hexutil.EncodeBig(got), network.NormalizedChainID()))
			continue
		}

		w.mu.Lock()
		old := w.eth
		w.eth, w.rpcURL, w.chainID = eth, url, got
		w.mu.Unlock()
		if old != nil {
			old.Close()
		}
		return nil
	}

	if len(errs) == 0 {
		return fmt.Errorf("network %s has no rpc urls", network.Key)
	}
	return fmt.Errorf("switch to %s: %w", network.Key, errors.Join(errs...))
}

func (w *EVMWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.eth != nil {
		w.eth.Close()
		w.eth = nil
	}
}
