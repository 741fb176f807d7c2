package clients

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/vitwit/meter/types"
)

var _ Wallet = (*RPCWallet)(nil)

// RPCWallet talks JSON-RPC to a wallet that holds the key itself, such as a
// browser extension bridge or a signer proxy. Transactions are signed by the
// remote side through eth_sendTransaction.
type RPCWallet struct {
	client  *rpc.Client
	account common.Address
}

type callArgs struct {
	From *common.Address `json:"from,omitempty"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data,omitempty"`
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

type addChainParams struct {
	ChainID           string               `json:"chainId"`
	ChainName         string               `json:"chainName"`
	NativeCurrency    types.NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string             `json:"rpcUrls"`
	BlockExplorerURLs []string             `json:"blockExplorerUrls,omitempty"`
}

func DialRPCWallet(ctx context.Context, url string, account common.Address) (*RPCWallet, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("wallet rpc dial: %w", err)
	}
	return NewRPCWallet(client, account), nil
}

func NewRPCWallet(client *rpc.Client, account common.Address) *RPCWallet {
	return &RPCWallet{client: client, account: account}
}

func (w *RPCWallet) Account() common.Address { return w.account }

func (w *RPCWallet) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := w.client.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

func (w *RPCWallet) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	args := callArgs{To: msg.To, Data: msg.Data}
	if msg.From != (common.Address{}) {
		from := msg.From
		args.From = &from
	}

	var result hexutil.Bytes
	if err := w.client.CallContext(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}

func (w *RPCWallet) SendContractTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	from := w.account
	args := callArgs{From: &from, To: &to, Data: data}

	var hash common.Hash
	if err := w.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (w *RPCWallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	var receipt *gethtypes.Receipt
	err := w.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash)
	if err == nil && receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, err
}

// SwitchNetwork asks the wallet to change chains and registers the chain
// first when the wallet does not know it.
func (w *RPCWallet) SwitchNetwork(ctx context.Context, network types.NetworkDescriptor) error {
	err := w.client.CallContext(ctx, nil, "wallet_switchEthereumChain", switchChainParams{
		ChainID: network.NormalizedChainID(),
	})
	if err == nil {
		return nil
	}
	if !IsUnrecognizedChain(err) {
		return fmt.Errorf("switch to %s: %w", network.Key, err)
	}

	err = w.client.CallContext(ctx, nil, "wallet_addEthereumChain", addChainParams{
		ChainID:           network.NormalizedChainID(),
		ChainName:         network.ChainName,
		NativeCurrency:    network.NativeCurrency,
		RPCURLs:           network.RPCURLs,
		BlockExplorerURLs: network.ExplorerURLs,
	})
	if err != nil {
		return fmt.Errorf("add chain %s: %w", network.Key, err)
	}
	return nil
}

func (w *RPCWallet) Close() {
	w.client.Close()
}
