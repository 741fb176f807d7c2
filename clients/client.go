package clients

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vitwit/meter/types"
)

// ContractCaller runs read-only contract calls against the latest block.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// ReceiptReader fetches the receipt of a mined transaction. A transaction
// that is not mined yet yields ethereum.NotFound.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

// Wallet is the connected account the gateway pays from. It is borrowed for
// the duration of a call and never closed by the gateway.
type Wallet interface {
	ContractCaller
	ReceiptReader

	Account() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	// SendContractTransaction signs and broadcasts a zero-value call to `to`.
	SendContractTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
	SwitchNetwork(ctx context.Context, network types.NetworkDescriptor) error
}
