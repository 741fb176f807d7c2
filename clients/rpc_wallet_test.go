package clients

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/meter/types"
)

type codeError struct {
	code int
	msg  string
}

func (e *codeError) Error() string  { return e.msg }
func (e *codeError) ErrorCode() int { return e.code }

// fakeWalletNode serves the eth_ and wallet_ namespaces an injected wallet
// exposes.
type fakeWalletNode struct {
	mu       sync.Mutex
	chainID  *big.Int
	known    map[string]bool
	added    []map[string]any
	calls    []map[string]any
	sent     []map[string]any
	receipts map[common.Hash]*gethtypes.Receipt
	reject   bool
}

type fakeEthAPI struct{ n *fakeWalletNode }

func (a *fakeEthAPI) ChainId() (*hexutil.Big, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return (*hexutil.Big)(a.n.chainID), nil
}

func (a *fakeEthAPI) Call(args map[string]any, block *string) (hexutil.Bytes, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.calls = append(a.n.calls, args)
	return InvoiceABI.Methods["getUserTokens"].Outputs.Pack(big.NewInt(42))
}

func (a *fakeEthAPI) SendTransaction(args map[string]any) (common.Hash, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	if a.n.reject {
		return common.Hash{}, &codeError{code: CodeUserRejected, msg: "User rejected the request."}
	}
	a.n.sent = append(a.n.sent, args)
	hash := common.BigToHash(big.NewInt(int64(len(a.n.sent))))
	a.n.receipts[hash] = &gethtypes.Receipt{
		Status:      gethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(77),
		Logs:        []*gethtypes.Log{},
	}
	return hash, nil
}

func (a *fakeEthAPI) GetTransactionReceipt(hash common.Hash) (*gethtypes.Receipt, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return a.n.receipts[hash], nil
}

type fakeWalletAPI struct{ n *fakeWalletNode }

func (a *fakeWalletAPI) SwitchEthereumChain(params map[string]any) error {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	id, _ := params["chainId"].(string)
	if !a.n.known[id] {
		return &codeError{code: CodeUnrecognizedChain, msg: "Unrecognized chain ID"}
	}
	a.n.chainID = hexutil.MustDecodeBig(id)
	return nil
}

func (a *fakeWalletAPI) AddEthereumChain(params map[string]any) error {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	id, _ := params["chainId"].(string)
	a.n.added = append(a.n.added, params)
	a.n.known[id] = true
	a.n.chainID = hexutil.MustDecodeBig(id)
	return nil
}

func newFakeWalletNode(t *testing.T, chainIDHex string) (*fakeWalletNode, *rpc.Client) {
	t.Helper()

	node := &fakeWalletNode{
		chainID:  hexutil.MustDecodeBig(chainIDHex),
		known:    map[string]bool{chainIDHex: true},
		receipts: map[common.Hash]*gethtypes.Receipt{},
	}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &fakeEthAPI{n: node}))
	require.NoError(t, server.RegisterName("wallet", &fakeWalletAPI{n: node}))
	t.Cleanup(server.Stop)

	client := rpc.DialInProc(server)
	t.Cleanup(client.Close)
	return node, client
}

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func TestRPCWallet_ChainIDAndCall(t *testing.T) {
	node, client := newFakeWalletNode(t, "0x14a34")
	wallet := NewRPCWallet(client, testAccount)
	ctx := context.Background()

	id, err := wallet.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x14a34", hexutil.EncodeBig(id))

	invoice := NewInvoiceContract(common.HexToAddress("0xbb"))
	credit, err := invoice.GetUserTokens(ctx, wallet, wallet.Account())
	require.NoError(t, err)
	assert.Equal(t, int64(42), credit.Int64())

	require.Len(t, node.calls, 1)
	assert.Equal(t, "0x00000000000000000000000000000000000a11ce", node.calls[0]["from"])
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", node.calls[0]["to"])
}

func TestRPCWallet_SendAndReceipt(t *testing.T) {
	node, client := newFakeWalletNode(t, "0x14a34")
	wallet := NewRPCWallet(client, testAccount)
	ctx := context.Background()

	_, err := wallet.TransactionReceipt(ctx, common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, ethereum.NotFound)

	token := NewTokenContract(common.HexToAddress("0xaa"))
	hash, err := token.Transfer(ctx, wallet, common.HexToAddress("0xbb"), big.NewInt(5))
	require.NoError(t, err)

	require.Len(t, node.sent, 1)
	assert.Equal(t, "0x00000000000000000000000000000000000a11ce", node.sent[0]["from"])
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", node.sent[0]["to"])

	receipt, err := wallet.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, gethtypes.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, int64(77), receipt.BlockNumber.Int64())
}

func TestRPCWallet_UserRejected(t *testing.T) {
	node, client := newFakeWalletNode(t, "0x14a34")
	node.reject = true
	wallet := NewRPCWallet(client, testAccount)

	_, err := wallet.SendContractTransaction(context.Background(), common.HexToAddress("0xaa"), []byte{1, 2, 3, 4})
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))
	assert.False(t, IsUnrecognizedChain(err))
}

func TestRPCWallet_SwitchNetwork(t *testing.T) {
	node, client := newFakeWalletNode(t, "0x14a34")
	wallet := NewRPCWallet(client, testAccount)
	ctx := context.Background()

	sepolia := types.NetworkDescriptor{
		Key:            "SEPOLIA",
		ChainName:      "Sepolia",
		ChainIDHex:     "0xAA36A7",
		NativeCurrency: types.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:        []string{"https://ethereum-sepolia-rpc.publicnode.com"},
	}

	// Unknown chain: switch fails with 4902, the wallet adds it.
	require.NoError(t, wallet.SwitchNetwork(ctx, sepolia))
	require.Len(t, node.added, 1)
	assert.Equal(t, "0xaa36a7", node.added[0]["chainId"])
	assert.Equal(t, "Sepolia", node.added[0]["chainName"])

	id, err := wallet.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", hexutil.EncodeBig(id))

	// Known chain: plain switch, no second add.
	base := types.NetworkDescriptor{Key: "BASE_SEPOLIA", ChainIDHex: "0x14a34"}
	require.NoError(t, wallet.SwitchNetwork(ctx, base))
	assert.Len(t, node.added, 1)
}

func TestErrorCode(t *testing.T) {
	_, ok := ErrorCode(errors.New("plain"))
	assert.False(t, ok)

	code, ok := ErrorCode(&codeError{code: 4100, msg: "unauthorized"})
	assert.True(t, ok)
	assert.Equal(t, CodeUnauthorized, code)
}
