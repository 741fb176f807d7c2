package clients

import (
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes returned by injected wallets.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901

	// CodeUnrecognizedChain is returned by wallet_switchEthereumChain when
	// the wallet does not know the chain yet.
	CodeUnrecognizedChain = 4902
)

// ErrorCode extracts the JSON-RPC error code carried by err, if any.
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether the wallet owner declined the request.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// IsUnrecognizedChain reports whether the wallet has no entry for the chain.
func IsUnrecognizedChain(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUnrecognizedChain
}
