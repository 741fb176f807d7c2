// Package registry holds the fixed table of supported networks and the
// contract deployments on each of them, and resolves a live wallet connection
// to one of its entries.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

// ChainIDReader reports the chain a wallet connection currently targets.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Registry is immutable once built and safe for concurrent use.
type Registry struct {
	networks    []types.NetworkDescriptor
	byKey       map[types.NetworkKey]types.NetworkDescriptor
	byChainID   map[string]types.NetworkKey
	deployments map[types.NetworkKey]types.ContractAddressSet
}

// New builds a registry from network descriptors and per-network deployments.
// Chain ids must be unique (compared case-insensitively) and every deployment
// must name a registered network.
func New(networks []types.NetworkDescriptor, deployments map[types.NetworkKey]types.ContractAddressSet) (*Registry, error) {
	r := &Registry{
		networks:    make([]types.NetworkDescriptor, 0, len(networks)),
		byKey:       make(map[types.NetworkKey]types.NetworkDescriptor, len(networks)),
		byChainID:   make(map[string]types.NetworkKey, len(networks)),
		deployments: make(map[types.NetworkKey]types.ContractAddressSet, len(deployments)),
	}

	for _, n := range networks {
		if n.Key == "" {
			return nil, configError("network with empty key")
		}
		if _, dup := r.byKey[n.Key]; dup {
			return nil, configError(fmt.Sprintf("duplicate network key %s", n.Key))
		}
		id := n.NormalizedChainID()
		if _, err := hexutil.DecodeBig(id); err != nil {
			return nil, configError(fmt.Sprintf("network %s: invalid chain id %q", n.Key, n.ChainIDHex))
		}
		if other, dup := r.byChainID[id]; dup {
			return nil, configError(fmt.Sprintf("networks %s and %s share chain id %s", other, n.Key, id))
		}
		n.RPCURLs = append([]string(nil), n.RPCURLs...)
		n.ExplorerURLs = append([]string(nil), n.ExplorerURLs...)

		r.networks = append(r.networks, n)
		r.byKey[n.Key] = n
		r.byChainID[id] = n.Key
	}

	for key, set := range deployments {
		if _, ok := r.byKey[key]; !ok {
			return nil, configError(fmt.Sprintf("deployment for unknown network %s", key))
		}
		if set.IsZero() {
			return nil, configError(fmt.Sprintf("deployment for %s has a zero address", key))
		}
		r.deployments[key] = set
	}

	return r, nil
}

// Networks returns the registered descriptors in registration order.
func (r *Registry) Networks() []types.NetworkDescriptor {
	out := make([]types.NetworkDescriptor, len(r.networks))
	copy(out, r.networks)
	return out
}

// Descriptor returns the descriptor of key.
func (r *Registry) Descriptor(key types.NetworkKey) (types.NetworkDescriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// Validate reports every registered network without a deployment.
func (r *Registry) Validate() error {
	var missing []string
	for _, n := range r.networks {
		if _, ok := r.deployments[n.Key]; !ok {
			missing = append(missing, n.Key.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return types.NewError(
		types.CodeConfig,
		"no contract deployment configured for "+strings.Join(missing, ", "),
		map[string]any{"networks": missing},
		nil,
	)
}

// Lookup maps a hex chain id to its network key. Matching ignores case and
// surrounding whitespace.
func (r *Registry) Lookup(chainIDHex string) (types.NetworkKey, error) {
	id := strings.ToLower(strings.TrimSpace(chainIDHex))
	if key, ok := r.byChainID[id]; ok {
		return key, nil
	}
	return "", types.NewError(
		types.CodeUnsupportedNetwork,
		fmt.Sprintf("chain %s is not a supported network", chainIDHex),
		map[string]any{types.DetailChainID: chainIDHex},
		nil,
	)
}

// ResolveNetwork reads the chain id the wallet is connected to right now and
// maps it to a network key. The result must not be cached across actions:
// the user can switch networks from the wallet at any time.
func (r *Registry) ResolveNetwork(ctx context.Context, wallet ChainIDReader) (types.NetworkKey, error) {
	chainID, err := wallet.ChainID(ctx)
	if err != nil {
		return "", types.NewError(types.CodeNetworkQuery, "failed to read wallet chain id", nil, err)
	}
	if chainID == nil || chainID.Sign() < 0 {
		return "", types.NewError(types.CodeNetworkQuery, "wallet reported no chain id", nil, nil)
	}
	return r.Lookup(hexutil.EncodeBig(chainID))
}

// ResolveAddresses returns the deployment on key.
func (r *Registry) ResolveAddresses(key types.NetworkKey) (types.ContractAddressSet, error) {
	if _, ok := r.byKey[key]; !ok {
		return types.ContractAddressSet{}, types.NewError(
			types.CodeUnsupportedNetwork,
			fmt.Sprintf("network %s is not supported", key),
			map[string]any{types.DetailNetwork: key.String()},
			nil,
		)
	}
	set, ok := r.deployments[key]
	if !ok {
		return types.ContractAddressSet{}, types.NewError(
			types.CodeMissingDeployment,
			fmt.Sprintf("contracts are not deployed on %s", key),
			map[string]any{types.DetailNetwork: key.String()},
			nil,
		)
	}
	return set, nil
}

// Route resolves the current network and its deployment in one step.
func (r *Registry) Route(ctx context.Context, wallet ChainIDReader) (types.NetworkKey, types.ContractAddressSet, error) {
	key, err := r.ResolveNetwork(ctx, wallet)
	if err != nil {
		return "", types.ContractAddressSet{}, err
	}
	set, err := r.ResolveAddresses(key)
	if err != nil {
		return key, types.ContractAddressSet{}, err
	}
	return key, set, nil
}

// DeploymentsFromConfig converts configured hex addresses into address sets.
func DeploymentsFromConfig(cfg map[types.NetworkKey]types.DeploymentConfig) (map[types.NetworkKey]types.ContractAddressSet, error) {
	out := make(map[types.NetworkKey]types.ContractAddressSet, len(cfg))
	for key, d := range cfg {
		token, err := utils.ParseAddress(d.Token)
		if err != nil {
			return nil, configError(fmt.Sprintf("deployment for %s: token: %v", key, err))
		}
		invoice, err := utils.ParseAddress(d.Invoice)
		if err != nil {
			return nil, configError(fmt.Sprintf("deployment for %s: invoice: %v", key, err))
		}
		out[key] = types.ContractAddressSet{Token: token, Invoice: invoice}
	}
	return out, nil
}

func configError(msg string) error {
	return types.NewError(types.CodeConfig, msg, nil, nil)
}
