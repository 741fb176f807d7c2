package registry

import "github.com/vitwit/meter/types"

// Supported network keys.
const (
	Calibration     types.NetworkKey = "CALIBRATION"
	LineaSepolia    types.NetworkKey = "LINEA_SEPOLIA"
	BaseSepolia     types.NetworkKey = "BASE_SEPOLIA"
	OptimismSepolia types.NetworkKey = "OPTIMISM_SEPOLIA"
	PolygonAmoy     types.NetworkKey = "POLYGON_AMOY"
	CeloAlfajores   types.NetworkKey = "CELO_ALFAJORES"
	Sepolia         types.NetworkKey = "SEPOLIA"
)

func eth() types.NativeCurrency {
	return types.NativeCurrency{Name: "ETH", Symbol: "ETH", Decimals: 18}
}

// DefaultNetworks returns the networks the editor ships with. A fresh slice
// is returned on every call.
func DefaultNetworks() []types.NetworkDescriptor {
	return []types.NetworkDescriptor{
		{
			Key:            Calibration,
			ChainName:      "Filecoin Calibration",
			ChainIDHex:     "0x4cb2f",
			NativeCurrency: types.NativeCurrency{Name: "tFIL", Symbol: "tFIL", Decimals: 18},
			RPCURLs:        []string{"https://api.calibration.node.glif.io/rpc/v1"},
			ExplorerURLs:   []string{"https://calibration.filfox.info/en"},
		},
		{
			Key:            LineaSepolia,
			ChainName:      "Linea Sepolia",
			ChainIDHex:     "0xe705",
			NativeCurrency: eth(),
			RPCURLs:        []string{"https://rpc.sepolia.linea.build"},
			ExplorerURLs:   []string{"https://sepolia.lineascan.build"},
		},
		{
			Key:            BaseSepolia,
			ChainName:      "Base Sepolia",
			ChainIDHex:     "0x14a34",
			NativeCurrency: eth(),
			RPCURLs:        []string{"https://sepolia.base.org"},
			ExplorerURLs:   []string{"https://sepolia.basescan.org"},
		},
		{
			Key:            OptimismSepolia,
			ChainName:      "Optimism Sepolia",
			ChainIDHex:     "0xaa37dc",
			NativeCurrency: eth(),
			RPCURLs:        []string{"https://sepolia.optimism.io"},
			ExplorerURLs:   []string{"https://sepolia-optimism.etherscan.io"},
		},
		{
			Key:            PolygonAmoy,
			ChainName:      "Polygon Amoy",
			ChainIDHex:     "0x13882",
			NativeCurrency: types.NativeCurrency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
			RPCURLs:        []string{"https://rpc-amoy.polygon.technology"},
			ExplorerURLs:   []string{"https://www.oklink.com/amoy"},
		},
		{
			Key:            CeloAlfajores,
			ChainName:      "Celo Alfajores",
			ChainIDHex:     "0xaef3",
			NativeCurrency: types.NativeCurrency{Name: "CELO", Symbol: "CELO", Decimals: 18},
			RPCURLs:        []string{"https://alfajores-forno.celo-testnet.org"},
			ExplorerURLs:   []string{"https://alfajores.celoscan.io"},
		},
		{
			Key:            Sepolia,
			ChainName:      "Ethereum Sepolia",
			ChainIDHex:     "0xaa36a7",
			NativeCurrency: eth(),
			RPCURLs:        []string{"https://ethereum-sepolia-rpc.publicnode.com"},
			ExplorerURLs:   []string{"https://sepolia.etherscan.io"},
		},
	}
}
