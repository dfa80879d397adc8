// Package config holds the immutable runtime configuration for the SDK.
// A Config is built once at process start (from the environment or
// programmatically) and passed into every component; nothing mutates it
// afterwards.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Network identifies one of the supported chains.
type Network string

const (
	Mainnet Network = "mainnet"
	Goerli  Network = "goerli"
)

// ContractAddresses holds the protocol contract addresses for a network.
type ContractAddresses struct {
	ControllerRegistry common.Address
	MemberToken        common.Address
	ENSRegistry        common.Address
}

// Config is the resolved runtime configuration. All endpoint URLs are
// derived from the selected network at load time.
type Config struct {
	Network Network
	ChainID uint64

	RPCURL          string
	RelayURL        string
	SubgraphURL     string
	EtherscanURL    string
	EtherscanAPIKey string

	Contracts ContractAddresses
}

// networkDefaults carries everything derivable from the network selector.
type networkDefaults struct {
	chainID      uint64
	relayURL     string
	subgraphURL  string
	etherscanURL string
	contracts    ContractAddresses
}

// The ENS registry lives at the same address on mainnet and goerli.
var ensRegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var defaults = map[Network]networkDefaults{
	Mainnet: {
		chainID:      1,
		relayURL:     "https://safe-transaction-mainnet.safe.global",
		subgraphURL:  "https://api.thegraph.com/subgraphs/name/orcaprotocol/pods",
		etherscanURL: "https://api.etherscan.io/api",
		contracts: ContractAddresses{
			ControllerRegistry: common.HexToAddress("0x0762aA185b6ed2dCA77945Ebe92De705e0C37AE3"),
			MemberToken:        common.HexToAddress("0x0CD3A49E10e1cF57Fce18cbEdc45f52c2488D267"),
			ENSRegistry:        ensRegistryAddress,
		},
	},
	Goerli: {
		chainID:      5,
		relayURL:     "https://safe-transaction-goerli.safe.global",
		subgraphURL:  "https://api.thegraph.com/subgraphs/name/orcaprotocol/goerli-pods",
		etherscanURL: "https://api-goerli.etherscan.io/api",
		contracts: ContractAddresses{
			ControllerRegistry: common.HexToAddress("0xB7E6c90B01b544d04F1E6278e21a5bddabBC9b59"),
			MemberToken:        common.HexToAddress("0x2A6EC08F0a94de1Cd6b25b6637Ac84a37Fb937Cd"),
			ENSRegistry:        ensRegistryAddress,
		},
	},
}

// ForNetwork builds a Config for the given network. The RPC URL and
// Etherscan API key still need to be set by the caller.
func ForNetwork(network Network) (*Config, error) {
	def, ok := defaults[network]
	if !ok {
		return nil, fmt.Errorf("unsupported network %q (supported: %s, %s)", network, Mainnet, Goerli)
	}

	return &Config{
		Network:      network,
		ChainID:      def.chainID,
		RelayURL:     def.relayURL,
		SubgraphURL:  def.subgraphURL,
		EtherscanURL: def.etherscanURL,
		Contracts:    def.contracts,
	}, nil
}

// Load builds a Config from the environment. A .env file in the working
// directory is honored if present. Recognized variables:
//
//	ORCA_NETWORK           mainnet | goerli (required)
//	ORCA_RPC_URL           JSON-RPC endpoint (required)
//	ORCA_ETHERSCAN_API_KEY Etherscan API key (optional; decoding degrades without it)
//	ORCA_RELAY_URL         override the transaction service URL
//	ORCA_SUBGRAPH_URL      override the membership subgraph URL
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("orca")
	v.AutomaticEnv()

	network := Network(strings.ToLower(v.GetString("network")))
	if network == "" {
		return nil, fmt.Errorf("ORCA_NETWORK is not set")
	}

	cfg, err := ForNetwork(network)
	if err != nil {
		return nil, err
	}

	cfg.RPCURL = v.GetString("rpc_url")
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ORCA_RPC_URL is not set")
	}

	cfg.EtherscanAPIKey = v.GetString("etherscan_api_key")

	if url := v.GetString("relay_url"); url != "" {
		cfg.RelayURL = url
	}
	if url := v.GetString("subgraph_url"); url != "" {
		cfg.SubgraphURL = url
	}

	return cfg, nil
}
