package pod

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/orcaprotocol/orca-go/internal/contracts"
	"github.com/orcaprotocol/orca-go/internal/graph"
	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// Ports over the external collaborators. The production implementations live
// in pkg/relay, pkg/etherscan, internal/contracts, internal/ens and
// internal/graph; tests substitute in-package fakes.

type relayService interface {
	GetTransactions(ctx context.Context, safe common.Address, filter relay.Filter) ([]relay.MultisigTransaction, error)
	GetTransaction(ctx context.Context, safeTxHash common.Hash) (*relay.MultisigTransaction, error)
	SubmitTransaction(ctx context.Context, req *relay.SubmitRequest) (*relay.MultisigTransaction, error)
	AddConfirmation(ctx context.Context, safeTxHash common.Hash, signature []byte) error
	EstimateSafeTxGas(ctx context.Context, safe common.Address, req *relay.EstimateRequest) (uint64, error)
	ComputeHash(ctx context.Context, req *relay.SubmitRequest) (common.Hash, error)
}

type walletService interface {
	Nonce(ctx context.Context, safe common.Address) (uint64, error)
	Threshold(ctx context.Context, safe common.Address) (uint64, error)
	Owners(ctx context.Context, safe common.Address) ([]common.Address, error)
	ExecTransaction(ctx context.Context, signer contracts.TxSigner, safe common.Address, params contracts.ExecParams) (common.Hash, error)
	PackApproveHash(hash common.Hash) ([]byte, error)
}

type registryService interface {
	Controller(ctx context.Context, podID uint64) (common.Address, error)
	PodAdmin(ctx context.Context, controller common.Address, podID uint64) (common.Address, error)
	PodSafe(ctx context.Context, controller common.Address, podID uint64) (common.Address, error)
	HasMembership(ctx context.Context, address common.Address, podID uint64) (bool, error)
}

type namingService interface {
	Address(ctx context.Context, name string) (common.Address, error)
	Name(ctx context.Context, address common.Address) (string, error)
	PodID(ctx context.Context, name string) (uint64, bool, error)
}

type memberSource interface {
	PodMembers(ctx context.Context, podID uint64, opts ...graph.Option) ([]common.Address, error)
	UserPodIDs(ctx context.Context, address common.Address, opts ...graph.Option) ([]uint64, error)
}

type abiSource interface {
	ContractABI(ctx context.Context, address common.Address) (*abi.ABI, error)
}
