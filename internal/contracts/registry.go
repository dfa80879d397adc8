package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Registry reads pod metadata from the controller registry, the controllers
// it points at, and the membership token.
type Registry struct {
	caller        caller
	registryAddr  common.Address
	tokenAddr     common.Address
	registryABI   *abi.ABI
	controllerABI *abi.ABI
	tokenABI      *abi.ABI
}

// NewRegistry creates the registry wrapper.
func NewRegistry(client *ethclient.Client, registryAddr, tokenAddr common.Address) (*Registry, error) {
	registryABI, err := abi.JSON(strings.NewReader(controllerRegistryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	controllerABI, err := abi.JSON(strings.NewReader(controllerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse controller ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(memberTokenABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse member token ABI: %w", err)
	}

	return &Registry{
		caller:        caller{client: client},
		registryAddr:  registryAddr,
		tokenAddr:     tokenAddr,
		registryABI:   &registryABI,
		controllerABI: &controllerABI,
		tokenABI:      &tokenABI,
	}, nil
}

// Controller returns the controller contract managing the given pod.
func (r *Registry) Controller(ctx context.Context, podID uint64) (common.Address, error) {
	values, err := r.caller.call(ctx, r.registryAddr, r.registryABI, "memberController", new(big.Int).SetUint64(podID))
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// PodAdmin returns the pod's admin address. The zero address means the pod
// is self-governed.
func (r *Registry) PodAdmin(ctx context.Context, controller common.Address, podID uint64) (common.Address, error) {
	values, err := r.caller.call(ctx, controller, r.controllerABI, "podAdmin", new(big.Int).SetUint64(podID))
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// PodSafe returns the multisig wallet address backing the pod.
func (r *Registry) PodSafe(ctx context.Context, controller common.Address, podID uint64) (common.Address, error) {
	values, err := r.caller.call(ctx, controller, r.controllerABI, "podIdToSafe", new(big.Int).SetUint64(podID))
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// HasMembership checks the membership token balance for an address; the
// on-chain source of truth for "is this address a member of pod N".
func (r *Registry) HasMembership(ctx context.Context, address common.Address, podID uint64) (bool, error) {
	values, err := r.caller.call(ctx, r.tokenAddr, r.tokenABI, "balanceOf", address, new(big.Int).SetUint64(podID))
	if err != nil {
		return false, err
	}
	return values[0].(*big.Int).Sign() > 0, nil
}
