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

// ExecParams carries the full parameter set of a multisig execution, matching
// the wallet's execTransaction signature.
type ExecParams struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      uint8
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Signatures     []byte
}

// Safe reads from and executes against multisig wallet contracts.
type Safe struct {
	caller caller
	abi    *abi.ABI
}

// NewSafe creates the wallet contract wrapper.
func NewSafe(client *ethclient.Client) (*Safe, error) {
	parsed, err := abi.JSON(strings.NewReader(safeABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse safe ABI: %w", err)
	}

	return &Safe{
		caller: caller{client: client},
		abi:    &parsed,
	}, nil
}

// Nonce returns the wallet's current transaction nonce.
func (s *Safe) Nonce(ctx context.Context, safe common.Address) (uint64, error) {
	values, err := s.caller.call(ctx, safe, s.abi, "nonce")
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// Threshold returns the number of confirmations the wallet requires.
func (s *Safe) Threshold(ctx context.Context, safe common.Address) (uint64, error) {
	values, err := s.caller.call(ctx, safe, s.abi, "getThreshold")
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// Owners returns the wallet's signer set.
func (s *Safe) Owners(ctx context.Context, safe common.Address) ([]common.Address, error) {
	values, err := s.caller.call(ctx, safe, s.abi, "getOwners")
	if err != nil {
		return nil, err
	}
	return values[0].([]common.Address), nil
}

// ExecTransaction submits the assembled multisig execution to the wallet's
// execute entry point.
func (s *Safe) ExecTransaction(ctx context.Context, signer TxSigner, safe common.Address, params ExecParams) (common.Hash, error) {
	return s.caller.send(ctx, signer, safe, s.abi, "execTransaction",
		params.To,
		params.Value,
		params.Data,
		params.Operation,
		params.SafeTxGas,
		params.BaseGas,
		params.GasPrice,
		params.GasToken,
		params.RefundReceiver,
		params.Signatures,
	)
}

// PackApproveHash builds the calldata for the wallet's approveHash call, the
// ratification step a sub-pod wallet performs on a super-pod transaction.
func (s *Safe) PackApproveHash(hash common.Hash) ([]byte, error) {
	data, err := s.abi.Pack("approveHash", [32]byte(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to pack approveHash call: %w", err)
	}
	return data, nil
}

// ApproveHashMethod is the wallet method name that marks a transaction as a
// sub-pod ratification step.
const ApproveHashMethod = "approveHash"
