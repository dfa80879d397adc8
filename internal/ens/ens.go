// Package ens resolves the naming layer: pod name to wallet address, wallet
// address to pod name, and the TXT record carrying the numeric pod id.
package ens

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// PodIDTextKey is the TXT record key holding a pod name's numeric id.
const PodIDTextKey = "podId"

const registryABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

const resolverABIJSON = `[
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"text","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]}
]`

// Service resolves names through the ENS registry.
type Service struct {
	client       *ethclient.Client
	registryAddr common.Address
	registryABI  *abi.ABI
	resolverABI  *abi.ABI
}

// NewService creates the naming service.
func NewService(client *ethclient.Client, registryAddr common.Address) (*Service, error) {
	registryABI, err := abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	resolverABI, err := abi.JSON(strings.NewReader(resolverABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse resolver ABI: %w", err)
	}

	return &Service{
		client:       client,
		registryAddr: registryAddr,
		registryABI:  &registryABI,
		resolverABI:  &resolverABI,
	}, nil
}

// Namehash computes the ENS node for a name.
func Namehash(name string) common.Hash {
	node := common.Hash{}
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

// Address resolves a name to an address. Returns the zero address, without
// error, when the name has no resolver or no address record.
func (s *Service) Address(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)

	resolver, err := s.resolver(ctx, node)
	if err != nil {
		return common.Address{}, err
	}
	if resolver == (common.Address{}) {
		return common.Address{}, nil
	}

	values, err := s.call(ctx, resolver, "addr", node)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// Name reverse-resolves an address. Returns "" without error when the
// address has no reverse record.
func (s *Service) Name(ctx context.Context, address common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(address.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)

	resolver, err := s.resolver(ctx, node)
	if err != nil {
		return "", err
	}
	if resolver == (common.Address{}) {
		return "", nil
	}

	values, err := s.call(ctx, resolver, "name", node)
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

// PodID reads the numeric pod id attached to a resolved name. The second
// return is false when the record is absent.
func (s *Service) PodID(ctx context.Context, name string) (uint64, bool, error) {
	node := Namehash(name)

	resolver, err := s.resolver(ctx, node)
	if err != nil {
		return 0, false, err
	}
	if resolver == (common.Address{}) {
		return 0, false, nil
	}

	values, err := s.call(ctx, resolver, "text", node, PodIDTextKey)
	if err != nil {
		return 0, false, err
	}

	text := values[0].(string)
	if text == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s record %q on %s: %w", PodIDTextKey, text, name, err)
	}
	return id, true, nil
}

func (s *Service) resolver(ctx context.Context, node common.Hash) (common.Address, error) {
	values, err := s.callAt(ctx, s.registryAddr, s.registryABI, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

func (s *Service) call(ctx context.Context, resolver common.Address, method string, args ...any) ([]any, error) {
	return s.callAt(ctx, resolver, s.resolverABI, method, args...)
}

func (s *Service) callAt(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	values, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}
