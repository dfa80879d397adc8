package pod

import (
	"context"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/orcaprotocol/orca-go/internal/contracts"
	"github.com/orcaprotocol/orca-go/internal/graph"
	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// In-package fakes for the collaborator ports.

type fakeRelay struct {
	transactions map[common.Hash]*relay.MultisigTransaction
	listResults  []relay.MultisigTransaction

	computedHash common.Hash
	estimatedGas uint64

	confirmCalls    int
	confirmedHashes []common.Hash
	submitted       []*relay.SubmitRequest
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		transactions: make(map[common.Hash]*relay.MultisigTransaction),
		computedHash: common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		estimatedGas: 50000,
	}
}

func (f *fakeRelay) GetTransactions(ctx context.Context, safe common.Address, filter relay.Filter) ([]relay.MultisigTransaction, error) {
	if filter.NonceGTE == nil {
		return f.listResults, nil
	}
	var out []relay.MultisigTransaction
	for _, tx := range f.listResults {
		if tx.Nonce >= *filter.NonceGTE {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeRelay) GetTransaction(ctx context.Context, safeTxHash common.Hash) (*relay.MultisigTransaction, error) {
	tx, ok := f.transactions[safeTxHash]
	if !ok {
		return nil, relay.ErrNotFound
	}
	return tx, nil
}

func (f *fakeRelay) SubmitTransaction(ctx context.Context, req *relay.SubmitRequest) (*relay.MultisigTransaction, error) {
	f.submitted = append(f.submitted, req)
	stored := &relay.MultisigTransaction{
		Safe:       req.Safe.Hex(),
		To:         req.To.Hex(),
		Value:      req.Value,
		Data:       req.Data,
		Operation:  req.Operation,
		SafeTxGas:  req.SafeTxGas,
		GasPrice:   req.GasPrice,
		Nonce:      req.Nonce,
		SafeTxHash: req.ContractTransactionHash,
	}
	f.transactions[common.HexToHash(req.ContractTransactionHash)] = stored
	return stored, nil
}

func (f *fakeRelay) AddConfirmation(ctx context.Context, safeTxHash common.Hash, signature []byte) error {
	f.confirmCalls++
	f.confirmedHashes = append(f.confirmedHashes, safeTxHash)
	return nil
}

func (f *fakeRelay) EstimateSafeTxGas(ctx context.Context, safe common.Address, req *relay.EstimateRequest) (uint64, error) {
	return f.estimatedGas, nil
}

func (f *fakeRelay) ComputeHash(ctx context.Context, req *relay.SubmitRequest) (common.Hash, error) {
	return f.computedHash, nil
}

type execCall struct {
	safe   common.Address
	params contracts.ExecParams
}

type fakeWallet struct {
	nonce     uint64
	threshold uint64
	owners    []common.Address
	execCalls []execCall
	packer    *contracts.Safe
}

func newFakeWallet(nonce, threshold uint64) *fakeWallet {
	packer, err := contracts.NewSafe(nil)
	if err != nil {
		panic(err)
	}
	return &fakeWallet{nonce: nonce, threshold: threshold, packer: packer}
}

func (f *fakeWallet) Nonce(ctx context.Context, safe common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeWallet) Threshold(ctx context.Context, safe common.Address) (uint64, error) {
	return f.threshold, nil
}

func (f *fakeWallet) Owners(ctx context.Context, safe common.Address) ([]common.Address, error) {
	return f.owners, nil
}

func (f *fakeWallet) ExecTransaction(ctx context.Context, signer contracts.TxSigner, safe common.Address, params contracts.ExecParams) (common.Hash, error) {
	f.execCalls = append(f.execCalls, execCall{safe: safe, params: params})
	return common.HexToHash("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"), nil
}

func (f *fakeWallet) PackApproveHash(hash common.Hash) ([]byte, error) {
	return f.packer.PackApproveHash(hash)
}

type fakeRegistry struct {
	controllers map[uint64]common.Address
	admins      map[uint64]common.Address
	safes       map[uint64]common.Address
	memberships map[common.Address][]uint64
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		controllers: make(map[uint64]common.Address),
		admins:      make(map[uint64]common.Address),
		safes:       make(map[uint64]common.Address),
		memberships: make(map[common.Address][]uint64),
	}
}

func (f *fakeRegistry) Controller(ctx context.Context, podID uint64) (common.Address, error) {
	return f.controllers[podID], nil
}

func (f *fakeRegistry) PodAdmin(ctx context.Context, controller common.Address, podID uint64) (common.Address, error) {
	return f.admins[podID], nil
}

func (f *fakeRegistry) PodSafe(ctx context.Context, controller common.Address, podID uint64) (common.Address, error) {
	return f.safes[podID], nil
}

func (f *fakeRegistry) HasMembership(ctx context.Context, address common.Address, podID uint64) (bool, error) {
	for _, id := range f.memberships[address] {
		if id == podID {
			return true, nil
		}
	}
	return false, nil
}

type fakeNaming struct {
	names map[common.Address]string
	ids   map[string]uint64
}

func newFakeNaming() *fakeNaming {
	return &fakeNaming{
		names: make(map[common.Address]string),
		ids:   make(map[string]uint64),
	}
}

func (f *fakeNaming) Address(ctx context.Context, name string) (common.Address, error) {
	for addr, n := range f.names {
		if n == name {
			return addr, nil
		}
	}
	return common.Address{}, nil
}

func (f *fakeNaming) Name(ctx context.Context, address common.Address) (string, error) {
	return f.names[address], nil
}

func (f *fakeNaming) PodID(ctx context.Context, name string) (uint64, bool, error) {
	id, ok := f.ids[name]
	return id, ok, nil
}

type fakeMembers struct {
	members map[uint64][]common.Address

	// freshLookups records the pods whose members were read past the cache.
	freshLookups []uint64
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{members: make(map[uint64][]common.Address)}
}

func (f *fakeMembers) PodMembers(ctx context.Context, podID uint64, opts ...graph.Option) ([]common.Address, error) {
	if graph.BypassesCache(opts...) {
		f.freshLookups = append(f.freshLookups, podID)
	}
	return f.members[podID], nil
}

func (f *fakeMembers) UserPodIDs(ctx context.Context, address common.Address, opts ...graph.Option) ([]uint64, error) {
	var ids []uint64
	for id, members := range f.members {
		for _, member := range members {
			if member == address {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

type fakeABIs struct {
	abi *abi.ABI
	err error
}

func (f *fakeABIs) ContractABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	return f.abi, f.err
}

// testEnv bundles a wired Client with its fakes.
type testEnv struct {
	client   *Client
	relay    *fakeRelay
	wallet   *fakeWallet
	registry *fakeRegistry
	naming   *fakeNaming
	members  *fakeMembers
	abis     *fakeABIs
}

func newTestEnv(walletNonce, threshold uint64) *testEnv {
	env := &testEnv{
		relay:    newFakeRelay(),
		wallet:   newFakeWallet(walletNonce, threshold),
		registry: newFakeRegistry(),
		naming:   newFakeNaming(),
		members:  newFakeMembers(),
		abis:     &fakeABIs{},
	}
	env.client = &Client{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		relay:    env.relay,
		wallet:   env.wallet,
		registry: env.registry,
		naming:   env.naming,
		members:  env.members,
		abis:     env.abis,
	}
	return env
}

// addPod registers a pod in every fake and returns its handle.
func (env *testEnv) addPod(id uint64, safe common.Address, members ...common.Address) *Pod {
	controller := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	env.registry.controllers[id] = controller
	env.registry.safes[id] = safe
	env.members.members[id] = members
	for _, member := range members {
		env.registry.memberships[member] = append(env.registry.memberships[member], id)
	}
	return &Pod{
		ID:          id,
		SafeAddress: safe,
		Threshold:   env.wallet.threshold,
		members:     members,
		client:      env.client,
	}
}

// testSigner is a deterministic key-backed signer for tests.
func testSigner(seed byte) *PrivateKeySigner {
	raw := make([]byte, 32)
	raw[31] = seed
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		panic(err)
	}
	return &PrivateKeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func addr(hex string) common.Address { return common.HexToAddress(hex) }
