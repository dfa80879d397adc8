package pod

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"

	"github.com/orcaprotocol/orca-go/internal/contracts"
	"github.com/orcaprotocol/orca-go/internal/graph"
	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// Status is a proposal's position in the wallet's nonce sequence. It is
// derived, never stored: only the interpretation of the nonce pair changes.
type Status string

const (
	// StatusQueued means the proposal's nonce is ahead of the wallet's
	// current nonce and cannot be executed yet.
	StatusQueued Status = "queued"

	// StatusActive means the proposal is next in line for execution.
	StatusActive Status = "active"

	// StatusExecuted means the wallet has moved past the proposal's nonce.
	StatusExecuted Status = "executed"
)

// Proposal is a stateful projection over one pending relay transaction and
// its optional same-nonce reject companion. The relay stays the source of
// truth; a Proposal additionally caches the votes issued through it.
//
// A Proposal must be driven by a single caller; concurrent mutation of the
// same instance is not supported. Mutating operations on an already executed
// proposal are rejected by the vote and threshold checks, not by a terminal
// state guard.
type Proposal struct {
	// Nonce is the wallet-assigned sequence number, unique per wallet.
	Nonce uint64

	// Threshold is the confirmation requirement snapshotted at fetch time.
	Threshold uint64

	// Approvals holds the signers that confirmed the primary transaction,
	// in confirmation order.
	Approvals []common.Address

	// Rejections holds the signers that confirmed the reject companion.
	Rejections []common.Address

	// Value and Timestamp are informational.
	Value     string
	Timestamp time.Time

	// Method and Parameters describe the decoded call; empty when the call
	// data is absent or could not be decoded.
	Method     string
	Parameters []relay.DecodedParameter

	// SafeTxHash is the canonical hash signers confirm.
	SafeTxHash common.Hash

	pod      *Pod
	client   *Client
	safeTx   *relay.MultisigTransaction
	rejectTx *relay.MultisigTransaction
	executed bool
}

// IsSubProposal reports whether this proposal is itself a ratification step
// for a proposal on another pod's wallet.
func (p *Proposal) IsSubProposal() bool {
	return p.Method == contracts.ApproveHashMethod
}

// Status derives the proposal's state from the wallet's current nonce. After
// a successful Execute* call the proposal reports executed without
// re-querying; on-chain confirmation still requires re-fetching from the
// relay once its consistency window has passed.
func (p *Proposal) Status(ctx context.Context) (Status, error) {
	if p.executed {
		return StatusExecuted, nil
	}

	walletNonce, err := p.client.wallet.Nonce(ctx, p.pod.SafeAddress)
	if err != nil {
		return "", fmt.Errorf("failed to read wallet nonce: %w", err)
	}

	switch {
	case walletNonce > p.Nonce:
		return StatusExecuted, nil
	case walletNonce == p.Nonce:
		return StatusActive, nil
	default:
		return StatusQueued, nil
	}
}

// Approve confirms the primary transaction on behalf of the signer.
func (p *Proposal) Approve(ctx context.Context, signer Signer) error {
	address := signer.Address()

	if lo.Contains(p.Approvals, address) {
		return fmt.Errorf("%w: %s", ErrAlreadyApproved, address.Hex())
	}
	if !p.pod.IsMember(address) {
		return fmt.Errorf("%w: %s", ErrNotAMember, address.Hex())
	}

	signature, err := signer.SignHash(p.SafeTxHash)
	if err != nil {
		return fmt.Errorf("failed to sign proposal hash: %w", err)
	}

	if err := p.client.relay.AddConfirmation(ctx, p.SafeTxHash, signature); err != nil {
		return fmt.Errorf("failed to submit approval: %w", err)
	}

	p.Approvals = append(p.Approvals, address)
	p.safeTx.Confirmations = append(p.safeTx.Confirmations, relay.Confirmation{
		Owner:          address.Hex(),
		Signature:      hexutil.Encode(signature),
		SignatureType:  "ETH_SIGN",
		SubmissionDate: time.Now().UTC(),
	})

	return nil
}

// Reject confirms the reject companion on behalf of the signer, creating the
// companion first if this is the proposal's first rejection. The companion
// shares the proposal's nonce and is a harmless data-free self-call whose
// execution consumes the nonce.
func (p *Proposal) Reject(ctx context.Context, signer Signer) error {
	address := signer.Address()

	if lo.Contains(p.Rejections, address) {
		return fmt.Errorf("%w: %s", ErrAlreadyRejected, address.Hex())
	}
	if !p.pod.IsMember(address) {
		return fmt.Errorf("%w: %s", ErrNotAMember, address.Hex())
	}

	if p.rejectTx == nil {
		nonce := p.Nonce
		stored, err := p.client.createSafeTransaction(ctx, safeTxDraft{
			Safe:  p.pod.SafeAddress,
			To:    p.pod.SafeAddress,
			Value: "0",
			Nonce: &nonce,
		}, signer)
		if err != nil {
			return fmt.Errorf("failed to create reject transaction: %w", err)
		}

		p.rejectTx = stored
		p.Rejections = confirmationOwners(stored.Confirmations)
		if !lo.Contains(p.Rejections, address) {
			p.Rejections = append(p.Rejections, address)
		}
		return nil
	}

	rejectHash := common.HexToHash(p.rejectTx.SafeTxHash)

	signature, err := signer.SignHash(rejectHash)
	if err != nil {
		return fmt.Errorf("failed to sign reject hash: %w", err)
	}

	if err := p.client.relay.AddConfirmation(ctx, rejectHash, signature); err != nil {
		return fmt.Errorf("failed to submit rejection: %w", err)
	}

	p.Rejections = append(p.Rejections, address)
	p.rejectTx.Confirmations = append(p.rejectTx.Confirmations, relay.Confirmation{
		Owner:          address.Hex(),
		Signature:      hexutil.Encode(signature),
		SignatureType:  "ETH_SIGN",
		SubmissionDate: time.Now().UTC(),
	})

	return nil
}

// ExecuteApprove submits the primary transaction to the wallet's execute
// entry point once enough approvals have accumulated.
func (p *Proposal) ExecuteApprove(ctx context.Context, signer Signer) (common.Hash, error) {
	if uint64(len(p.Approvals)) < p.Threshold {
		return common.Hash{}, fmt.Errorf("%w: have %d of %d approvals", ErrInsufficientVotes, len(p.Approvals), p.Threshold)
	}
	if !p.pod.IsMember(signer.Address()) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotAMember, signer.Address().Hex())
	}

	return p.execute(ctx, signer, p.safeTx)
}

// ExecuteReject executes the reject companion, consuming the proposal's
// nonce without performing its action. On a sub-proposal it instead resolves
// to the referenced super-proposal.
func (p *Proposal) ExecuteReject(ctx context.Context, signer Signer) (common.Hash, error) {
	if p.IsSubProposal() {
		return p.executeSuperProposal(ctx, signer)
	}

	if p.rejectTx == nil {
		return common.Hash{}, fmt.Errorf("proposal %d has no reject transaction", p.Nonce)
	}
	if uint64(len(p.Rejections)) < p.Threshold {
		return common.Hash{}, fmt.Errorf("%w: have %d of %d rejections", ErrInsufficientVotes, len(p.Rejections), p.Threshold)
	}
	if !p.pod.IsMember(signer.Address()) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotAMember, signer.Address().Hex())
	}

	return p.execute(ctx, signer, p.rejectTx)
}

// SuperProposalHash extracts the super-proposal hash a sub-proposal
// ratifies, taken from the decoded approve-hash parameter.
func (p *Proposal) SuperProposalHash() (common.Hash, error) {
	if !p.IsSubProposal() {
		return common.Hash{}, fmt.Errorf("proposal %d is not a sub-proposal", p.Nonce)
	}
	if p.safeTx.DataDecoded == nil {
		return common.Hash{}, fmt.Errorf("sub-proposal %d has no decoded call data", p.Nonce)
	}

	value, ok := p.safeTx.DataDecoded.Param("hashToApprove")
	if !ok {
		return common.Hash{}, fmt.Errorf("sub-proposal %d is missing the hashToApprove parameter", p.Nonce)
	}

	return common.HexToHash(value), nil
}

// executeSuperProposal resolves a sub-proposal to the super-pod transaction
// it ratifies and executes that transaction, not the sub-proposal itself.
func (p *Proposal) executeSuperProposal(ctx context.Context, signer Signer) (common.Hash, error) {
	if !p.pod.IsMember(signer.Address()) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotAMember, signer.Address().Hex())
	}

	superHash, err := p.SuperProposalHash()
	if err != nil {
		return common.Hash{}, err
	}

	superTx, err := p.client.relay.GetTransaction(ctx, superHash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch super-proposal %s: %w", superHash.Hex(), err)
	}

	if uint64(len(superTx.Confirmations)) < superTx.ConfirmationsRequired {
		return common.Hash{}, fmt.Errorf("%w: super-proposal has %d of %d confirmations",
			ErrInsufficientVotes, len(superTx.Confirmations), superTx.ConfirmationsRequired)
	}

	return p.execute(ctx, signer, superTx)
}

// ApproveFromSubPod ratifies this proposal on behalf of a sub-pod: it
// creates an approve-hash transaction on the sub-pod's own wallet carrying
// this proposal's canonical hash. Sub-pod members then drive that proposal
// like any other; executing it registers the sub-pod wallet's approval.
func (p *Proposal) ApproveFromSubPod(ctx context.Context, subPod *Pod, signer Signer) error {
	if err := p.checkSubPod(ctx, subPod, signer); err != nil {
		return err
	}

	data, err := p.client.wallet.PackApproveHash(p.SafeTxHash)
	if err != nil {
		return err
	}

	_, err = p.client.createSafeTransaction(ctx, safeTxDraft{
		Safe:  subPod.SafeAddress,
		To:    p.pod.SafeAddress,
		Value: "0",
		Data:  data,
	}, signer)
	if err != nil {
		return fmt.Errorf("failed to create sub-pod approval: %w", err)
	}

	return nil
}

// RejectFromSubPod ratifies this proposal's rejection on behalf of a
// sub-pod. The reject companion is created first if it does not exist yet;
// the sub-pod then ratifies the companion's hash instead of the primary's.
func (p *Proposal) RejectFromSubPod(ctx context.Context, subPod *Pod, signer Signer) error {
	if err := p.checkSubPod(ctx, subPod, signer); err != nil {
		return err
	}

	if p.rejectTx == nil {
		nonce := p.Nonce
		stored, err := p.client.createSafeTransaction(ctx, safeTxDraft{
			Safe:  p.pod.SafeAddress,
			To:    p.pod.SafeAddress,
			Value: "0",
			Nonce: &nonce,
		}, signer)
		if err != nil {
			return fmt.Errorf("failed to create reject transaction: %w", err)
		}
		p.rejectTx = stored
		p.Rejections = confirmationOwners(stored.Confirmations)
	}

	data, err := p.client.wallet.PackApproveHash(common.HexToHash(p.rejectTx.SafeTxHash))
	if err != nil {
		return err
	}

	_, err = p.client.createSafeTransaction(ctx, safeTxDraft{
		Safe:  subPod.SafeAddress,
		To:    p.pod.SafeAddress,
		Value: "0",
		Data:  data,
	}, signer)
	if err != nil {
		return fmt.Errorf("failed to create sub-pod rejection: %w", err)
	}

	return nil
}

// checkSubPod validates the nested-ratification preconditions: the sub-pod's
// wallet is a member of this pod, and the signer is a member of the sub-pod.
// Membership of the sub-pod wallet is checked on-chain, and the signer's
// membership is re-read from the subgraph bypassing the cache; vote
// eligibility must not rest on the Pod snapshot or a cached set.
func (p *Proposal) checkSubPod(ctx context.Context, subPod *Pod, signer Signer) error {
	isMember, err := p.client.registry.HasMembership(ctx, subPod.SafeAddress, p.pod.ID)
	if err != nil {
		return fmt.Errorf("failed to check sub-pod membership: %w", err)
	}
	if !isMember {
		return fmt.Errorf("%w: pod %d wallet %s is not a member of pod %d",
			ErrNotAMember, subPod.ID, subPod.SafeAddress.Hex(), p.pod.ID)
	}

	members, err := p.client.members.PodMembers(ctx, subPod.ID, graph.NoCache())
	if err != nil {
		return fmt.Errorf("failed to refresh members of pod %d: %w", subPod.ID, err)
	}
	if !lo.Contains(members, signer.Address()) {
		return fmt.Errorf("%w: %s is not a member of pod %d", ErrNotAMember, signer.Address().Hex(), subPod.ID)
	}
	return nil
}

// execute assembles the signature blob and submits the record to its
// wallet's execute entry point, marking the proposal executed locally.
func (p *Proposal) execute(ctx context.Context, signer Signer, record *relay.MultisigTransaction) (common.Hash, error) {
	signatures, err := assembleSignatures(record.Confirmations)
	if err != nil {
		return common.Hash{}, err
	}

	params, err := execParams(record, signatures)
	if err != nil {
		return common.Hash{}, err
	}

	txHash, err := p.client.wallet.ExecTransaction(ctx, signer, common.HexToAddress(record.Safe), params)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to execute transaction %s: %w", record.SafeTxHash, err)
	}

	p.executed = true
	return txHash, nil
}

// assembleSignatures concatenates the raw signatures in ascending order of
// lowercase owner address, the ordering the wallet contract's signature
// verification requires.
func assembleSignatures(confirmations []relay.Confirmation) ([]byte, error) {
	sorted := make([]relay.Confirmation, len(confirmations))
	copy(sorted, confirmations)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Owner) < strings.ToLower(sorted[j].Owner)
	})

	var blob strings.Builder
	for _, confirmation := range sorted {
		blob.WriteString(strings.TrimPrefix(confirmation.Signature, "0x"))
	}

	signatures, err := hexutil.Decode("0x" + blob.String())
	if err != nil {
		return nil, fmt.Errorf("malformed confirmation signature: %w", err)
	}
	return signatures, nil
}

// execParams converts a relay record into the wallet's execTransaction
// parameter set.
func execParams(record *relay.MultisigTransaction, signatures []byte) (contracts.ExecParams, error) {
	value, ok := new(big.Int).SetString(record.Value, 10)
	if !ok {
		return contracts.ExecParams{}, fmt.Errorf("invalid transaction value %q", record.Value)
	}

	var data []byte
	if record.Data != nil && *record.Data != "" {
		var err error
		data, err = hexutil.Decode(*record.Data)
		if err != nil {
			return contracts.ExecParams{}, fmt.Errorf("invalid transaction data: %w", err)
		}
	}

	gasPrice := big.NewInt(0)
	if record.GasPrice != "" {
		if _, ok := gasPrice.SetString(record.GasPrice, 10); !ok {
			return contracts.ExecParams{}, fmt.Errorf("invalid gas price %q", record.GasPrice)
		}
	}

	params := contracts.ExecParams{
		To:         common.HexToAddress(record.To),
		Value:      value,
		Data:       data,
		Operation:  uint8(record.Operation),
		SafeTxGas:  new(big.Int).SetUint64(record.SafeTxGas),
		BaseGas:    new(big.Int).SetUint64(record.BaseGas),
		GasPrice:   gasPrice,
		Signatures: signatures,
	}
	if record.GasToken != nil {
		params.GasToken = common.HexToAddress(*record.GasToken)
	}
	if record.RefundReceiver != nil {
		params.RefundReceiver = common.HexToAddress(*record.RefundReceiver)
	}

	return params, nil
}
