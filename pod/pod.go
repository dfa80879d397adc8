package pod

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// Pod is one on-chain membership group: a multisig wallet plus its
// membership metadata. Pods are immutable snapshots produced by the Client
// factories; re-resolve to observe membership changes.
type Pod struct {
	// ID is the registry-assigned identifier, immutable once assigned.
	ID uint64

	// SafeAddress is the underlying multisig wallet, 1:1 with ID.
	SafeAddress common.Address

	// Name is the resolved human-readable name; empty when absent.
	Name string

	// Admin is the controlling entity; the zero address means self-governed.
	Admin common.Address

	// Threshold is the wallet's confirmation requirement.
	Threshold uint64

	members []common.Address
	client  *Client
}

// Members returns the resolved membership set.
func (p *Pod) Members() []common.Address {
	out := make([]common.Address, len(p.members))
	copy(out, p.members)
	return out
}

// IsMember reports whether the address is in the pod's membership set. A
// sub-pod's wallet address counts as a member like any other address.
func (p *Pod) IsMember(address common.Address) bool {
	return lo.Contains(p.members, address)
}

// IsAdmin reports whether the address is the pod's admin.
func (p *Pod) IsAdmin(address common.Address) bool {
	return p.Admin != (common.Address{}) && address == p.Admin
}

// IsAdminPodMember reports whether the address is a member of the pod acting
// as this pod's admin. One hop only, never recursive.
func (p *Pod) IsAdminPodMember(ctx context.Context, address common.Address) (bool, error) {
	if p.Admin == (common.Address{}) {
		return false, nil
	}

	adminPod, err := p.client.GetPodByAddress(ctx, p.Admin)
	if err != nil {
		return false, fmt.Errorf("failed to resolve admin pod of pod %d: %w", p.ID, err)
	}
	if adminPod == nil {
		return false, nil
	}
	return adminPod.IsMember(address), nil
}

// IsSubPodMember reports whether the address is a member of any pod whose
// wallet is itself a member of this pod. One hop only; deeper structure is
// handled explicitly by the sub-proposal ratification protocol.
func (p *Pod) IsSubPodMember(ctx context.Context, address common.Address) (bool, error) {
	for _, member := range p.members {
		subPod, err := p.client.GetPodByAddress(ctx, member)
		if err != nil {
			return false, fmt.Errorf("failed to resolve sub-pod %s: %w", member.Hex(), err)
		}
		if subPod != nil && subPod.IsMember(address) {
			return true, nil
		}
	}
	return false, nil
}

// ProposalFilter selects which proposals GetProposals returns.
type ProposalFilter int

const (
	// ProposalsActive returns only the proposal next in line for execution,
	// if any.
	ProposalsActive ProposalFilter = iota

	// ProposalsQueued returns the active proposal plus the ones queued
	// behind it.
	ProposalsQueued

	// ProposalsAll additionally includes already executed proposals, most
	// recent first.
	ProposalsAll
)

// allProposalsLimit caps the relay page when listing executed history.
const allProposalsLimit = 50

// GetProposals fetches the pod's proposals from the relay. Reject companion
// transactions are folded into their primary proposal, never returned on
// their own. Results are ordered by descending nonce.
func (p *Pod) GetProposals(ctx context.Context, filter ProposalFilter) ([]*Proposal, error) {
	walletNonce, err := p.client.wallet.Nonce(ctx, p.SafeAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet nonce: %w", err)
	}

	var relayFilter relay.Filter
	switch filter {
	case ProposalsActive, ProposalsQueued:
		nonce := walletNonce
		relayFilter.NonceGTE = &nonce
	case ProposalsAll:
		relayFilter.Limit = allProposalsLimit
	default:
		return nil, fmt.Errorf("unknown proposal filter %d", filter)
	}

	records, err := p.client.relay.GetTransactions(ctx, p.SafeAddress, relayFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for pod %d: %w", p.ID, err)
	}

	byNonce := make(map[uint64][]relay.MultisigTransaction)
	for _, record := range records {
		byNonce[record.Nonce] = append(byNonce[record.Nonce], record)
	}

	nonces := lo.Keys(byNonce)
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] > nonces[j] })

	proposals := make([]*Proposal, 0, len(nonces))
	for _, nonce := range nonces {
		if filter == ProposalsActive && nonce != walletNonce {
			continue
		}
		proposals = append(proposals, p.buildProposal(ctx, byNonce[nonce]))
	}

	return proposals, nil
}

// buildProposal pairs a primary transaction with its same-nonce reject
// companion and projects them into a Proposal.
func (p *Pod) buildProposal(ctx context.Context, group []relay.MultisigTransaction) *Proposal {
	// Stable pairing regardless of relay ordering.
	sort.Slice(group, func(i, j int) bool {
		return group[i].SubmissionDate.Before(group[j].SubmissionDate)
	})

	// The primary is the earliest leg that does not look like a reject
	// companion. A directly-created nonce cancel can predate the real
	// transaction at the same nonce, so submission order alone is not
	// enough; only when every leg is reject-shaped does the earliest win.
	primary := &group[0]
	for i := range group {
		if !p.isRejectShape(&group[i]) {
			primary = &group[i]
			break
		}
	}
	var reject *relay.MultisigTransaction
	for i := range group {
		if &group[i] == primary {
			continue
		}
		if p.isRejectShape(&group[i]) {
			reject = &group[i]
			break
		}
	}

	p.client.AttachDecodedCall(ctx, primary)

	threshold := primary.ConfirmationsRequired
	if threshold == 0 {
		threshold = p.Threshold
	}

	proposal := &Proposal{
		Nonce:      primary.Nonce,
		Threshold:  threshold,
		Value:      primary.Value,
		Timestamp:  primary.SubmissionDate,
		SafeTxHash: common.HexToHash(primary.SafeTxHash),
		Approvals:  confirmationOwners(primary.Confirmations),
		pod:        p,
		client:     p.client,
		safeTx:     primary,
		rejectTx:   reject,
	}

	if primary.DataDecoded != nil {
		proposal.Method = primary.DataDecoded.Method
		proposal.Parameters = primary.DataDecoded.Parameters
	}
	if reject != nil {
		proposal.Rejections = confirmationOwners(reject.Confirmations)
	}

	return proposal
}

// isRejectShape recognizes the companion transaction a rejection creates: a
// call-data-free self-call consuming the shared nonce.
func (p *Pod) isRejectShape(record *relay.MultisigTransaction) bool {
	if record.Data != nil && *record.Data != "" && *record.Data != "0x" {
		return false
	}
	return common.HexToAddress(record.To) == p.SafeAddress && record.Value == "0"
}

func confirmationOwners(confirmations []relay.Confirmation) []common.Address {
	return lo.Map(confirmations, func(c relay.Confirmation, _ int) common.Address {
		return common.HexToAddress(c.Owner)
	})
}
