package pod

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// submissionOrigin tags transactions proposed through this SDK.
const submissionOrigin = "orca-go"

// safeTxDraft describes a transaction to be proposed on a pod's wallet.
type safeTxDraft struct {
	Safe  common.Address
	To    common.Address
	Value string
	Data  []byte

	// Nonce pins the wallet nonce. Nil means "next": the latest relay nonce
	// plus one, or zero for a wallet with no history.
	Nonce *uint64
}

// createSafeTransaction builds and submits the canonical transaction payload
// and immediately attaches the submitting signer's confirmation. The nonce,
// threshold and gas estimate are mutually independent and fetched
// concurrently; everything after depends on their results, so any failure
// aborts the construction with nothing considered submitted.
func (c *Client) createSafeTransaction(ctx context.Context, draft safeTxDraft, signer Signer) (*relay.MultisigTransaction, error) {
	if draft.Value == "" {
		draft.Value = "0"
	}

	var dataHex *string
	if len(draft.Data) > 0 {
		encoded := hexutil.Encode(draft.Data)
		dataHex = &encoded
	}

	var (
		nonce     uint64
		threshold uint64
		safeTxGas uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if draft.Nonce != nil {
			nonce = *draft.Nonce
			return nil
		}
		latest, err := c.relay.GetTransactions(gctx, draft.Safe, relay.Filter{Limit: 1})
		if err != nil {
			return fmt.Errorf("failed to resolve next nonce: %w", err)
		}
		if len(latest) > 0 {
			nonce = latest[0].Nonce + 1
		}
		return nil
	})
	g.Go(func() error {
		var err error
		threshold, err = c.wallet.Threshold(gctx, draft.Safe)
		if err != nil {
			return fmt.Errorf("failed to resolve threshold: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		safeTxGas, err = c.relay.EstimateSafeTxGas(gctx, draft.Safe, &relay.EstimateRequest{
			To:        draft.To,
			Value:     draft.Value,
			Data:      dataHex,
			Operation: 0,
		})
		if err != nil {
			return fmt.Errorf("failed to estimate gas: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	req := &relay.SubmitRequest{
		Safe:      draft.Safe,
		To:        draft.To,
		Value:     draft.Value,
		Data:      dataHex,
		Operation: 0,
		SafeTxGas: safeTxGas,
		BaseGas:   0,
		GasPrice:  "0",
		Nonce:     nonce,
		Sender:    signer.Address(),
		Origin:    submissionOrigin,
	}

	hash, err := c.relay.ComputeHash(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to compute transaction hash: %w", err)
	}
	req.ContractTransactionHash = hash.Hex()

	signature, err := signer.SignHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction hash: %w", err)
	}

	stored, err := c.relay.SubmitTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	if err := c.relay.AddConfirmation(ctx, hash, signature); err != nil {
		return nil, fmt.Errorf("failed to confirm submitted transaction: %w", err)
	}

	// The read-back may predate the confirmation; reflect it locally.
	sender := signer.Address()
	confirmed := lo.ContainsBy(stored.Confirmations, func(conf relay.Confirmation) bool {
		return common.HexToAddress(conf.Owner) == sender
	})
	if !confirmed {
		stored.Confirmations = append(stored.Confirmations, relay.Confirmation{
			Owner:         sender.Hex(),
			Signature:     hexutil.Encode(signature),
			SignatureType: "ETH_SIGN",
		})
	}
	if stored.ConfirmationsRequired == 0 {
		stored.ConfirmationsRequired = threshold
	}

	return stored, nil
}
