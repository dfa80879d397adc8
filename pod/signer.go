package pod

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces confirmations over proposal hashes and signs Ethereum
// transactions for on-chain execution.
type Signer interface {
	Address() common.Address

	// SignHash signs a canonical transaction hash in the form the relay
	// accepts for off-chain signer confirmations.
	SignHash(hash common.Hash) ([]byte, error)

	// SignTx signs an Ethereum transaction for submission to the chain.
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// PrivateKeySigner signs with an in-memory secp256k1 key.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeySigner creates a signer from a hex-encoded private key, with
// or without 0x prefix.
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignHash signs the hash eth_sign style (personal message prefix, recovery
// byte offset by 31), the signature type the wallet contract recognizes for
// off-chain owner confirmations.
func (s *PrivateKeySigner) SignHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	// crypto.Sign yields v in {0,1}; the wallet expects 27+4 for eth_sign.
	sig[crypto.RecoveryIDOffset] += 31

	return sig, nil
}

func (s *PrivateKeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

var _ Signer = (*PrivateKeySigner)(nil)
