package pod

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrivateKeySigner(t *testing.T) {
	// Well-known anvil development key.
	signer, err := NewPrivateKeySigner("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	t.Run("derives the owner address", func(t *testing.T) {
		assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), signer.Address())
	})

	t.Run("produces an eth_sign style confirmation signature", func(t *testing.T) {
		hash := common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")
		sig, err := signer.SignHash(hash)
		require.NoError(t, err)

		require.Len(t, sig, 65)
		v := sig[crypto.RecoveryIDOffset]
		assert.Contains(t, []byte{31, 32}, v)

		// The signature must recover against the prefixed message hash
		// once the eth_sign marker is stripped.
		recoverable := make([]byte, 65)
		copy(recoverable, sig)
		recoverable[crypto.RecoveryIDOffset] -= 31
		pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), recoverable)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
	})
}
