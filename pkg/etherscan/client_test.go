package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")

func TestContractABI(t *testing.T) {
	t.Run("parses a verified ABI", func(t *testing.T) {
		abiJSON := `[{"type":"function","name":"nonce","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			assert.Equal(t, "contract", query.Get("module"))
			assert.Equal(t, "getabi", query.Get("action"))
			assert.Equal(t, testContract.Hex(), query.Get("address"))
			assert.Equal(t, "test-key", query.Get("apikey"))

			json.NewEncoder(w).Encode(map[string]string{
				"status": "1", "message": "OK", "result": abiJSON,
			})
		}))
		defer server.Close()

		parsed, err := NewClient(server.URL, "test-key").ContractABI(context.Background(), testContract)
		require.NoError(t, err)
		_, ok := parsed.Methods["nonce"]
		assert.True(t, ok)
	})

	t.Run("maps unverified contracts to ErrNotVerified", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"status": "0", "message": "NOTOK", "result": "Contract source code not verified",
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "").ContractABI(context.Background(), testContract)
		assert.ErrorIs(t, err, ErrNotVerified)
	})

	t.Run("maps throttling to ErrRateLimited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"status": "0", "message": "NOTOK", "result": "Max rate limit reached",
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "").ContractABI(context.Background(), testContract)
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("omits the apikey parameter when unset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("apikey"))
			json.NewEncoder(w).Encode(map[string]string{
				"status": "0", "message": "NOTOK", "result": "Contract source code not verified",
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "").ContractABI(context.Background(), testContract)
		assert.ErrorIs(t, err, ErrNotVerified)
	})

	t.Run("surfaces HTTP failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "").ContractABI(context.Background(), testContract)
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprint(http.StatusBadGateway))
	})
}
