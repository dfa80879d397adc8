package graph

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subgraphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeSubgraph records queries and serves canned GraphQL responses.
type fakeSubgraph struct {
	server   *httptest.Server
	requests []subgraphRequest
	response string
}

func newFakeSubgraph(t *testing.T, response string) *fakeSubgraph {
	t.Helper()

	f := &fakeSubgraph{response: response}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req subgraphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.requests = append(f.requests, req)
		io.WriteString(w, f.response)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func newClientFor(f *fakeSubgraph) *Client {
	return NewClient(f.server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPodMembers(t *testing.T) {
	memberHex := "0x00000000000000000000000000000000000000ee"

	t.Run("queries the subgraph and caches the result", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"pod":{"users":[{"id":"`+memberHex+`"}]}}}`)
		client := newClientFor(subgraph)

		members, err := client.PodMembers(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, []common.Address{common.HexToAddress(memberHex)}, members)

		require.Len(t, subgraph.requests, 1)
		assert.Contains(t, subgraph.requests[0].Query, "pod(id: $id)")
		assert.Contains(t, subgraph.requests[0].Query, "users{id}")
		assert.Equal(t, "7", subgraph.requests[0].Variables["id"])

		// Second lookup is served from the cache.
		members, err = client.PodMembers(context.Background(), 7)
		require.NoError(t, err)
		assert.Len(t, members, 1)
		assert.Len(t, subgraph.requests, 1)
	})

	t.Run("NoCache forces a fresh query", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"pod":{"users":[{"id":"`+memberHex+`"}]}}}`)
		client := newClientFor(subgraph)

		_, err := client.PodMembers(context.Background(), 7)
		require.NoError(t, err)

		subgraph.response = `{"data":{"pod":{"users":[]}}}`
		members, err := client.PodMembers(context.Background(), 7, NoCache())
		require.NoError(t, err)
		assert.Empty(t, members)
		assert.Len(t, subgraph.requests, 2)
	})

	t.Run("cached entries expire", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"pod":{"users":[{"id":"`+memberHex+`"}]}}}`)
		client := newClientFor(subgraph)
		client.ttl = time.Millisecond

		_, err := client.PodMembers(context.Background(), 7)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = client.PodMembers(context.Background(), 7)
		require.NoError(t, err)
		assert.Len(t, subgraph.requests, 2)
	})

	t.Run("unknown pod yields an empty set", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"pod":null}}`)
		client := newClientFor(subgraph)

		members, err := client.PodMembers(context.Background(), 404)
		require.NoError(t, err)
		assert.Empty(t, members)
	})
}

func TestUserPodIDs(t *testing.T) {
	user := common.HexToAddress("0x00000000000000000000000000000000000000EE")

	t.Run("queries with the lowercase address and caches", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"user":{"pods":[{"id":"1"},{"id":"9"}]}}}`)
		client := newClientFor(subgraph)

		ids, err := client.UserPodIDs(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 9}, ids)

		require.Len(t, subgraph.requests, 1)
		assert.Contains(t, subgraph.requests[0].Query, "user(id: $id)")
		assert.Equal(t, "0x00000000000000000000000000000000000000ee", subgraph.requests[0].Variables["id"])

		_, err = client.UserPodIDs(context.Background(), user)
		require.NoError(t, err)
		assert.Len(t, subgraph.requests, 1)
	})

	t.Run("unknown user yields an empty set", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"user":null}}`)
		client := newClientFor(subgraph)

		ids, err := client.UserPodIDs(context.Background(), user)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("invalid pod id surfaces as an error", func(t *testing.T) {
		subgraph := newFakeSubgraph(t, `{"data":{"user":{"pods":[{"id":"bogus"}]}}}`)
		client := newClientFor(subgraph)

		_, err := client.UserPodIDs(context.Background(), user)
		assert.Error(t, err)
	})
}

func TestBypassesCache(t *testing.T) {
	assert.False(t, BypassesCache())
	assert.True(t, BypassesCache(NoCache()))
}
