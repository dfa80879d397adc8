// Package graph queries the membership subgraph, the fast lookup path for
// pod member sets. Results are cached briefly; every lookup can bypass the
// cache when freshness matters more than latency.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shurcooL/graphql"
)

// defaultTTL bounds how long a membership set may be served from cache.
// Long enough to dedupe the lookups within one pod resolution, short enough
// to avoid serving stale membership.
const defaultTTL = time.Minute

type options struct {
	noCache bool
}

// Option adjusts a single lookup.
type Option func(*options)

// NoCache forces the lookup to skip the cache and hit the subgraph.
func NoCache() Option {
	return func(o *options) { o.noCache = true }
}

// BypassesCache reports whether the option set skips the cache.
func BypassesCache(opts ...Option) bool {
	return apply(opts).noCache
}

// Client is the subgraph client.
type Client struct {
	gql      *graphql.Client
	members  *cache.Cache[uint64, []common.Address]
	userPods *cache.Cache[string, []uint64]
	ttl      time.Duration
	log      *slog.Logger
}

// NewClient creates a subgraph client for the given endpoint.
func NewClient(subgraphURL string, log *slog.Logger) *Client {
	return &Client{
		gql:      graphql.NewClient(subgraphURL, nil),
		members:  cache.New[uint64, []common.Address](),
		userPods: cache.New[string, []uint64](),
		ttl:      defaultTTL,
		log:      log.With("component", "graph"),
	}
}

// PodMembers returns the member addresses of a pod. An unknown pod yields an
// empty set, not an error.
func (c *Client) PodMembers(ctx context.Context, podID uint64, opts ...Option) ([]common.Address, error) {
	o := apply(opts)

	if !o.noCache {
		if members, ok := c.members.Get(podID); ok {
			return members, nil
		}
	}

	var query struct {
		Pod *struct {
			Users []struct {
				ID graphql.String `graphql:"id"`
			} `graphql:"users"`
		} `graphql:"pod(id: $id)"`
	}
	vars := map[string]any{
		"id": graphql.ID(strconv.FormatUint(podID, 10)),
	}

	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("subgraph member lookup for pod %d failed: %w", podID, err)
	}

	if query.Pod == nil {
		return nil, nil
	}

	members := make([]common.Address, 0, len(query.Pod.Users))
	for _, u := range query.Pod.Users {
		members = append(members, common.HexToAddress(string(u.ID)))
	}

	c.members.Set(podID, members, cache.WithExpiration(c.ttl))
	c.log.Debug("resolved pod members", "podId", podID, "count", len(members))

	return members, nil
}

// UserPodIDs returns the ids of every pod the address is a member of.
func (c *Client) UserPodIDs(ctx context.Context, address common.Address, opts ...Option) ([]uint64, error) {
	o := apply(opts)
	key := strings.ToLower(address.Hex())

	if !o.noCache {
		if ids, ok := c.userPods.Get(key); ok {
			return ids, nil
		}
	}

	var query struct {
		User *struct {
			Pods []struct {
				ID graphql.String `graphql:"id"`
			} `graphql:"pods"`
		} `graphql:"user(id: $id)"`
	}
	vars := map[string]any{
		"id": graphql.ID(key),
	}

	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("subgraph pod lookup for %s failed: %w", address.Hex(), err)
	}

	if query.User == nil {
		return nil, nil
	}

	ids := make([]uint64, 0, len(query.User.Pods))
	for _, p := range query.User.Pods {
		id, err := strconv.ParseUint(string(p.ID), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("subgraph returned invalid pod id %q: %w", p.ID, err)
		}
		ids = append(ids, id)
	}

	c.userPods.Set(key, ids, cache.WithExpiration(c.ttl))

	return ids, nil
}

func apply(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
