// Package pod is the core of the SDK: resolving pods (on-chain membership
// groups backed by a multisig wallet), tracking their membership, and
// driving multi-party proposals from creation through approval or rejection
// to execution.
package pod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/orcaprotocol/orca-go/config"
	"github.com/orcaprotocol/orca-go/internal/contracts"
	"github.com/orcaprotocol/orca-go/internal/ens"
	"github.com/orcaprotocol/orca-go/internal/graph"
	"github.com/orcaprotocol/orca-go/internal/logging"
	"github.com/orcaprotocol/orca-go/pkg/etherscan"
	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// Client is the entry point of the SDK. It holds the configured collaborator
// clients and produces Pod handles.
type Client struct {
	cfg *config.Config
	log *slog.Logger

	relay    relayService
	wallet   walletService
	registry registryService
	naming   namingService
	members  memberSource
	abis     abiSource
}

// NewClient dials the configured RPC endpoint and wires up all collaborator
// clients. The returned Client is safe for concurrent use; individual
// Proposal values are not.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	wallet, err := contracts.NewSafe(eth)
	if err != nil {
		return nil, err
	}

	registry, err := contracts.NewRegistry(eth, cfg.Contracts.ControllerRegistry, cfg.Contracts.MemberToken)
	if err != nil {
		return nil, err
	}

	naming, err := ens.NewService(eth, cfg.Contracts.ENSRegistry)
	if err != nil {
		return nil, err
	}

	log := logging.NewLogger()

	return &Client{
		cfg:      cfg,
		log:      log,
		relay:    relay.NewClient(cfg.RelayURL),
		wallet:   wallet,
		registry: registry,
		naming:   naming,
		members:  graph.NewClient(cfg.SubgraphURL, log),
		abis:     etherscan.NewClient(cfg.EtherscanURL, cfg.EtherscanAPIKey),
	}, nil
}

// GetPod resolves a pod by its registry id. Returns (nil, nil) when no pod
// exists under that id, so batch lookups can filter silently.
func (c *Client) GetPod(ctx context.Context, id uint64) (*Pod, error) {
	controller, err := c.registry.Controller(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve controller for pod %d: %w", id, err)
	}
	if controller == (common.Address{}) {
		return nil, nil
	}

	var (
		admin common.Address
		safe  common.Address
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		admin, err = c.registry.PodAdmin(gctx, controller, id)
		return err
	})
	g.Go(func() error {
		var err error
		safe, err = c.registry.PodSafe(gctx, controller, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve pod %d: %w", id, err)
	}

	if safe == (common.Address{}) {
		return nil, nil
	}

	threshold, err := c.wallet.Threshold(ctx, safe)
	if err != nil {
		return nil, fmt.Errorf("failed to read threshold of pod %d: %w", id, err)
	}

	members, err := c.members.PodMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve members of pod %d: %w", id, err)
	}
	if len(members) == 0 {
		// The subgraph can lag behind the chain; the wallet owners are the
		// authoritative membership set.
		members, err = c.wallet.Owners(ctx, safe)
		if err != nil {
			return nil, fmt.Errorf("failed to read owners of pod %d: %w", id, err)
		}
	}

	// A missing name is fine; naming failures must not sink pod resolution.
	name, err := c.naming.Name(ctx, safe)
	if err != nil {
		c.log.Debug("reverse name lookup failed", "safe", safe.Hex(), "err", err)
		name = ""
	}

	return &Pod{
		ID:          id,
		SafeAddress: safe,
		Name:        name,
		Admin:       admin,
		Threshold:   threshold,
		members:     members,
		client:      c,
	}, nil
}

// GetPodByAddress resolves a pod by its wallet address via the naming layer.
// Returns (nil, nil) when the address is not a pod wallet.
func (c *Client) GetPodByAddress(ctx context.Context, address common.Address) (*Pod, error) {
	name, err := c.naming.Name(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse-resolve %s: %w", address.Hex(), err)
	}
	if name == "" {
		return nil, nil
	}

	id, ok, err := c.naming.PodID(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read pod id of %q: %w", name, err)
	}
	if !ok {
		return nil, nil
	}

	pod, err := c.GetPod(ctx, id)
	if err != nil {
		return nil, err
	}
	// Guard against stale reverse records pointing at a different pod.
	if pod != nil && pod.SafeAddress != address {
		return nil, nil
	}
	return pod, nil
}

// GetPodByName resolves a pod by its human-readable name. Returns (nil, nil)
// when the name does not resolve to a pod.
func (c *Client) GetPodByName(ctx context.Context, name string) (*Pod, error) {
	id, ok, err := c.naming.PodID(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read pod id of %q: %w", name, err)
	}
	if !ok {
		return nil, nil
	}

	pod, err := c.GetPod(ctx, id)
	if err != nil || pod == nil {
		return pod, err
	}

	// Guard against stale name records whose address points elsewhere.
	resolved, err := c.naming.Address(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	if resolved != (common.Address{}) && resolved != pod.SafeAddress {
		return nil, nil
	}
	return pod, nil
}

// GetUserPods resolves every pod an address is a member of. Addresses that
// are not in any pod yield an empty slice.
func (c *Client) GetUserPods(ctx context.Context, address common.Address) ([]*Pod, error) {
	ids, err := c.members.UserPodIDs(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pods of %s: %w", address.Hex(), err)
	}

	pods := make([]*Pod, 0, len(ids))
	for _, id := range ids {
		pod, err := c.GetPod(ctx, id)
		if err != nil {
			return nil, err
		}
		if pod != nil {
			pods = append(pods, pod)
		}
	}
	return pods, nil
}
