package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/ethereum/go-ethereum/common"
	configTypes "github.com/rwabridge/bridgenode/config/types"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/ratelimiter"
	"github.com/rwabridge/bridgenode/rpc/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AdminEndpoints contains implementations for the "admin" RPC endpoints.
// These are operator interventions, the server is expected to only expose
// them on a trusted interface.
type AdminEndpoints struct {
	logger       *log.Logger
	meter        metric.Meter
	writeTimeout time.Duration
	source       Sourcer
	destination  Destinationer
}

// NewAdminEndpoints returns AdminEndpoints
func NewAdminEndpoints(
	logger *log.Logger,
	writeTimeout time.Duration,
	source Sourcer,
	destination Destinationer,
) *AdminEndpoints {
	meter := otel.Meter(meterName)
	return &AdminEndpoints{
		logger:       logger,
		meter:        meter,
		writeTimeout: writeTimeout,
		source:       source,
		destination:  destination,
	}
}

func (a *AdminEndpoints) count(ctx context.Context, name string) {
	c, merr := a.meter.Int64Counter(name)
	if merr != nil {
		a.logger.Warnf("failed to create %s counter: %s", name, merr)
		return
	}
	c.Add(ctx, 1)
}

func (a *AdminEndpoints) pausedStatus() types.PausedStatus {
	status := types.PausedStatus{}
	if a.source != nil {
		paused := a.source.IsPaused()
		status.Source = &paused
	}
	if a.destination != nil {
		paused := a.destination.IsPaused()
		status.Destination = &paused
	}
	return status
}

// Pause stops both bridge sides run by this node from accepting requests
func (a *AdminEndpoints) Pause() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_pause")

	if a.source != nil {
		a.source.Pause()
	}
	if a.destination != nil {
		a.destination.Pause()
	}
	return a.pausedStatus(), nil
}

// Unpause resumes both bridge sides run by this node
func (a *AdminEndpoints) Unpause() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_unpause")

	if a.source != nil {
		a.source.Unpause()
	}
	if a.destination != nil {
		a.destination.Unpause()
	}
	return a.pausedStatus(), nil
}

// SetRateLimit replaces the source side rate limiter configuration
func (a *AdminEndpoints) SetRateLimit(cfg types.RateLimitConfig) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_set_rate_limit")

	if a.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	a.source.SetRateLimit(ratelimiter.Config{
		Window:       configTypes.NewDuration(time.Duration(cfg.WindowSeconds) * time.Second),
		MaxPerWindow: cfg.MaxPerWindow,
	})
	return a.getRateLimit(), nil
}

// GetRateLimit returns the source side rate limiter configuration
func (a *AdminEndpoints) GetRateLimit() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_get_rate_limit")

	if a.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	return a.getRateLimit(), nil
}

func (a *AdminEndpoints) getRateLimit() types.RateLimitConfig {
	cfg := a.source.GetRateLimit()
	return types.RateLimitConfig{
		WindowSeconds: uint64(cfg.Window.Duration / time.Second),
		MaxPerWindow:  cfg.MaxPerWindow,
	}
}

// SetRequiredApprovals changes the destination side quorum size
func (a *AdminEndpoints) SetRequiredApprovals(n uint32) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_set_required_approvals")

	if a.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	if err := a.destination.SetRequiredApprovals(n); err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to set required approvals, error: %s", err))
	}
	return a.destination.RequiredApprovals(), nil
}

// GrantRelayer authorizes an address to attest transfers
func (a *AdminEndpoints) GrantRelayer(addr common.Address) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_grant_relayer")

	if a.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	a.destination.GrantRelayer(addr)
	return a.destination.ListRelayers(), nil
}

// RevokeRelayer removes an address from the relayer set
func (a *AdminEndpoints) RevokeRelayer(addr common.Address) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_revoke_relayer")

	if a.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	if err := a.destination.RevokeRelayer(addr); err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to revoke relayer %s, error: %s", addr, err))
	}
	return a.destination.ListRelayers(), nil
}

// ListRelayers returns the relayer set
func (a *AdminEndpoints) ListRelayers() (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_list_relayers")

	if a.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	return a.destination.ListRelayers(), nil
}

// DiscardTransfer marks a stuck transfer as processed without minting
func (a *AdminEndpoints) DiscardTransfer(transferID common.Hash) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_discard_transfer")

	if a.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	if err := a.destination.DiscardTransfer(ctx, transferID); err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to discard transfer %s, error: %s", transferID, err))
	}
	return transferID, nil
}

// ReleaseEscrow hands locked assets back to the given recipient
func (a *AdminEndpoints) ReleaseEscrow(req types.ReleaseEscrowRequest) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	a.count(ctx, "admin_release_escrow")

	if a.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	if err := a.source.ReleaseEscrow(ctx, req.AssetContract, req.AssetIDs, req.Recipient); err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to release escrow, error: %s", err))
	}
	return req.AssetIDs, nil
}
