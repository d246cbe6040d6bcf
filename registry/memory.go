package registry

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// escrowOwner is the sentinel owner recorded while an asset is in custody
var escrowOwner = common.HexToAddress("0x000000000000000000000000000000000000e5c0")

// Memory is an in-process asset registry. It backs local and test
// deployments, production nodes plug their chain specific implementation
// behind the same interfaces.
type Memory struct {
	mu sync.Mutex
	// owners maps asset contract -> asset id -> current owner
	owners map[common.Address]map[string]common.Address
	// wrapped maps wrapped asset id -> owner on the destination side
	wrapped map[string]common.Address
}

func NewMemory() *Memory {
	return &Memory{
		owners:  make(map[common.Address]map[string]common.Address),
		wrapped: make(map[string]common.Address),
	}
}

// Seed registers assets owned by owner on the given contract
func (m *Memory) Seed(assetContract, owner common.Address, assetIDs ...*big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contract, ok := m.owners[assetContract]
	if !ok {
		contract = make(map[string]common.Address)
		m.owners[assetContract] = contract
	}
	for _, assetID := range assetIDs {
		contract[assetID.String()] = owner
	}
}

func (m *Memory) OwnerOf(ctx context.Context, assetContract common.Address, assetID *big.Int) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[assetContract][assetID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown asset %s on contract %s", assetID, assetContract)
	}
	return owner, nil
}

func (m *Memory) TransferToEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int, from common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[assetContract][assetID.String()]
	if !ok {
		return fmt.Errorf("unknown asset %s on contract %s", assetID, assetContract)
	}
	if owner != from {
		return fmt.Errorf("asset %s owned by %s, not %s", assetID, owner, from)
	}
	m.owners[assetContract][assetID.String()] = escrowOwner
	return nil
}

func (m *Memory) TransferFromEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int, to common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[assetContract][assetID.String()]
	if !ok {
		return fmt.Errorf("unknown asset %s on contract %s", assetID, assetContract)
	}
	if owner != escrowOwner {
		return fmt.Errorf("asset %s is not in escrow custody", assetID)
	}
	m.owners[assetContract][assetID.String()] = to
	return nil
}

// Exists reports whether a wrapped asset with the given id has been minted
func (m *Memory) Exists(ctx context.Context, assetID *big.Int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.wrapped[assetID.String()]
	return ok, nil
}

// MintTo mints a wrapped asset to recipient. Minting an existing id fails.
func (m *Memory) MintTo(ctx context.Context, recipient common.Address, assetID *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wrapped[assetID.String()]; ok {
		return fmt.Errorf("wrapped asset %s already minted", assetID)
	}
	m.wrapped[assetID.String()] = recipient
	return nil
}

// WrappedOwnerOf returns the owner of a minted wrapped asset
func (m *Memory) WrappedOwnerOf(assetID *big.Int) (common.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.wrapped[assetID.String()]
	return owner, ok
}
