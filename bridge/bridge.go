package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrPaused is returned while the bridge side is paused
	ErrPaused = errors.New("bridge is paused")
	// ErrInvalidBatch is returned when the asset batch of a request is malformed
	ErrInvalidBatch = errors.New("invalid asset batch")
	// ErrUnauthorized is returned when the caller is not allowed to attest
	ErrUnauthorized = errors.New("caller is not an authorized relayer")
	// ErrSameChain is returned when source and destination chain are equal
	ErrSameChain = errors.New("destination chain equals source chain")
)

// validateBatch checks that the asset batch is non empty, has no nil or
// duplicated ids and that the recipient is set
func validateBatch(recipient common.Address, assetIDs []*big.Int) error {
	if len(assetIDs) == 0 {
		return fmt.Errorf("empty batch: %w", ErrInvalidBatch)
	}
	if recipient == (common.Address{}) {
		return fmt.Errorf("zero recipient: %w", ErrInvalidBatch)
	}
	seen := make(map[string]struct{}, len(assetIDs))
	for _, assetID := range assetIDs {
		if assetID == nil {
			return fmt.Errorf("nil asset id: %w", ErrInvalidBatch)
		}
		key := assetID.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicated asset id %s: %w", assetID, ErrInvalidBatch)
		}
		seen[key] = struct{}{}
	}
	return nil
}
