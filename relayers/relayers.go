package relayers

import (
	"errors"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/log"
)

var (
	// ErrNotRelayer is returned when revoking an address that is not a member
	ErrNotRelayer = errors.New("address is not a relayer")
)

// Set is the set of addresses authorized to attest transfers on the
// destination side
type Set struct {
	mu      sync.RWMutex
	members map[common.Address]struct{}
	logger  *log.Logger
}

// NewSet returns a Set with the given initial members
func NewSet(initial []common.Address) *Set {
	members := make(map[common.Address]struct{}, len(initial))
	for _, addr := range initial {
		members[addr] = struct{}{}
	}
	return &Set{
		members: members,
		logger:  log.WithFields("module", "relayers"),
	}
}

// Grant adds an address to the set. Granting an existing member is a no-op.
func (s *Set) Grant(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[addr]; ok {
		return
	}
	s.members[addr] = struct{}{}
	s.logger.Infof("relayer %s granted", addr)
}

// Revoke removes an address from the set
func (s *Set) Revoke(addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[addr]; !ok {
		return ErrNotRelayer
	}
	delete(s.members, addr)
	s.logger.Infof("relayer %s revoked", addr)
	return nil
}

// IsRelayer reports whether addr is a member
func (s *Set) IsRelayer(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[addr]
	return ok
}

// List returns the members sorted by address
func (s *Set) List() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]common.Address, 0, len(s.members))
	for addr := range s.members {
		list = append(list, addr)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Hex() < list[j].Hex()
	})
	return list
}
