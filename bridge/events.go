package bridge

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/log"
)

const subscriberChanBuffer = 100

var (
	// ErrAlreadySubscribed is returned when subscribing twice with the same id
	ErrAlreadySubscribed = errors.New("id already subscribed")
)

// TransferInitiatedEvent is emitted by the source side once the assets of a
// new transfer are locked
type TransferInitiatedEvent struct {
	Intent *TransferIntent
}

// RelayerApprovedEvent is emitted by the destination side for every accepted
// attestation
type RelayerApprovedEvent struct {
	TransferID common.Hash
	Relayer    common.Address
	Count      uint32
}

// WrappedMintedEvent is emitted by the destination side when a transfer
// reaches quorum and its wrapped assets are minted
type WrappedMintedEvent struct {
	TransferID common.Hash
	Recipient  common.Address
	AssetIDs   []*big.Int
}

// Subscription delivers bridge events to a single subscriber. Events are
// dropped if the subscriber does not keep up.
type Subscription struct {
	TransferInitiated chan TransferInitiatedEvent
	RelayerApproved   chan RelayerApprovedEvent
	WrappedMinted     chan WrappedMintedEvent
}

// Broadcaster fans bridge events out to subscribers
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger *log.Logger
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]*Subscription),
		logger: log.WithFields("module", "bridge-events"),
	}
}

// Subscribe registers a subscriber under id
func (b *Broadcaster) Subscribe(id string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; ok {
		return nil, ErrAlreadySubscribed
	}
	sub := &Subscription{
		TransferInitiated: make(chan TransferInitiatedEvent, subscriberChanBuffer),
		RelayerApproved:   make(chan RelayerApprovedEvent, subscriberChanBuffer),
		WrappedMinted:     make(chan WrappedMintedEvent, subscriberChanBuffer),
	}
	b.subs[id] = sub
	return sub, nil
}

// Unsubscribe drops a subscriber and closes its channels
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.TransferInitiated)
	close(sub.RelayerApproved)
	close(sub.WrappedMinted)
}

func (b *Broadcaster) publishTransferInitiated(ev TransferInitiatedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		select {
		case sub.TransferInitiated <- ev:
		default:
			b.logger.Warnf("subscriber %s is not consuming TransferInitiated events, dropping", id)
		}
	}
}

func (b *Broadcaster) publishRelayerApproved(ev RelayerApprovedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		select {
		case sub.RelayerApproved <- ev:
		default:
			b.logger.Warnf("subscriber %s is not consuming RelayerApproved events, dropping", id)
		}
	}
}

func (b *Broadcaster) publishWrappedMinted(ev WrappedMintedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		select {
		case sub.WrappedMinted <- ev:
		default:
			b.logger.Warnf("subscriber %s is not consuming WrappedMinted events, dropping", id)
		}
	}
}
