package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/keccak256"
	"golang.org/x/crypto/sha3"

	bridgenodeCommon "github.com/rwabridge/bridgenode/common"
)

// TransferIntent is a bridge request initiated on the source chain. Its id is
// deterministic: replaying the same intent yields the same id, which is what
// makes relaying and minting idempotent downstream.
type TransferIntent struct {
	TransferID       common.Hash    `meddler:"transfer_id,hash"`
	SourceChain      uint32         `meddler:"source_chain"`
	DestinationChain uint32         `meddler:"destination_chain"`
	AssetContract    common.Address `meddler:"asset_contract,address"`
	Sender           common.Address `meddler:"sender,address"`
	Recipient        common.Address `meddler:"recipient,address"`
	AssetIDs         []*big.Int     `meddler:"asset_ids,assetids"`
	Nonce            uint64         `meddler:"nonce"`
}

// ID computes the deterministic identifier of the intent. The asset batch is
// reduced to a digest first so the id stays fixed size regardless of the
// batch size, then hashed together with the canonical big endian encoding of
// every routing field and the source side nonce.
func (t *TransferIntent) ID() common.Hash {
	return common.BytesToHash(keccak256.Hash(
		bridgenodeCommon.Uint32ToBytes(t.SourceChain),
		bridgenodeCommon.Uint32ToBytes(t.DestinationChain),
		t.AssetContract.Bytes(),
		t.Sender.Bytes(),
		t.Recipient.Bytes(),
		bridgenodeCommon.Uint64ToBytes(t.Nonce),
		assetBatchDigest(t.AssetIDs),
	))
}

// assetBatchDigest hashes the ordered asset ids, each encoded as a 32 byte
// big endian word
func assetBatchDigest(assetIDs []*big.Int) []byte {
	hasher := sha3.NewLegacyKeccak256()
	word := [32]byte{}
	for _, assetID := range assetIDs {
		assetID.FillBytes(word[:])
		hasher.Write(word[:])
	}
	return hasher.Sum(nil)
}
