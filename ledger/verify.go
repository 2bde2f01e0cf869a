package ledger

import (
	"fmt"

	"bharote-backend/models"
)

// Reason classifies why a chain failed verification.
type Reason string

const (
	ReasonDigestMismatch Reason = "digest_mismatch"
	ReasonLinkageBroken  Reason = "linkage_broken"
	ReasonSequenceGap    Reason = "sequence_gap"
)

// Report is the outcome of a chain walk. When Valid is false, BlockNumber is
// the first block at which verification failed.
type Report struct {
	Valid         bool   `json:"valid"`
	BlocksChecked int    `json:"blocks_checked"`
	BlockNumber   uint64 `json:"block_number,omitempty"`
	Reason        Reason `json:"reason,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// Verify replays a committed chain, given in ascending block-number order, and
// confirms every block is internally consistent: contiguous numbering from 1,
// back-links matching the prior block's stored hash (or the genesis marker for
// block #1), and a stored digest that recomputation reproduces exactly. It
// stops at the first failure and never attempts repair. An empty chain is
// valid.
func Verify(blocks []models.Block) Report {
	expectedLink := GenesisMarker

	for i := range blocks {
		b := &blocks[i]

		if b.BlockNumber != uint64(i)+1 {
			return Report{
				BlocksChecked: i,
				BlockNumber:   b.BlockNumber,
				Reason:        ReasonSequenceGap,
				Detail:        fmt.Sprintf("expected block number %d, found %d", i+1, b.BlockNumber),
			}
		}

		storedLink := GenesisMarker
		if b.PreviousHash != nil {
			storedLink = *b.PreviousHash
		}
		if storedLink != expectedLink {
			return Report{
				BlocksChecked: i,
				BlockNumber:   b.BlockNumber,
				Reason:        ReasonLinkageBroken,
				Detail:        fmt.Sprintf("previous hash %q does not match prior block digest %q", storedLink, expectedLink),
			}
		}

		recomputed, err := ComputeDigest(b.VoterRef, b.PartyRef, b.Timestamp, storedLink, b.DeviceFingerprint)
		if err != nil {
			return Report{
				BlocksChecked: i,
				BlockNumber:   b.BlockNumber,
				Reason:        ReasonDigestMismatch,
				Detail:        fmt.Sprintf("digest not recomputable: %v", err),
			}
		}
		if recomputed != b.VoteHash {
			return Report{
				BlocksChecked: i,
				BlockNumber:   b.BlockNumber,
				Reason:        ReasonDigestMismatch,
				Detail:        fmt.Sprintf("stored hash %s, recomputed %s", b.VoteHash, recomputed),
			}
		}

		expectedLink = b.VoteHash
	}

	return Report{Valid: true, BlocksChecked: len(blocks)}
}
