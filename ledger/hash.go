// Package ledger implements the append-only hash chain behind the vote store:
// digest computation for candidate blocks and replay verification of committed
// chains.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenesisMarker is the previous-digest input for block #1. It is a distinct
// sentinel, not an absent value: a block whose stored previous hash is NULL is
// only valid when it actually is the first block.
const GenesisMarker = "GENESIS"

const preimageDelimiter = "|"

// ComputeDigest derives the vote hash for a candidate block. The preimage is
// the fields joined in a fixed order with a delimiter that no field may
// contain, so no field content can shift the field boundaries:
//
//	voterRef|partyRef|timestamp|previousDigest|deviceFingerprint
//
// previousDigest is the prior block's vote hash, or GenesisMarker for the
// first block. The same inputs always produce the same digest; the verifier
// depends on that to recompute and compare. The digest is tamper evidence,
// not a secret.
func ComputeDigest(voterRef, partyRef, timestamp, previousDigest, deviceFingerprint string) (string, error) {
	if previousDigest == "" {
		return "", ErrEmptyPreviousDigest
	}

	fields := []string{voterRef, partyRef, timestamp, previousDigest, deviceFingerprint}
	for _, field := range fields {
		if strings.Contains(field, preimageDelimiter) {
			return "", fmt.Errorf("%w: %q", ErrDelimiterInField, field)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, preimageDelimiter)))
	return hex.EncodeToString(sum[:]), nil
}
