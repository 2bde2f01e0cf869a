package ledger

import (
	"fmt"
	"testing"

	"bharote-backend/models"
)

// buildChain constructs n correctly linked blocks for distinct voters.
func buildChain(t *testing.T, n int) []models.Block {
	t.Helper()

	blocks := make([]models.Block, 0, n)
	prevDigest := GenesisMarker
	var prevHash *string

	for i := 1; i <= n; i++ {
		voter := fmt.Sprintf("voter-%d", i)
		ts := fmt.Sprintf("2026-01-02T03:04:%02dZ", i)
		digest, err := ComputeDigest(voter, "party-x", ts, prevDigest, "fp")
		if err != nil {
			t.Fatalf("compute digest for block %d: %v", i, err)
		}
		blocks = append(blocks, models.Block{
			BlockNumber:       uint64(i),
			VoteHash:          digest,
			PreviousHash:      prevHash,
			VoterRef:          voter,
			PartyRef:          "party-x",
			DeviceFingerprint: "fp",
			Timestamp:         ts,
			Status:            models.VoteStatusVerified,
		})
		prevDigest = digest
		prevHash = &blocks[len(blocks)-1].VoteHash
	}
	return blocks
}

func TestVerifyValidChain(t *testing.T) {
	blocks := buildChain(t, 5)
	report := Verify(blocks)
	if !report.Valid {
		t.Fatalf("expected valid chain, got %+v", report)
	}
	if report.BlocksChecked != 5 {
		t.Fatalf("expected 5 blocks checked, got %d", report.BlocksChecked)
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	report := Verify(nil)
	if !report.Valid {
		t.Fatalf("empty chain should be valid, got %+v", report)
	}
	if report.BlocksChecked != 0 {
		t.Fatalf("expected 0 blocks checked, got %d", report.BlocksChecked)
	}
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	blocks := buildChain(t, 4)
	blocks[2].PartyRef = "party-swapped"

	report := Verify(blocks)
	if report.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if report.Reason != ReasonDigestMismatch {
		t.Fatalf("expected %s, got %s", ReasonDigestMismatch, report.Reason)
	}
	if report.BlockNumber != 3 {
		t.Fatalf("expected failure at block 3, got %d", report.BlockNumber)
	}
}

func TestVerifyDetectsBrokenLinkage(t *testing.T) {
	blocks := buildChain(t, 3)
	bogus := "0000000000000000000000000000000000000000000000000000000000000000"
	blocks[1].PreviousHash = &bogus

	report := Verify(blocks)
	if report.Valid {
		t.Fatal("broken linkage reported valid")
	}
	if report.Reason != ReasonLinkageBroken {
		t.Fatalf("expected %s, got %s", ReasonLinkageBroken, report.Reason)
	}
	if report.BlockNumber != 2 {
		t.Fatalf("expected failure at block 2, got %d", report.BlockNumber)
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	blocks := buildChain(t, 4)
	truncated := append([]models.Block{}, blocks[0], blocks[1], blocks[3])

	report := Verify(truncated)
	if report.Valid {
		t.Fatal("gapped chain reported valid")
	}
	if report.Reason != ReasonSequenceGap {
		t.Fatalf("expected %s, got %s", ReasonSequenceGap, report.Reason)
	}
	if report.BlockNumber != 4 {
		t.Fatalf("expected gap reported at block 4, got %d", report.BlockNumber)
	}
}

func TestVerifyRejectsNonGenesisFirstBlock(t *testing.T) {
	blocks := buildChain(t, 2)
	report := Verify(blocks[1:])
	if report.Valid {
		t.Fatal("chain starting at block 2 reported valid")
	}
	if report.Reason != ReasonSequenceGap {
		t.Fatalf("expected %s, got %s", ReasonSequenceGap, report.Reason)
	}
}
