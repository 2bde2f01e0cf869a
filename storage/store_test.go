package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"bharote-backend/ledger"
	"bharote-backend/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func seedVoter(t *testing.T, store *Store, n int) *models.Voter {
	t.Helper()
	email := fmt.Sprintf("voter%d@example.com", n)
	fingerprint := fmt.Sprintf("%064d", n)
	voter := &models.Voter{
		ID:                 uuid.New().String(),
		VoterID:            fmt.Sprintf("BHV%09d", n),
		FullName:           fmt.Sprintf("Voter %d", n),
		Email:              &email,
		Constituency:       "Central",
		VerificationStatus: models.VerificationVerified,
		DeviceFingerprint:  &fingerprint,
	}
	if err := store.CreateVoter(voter); err != nil {
		t.Fatalf("create voter %d: %v", n, err)
	}
	return voter
}

// buildCandidate assembles a correctly linked block against the current tip.
func buildCandidate(t *testing.T, store *Store, voter *models.Voter) *models.Block {
	t.Helper()
	tip, err := store.LatestBlock()
	if err != nil {
		t.Fatalf("read tip: %v", err)
	}

	number := uint64(1)
	prevDigest := ledger.GenesisMarker
	var prevHash *string
	if tip != nil {
		number = tip.BlockNumber + 1
		prevDigest = tip.VoteHash
		prevHash = &tip.VoteHash
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	digest, err := ledger.ComputeDigest(voter.ID, "party-x", ts, prevDigest, *voter.DeviceFingerprint)
	if err != nil {
		t.Fatalf("compute digest: %v", err)
	}
	return &models.Block{
		ID:                uuid.New().String(),
		BlockNumber:       number,
		VoteHash:          digest,
		PreviousHash:      prevHash,
		VoterRef:          voter.ID,
		PartyRef:          "party-x",
		DeviceFingerprint: *voter.DeviceFingerprint,
		Timestamp:         ts,
		Status:            models.VoteStatusPending,
	}
}

func mustCommit(t *testing.T, store *Store, voter *models.Voter) *models.Block {
	t.Helper()
	block := buildCandidate(t, store, voter)
	if err := store.CommitVote(block, time.Now().UTC()); err != nil {
		t.Fatalf("commit vote for %s: %v", voter.VoterID, err)
	}
	return block
}

func TestCommitVoteGenesis(t *testing.T) {
	store := newTestStore(t)
	voter := seedVoter(t, store, 1)

	block := mustCommit(t, store, voter)
	if block.BlockNumber != 1 {
		t.Fatalf("genesis block number = %d, want 1", block.BlockNumber)
	}
	if block.PreviousHash != nil {
		t.Fatalf("genesis previous hash = %v, want nil", *block.PreviousHash)
	}

	updated, err := store.VoterByID(voter.ID)
	if err != nil {
		t.Fatalf("reload voter: %v", err)
	}
	if !updated.HasVoted || updated.VotedAt == nil {
		t.Fatal("commit did not flip the voter's has-voted state")
	}
}

func TestCommitVoteChainsToTip(t *testing.T) {
	store := newTestStore(t)
	first := mustCommit(t, store, seedVoter(t, store, 1))
	second := mustCommit(t, store, seedVoter(t, store, 2))

	if second.BlockNumber != 2 {
		t.Fatalf("second block number = %d, want 2", second.BlockNumber)
	}
	if second.PreviousHash == nil || *second.PreviousHash != first.VoteHash {
		t.Fatal("second block does not link to the first block's hash")
	}
}

func TestCommitVoteRejectsStaleTip(t *testing.T) {
	store := newTestStore(t)
	alice := seedVoter(t, store, 1)
	bob := seedVoter(t, store, 2)

	// Both candidates observe the empty ledger; only one can be genesis.
	aliceBlock := buildCandidate(t, store, alice)
	bobBlock := buildCandidate(t, store, bob)

	if err := store.CommitVote(aliceBlock, time.Now().UTC()); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	err := store.CommitVote(bobBlock, time.Now().UTC())
	if !errors.Is(err, ledger.ErrTipConflict) {
		t.Fatalf("stale commit returned %v, want ErrTipConflict", err)
	}

	// The rejected commit must leave no trace: no block, no flag flip.
	length, err := store.ChainLength()
	if err != nil {
		t.Fatalf("chain length: %v", err)
	}
	if length != 1 {
		t.Fatalf("chain length = %d after rejected commit, want 1", length)
	}
	reloaded, err := store.VoterByID(bob.ID)
	if err != nil {
		t.Fatalf("reload voter: %v", err)
	}
	if reloaded.HasVoted {
		t.Fatal("rejected commit flipped the voter's has-voted flag")
	}
}

func TestCommitVoteRejectsSecondVote(t *testing.T) {
	store := newTestStore(t)
	voter := seedVoter(t, store, 1)
	mustCommit(t, store, voter)

	err := store.CommitVote(buildCandidate(t, store, voter), time.Now().UTC())
	if !errors.Is(err, ledger.ErrAlreadyVoted) {
		t.Fatalf("second vote returned %v, want ErrAlreadyVoted", err)
	}
	length, _ := store.ChainLength()
	if length != 1 {
		t.Fatalf("chain length = %d after rejected second vote, want 1", length)
	}
}

func TestCreateVoterDuplicateFingerprint(t *testing.T) {
	store := newTestStore(t)
	seedVoter(t, store, 1)

	email := "other@example.com"
	fingerprint := fmt.Sprintf("%064d", 1)
	err := store.CreateVoter(&models.Voter{
		ID:                uuid.New().String(),
		VoterID:           "BHV000000099",
		FullName:          "Other Voter",
		Email:             &email,
		DeviceFingerprint: &fingerprint,
	})
	if !errors.Is(err, ledger.ErrDuplicateDevice) {
		t.Fatalf("duplicate fingerprint returned %v, want ErrDuplicateDevice", err)
	}
}

func TestCreateVoterDuplicateContact(t *testing.T) {
	store := newTestStore(t)
	seedVoter(t, store, 1)

	email := "voter1@example.com"
	fingerprint := fmt.Sprintf("%064d", 2)
	err := store.CreateVoter(&models.Voter{
		ID:                uuid.New().String(),
		VoterID:           "BHV000000098",
		FullName:          "Other Voter",
		Email:             &email,
		DeviceFingerprint: &fingerprint,
	})
	if !errors.Is(err, ledger.ErrDuplicateContact) {
		t.Fatalf("duplicate email returned %v, want ErrDuplicateContact", err)
	}
}

func TestCreateVoterDuplicatePublicID(t *testing.T) {
	store := newTestStore(t)
	existing := seedVoter(t, store, 1)

	email := "other@example.com"
	fingerprint := fmt.Sprintf("%064d", 2)
	err := store.CreateVoter(&models.Voter{
		ID:                uuid.New().String(),
		VoterID:           existing.VoterID,
		FullName:          "Other Voter",
		Email:             &email,
		DeviceFingerprint: &fingerprint,
	})
	if !errors.Is(err, ErrVoterIDTaken) {
		t.Fatalf("duplicate public id returned %v, want ErrVoterIDTaken", err)
	}
}

func TestListBlocksPagination(t *testing.T) {
	store := newTestStore(t)
	for i := 1; i <= 5; i++ {
		mustCommit(t, store, seedVoter(t, store, i))
	}

	page1, total, err := store.ListBlocks(1, 2)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page1) != 2 || page1[0].BlockNumber != 5 || page1[1].BlockNumber != 4 {
		t.Fatalf("page 1 = %v, want blocks 5,4", blockNumbers(page1))
	}

	page3, _, err := store.ListBlocks(3, 2)
	if err != nil {
		t.Fatalf("list blocks page 3: %v", err)
	}
	if len(page3) != 1 || page3[0].BlockNumber != 1 {
		t.Fatalf("page 3 = %v, want block 1", blockNumbers(page3))
	}
}

func blockNumbers(blocks []models.Block) []uint64 {
	nums := make([]uint64, len(blocks))
	for i, b := range blocks {
		nums[i] = b.BlockNumber
	}
	return nums
}

func TestVoteCountsIncludesZeroParties(t *testing.T) {
	store := newTestStore(t)
	partyA := models.Party{ID: "party-x", Name: "Party X", ShortName: "PX", DisplayOrder: 1}
	partyB := models.Party{ID: "party-y", Name: "Party Y", ShortName: "PY", DisplayOrder: 2}
	if err := store.SeedReferenceData([]models.Party{partyA, partyB}, nil); err != nil {
		t.Fatalf("seed reference data: %v", err)
	}

	mustCommit(t, store, seedVoter(t, store, 1))
	mustCommit(t, store, seedVoter(t, store, 2))

	tallies, err := store.VoteCounts()
	if err != nil {
		t.Fatalf("vote counts: %v", err)
	}
	if len(tallies) != 2 {
		t.Fatalf("tally rows = %d, want 2", len(tallies))
	}
	if tallies[0].PartyID != "party-x" || tallies[0].VoteCount != 2 {
		t.Fatalf("party-x tally = %+v, want 2 votes", tallies[0])
	}
	if tallies[1].PartyID != "party-y" || tallies[1].VoteCount != 0 {
		t.Fatalf("party-y tally = %+v, want 0 votes", tallies[1])
	}
}

func TestResetLedgerPreservesVoters(t *testing.T) {
	store := newTestStore(t)
	voter := seedVoter(t, store, 1)
	mustCommit(t, store, voter)

	if err := store.ResetLedger(); err != nil {
		t.Fatalf("reset ledger: %v", err)
	}

	length, _ := store.ChainLength()
	if length != 0 {
		t.Fatalf("chain length = %d after reset, want 0", length)
	}
	reloaded, err := store.VoterByID(voter.ID)
	if err != nil {
		t.Fatalf("reload voter: %v", err)
	}
	if reloaded == nil {
		t.Fatal("voter identity deleted by reset")
	}
	if reloaded.HasVoted || reloaded.VotedAt != nil {
		t.Fatal("reset did not clear voting state")
	}
	if !reloaded.IsVerified() {
		t.Fatal("reset changed verification status")
	}

	// The ledger restarts from genesis after a reset.
	block := mustCommit(t, store, reloaded)
	if block.BlockNumber != 1 || block.PreviousHash != nil {
		t.Fatalf("post-reset block = #%d, want fresh genesis", block.BlockNumber)
	}
}

func TestLatestBlockEmptyLedger(t *testing.T) {
	store := newTestStore(t)
	tip, err := store.LatestBlock()
	if err != nil {
		t.Fatalf("latest block: %v", err)
	}
	if tip != nil {
		t.Fatalf("empty ledger returned tip %+v", tip)
	}
}
