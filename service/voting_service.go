// Package service orchestrates the voting flow: registration, OTP
// verification, eligibility, and the read-tip → compute-digest → commit cycle
// that appends to the hash chain.
package service

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"bharote-backend/ledger"
	"bharote-backend/models"
	"bharote-backend/registry"
	"bharote-backend/storage"
)

// voterIDPattern is the public voter identifier format: fixed prefix plus
// nine digits.
var voterIDPattern = regexp.MustCompile(`^BHV\d{9}$`)

const defaultCommitRetries = 3

// User-facing rejections from the casting and registration paths that are not
// part of the ledger's eligibility taxonomy.
var (
	ErrWindowClosed = errors.New("voting window has closed")
	ErrUnknownParty = errors.New("unknown party")
)

type Config struct {
	DataDir         string
	DatabasePath    string
	SeedFilePath    string
	WindowDuration  time.Duration
	OTPTTL          time.Duration
	CommitRetries   int
	NotifyQueueSize int
	NotifySender    Sender
}

type VotingService struct {
	store         *storage.Store
	guard         *IdentityGuard
	gate          *EligibilityGate
	verification  *VoterVerificationService
	notifier      *Dispatcher
	window        *VotingWindow
	metrics       *MetricsCollector
	adminKey      *ecdsa.PrivateKey
	dataDir       string
	commitRetries int
}

// RegistrationRequest is a validated registration submitted by the auth
// subsystem.
type RegistrationRequest struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phone_number"`
	DateOfBirth       string `json:"date_of_birth"`
	Address           string `json:"address"`
	Constituency      string `json:"constituency"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

func NewVotingService(cfg Config) (*VotingService, error) {
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	ref, err := registry.LoadOrCreate(cfg.SeedFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	if err := store.SeedReferenceData(ref.Parties, ref.Constituencies); err != nil {
		return nil, err
	}

	adminKey, err := loadOrGenerateAdminKey(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup admin key: %w", err)
	}

	sender := cfg.NotifySender
	if sender == nil {
		sender = LogSender{}
	}
	notifier := NewDispatcher(sender, cfg.NotifyQueueSize)
	notifier.Start()

	retries := cfg.CommitRetries
	if retries < 1 {
		retries = defaultCommitRetries
	}

	guard := NewIdentityGuard(store)
	vs := &VotingService{
		store:         store,
		guard:         guard,
		gate:          NewEligibilityGate(store, guard),
		notifier:      notifier,
		window:        NewVotingWindow(cfg.WindowDuration),
		metrics:       NewMetricsCollector(),
		adminKey:      adminKey,
		dataDir:       cfg.DataDir,
		commitRetries: retries,
	}
	vs.verification = NewVoterVerificationService(store, notifier, cfg.OTPTTL)
	return vs, nil
}

// Close stops the background notification worker.
func (vs *VotingService) Close() {
	vs.notifier.Stop()
}

// RegisterVoter creates a new identity record with a server-generated public
// voter ID. The caller's device fingerprint is normalized and pre-checked for
// uniqueness; the database constraints are the authoritative check.
func (vs *VotingService) RegisterVoter(req RegistrationRequest) (*models.Voter, error) {
	if !vs.window.IsOpen() {
		return nil, ErrWindowClosed
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, errors.New("full name is required")
	}
	if req.Email == "" && req.PhoneNumber == "" {
		return nil, errors.New("an email or phone number is required")
	}
	if req.Constituency != "" {
		known, err := vs.store.ConstituencyExists(req.Constituency)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, fmt.Errorf("unknown constituency %q", req.Constituency)
		}
	}

	fingerprint := NormalizeFingerprint(req.DeviceFingerprint)
	if err := vs.guard.CheckRegistration(fingerprint); err != nil {
		return nil, err
	}

	voter := &models.Voter{
		ID:                 uuid.New().String(),
		FullName:           req.FullName,
		DateOfBirth:        req.DateOfBirth,
		Address:            req.Address,
		Constituency:       req.Constituency,
		VerificationStatus: models.VerificationUnverified,
	}
	if req.Email != "" {
		voter.Email = &req.Email
	}
	if req.PhoneNumber != "" {
		voter.PhoneNumber = &req.PhoneNumber
	}
	if fingerprint != "" {
		voter.DeviceFingerprint = &fingerprint
	}

	// A collision on the random public id is possible, just vanishingly rare;
	// regenerate and retry instead of surfacing it.
	start := time.Now()
	err := storage.ErrVoterIDTaken
	for attempt := 0; attempt < 3 && errors.Is(err, storage.ErrVoterIDTaken); attempt++ {
		voter.VoterID, err = GenerateVoterID()
		if err != nil {
			return nil, err
		}
		err = vs.store.CreateVoter(voter)
	}
	if err != nil {
		return nil, err
	}
	vs.metrics.Record("registration", time.Since(start))

	vs.notifier.AdminRegistrationAlert(voter)
	return voter, nil
}

// CastVote runs the full casting cycle: admission, sequencing, digest
// computation and the atomic commit, retrying from a fresh tip read when a
// concurrent writer wins the race. The bounded retry cap keeps a contended
// request from spinning; past it the caller gets a retryable contention
// error.
func (vs *VotingService) CastVote(publicVoterID, partyID, deviceFingerprint string) (*models.Block, error) {
	if !vs.window.IsOpen() {
		return nil, ErrWindowClosed
	}

	fingerprint := NormalizeFingerprint(deviceFingerprint)

	voter, err := vs.gate.Admit(publicVoterID, fingerprint)
	if err != nil {
		return nil, err
	}

	party, err := vs.store.PartyByID(partyID)
	if err != nil {
		return nil, err
	}
	if party == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownParty, partyID)
	}

	// The digest input must be stable across replays, so the fingerprint
	// recorded at registration wins over whatever the client sent now.
	digestFingerprint := fingerprint
	if voter.DeviceFingerprint != nil {
		digestFingerprint = *voter.DeviceFingerprint
	}

	start := time.Now()
	for attempt := 0; attempt < vs.commitRetries; attempt++ {
		block, err := vs.buildCandidate(voter, party, digestFingerprint)
		if err != nil {
			return nil, err
		}

		votedAt, err := time.Parse(time.RFC3339Nano, block.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse block timestamp: %v", err)
		}

		err = vs.store.CommitVote(block, votedAt)
		if err == nil {
			vs.metrics.Record("vote", time.Since(start))
			vs.notifier.VoteConfirmation(voter, block)
			return block, nil
		}
		if ledger.IsConflict(err) {
			vs.metrics.RecordConflictRetry()
			log.Printf("Vote commit conflict for %s (attempt %d): %v", publicVoterID, attempt+1, err)
			continue
		}
		return nil, err
	}

	return nil, ledger.ErrCommitContention
}

// buildCandidate reads the current tip and derives the next block from it.
// The stale-tip case is caught again inside the commit transaction; this read
// only seeds the attempt.
func (vs *VotingService) buildCandidate(voter *models.Voter, party *models.Party, fingerprint string) (*models.Block, error) {
	tip, err := vs.store.LatestBlock()
	if err != nil {
		return nil, err
	}

	blockNumber := uint64(1)
	previousDigest := ledger.GenesisMarker
	var previousHash *string
	if tip != nil {
		blockNumber = tip.BlockNumber + 1
		previousDigest = tip.VoteHash
		h := tip.VoteHash
		previousHash = &h
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	voteHash, err := ledger.ComputeDigest(voter.ID, party.ID, timestamp, previousDigest, fingerprint)
	if err != nil {
		return nil, err
	}

	return &models.Block{
		ID:                uuid.New().String(),
		BlockNumber:       blockNumber,
		VoteHash:          voteHash,
		PreviousHash:      previousHash,
		VoterRef:          voter.ID,
		PartyRef:          party.ID,
		DeviceFingerprint: fingerprint,
		Timestamp:         timestamp,
		Status:            models.VoteStatusVerified,
	}, nil
}

// VerifyChain replays the committed chain and reports the first
// inconsistency, if any. Read-only; safe to run while votes are being cast.
func (vs *VotingService) VerifyChain() (ledger.Report, error) {
	start := time.Now()
	blocks, err := vs.store.BlocksAscending()
	if err != nil {
		return ledger.Report{}, err
	}
	report := ledger.Verify(blocks)
	vs.metrics.Record("verify", time.Since(start))
	if !report.Valid {
		log.Printf("ALERT: chain verification failed at block %d: %s (%s)",
			report.BlockNumber, report.Reason, report.Detail)
	}
	return report, nil
}

// ResetLedger is the privileged administrative reset: it deletes all blocks
// and clears every voter's has-voted state, preserving identities. The action
// must be authorized by a fresh admin signature; it shares no code path with
// vote casting.
func (vs *VotingService) ResetLedger(signatureHex string, unixTime int64) error {
	if err := vs.authorizeAdminAction("reset", signatureHex, unixTime); err != nil {
		return err
	}
	return vs.store.ResetLedger()
}

// CloseVoting ends the voting window early, with the same authorization as
// the reset.
func (vs *VotingService) CloseVoting(signatureHex string, unixTime int64) error {
	if err := vs.authorizeAdminAction("close-voting", signatureHex, unixTime); err != nil {
		return err
	}
	vs.window.CloseNow()
	log.Printf("Voting window closed by administrator")
	return nil
}

// Accessors used by the HTTP layer.

func (vs *VotingService) Verification() *VoterVerificationService { return vs.verification }

func (vs *VotingService) Window() *VotingWindow { return vs.window }

func (vs *VotingService) Metrics() MetricsResponse { return vs.metrics.Snapshot() }

func (vs *VotingService) ListBlocks(page, limit int) ([]models.Block, int64, error) {
	return vs.store.ListBlocks(page, limit)
}

func (vs *VotingService) BlockByNumber(number uint64) (*models.Block, error) {
	return vs.store.BlockByNumber(number)
}

func (vs *VotingService) Results() ([]storage.PartyTally, error) {
	return vs.store.VoteCounts()
}

func (vs *VotingService) Parties() ([]models.Party, error) {
	return vs.store.Parties()
}

func (vs *VotingService) Constituencies() ([]models.Constituency, error) {
	return vs.store.Constituencies()
}

func (vs *VotingService) VoterStatistics() (*storage.VoterStatistics, error) {
	return vs.store.VoterStatistics()
}

// GenerateVoterID produces a fresh public identifier: BHV plus nine random
// digits.
func GenerateVoterID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate voter id: %v", err)
	}
	return fmt.Sprintf("BHV%09d", n.Int64()), nil
}

// ValidVoterID reports whether a public voter identifier is well-formed.
func ValidVoterID(id string) bool {
	return voterIDPattern.MatchString(id)
}
