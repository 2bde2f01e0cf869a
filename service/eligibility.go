package service

import (
	"bharote-backend/ledger"
	"bharote-backend/models"
	"bharote-backend/storage"
)

// EligibilityGate admits or rejects a cast-vote request before any ledger work
// happens. Preconditions are checked in order, first failure wins: registered,
// verified, not yet voted, then the identity guard's uniqueness re-scan. The
// cheap status checks run before the uniqueness queries.
type EligibilityGate struct {
	store *storage.Store
	guard *IdentityGuard
}

func NewEligibilityGate(store *storage.Store, guard *IdentityGuard) *EligibilityGate {
	return &EligibilityGate{store: store, guard: guard}
}

// Admit resolves the public voter identifier and checks every admission
// precondition. All returned errors are terminal for this request.
func (g *EligibilityGate) Admit(publicVoterID, fingerprint string) (*models.Voter, error) {
	voter, err := g.store.VoterByPublicID(publicVoterID)
	if err != nil {
		return nil, err
	}
	if voter == nil {
		return nil, ledger.ErrNotRegistered
	}
	if !voter.IsVerified() {
		return nil, ledger.ErrNotVerified
	}
	if voter.HasVoted {
		return nil, ledger.ErrAlreadyVoted
	}
	if err := g.guard.CheckVoteUniqueness(voter, fingerprint); err != nil {
		return nil, err
	}
	return voter, nil
}
