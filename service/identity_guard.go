package service

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"bharote-backend/ledger"
	"bharote-backend/models"
	"bharote-backend/storage"
)

var hexDigestPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// IdentityGuard answers "has this identity already registered or voted?" from
// the device fingerprint digest and contact identifiers. Its checks are pure
// reads; the store's unique indexes enforce the same invariants at write time,
// so a race past the guard still cannot commit a duplicate.
//
// A device fingerprint is a client-reported value and therefore a best-effort
// uniqueness hint, not a security boundary. Contact uniqueness is the second,
// independent check.
type IdentityGuard struct {
	store *storage.Store
}

func NewIdentityGuard(store *storage.Store) *IdentityGuard {
	return &IdentityGuard{store: store}
}

// NormalizeFingerprint canonicalizes a client-supplied fingerprint: an
// already-hashed 64-char hex digest is lowercased, anything else is hashed
// with SHA-256. Empty input stays empty.
func NormalizeFingerprint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if hexDigestPattern.MatchString(raw) {
		return strings.ToLower(raw)
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CheckRegistration reports whether a device fingerprint is free to register.
func (g *IdentityGuard) CheckRegistration(fingerprint string) error {
	if fingerprint == "" {
		return nil
	}
	owner, err := g.store.VoterByFingerprint(fingerprint)
	if err != nil {
		return err
	}
	if owner != nil {
		return ledger.ErrDuplicateDevice
	}
	return nil
}

// CheckVoteUniqueness re-checks, at vote time, that the submitting device and
// the voter's contact identifiers do not belong to any other identity. The
// voter's own prior vote is the eligibility gate's concern, not the guard's.
func (g *IdentityGuard) CheckVoteUniqueness(voter *models.Voter, fingerprint string) error {
	if fingerprint != "" {
		owner, err := g.store.VoterByFingerprint(fingerprint)
		if err != nil {
			return err
		}
		if owner != nil && owner.ID != voter.ID {
			return ledger.ErrDuplicateDevice
		}
	}

	email := ""
	if voter.Email != nil {
		email = *voter.Email
	}
	phone := ""
	if voter.PhoneNumber != nil {
		phone = *voter.PhoneNumber
	}
	if email == "" && phone == "" {
		return nil
	}
	other, err := g.store.VoterByContact(email, phone)
	if err != nil {
		return err
	}
	if other != nil && other.ID != voter.ID {
		return ledger.ErrDuplicateContact
	}
	return nil
}
