package ledger

import "errors"

// Eligibility errors are terminal for the request that triggered them: the
// caller must change the underlying condition, not retry.
var (
	ErrNotRegistered    = errors.New("voter is not registered")
	ErrNotVerified      = errors.New("voter has not completed verification")
	ErrAlreadyVoted     = errors.New("voter has already voted")
	ErrDuplicateDevice  = errors.New("device fingerprint already belongs to another voter")
	ErrDuplicateContact = errors.New("contact identifier already belongs to another voter")
)

// Concurrency conflicts are transient. The voting service retries them from a
// fresh tip read up to a bounded cap, then surfaces ErrCommitContention.
var (
	ErrSequenceConflict = errors.New("block number was taken by a concurrent writer")
	ErrTipConflict      = errors.New("chain tip changed since it was read")
	ErrCommitContention = errors.New("vote commit kept losing to concurrent writers, try again")
)

// Digest input errors.
var (
	ErrEmptyPreviousDigest = errors.New("previous digest must be the prior block hash or the genesis marker")
	ErrDelimiterInField    = errors.New("digest field contains the preimage delimiter")
)

// IsEligibilityError reports whether err is one of the user-facing,
// non-retryable admission failures.
func IsEligibilityError(err error) bool {
	return errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrNotVerified) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrDuplicateDevice) ||
		errors.Is(err, ErrDuplicateContact)
}

// IsConflict reports whether err is a transient commit conflict that warrants
// a retry from a fresh tip read.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSequenceConflict) || errors.Is(err, ErrTipConflict)
}
