package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bharote-backend/ledger"
	"bharote-backend/models"
	"bharote-backend/storage"
)

var (
	ErrAlreadyVerified = errors.New("voter is already verified")
	ErrNoOTPPending    = errors.New("no verification code is pending for this voter")
	ErrOTPExpired      = errors.New("verification code has expired")
	ErrOTPMismatch     = errors.New("verification code does not match")
)

// VoterVerificationService drives the OTP verification flow that moves a
// voter from unverified to verified. Codes are bcrypt-hashed at rest and
// expire after a configured TTL. The ledger core never reads OTP state; it
// only sees the resulting verification status.
type VoterVerificationService struct {
	store    *storage.Store
	notifier *Dispatcher
	otpTTL   time.Duration
}

func NewVoterVerificationService(store *storage.Store, notifier *Dispatcher, otpTTL time.Duration) *VoterVerificationService {
	return &VoterVerificationService{
		store:    store,
		notifier: notifier,
		otpTTL:   otpTTL,
	}
}

// RequestOTP issues a fresh 6-digit code for the voter, stores its hash and
// expiry, and hands delivery to the notification dispatcher. Re-requesting
// replaces any previous pending code.
func (s *VoterVerificationService) RequestOTP(publicVoterID string) error {
	voter, err := s.store.VoterByPublicID(publicVoterID)
	if err != nil {
		return err
	}
	if voter == nil {
		return ledger.ErrNotRegistered
	}
	if voter.IsVerified() {
		return ErrAlreadyVerified
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash verification code: %w", err)
	}

	if err := s.store.SetOTP(voter.ID, string(hash), time.Now().Add(s.otpTTL)); err != nil {
		return err
	}

	s.notifier.OTPCode(voter, code)
	return nil
}

// ConfirmOTP checks the submitted code against the pending hash and, on
// success, marks the voter verified and clears the OTP state.
func (s *VoterVerificationService) ConfirmOTP(publicVoterID, code string) error {
	voter, err := s.store.VoterByPublicID(publicVoterID)
	if err != nil {
		return err
	}
	if voter == nil {
		return ledger.ErrNotRegistered
	}
	if voter.IsVerified() {
		return ErrAlreadyVerified
	}
	if voter.VerificationStatus != models.VerificationOTPSent || voter.OTPHash == nil {
		return ErrNoOTPPending
	}
	if voter.OTPExpiresAt != nil && time.Now().After(*voter.OTPExpiresAt) {
		return ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*voter.OTPHash), []byte(code)); err != nil {
		return ErrOTPMismatch
	}

	return s.store.MarkVerified(voter.ID)
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
