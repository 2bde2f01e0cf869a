package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bharote-backend/ledger"
	"bharote-backend/models"
)

// ErrVoterIDTaken reports a collision on the generated public voter id. The
// caller regenerates the id and retries; this never reaches an end user.
var ErrVoterIDTaken = errors.New("generated voter id is already taken")

// CreateVoter inserts a new identity record. Unique-constraint races that slip
// past the identity guard's pre-checks are classified here: a fingerprint
// collision maps to ErrDuplicateDevice, a collision on the generated public id
// to ErrVoterIDTaken, everything else unique on the voter row is a contact
// identifier.
func (s *Store) CreateVoter(voter *models.Voter) error {
	if err := s.db.Create(voter).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if voter.DeviceFingerprint != nil {
				var count int64
				s.db.Model(&models.Voter{}).
					Where("device_fingerprint = ?", *voter.DeviceFingerprint).
					Count(&count)
				if count > 0 {
					return ledger.ErrDuplicateDevice
				}
			}
			var count int64
			s.db.Model(&models.Voter{}).
				Where("voter_id = ?", voter.VoterID).
				Count(&count)
			if count > 0 {
				return ErrVoterIDTaken
			}
			return ledger.ErrDuplicateContact
		}
		return fmt.Errorf("failed to create voter: %v", err)
	}
	return nil
}

// VoterByPublicID looks a voter up by the public BHV identifier. Returns
// (nil, nil) when not found.
func (s *Store) VoterByPublicID(voterID string) (*models.Voter, error) {
	return s.findVoter("voter_id = ?", voterID)
}

// VoterByID looks a voter up by internal id. Returns (nil, nil) when not found.
func (s *Store) VoterByID(id string) (*models.Voter, error) {
	return s.findVoter("id = ?", id)
}

// VoterByFingerprint returns the voter owning a device fingerprint digest, or
// (nil, nil) when the fingerprint is unclaimed.
func (s *Store) VoterByFingerprint(fingerprint string) (*models.Voter, error) {
	return s.findVoter("device_fingerprint = ?", fingerprint)
}

// VoterByContact returns a voter matching either contact identifier. Empty
// identifiers are skipped.
func (s *Store) VoterByContact(email, phone string) (*models.Voter, error) {
	if email != "" {
		if v, err := s.findVoter("email = ?", email); err != nil || v != nil {
			return v, err
		}
	}
	if phone != "" {
		return s.findVoter("phone_number = ?", phone)
	}
	return nil, nil
}

func (s *Store) findVoter(query string, arg interface{}) (*models.Voter, error) {
	var voter models.Voter
	err := s.db.Where(query, arg).First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load voter: %v", err)
	}
	return &voter, nil
}

// SetOTP stores a hashed one-time code with its expiry and moves the voter to
// otp_sent.
func (s *Store) SetOTP(voterID string, otpHash string, expiresAt time.Time) error {
	res := s.db.Model(&models.Voter{}).
		Where("id = ?", voterID).
		Updates(map[string]interface{}{
			"otp_hash":            otpHash,
			"otp_expires_at":      expiresAt,
			"verification_status": models.VerificationOTPSent,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to store OTP: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotRegistered
	}
	return nil
}

// MarkVerified clears OTP state and moves the voter to verified.
func (s *Store) MarkVerified(voterID string) error {
	res := s.db.Model(&models.Voter{}).
		Where("id = ?", voterID).
		Updates(map[string]interface{}{
			"otp_hash":            nil,
			"otp_expires_at":      nil,
			"verification_status": models.VerificationVerified,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark voter verified: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotRegistered
	}
	return nil
}

// VoterStatistics is the aggregate view served by the status endpoint.
type VoterStatistics struct {
	Registered int64 `json:"registered_count"`
	Verified   int64 `json:"verified_count"`
	Voted      int64 `json:"voted_count"`
}

func (s *Store) VoterStatistics() (*VoterStatistics, error) {
	var stats VoterStatistics
	if err := s.db.Model(&models.Voter{}).Count(&stats.Registered).Error; err != nil {
		return nil, fmt.Errorf("failed to count voters: %v", err)
	}
	err := s.db.Model(&models.Voter{}).
		Where("verification_status = ?", models.VerificationVerified).
		Count(&stats.Verified).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count verified voters: %v", err)
	}
	err = s.db.Model(&models.Voter{}).Where("has_voted = ?", true).Count(&stats.Voted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count voted voters: %v", err)
	}
	return &stats, nil
}
