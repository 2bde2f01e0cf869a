package models

import "time"

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationOTPSent    VerificationStatus = "otp_sent"
	VerificationVerified   VerificationStatus = "verified"
)

// Voter is the identity record behind every ledger entry. Contact identifiers
// and the device fingerprint digest are unique when present; uniqueness is
// enforced by the database, the identity guard only pre-checks it.
type Voter struct {
	ID                 string             `gorm:"primaryKey;size:36" json:"id"`
	VoterID            string             `gorm:"uniqueIndex;size:12;not null" json:"voter_id"`
	FullName           string             `gorm:"not null" json:"full_name"`
	Email              *string            `gorm:"uniqueIndex" json:"email,omitempty"`
	PhoneNumber        *string            `gorm:"uniqueIndex" json:"phone_number,omitempty"`
	DateOfBirth        string             `json:"date_of_birth"`
	Address            string             `json:"address"`
	Constituency       string             `json:"constituency"`
	VerificationStatus VerificationStatus `gorm:"size:16;not null;default:unverified" json:"verification_status"`
	DeviceFingerprint  *string            `gorm:"uniqueIndex;size:64" json:"device_fingerprint,omitempty"`
	OTPHash            *string            `json:"-"`
	OTPExpiresAt       *time.Time         `json:"-"`
	HasVoted           bool               `gorm:"not null;default:false" json:"has_voted"`
	VotedAt            *time.Time         `json:"voted_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (Voter) TableName() string {
	return "voters"
}

// IsVerified reports whether the voter has completed OTP verification.
func (v *Voter) IsVerified() bool {
	return v.VerificationStatus == VerificationVerified
}
