package models

import "time"

type VoteStatus string

const (
	VoteStatusPending  VoteStatus = "pending"
	VoteStatusVerified VoteStatus = "verified"
	VoteStatusRejected VoteStatus = "rejected"
)

// Block is one committed, immutable vote record. Blocks are created exactly
// once per successful vote, never updated and never deleted outside the
// administrative reset.
//
// PreviousHash is nil only for block #1; the digest preimage uses the genesis
// marker in its place, so "first block" and "missing link" stay
// distinguishable. Timestamp is stored as the exact ISO-8601 string that went
// into the digest, and the voter's fingerprint digest is carried on the row,
// so the stored hash is recomputable from the row plus the previous digest
// alone.
type Block struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	BlockNumber       uint64     `gorm:"uniqueIndex;not null" json:"block_number"`
	VoteHash          string     `gorm:"uniqueIndex;size:64;not null" json:"vote_hash"`
	PreviousHash      *string    `gorm:"uniqueIndex;size:64" json:"previous_hash"`
	VoterRef          string     `gorm:"uniqueIndex;size:36;not null" json:"voter_ref"`
	PartyRef          string     `gorm:"size:36;not null" json:"party_ref"`
	DeviceFingerprint string     `gorm:"size:64;not null" json:"-"`
	Timestamp         string     `gorm:"size:40;not null" json:"timestamp"`
	Status            VoteStatus `gorm:"size:16;not null;default:verified" json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (Block) TableName() string {
	return "votes"
}
