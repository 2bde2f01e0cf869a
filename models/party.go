package models

import "time"

// Party is read-only reference data from the ledger's perspective; committed
// blocks store only its identifier.
type Party struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	ShortName    string    `gorm:"not null" json:"short_name"`
	Color        string    `json:"color"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	IsNOTA       bool      `gorm:"not null;default:false" json:"is_nota"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Party) TableName() string {
	return "political_parties"
}

// Constituency is reference data used to validate registrations.
type Constituency struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Name               string    `gorm:"uniqueIndex;not null" json:"name"`
	State              string    `gorm:"not null" json:"state"`
	ConstituencyNumber int       `gorm:"not null" json:"constituency_number"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Constituency) TableName() string {
	return "constituencies"
}
