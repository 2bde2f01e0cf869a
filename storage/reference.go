package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bharote-backend/models"
)

// SeedReferenceData inserts parties and constituencies when the tables are
// empty. Existing reference data is left untouched, so re-running a node
// against a live database never rewrites it.
func (s *Store) SeedReferenceData(parties []models.Party, constituencies []models.Constituency) error {
	var count int64
	if err := s.db.Model(&models.Party{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count parties: %v", err)
	}
	if count == 0 && len(parties) > 0 {
		if err := s.db.Create(&parties).Error; err != nil {
			return fmt.Errorf("failed to seed parties: %v", err)
		}
	}

	if err := s.db.Model(&models.Constituency{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count constituencies: %v", err)
	}
	if count == 0 && len(constituencies) > 0 {
		if err := s.db.Create(&constituencies).Error; err != nil {
			return fmt.Errorf("failed to seed constituencies: %v", err)
		}
	}
	return nil
}

// Parties returns all parties in display order.
func (s *Store) Parties() ([]models.Party, error) {
	var parties []models.Party
	if err := s.db.Order("display_order ASC").Find(&parties).Error; err != nil {
		return nil, fmt.Errorf("failed to load parties: %v", err)
	}
	return parties, nil
}

// PartyByID returns a party, or (nil, nil) when not found.
func (s *Store) PartyByID(id string) (*models.Party, error) {
	var party models.Party
	err := s.db.Where("id = ?", id).First(&party).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load party: %v", err)
	}
	return &party, nil
}

// Constituencies returns all constituencies ordered by number.
func (s *Store) Constituencies() ([]models.Constituency, error) {
	var list []models.Constituency
	if err := s.db.Order("constituency_number ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to load constituencies: %v", err)
	}
	return list, nil
}

// ConstituencyExists reports whether a constituency name is known.
func (s *Store) ConstituencyExists(name string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Constituency{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check constituency: %v", err)
	}
	return count > 0, nil
}

// PartyTally is one row of the results projection: committed blocks grouped
// by party. The tally is a read-only view over the ledger, not part of it.
type PartyTally struct {
	PartyID   string `json:"party_id"`
	PartyName string `json:"party_name"`
	ShortName string `json:"short_name"`
	Color     string `json:"color"`
	IsNOTA    bool   `json:"is_nota"`
	VoteCount int64  `json:"vote_count"`
}

// VoteCounts returns the per-party tally, including parties with zero votes,
// in display order.
func (s *Store) VoteCounts() ([]PartyTally, error) {
	var tallies []PartyTally
	err := s.db.Model(&models.Party{}).
		Select("political_parties.id AS party_id, political_parties.name AS party_name, " +
			"political_parties.short_name AS short_name, political_parties.color AS color, " +
			"political_parties.is_nota AS is_nota, COUNT(votes.id) AS vote_count").
		Joins("LEFT JOIN votes ON votes.party_ref = political_parties.id").
		Group("political_parties.id").
		Order("political_parties.display_order ASC").
		Scan(&tallies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %v", err)
	}
	return tallies, nil
}
