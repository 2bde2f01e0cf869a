// Package registry loads the election's reference data: the ballot's
// political parties (including the mandatory NOTA entry) and the
// constituencies registrations are validated against. Data comes from a JSON
// seed file; a default file is written when none exists.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"bharote-backend/models"
)

type ReferenceData struct {
	Parties        []models.Party        `json:"parties"`
	Constituencies []models.Constituency `json:"constituencies"`
}

// LoadOrCreate reads the seed file at path, creating it with default contents
// first when missing.
func LoadOrCreate(path string) (*ReferenceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return createDefaultSeedFile(path)
		}
		return nil, fmt.Errorf("failed to read seed file: %v", err)
	}

	var ref ReferenceData
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed data: %v", err)
	}
	if err := validate(&ref); err != nil {
		return nil, fmt.Errorf("invalid seed data in %s: %v", path, err)
	}
	return &ref, nil
}

func createDefaultSeedFile(path string) (*ReferenceData, error) {
	ref := DefaultReferenceData()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create seed directory: %v", err)
		}
	}

	data, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default seed data: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write default seed file: %v", err)
	}

	return ref, nil
}

// DefaultReferenceData returns the built-in ballot used when no seed file is
// provided.
func DefaultReferenceData() *ReferenceData {
	return &ReferenceData{
		Parties: []models.Party{
			{ID: uuid.New().String(), Name: "National Progress Party", ShortName: "NPP", Color: "#FF9933", DisplayOrder: 1},
			{ID: uuid.New().String(), Name: "People's Democratic Front", ShortName: "PDF", Color: "#138808", DisplayOrder: 2},
			{ID: uuid.New().String(), Name: "United Citizens Alliance", ShortName: "UCA", Color: "#000080", DisplayOrder: 3},
			{ID: uuid.New().String(), Name: "None of the Above", ShortName: "NOTA", Color: "#6B7280", DisplayOrder: 4, IsNOTA: true},
		},
		Constituencies: []models.Constituency{
			{ID: uuid.New().String(), Name: "North Central", State: "Demo State", ConstituencyNumber: 1},
			{ID: uuid.New().String(), Name: "South Riverside", State: "Demo State", ConstituencyNumber: 2},
			{ID: uuid.New().String(), Name: "East Hills", State: "Demo State", ConstituencyNumber: 3},
		},
	}
}

func validate(ref *ReferenceData) error {
	if len(ref.Parties) == 0 {
		return fmt.Errorf("at least one party is required")
	}
	nota := 0
	for i := range ref.Parties {
		p := &ref.Parties[i]
		if p.Name == "" || p.ShortName == "" {
			return fmt.Errorf("party name and short name are required")
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.IsNOTA {
			nota++
		}
	}
	if nota > 1 {
		return fmt.Errorf("at most one NOTA entry is allowed, found %d", nota)
	}
	for i := range ref.Constituencies {
		c := &ref.Constituencies[i]
		if c.Name == "" {
			return fmt.Errorf("constituency name is required")
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
	}
	return nil
}
