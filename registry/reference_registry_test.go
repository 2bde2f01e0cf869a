package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bharote-backend/models"
)

func TestLoadOrCreateWritesDefaultSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")

	ref, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load or create: %v", err)
	}
	if len(ref.Parties) == 0 || len(ref.Constituencies) == 0 {
		t.Fatal("default seed is missing parties or constituencies")
	}

	nota := 0
	for _, p := range ref.Parties {
		if p.ID == "" {
			t.Fatalf("party %q has no id", p.Name)
		}
		if p.IsNOTA {
			nota++
		}
	}
	if nota != 1 {
		t.Fatalf("default ballot has %d NOTA entries, want 1", nota)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("seed file not written: %v", err)
	}

	// A second load reads the written file back, identifiers intact.
	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Parties) != len(ref.Parties) {
		t.Fatalf("reload returned %d parties, want %d", len(again.Parties), len(ref.Parties))
	}
	if again.Parties[0].ID != ref.Parties[0].ID {
		t.Fatal("reload regenerated party identifiers")
	}
}

func TestLoadOrCreateFillsMissingIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	seed := ReferenceData{
		Parties: []models.Party{
			{Name: "Alpha Party", ShortName: "AP"},
		},
		Constituencies: []models.Constituency{
			{Name: "West End", State: "Demo State", ConstituencyNumber: 9},
		},
	}
	writeSeed(t, path, seed)

	ref, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ref.Parties[0].ID == "" || ref.Constituencies[0].ID == "" {
		t.Fatal("missing identifiers were not generated")
	}
}

func TestLoadOrCreateRejectsBadSeeds(t *testing.T) {
	cases := []struct {
		name string
		seed ReferenceData
	}{
		{"no parties", ReferenceData{}},
		{"unnamed party", ReferenceData{Parties: []models.Party{{ShortName: "X"}}}},
		{"two nota entries", ReferenceData{Parties: []models.Party{
			{Name: "NOTA One", ShortName: "N1", IsNOTA: true},
			{Name: "NOTA Two", ShortName: "N2", IsNOTA: true},
		}}},
		{"unnamed constituency", ReferenceData{
			Parties:        []models.Party{{Name: "Alpha Party", ShortName: "AP"}},
			Constituencies: []models.Constituency{{State: "Demo State"}},
		}},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "reference.json")
		writeSeed(t, path, tc.seed)
		if _, err := LoadOrCreate(path); err == nil {
			t.Errorf("%s: bad seed accepted", tc.name)
		}
	}
}

func writeSeed(t *testing.T, path string, seed ReferenceData) {
	t.Helper()
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
}
