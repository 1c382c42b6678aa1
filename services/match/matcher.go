// Package match ranks staff members for a report category. Ranking is pure
// and deterministic: the same category, staff snapshot, and load counts
// always produce the same ordering, so admin UIs and tests can rely on it.
package match

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/CiviTrack/civitrack-back/models"
)

// Variations maps a report category to the staff specializations that count
// as synonym matches for it. The table is one-directional and supplied by
// configuration; no reverse mapping is inferred.
type Variations map[string][]string

// LoadVariations reads a variations table from a JSON file of the shape
// {"pothole": ["road_repair", "road_maintenance"]}. Keys and values are
// normalized on load.
func LoadVariations(path string) (Variations, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variations table: %w", err)
	}
	var table map[string][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse variations table: %w", err)
	}
	out := make(Variations, len(table))
	for cat, specs := range table {
		normSpecs := make([]string, 0, len(specs))
		for _, s := range specs {
			normSpecs = append(normSpecs, models.NormalizeCategory(s))
		}
		out[models.NormalizeCategory(cat)] = normSpecs
	}
	return out, nil
}

// Tier orders candidate groups: direct matches beat variation matches beat
// the general pool.
type Tier int

const (
	TierDirect Tier = iota
	TierVariation
	TierGeneral
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierVariation:
		return "variation"
	default:
		return "general"
	}
}

// Candidate is one ranked staff member together with the reasoning the admin
// UI displays.
type Candidate struct {
	Staff           *models.Staff
	Tier            Tier
	OpenAssignments int
}

// Rank orders the active staff pool for a report category, best first:
// direct matches, then variation matches, then everyone else, each group
// sorted by ascending open-assignment count and then by name. An empty pool
// yields an empty result; the caller surfaces "no staff available".
func Rank(category string, staff []*models.Staff, openCounts map[string]int, vars Variations) []Candidate {
	norm := models.NormalizeCategory(category)

	synonyms := map[string]bool{}
	for _, s := range vars[norm] {
		synonyms[models.NormalizeCategory(s)] = true
	}

	candidates := make([]Candidate, 0, len(staff))
	for _, st := range staff {
		if !st.IsActive {
			continue
		}
		tier := TierGeneral
		if st.HandlesCategory(norm) {
			tier = TierDirect
		} else if synonyms[models.NormalizeCategory(st.Specialization)] {
			tier = TierVariation
		}
		candidates = append(candidates, Candidate{
			Staff:           st,
			Tier:            tier,
			OpenAssignments: openCounts[st.ID.Hex()],
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.OpenAssignments != b.OpenAssignments {
			return a.OpenAssignments < b.OpenAssignments
		}
		return a.Staff.Name < b.Staff.Name
	})
	return candidates
}
