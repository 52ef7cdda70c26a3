// Package visarules answers visa requirement lookups for a
// nationality/destination pair from the reference catalog.
package visarules

import (
	"fmt"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

type Checker struct {
	catalog *store.Catalog
}

func NewChecker(catalog *store.Catalog) *Checker {
	return &Checker{catalog: catalog}
}

// Check returns the visa rule matching the pair. When no rule matches,
// a conservative default is returned rather than an error so planning
// can proceed with a caution note.
func (c *Checker) Check(nationality, destinationCountry string) (models.VisaInfo, error) {
	nat := normNationality(nationality)
	dest := utils.NormKey(destinationCountry)
	if nat == "" || dest == "" {
		return models.VisaInfo{}, fmt.Errorf("nationality and destination country are required")
	}

	for _, r := range c.catalog.VisaRules {
		if normNationality(r.Nationality) == nat && utils.NormKey(r.DestinationCountry) == dest {
			return r.Info, nil
		}
	}

	return models.VisaInfo{
		VisaRequired:       true,
		VisaType:           "Unknown",
		StayDurationNotes:  "N/A",
		ProcessingTimeDays: "N/A",
		RequiredDocuments:  []string{},
		Notes:              fmt.Sprintf("No visa rule on file for %s travelling to %s; verify with the destination's embassy.", nationality, destinationCountry),
	}, nil
}

func normNationality(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(utils.NormKey(s), " citizen"))
}
