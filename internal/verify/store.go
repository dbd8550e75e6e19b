package verify

import (
	"fmt"

	"github.com/evcraddock/bukkaku/internal/property"
)

// Store saves each report's property and records the run's outcome on it.
// The latest run always replaces the stored follow-up state.
func Store(repo *property.Repository, reports []*Report) error {
	for _, r := range reports {
		if _, err := repo.Upsert(r.Property); err != nil {
			return err
		}
		if err := repo.RecordVerification(r.Property, r.Verification()); err != nil {
			return fmt.Errorf("storing report %s: %w", r.RunID, err)
		}
	}
	return nil
}
