package merge

import (
	"fmt"
	"strings"

	"BeerSync/internal/domain"
)

// Validation is the outcome of checking one record. It never fails the run.
type Validation struct {
	Valid  bool
	Errors []string
}

// Validate checks identity, required fields and provenance of a record.
func Validate(b domain.EnrichedBeer) Validation {
	var errs []string
	if b.Nr <= 0 {
		errs = append(errs, fmt.Sprintf("nr must be a positive integer, got %d", b.Nr))
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"country", b.Country},
		{"category", b.Category},
		{"size", b.Size},
		{"price", b.Price},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, "missing required field "+f.name)
		}
	}
	if len(b.DataSources) == 0 {
		errs = append(errs, "dataSources must not be empty")
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}
}
