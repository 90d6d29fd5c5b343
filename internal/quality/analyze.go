package quality

import (
	"BeerSync/internal/domain"
)

// Analysis is the input of the post-merge analysis pass.
type Analysis struct {
	Baseline   []domain.BaselineBeer
	Beers      []domain.EnrichedBeer
	Breweries  map[int]domain.EnrichmentPayload
	Products   map[int]domain.EnrichmentPayload
	Overrides  domain.Overrides
	Discovered int
}

// Analyze attributes match, unmatched and override counts over
// baseline-originated records only, and missing optional fields over every
// record. Discovered records are counted separately.
func Analyze(t *Tracker, a Analysis) {
	fromBaseline := make(map[int]bool, len(a.Baseline))
	for _, b := range a.Baseline {
		fromBaseline[b.Nr] = true
	}

	t.RecordInput(len(a.Baseline))
	t.RecordOutput(len(a.Beers))
	if a.Discovered > 0 {
		t.RecordDiscovered(a.Discovered)
	}

	for _, beer := range a.Beers {
		if fromBaseline[beer.Nr] {
			if _, ok := a.Breweries[beer.Nr]; ok {
				t.RecordMatch(domain.MatchKeyOpenBreweryDB)
			} else {
				t.RecordUnmatched()
			}
			if _, ok := a.Products[beer.Nr]; ok {
				t.RecordMatch(domain.MatchKeyOpenFoodFacts)
			}
			if _, ok := a.Overrides[beer.Nr]; ok {
				t.RecordOverride()
			}
		}

		for _, f := range []struct {
			name  string
			value string
		}{
			{"abv", beer.ABV},
			{"stammwuerze", beer.Stammwuerze},
			{"ingredients", beer.Ingredients},
			{"breweryWebsite", beer.BreweryWebsite},
			{"breweryCity", beer.BreweryCity},
		} {
			if f.value == "" {
				t.RecordMissingField(f.name)
			}
		}
	}
}
