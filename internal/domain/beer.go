package domain

import "time"

// Sentinel marks a CSV value that is intentionally absent.
const Sentinel = "-"

// Well-known provenance source identifiers.
const (
	SourceCSV            = "csv"
	SourceOpenBreweryDB  = "open-brewery-db"
	SourceOpenFoodFacts  = "open-food-facts"
	SourceManualOverride = "manual-override"
)

// BaselineBeer is one normalized row of the canonical CSV list.
// Optional fields keep the Sentinel at this stage.
type BaselineBeer struct {
	Nr          int
	Name        string
	Brewery     string
	Country     string
	ABV         string
	Stammwuerze string
	Ingredients string
	Size        string
	Price       string
	Category    string
}

// EnrichmentPayload is the sparse field set an adapter returns for one baseline nr.
// Empty strings and nil pointers mean "not supplied".
type EnrichmentPayload struct {
	BreweryID            string
	BreweryWebsite       string
	BreweryCity          string
	BreweryState         string
	BreweryStateProvince string
	BreweryCountryCode   string
	BreweryType          string
	BreweryPhone         string
	BreweryPostalCode    string
	BreweryStreet        string
	BreweryAddress1      string
	BreweryAddress2      string
	BreweryAddress3      string
	BreweryLatitude      *float64
	BreweryLongitude     *float64

	Price       string
	ABV         string
	Ingredients string
	Size        string
	Country     string
	Category    string

	OpenFoodFactsCode string
	OpenFoodFactsURL  string

	// SourceID and SourceURL feed the provenance entry.
	SourceID  string
	SourceURL string

	// MatchScore is used for best-match selection only and never written out.
	MatchScore int
}

// DataSource is one provenance entry on an enriched record.
type DataSource struct {
	Source    string    `json:"source"`
	SourceID  string    `json:"sourceId,omitempty"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	SyncedAt  time.Time `json:"syncedAt"`
}

// EnrichedBeer is the output unit of a sync run.
type EnrichedBeer struct {
	Nr       int    `json:"nr"`
	Name     string `json:"name"`
	Brewery  string `json:"brewery"`
	Country  string `json:"country"`
	Category string `json:"category"`
	Size     string `json:"size"`
	Price    string `json:"price"`

	ABV         string `json:"abv,omitempty"`
	Stammwuerze string `json:"stammwuerze,omitempty"`
	Ingredients string `json:"ingredients,omitempty"`

	BreweryID            string   `json:"breweryId,omitempty"`
	BreweryWebsite       string   `json:"breweryWebsite,omitempty"`
	BreweryCity          string   `json:"breweryCity,omitempty"`
	BreweryState         string   `json:"breweryState,omitempty"`
	BreweryStateProvince string   `json:"breweryStateProvince,omitempty"`
	BreweryCountryCode   string   `json:"breweryCountryCode,omitempty"`
	BreweryType          string   `json:"breweryType,omitempty"`
	BreweryPhone         string   `json:"breweryPhone,omitempty"`
	BreweryPostalCode    string   `json:"breweryPostalCode,omitempty"`
	BreweryStreet        string   `json:"breweryStreet,omitempty"`
	BreweryAddress1      string   `json:"breweryAddress1,omitempty"`
	BreweryAddress2      string   `json:"breweryAddress2,omitempty"`
	BreweryAddress3      string   `json:"breweryAddress3,omitempty"`
	BreweryLatitude      *float64 `json:"breweryLatitude,omitempty"`
	BreweryLongitude     *float64 `json:"breweryLongitude,omitempty"`

	OpenFoodFactsCode string `json:"openFoodFactsCode,omitempty"`
	OpenFoodFactsURL  string `json:"openFoodFactsUrl,omitempty"`

	DataSources []DataSource `json:"dataSources"`
	SyncedAt    time.Time    `json:"syncedAt"`
}

// HasSource reports whether any provenance entry carries the given source.
func (b EnrichedBeer) HasSource(source string) bool {
	for _, ds := range b.DataSources {
		if ds.Source == source {
			return true
		}
	}
	return false
}

// EnrichmentStats summarizes one adapter call.
type EnrichmentStats struct {
	Attempted       int
	Matched         int
	FetchedProducts int
	Discovered      int
}

// EnrichmentResult is what an adapter hands back to the orchestrator.
type EnrichmentResult struct {
	Payloads   map[int]EnrichmentPayload
	Discovered []EnrichedBeer
	Stats      EnrichmentStats
}

// EmptyEnrichment is the degraded result used when a source is skipped or fails.
func EmptyEnrichment() EnrichmentResult {
	return EnrichmentResult{Payloads: map[int]EnrichmentPayload{}}
}
