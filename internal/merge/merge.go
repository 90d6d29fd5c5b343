// Package merge combines the baseline with enrichment layers and manual
// overrides into the published record set.
package merge

import (
	"time"

	"BeerSync/internal/domain"
	"BeerSync/internal/enrich"
)

// Layer is the output of one enrichment source keyed by beer nr.
type Layer struct {
	Source   string
	Payloads map[int]domain.EnrichmentPayload
}

// Input is everything a merge needs. Secondary wins over Primary; overrides win over both.
type Input struct {
	Baseline  []domain.BaselineBeer
	Primary   Layer
	Secondary Layer
	Overrides domain.Overrides
}

// Collision records a baseline row whose identity key repeats an earlier row.
type Collision struct {
	Nr      int
	FirstNr int
	Key     string
}

// Result is the merged record set in baseline order.
type Result struct {
	Beers            []domain.EnrichedBeer
	Collisions       []Collision
	OverridesApplied int
}

// Engine merges with a fixed clock per run.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine stamping records with now(); nil means time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Merge builds one EnrichedBeer per baseline record. Field precedence is
// baseline < primary < secondary < override; provenance is appended in the
// same order. Duplicate identity keys are reported, never dropped.
func (e *Engine) Merge(in Input) Result {
	syncedAt := e.now().UTC()
	res := Result{Beers: make([]domain.EnrichedBeer, 0, len(in.Baseline))}
	firstByKey := make(map[string]int, len(in.Baseline))

	for _, base := range in.Baseline {
		key := enrich.IdentityKey(base.Name, base.Brewery, base.Country)
		if first, ok := firstByKey[key]; ok {
			res.Collisions = append(res.Collisions, Collision{Nr: base.Nr, FirstNr: first, Key: key})
		} else {
			firstByKey[key] = base.Nr
		}

		beer := seed(base)
		beer.DataSources = append(beer.DataSources, domain.DataSource{Source: domain.SourceCSV, SyncedAt: syncedAt})

		for _, layer := range []Layer{in.Primary, in.Secondary} {
			payload, ok := layer.Payloads[base.Nr]
			if !ok {
				continue
			}
			applyPayload(&beer, payload)
			beer.DataSources = append(beer.DataSources, domain.DataSource{
				Source:    layer.Source,
				SourceID:  payload.SourceID,
				SourceURL: payload.SourceURL,
				SyncedAt:  syncedAt,
			})
		}

		if patch, ok := in.Overrides[base.Nr]; ok {
			patch.Apply(&beer)
			beer.DataSources = append(beer.DataSources, domain.DataSource{Source: domain.SourceManualOverride, SyncedAt: syncedAt})
			res.OverridesApplied++
		}

		beer.SyncedAt = syncedAt
		res.Beers = append(res.Beers, beer)
	}

	return res
}

// seed copies required fields and the brewery verbatim; the other optional
// fields are dropped when they hold the sentinel.
func seed(b domain.BaselineBeer) domain.EnrichedBeer {
	return domain.EnrichedBeer{
		Nr:          b.Nr,
		Name:        b.Name,
		Brewery:     b.Brewery,
		Country:     b.Country,
		Category:    b.Category,
		Size:        b.Size,
		Price:       b.Price,
		ABV:         present(b.ABV),
		Stammwuerze: present(b.Stammwuerze),
		Ingredients: present(b.Ingredients),
	}
}

func present(v string) string {
	if v == domain.Sentinel {
		return ""
	}
	return v
}

// applyPayload overwrites only the fields the payload supplies.
func applyPayload(b *domain.EnrichedBeer, p domain.EnrichmentPayload) {
	set(&b.BreweryID, p.BreweryID)
	set(&b.BreweryWebsite, p.BreweryWebsite)
	set(&b.BreweryCity, p.BreweryCity)
	set(&b.BreweryState, p.BreweryState)
	set(&b.BreweryStateProvince, p.BreweryStateProvince)
	set(&b.BreweryCountryCode, p.BreweryCountryCode)
	set(&b.BreweryType, p.BreweryType)
	set(&b.BreweryPhone, p.BreweryPhone)
	set(&b.BreweryPostalCode, p.BreweryPostalCode)
	set(&b.BreweryStreet, p.BreweryStreet)
	set(&b.BreweryAddress1, p.BreweryAddress1)
	set(&b.BreweryAddress2, p.BreweryAddress2)
	set(&b.BreweryAddress3, p.BreweryAddress3)
	if p.BreweryLatitude != nil {
		lat := *p.BreweryLatitude
		b.BreweryLatitude = &lat
	}
	if p.BreweryLongitude != nil {
		lon := *p.BreweryLongitude
		b.BreweryLongitude = &lon
	}

	set(&b.Price, p.Price)
	set(&b.ABV, p.ABV)
	set(&b.Ingredients, p.Ingredients)
	set(&b.Size, p.Size)
	set(&b.Country, p.Country)
	set(&b.Category, p.Category)
	set(&b.OpenFoodFactsCode, p.OpenFoodFactsCode)
	set(&b.OpenFoodFactsURL, p.OpenFoodFactsURL)
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
