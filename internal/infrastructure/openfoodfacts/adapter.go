// Package openfoodfacts matches baseline records against the Open Food Facts
// beer catalog and discovers catalog beers the baseline does not list.
package openfoodfacts

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"BeerSync/internal/domain"
	"BeerSync/internal/enrich"
	"BeerSync/internal/infrastructure/httpx"
	"BeerSync/internal/ports"
)

const (
	DefaultBaseURL        = "https://world.openfoodfacts.org"
	DefaultProductURL     = "https://world.openfoodfacts.org/product"
	DefaultPageSize       = 100
	MinPageSize           = 25
	DefaultMaxPages       = 8
	DefaultDelay          = 120 * time.Millisecond
	DefaultTimeout        = 15 * time.Second
	DefaultDiscoveryLimit = 300
	DefaultMinScore       = 55

	discoveredCategory = "Beer"
	unknownCountry     = "Unknown"
	searchFields       = "code,product_name,brands,countries,quantity,ingredients_text,abv,alcohol_by_volume,nutriments"
)

// Options configures the adapter.
type Options struct {
	BaseURL          string
	ProductURL       string
	PageSize         int
	MaxPages         int
	Delay            time.Duration
	Timeout          time.Duration
	Retries          int
	RetryStep        time.Duration
	CacheSize        int
	DiscoveryLimit   int
	IncludeDiscovery bool
	MinScore         int
	Weights          *enrich.Weights
	Now              func() time.Time
}

// DefaultOptions returns the catalog defaults with discovery enabled.
func DefaultOptions() Options {
	return Options{
		BaseURL:          DefaultBaseURL,
		ProductURL:       DefaultProductURL,
		PageSize:         DefaultPageSize,
		MaxPages:         DefaultMaxPages,
		Delay:            DefaultDelay,
		Timeout:          DefaultTimeout,
		DiscoveryLimit:   DefaultDiscoveryLimit,
		IncludeDiscovery: true,
		MinScore:         DefaultMinScore,
	}
}

type bestMatch struct {
	idx   int
	score int
}

// Adapter downloads the catalog once per run and matches every record locally.
type Adapter struct {
	opts    Options
	client  *httpx.Client
	matcher enrich.Matcher
	logger  *slog.Logger
}

var _ ports.Enricher = (*Adapter)(nil)

// New wires the adapter. A page size below the minimum is raised to it and
// at least one page is always fetched.
func New(opts Options, log *slog.Logger) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ProductURL == "" {
		opts.ProductURL = DefaultProductURL
	}
	switch {
	case opts.PageSize == 0:
		opts.PageSize = DefaultPageSize
	case opts.PageSize < MinPageSize:
		opts.PageSize = MinPageSize
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DiscoveryLimit < 0 {
		opts.DiscoveryLimit = 0
	}
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	weights := enrich.DefaultProductWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		opts: opts,
		client: httpx.NewClient(httpx.Options{
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			RetryStep: opts.RetryStep,
			Delay:     opts.Delay,
		}, log),
		matcher: enrich.Matcher{Weights: weights, Threshold: opts.MinScore},
		logger:  log,
	}
}

// Name identifies the source inside the registry.
func (a *Adapter) Name() string {
	return domain.SourceOpenFoodFacts
}

// Enrich fetches the catalog, matches the baseline against it and, when
// enabled, synthesizes records for unmatched catalog entries.
func (a *Adapter) Enrich(ctx context.Context, beers []domain.BaselineBeer) (domain.EnrichmentResult, error) {
	products, err := a.fetchCatalog(ctx)
	if err != nil {
		return domain.EmptyEnrichment(), err
	}

	result := domain.EmptyEnrichment()
	result.Stats.Attempted = len(beers)
	result.Stats.FetchedProducts = len(products)

	subjects := make([]enrich.Subject, len(products))
	for i, p := range products {
		subjects[i] = enrich.NewSubject(string(p.ProductName), string(p.Brands), string(p.Countries))
	}

	cache := enrich.NewLookupCache[bestMatch](a.opts.CacheSize)
	matchedCodes := map[string]bool{}

	for _, beer := range beers {
		key := enrich.CacheKey(beer.Name, beer.Brewery, beer.Country)
		m, ok, hit := cache.Get(key)
		if !hit {
			query := []enrich.Subject{enrich.NewSubject(beer.Name, beer.Brewery, beer.Country)}
			m.idx, m.score, ok = a.matcher.Best(query, subjects)
			cache.Put(key, m, ok)
		}
		if !ok {
			continue
		}

		payload := a.toPayload(products[m.idx], m.score)
		result.Payloads[beer.Nr] = payload
		result.Stats.Matched++
		if payload.OpenFoodFactsCode != "" {
			matchedCodes[payload.OpenFoodFactsCode] = true
		}
	}

	if a.opts.IncludeDiscovery && a.opts.DiscoveryLimit > 0 {
		result.Discovered = a.discover(beers, products, matchedCodes)
		result.Stats.Discovered = len(result.Discovered)
	}

	a.logger.Info("product enrichment finished",
		"fetched", result.Stats.FetchedProducts,
		"attempted", result.Stats.Attempted,
		"matched", result.Stats.Matched,
		"discovered", result.Stats.Discovered,
	)
	return result, nil
}

// fetchCatalog pages through the beer category until an empty page or the
// page limit. A failing first page fails the call; later failures end paging.
func (a *Adapter) fetchCatalog(ctx context.Context) ([]product, error) {
	var products []product
	for page := 1; page <= a.opts.MaxPages; page++ {
		var resp searchResponse
		if err := a.client.GetJSON(ctx, a.pageURL(page), &resp); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch catalog page 1: %w", err)
			}
			a.logger.Warn("catalog paging stopped", "page", page, "error", err)
			break
		}
		if len(resp.Products) == 0 {
			break
		}
		products = append(products, resp.Products...)
		a.logger.Debug("catalog page fetched", "page", page, "products", len(resp.Products))
	}
	return products, nil
}

func (a *Adapter) pageURL(page int) string {
	params := url.Values{}
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(a.opts.PageSize))
	params.Set("tagtype_0", "categories")
	params.Set("tag_contains_0", "contains")
	params.Set("tag_0", "beers")
	params.Set("fields", searchFields)
	return strings.TrimRight(a.opts.BaseURL, "/") + "/cgi/search.pl?" + params.Encode()
}

func (a *Adapter) toPayload(p product, score int) domain.EnrichmentPayload {
	code := cleanValue(p.Code)
	link := productURL(a.opts.ProductURL, code)
	return domain.EnrichmentPayload{
		ABV:               p.abv(),
		Ingredients:       cleanValue(p.IngredientsText),
		Size:              cleanValue(p.Quantity),
		OpenFoodFactsCode: code,
		OpenFoodFactsURL:  link,
		SourceID:          code,
		SourceURL:         link,
		MatchScore:        score,
	}
}

// discover turns unmatched catalog entries into new records numbered after the
// highest baseline nr. Entries whose identity key is already known are skipped.
func (a *Adapter) discover(beers []domain.BaselineBeer, products []product, matchedCodes map[string]bool) []domain.EnrichedBeer {
	known := make(map[string]bool, len(beers))
	nextNr := 0
	for _, b := range beers {
		known[enrich.IdentityKey(b.Name, b.Brewery, b.Country)] = true
		if b.Nr > nextNr {
			nextNr = b.Nr
		}
	}

	syncedAt := a.opts.Now().UTC()
	var discovered []domain.EnrichedBeer

	for _, p := range products {
		if len(discovered) >= a.opts.DiscoveryLimit {
			break
		}

		code := cleanValue(p.Code)
		if code != "" && matchedCodes[code] {
			continue
		}

		beer, ok := a.toDiscovered(p, syncedAt)
		if !ok {
			continue
		}

		key := enrich.IdentityKey(beer.Name, beer.Brewery, beer.Country)
		if known[key] {
			continue
		}
		known[key] = true

		nextNr++
		beer.Nr = nextNr
		discovered = append(discovered, beer)
	}
	return discovered
}

func (a *Adapter) toDiscovered(p product, syncedAt time.Time) (domain.EnrichedBeer, bool) {
	name := cleanValue(p.ProductName)
	if name == "" {
		return domain.EnrichedBeer{}, false
	}

	code := cleanValue(p.Code)
	link := productURL(a.opts.ProductURL, code)

	return domain.EnrichedBeer{
		Name:              name,
		Brewery:           orDefault(firstListItem(p.Brands), domain.Sentinel),
		Country:           orDefault(firstListItem(p.Countries), unknownCountry),
		Category:          discoveredCategory,
		Size:              orDefault(cleanValue(p.Quantity), domain.Sentinel),
		Price:             domain.Sentinel,
		ABV:               p.abv(),
		Ingredients:       cleanValue(p.IngredientsText),
		OpenFoodFactsCode: code,
		OpenFoodFactsURL:  link,
		DataSources: []domain.DataSource{{
			Source:    domain.SourceOpenFoodFacts,
			SourceID:  code,
			SourceURL: link,
			SyncedAt:  syncedAt,
		}},
		SyncedAt: syncedAt,
	}, true
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
