// Package openbrewery enriches baseline records with brewery metadata from
// the Open Brewery DB directory.
package openbrewery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
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
	DefaultBaseURL  = "https://api.openbrewerydb.org/v1"
	DefaultPerPage  = 50
	DefaultDelay    = 500 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
	DefaultRetries  = 1
	DefaultMinScore = 40
)

// Options configures the adapter. Zero values take the defaults above.
type Options struct {
	BaseURL   string
	PerPage   int
	Delay     time.Duration
	Timeout   time.Duration
	Retries   int
	RetryStep time.Duration
	CacheSize int
	MinScore  int
	Weights   *enrich.Weights
	Aliases   AliasTable
}

// Adapter looks up every baseline brewery in the directory.
type Adapter struct {
	baseURL string
	perPage int
	client  *httpx.Client
	matcher enrich.Matcher
	aliases AliasTable
	cache   int
	logger  *slog.Logger
}

var _ ports.Enricher = (*Adapter)(nil)

// brewery is the subset of the directory's record we read. Coordinates come
// as numeric strings.
type brewery struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BreweryType   string `json:"brewery_type"`
	Address1      string `json:"address_1"`
	Address2      string `json:"address_2"`
	Address3      string `json:"address_3"`
	City          string `json:"city"`
	State         string `json:"state"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Longitude     any    `json:"longitude"`
	Latitude      any    `json:"latitude"`
	Phone         string `json:"phone"`
	WebsiteURL    string `json:"website_url"`
	Street        string `json:"street"`
}

// New wires the adapter.
func New(opts Options, log *slog.Logger) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	weights := enrich.DefaultBreweryWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if opts.Aliases.Aliases == nil && opts.Aliases.Suffixes == nil {
		opts.Aliases = DefaultAliases()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		perPage: opts.PerPage,
		client: httpx.NewClient(httpx.Options{
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			RetryStep: opts.RetryStep,
			Delay:     opts.Delay,
		}, log),
		matcher: enrich.Matcher{Weights: weights, Threshold: opts.MinScore},
		aliases: opts.Aliases,
		cache:   opts.CacheSize,
		logger:  log,
	}
}

// Name identifies the source inside the registry.
func (a *Adapter) Name() string {
	return domain.SourceOpenBreweryDB
}

// Enrich looks up each record's brewery one at a time. A failed lookup is a
// miss; only a cancelled context aborts the batch.
func (a *Adapter) Enrich(ctx context.Context, beers []domain.BaselineBeer) (domain.EnrichmentResult, error) {
	result := domain.EmptyEnrichment()
	cache := enrich.NewLookupCache[domain.EnrichmentPayload](a.cache)

	for _, beer := range beers {
		if err := ctx.Err(); err != nil {
			return domain.EmptyEnrichment(), err
		}
		result.Stats.Attempted++

		key := enrich.CacheKey(beer.Brewery, beer.Country)
		payload, ok, hit := cache.Get(key)
		if !hit {
			payload, ok = a.lookup(ctx, beer.Brewery, beer.Country)
			cache.Put(key, payload, ok)
		}
		if !ok {
			continue
		}

		result.Payloads[beer.Nr] = payload
		result.Stats.Matched++
	}

	a.logger.Info("brewery enrichment finished",
		"attempted", result.Stats.Attempted,
		"matched", result.Stats.Matched,
		"lookups", cache.Len(),
	)
	return result, nil
}

func (a *Adapter) lookup(ctx context.Context, name, country string) (domain.EnrichmentPayload, bool) {
	queries := enrich.QueryCandidates(name, a.aliases.Aliases, a.aliases.Suffixes)
	if len(queries) == 0 {
		return domain.EnrichmentPayload{}, false
	}

	candidates := a.search(ctx, queries, "by_name")
	if len(candidates) == 0 {
		candidates = a.search(ctx, queries, "search")
	}
	if len(candidates) == 0 {
		return domain.EnrichmentPayload{}, false
	}

	subjects := make([]enrich.Subject, 0, len(queries))
	for _, q := range queries {
		subjects = append(subjects, enrich.NewSubject(q, "", country))
	}
	options := make([]enrich.Subject, 0, len(candidates))
	for _, c := range candidates {
		options = append(options, enrich.NewSubject(c.Name, "", c.Country))
	}

	idx, score, ok := a.matcher.Best(subjects, options)
	if !ok {
		a.logger.Debug("no brewery above threshold", "brewery", name, "country", country)
		return domain.EnrichmentPayload{}, false
	}
	return toPayload(candidates[idx], score), true
}

// search runs every query in one mode and merges the results. Failed
// requests are logged and contribute nothing.
func (a *Adapter) search(ctx context.Context, queries []string, mode string) []brewery {
	var (
		out  []brewery
		seen = map[string]bool{}
	)
	for _, q := range queries {
		var page []brewery
		endpoint := a.endpoint(mode, q)
		if err := a.client.GetJSON(ctx, endpoint, &page); err != nil {
			a.logger.Warn("brewery lookup failed", "query", q, "mode", mode, "error", err)
			continue
		}
		for _, b := range page {
			key := b.ID
			if key == "" {
				key = enrich.CacheKey(b.Name, b.Country)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, b)
		}
	}
	return out
}

func (a *Adapter) endpoint(mode, query string) string {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(a.perPage))
	if mode == "search" {
		params.Set("query", query)
		return fmt.Sprintf("%s/breweries/search?%s", a.baseURL, params.Encode())
	}
	params.Set("by_name", query)
	return fmt.Sprintf("%s/breweries?%s", a.baseURL, params.Encode())
}

func toPayload(b brewery, score int) domain.EnrichmentPayload {
	return domain.EnrichmentPayload{
		BreweryID:            b.ID,
		BreweryWebsite:       b.WebsiteURL,
		BreweryCity:          b.City,
		BreweryState:         firstNonEmpty(b.State, b.StateProvince),
		BreweryStateProvince: b.StateProvince,
		BreweryCountryCode:   b.Country,
		BreweryType:          b.BreweryType,
		BreweryPhone:         b.Phone,
		BreweryPostalCode:    b.PostalCode,
		BreweryStreet:        firstNonEmpty(b.Street, b.Address1),
		BreweryAddress1:      b.Address1,
		BreweryAddress2:      b.Address2,
		BreweryAddress3:      b.Address3,
		BreweryLatitude:      optionalNumber(b.Latitude),
		BreweryLongitude:     optionalNumber(b.Longitude),
		SourceID:             b.ID,
		MatchScore:           score,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optionalNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
