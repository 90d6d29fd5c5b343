package enrich

import "strings"

// MaxScore caps every match score.
const MaxScore = 100

// Weights is the rule set used to score a catalog candidate against a query.
// The name rules are exclusive (the first that applies wins); brand and
// locale bonuses are added on top.
type Weights struct {
	ExactName    int `yaml:"exactName"`
	PartialName  int `yaml:"partialName"`
	FirstToken   int `yaml:"firstToken"`
	ExactBrand   int `yaml:"exactBrand"`
	PartialBrand int `yaml:"partialBrand"`
	Locale       int `yaml:"locale"`
}

// DefaultBreweryWeights scores brewery directory entries.
func DefaultBreweryWeights() Weights {
	return Weights{ExactName: 70, PartialName: 40, FirstToken: 20, Locale: 30}
}

// DefaultProductWeights scores product catalog entries.
func DefaultProductWeights() Weights {
	return Weights{ExactName: 70, PartialName: 40, ExactBrand: 25, PartialBrand: 15, Locale: 10}
}

// Subject is the comparable view of a query or a candidate.
type Subject struct {
	Name    string
	Brand   string
	Country string
}

// NewSubject normalizes the raw values of a subject.
func NewSubject(name, brand, country string) Subject {
	if strings.TrimSpace(brand) == "-" {
		brand = ""
	}
	return Subject{
		Name:    Normalize(name),
		Brand:   Normalize(brand),
		Country: NormalizeCountry(country),
	}
}

// Score applies w to a normalized query and candidate and returns a value in [0, MaxScore].
func Score(w Weights, query, candidate Subject) int {
	if query.Name == "" || candidate.Name == "" {
		return 0
	}

	score := 0
	switch {
	case query.Name == candidate.Name:
		score += w.ExactName
	case strings.Contains(candidate.Name, query.Name) || strings.Contains(query.Name, candidate.Name):
		score += w.PartialName
	case firstToken(query.Name) == firstToken(candidate.Name):
		score += w.FirstToken
	}

	if query.Brand != "" && candidate.Brand != "" {
		switch {
		case query.Brand == candidate.Brand:
			score += w.ExactBrand
		case strings.Contains(candidate.Brand, query.Brand) || strings.Contains(query.Brand, candidate.Brand):
			score += w.PartialBrand
		}
	}

	if query.Country != "" && query.Country == candidate.Country {
		score += w.Locale
	}

	if score > MaxScore {
		return MaxScore
	}
	return score
}
