package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownField is returned when an override names a field outside the record schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrFieldType is returned when an override value has the wrong JSON type for its field.
	ErrFieldType = errors.New("invalid field type")
)

var stringFields = map[string]func(*EnrichedBeer) *string{
	"name":                 func(b *EnrichedBeer) *string { return &b.Name },
	"brewery":              func(b *EnrichedBeer) *string { return &b.Brewery },
	"country":              func(b *EnrichedBeer) *string { return &b.Country },
	"category":             func(b *EnrichedBeer) *string { return &b.Category },
	"size":                 func(b *EnrichedBeer) *string { return &b.Size },
	"price":                func(b *EnrichedBeer) *string { return &b.Price },
	"abv":                  func(b *EnrichedBeer) *string { return &b.ABV },
	"stammwuerze":          func(b *EnrichedBeer) *string { return &b.Stammwuerze },
	"ingredients":          func(b *EnrichedBeer) *string { return &b.Ingredients },
	"breweryId":            func(b *EnrichedBeer) *string { return &b.BreweryID },
	"breweryWebsite":       func(b *EnrichedBeer) *string { return &b.BreweryWebsite },
	"breweryCity":          func(b *EnrichedBeer) *string { return &b.BreweryCity },
	"breweryState":         func(b *EnrichedBeer) *string { return &b.BreweryState },
	"breweryStateProvince": func(b *EnrichedBeer) *string { return &b.BreweryStateProvince },
	"breweryCountryCode":   func(b *EnrichedBeer) *string { return &b.BreweryCountryCode },
	"breweryType":          func(b *EnrichedBeer) *string { return &b.BreweryType },
	"breweryPhone":         func(b *EnrichedBeer) *string { return &b.BreweryPhone },
	"breweryPostalCode":    func(b *EnrichedBeer) *string { return &b.BreweryPostalCode },
	"breweryStreet":        func(b *EnrichedBeer) *string { return &b.BreweryStreet },
	"breweryAddress1":      func(b *EnrichedBeer) *string { return &b.BreweryAddress1 },
	"breweryAddress2":      func(b *EnrichedBeer) *string { return &b.BreweryAddress2 },
	"breweryAddress3":      func(b *EnrichedBeer) *string { return &b.BreweryAddress3 },
	"openFoodFactsCode":    func(b *EnrichedBeer) *string { return &b.OpenFoodFactsCode },
	"openFoodFactsUrl":     func(b *EnrichedBeer) *string { return &b.OpenFoodFactsURL },
}

var numberFields = map[string]func(*EnrichedBeer) **float64{
	"breweryLatitude":  func(b *EnrichedBeer) **float64 { return &b.BreweryLatitude },
	"breweryLongitude": func(b *EnrichedBeer) **float64 { return &b.BreweryLongitude },
}

// Patch is a manual correction applied on top of a merged record.
// Only fields of the EnrichedBeer schema can be set; identity and provenance cannot.
type Patch struct {
	values map[string]any
}

// NewPatch returns an empty patch.
func NewPatch() Patch {
	return Patch{values: map[string]any{}}
}

// Set validates value against the schema of field and stores it.
// A nil value clears the field.
func (p *Patch) Set(field string, value any) error {
	if p.values == nil {
		p.values = map[string]any{}
	}

	if _, ok := stringFields[field]; ok {
		switch v := value.(type) {
		case nil:
			p.values[field] = nil
		case string:
			p.values[field] = v
		default:
			return fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, field, value)
		}
		return nil
	}

	if _, ok := numberFields[field]; ok {
		switch v := value.(type) {
		case nil:
			p.values[field] = nil
		case float64:
			p.values[field] = v
		case int:
			p.values[field] = float64(v)
		default:
			return fmt.Errorf("%w: %s expects a number, got %T", ErrFieldType, field, value)
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// Len returns the number of fields the patch sets.
func (p Patch) Len() int {
	return len(p.values)
}

// Fields lists the patched field names in sorted order.
func (p Patch) Fields() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the stored value for field.
func (p Patch) Value(field string) (any, bool) {
	v, ok := p.values[field]
	return v, ok
}

// Apply replaces every patched field on b, including required ones.
func (p Patch) Apply(b *EnrichedBeer) {
	for _, field := range p.Fields() {
		value := p.values[field]
		if ptr, ok := stringFields[field]; ok {
			s, _ := value.(string)
			*ptr(b) = s
			continue
		}
		if ptr, ok := numberFields[field]; ok {
			if f, isNum := value.(float64); isNum {
				*ptr(b) = &f
			} else {
				*ptr(b) = nil
			}
		}
	}
}

// Overrides maps a beer nr to its manual correction.
type Overrides map[int]Patch
