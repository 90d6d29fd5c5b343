package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"BeerSync/internal/domain"
)

// searchResponse is one page of the catalog search.
type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Code            flexString     `json:"code"`
	ProductName     flexString     `json:"product_name"`
	Brands          flexString     `json:"brands"`
	Countries       flexString     `json:"countries"`
	Quantity        flexString     `json:"quantity"`
	IngredientsText flexString     `json:"ingredients_text"`
	ABV             any            `json:"abv"`
	AlcoholByVolume any            `json:"alcohol_by_volume"`
	Nutriments      map[string]any `json:"nutriments"`
}

// flexString accepts a JSON string or number; catalog entries are not consistent.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexString: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)

// cleanValue trims v and treats the sentinel as absent.
func cleanValue(v flexString) string {
	s := strings.TrimSpace(string(v))
	if s == domain.Sentinel {
		return ""
	}
	return s
}

// firstListItem returns the first entry of a comma-separated catalog list.
func firstListItem(v flexString) string {
	s := cleanValue(v)
	if s == "" {
		return ""
	}
	first, _, _ := strings.Cut(s, ",")
	return cleanValue(flexString(first))
}

// normalizeABV renders a positive alcohol value as "N,N%".
func normalizeABV(v any) string {
	var raw string
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		raw = strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		raw = n
	case json.Number:
		raw = n.String()
	default:
		return ""
	}

	raw = strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	m := leadingNumber.FindString(raw)
	if m == "" {
		return ""
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || f <= 0 {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(f, 'f', 1, 64), ".", ",", 1) + "%"
}

func (p product) abv() string {
	candidates := []any{p.ABV, p.AlcoholByVolume}
	for _, key := range []string{"alcohol", "alcohol_100g", "alcohol_value"} {
		candidates = append(candidates, p.Nutriments[key])
	}
	for _, c := range candidates {
		if v := normalizeABV(c); v != "" {
			return v
		}
	}
	return ""
}

func productURL(base, code string) string {
	if code == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(code)
}
