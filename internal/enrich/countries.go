package enrich

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

var countryAliases = mustLoadCountryAliases(countriesYAML)

type countryTable struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// ParseCountryAliases reads a table of canonical country -> alternative names
// and returns a lookup keyed by the normalized alternative.
func ParseCountryAliases(raw []byte) (map[string]string, error) {
	var table countryTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse country aliases: %w", err)
	}

	out := make(map[string]string)
	for canonical, names := range table.Aliases {
		c := Normalize(canonical)
		out[c] = c
		for _, name := range names {
			out[Normalize(name)] = c
		}
	}
	return out, nil
}

func mustLoadCountryAliases(raw []byte) map[string]string {
	aliases, err := ParseCountryAliases(raw)
	if err != nil {
		panic(err)
	}
	return aliases
}
