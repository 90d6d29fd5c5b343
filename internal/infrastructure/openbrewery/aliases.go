package openbrewery

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"BeerSync/internal/enrich"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// AliasTable maps normalized baseline brewery names to directory names and
// lists the suffixes stripped from simplified queries.
type AliasTable struct {
	Aliases  map[string]string
	Suffixes []string
}

type aliasFile struct {
	Aliases  map[string]string `yaml:"aliases"`
	Suffixes []string          `yaml:"suffixes"`
}

// ParseAliases decodes an alias document.
func ParseAliases(raw []byte) (AliasTable, error) {
	var doc aliasFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return AliasTable{}, fmt.Errorf("parse brewery aliases: %w", err)
	}

	table := AliasTable{Aliases: make(map[string]string, len(doc.Aliases)), Suffixes: doc.Suffixes}
	for from, to := range doc.Aliases {
		table.Aliases[enrich.Normalize(from)] = to
	}
	return table, nil
}

// DefaultAliases returns the table shipped with the binary.
func DefaultAliases() AliasTable {
	table, err := ParseAliases(defaultAliasesYAML)
	if err != nil {
		panic(err)
	}
	return table
}

// LoadAliases reads the table at path, or returns the shipped table when path is empty.
func LoadAliases(path string) (AliasTable, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}, fmt.Errorf("read brewery aliases %s: %w", path, err)
	}
	return ParseAliases(raw)
}
