package canonical

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Alias maps merchant spellings onto one canonical name
type Alias struct {
	Canonical string   `yaml:"canonical"`
	Patterns  []string `yaml:"patterns"`
}

type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// DefaultAliases returns the built-in alias table
func DefaultAliases() []Alias {
	return []Alias{
		{Canonical: "AMAZON", Patterns: []string{"AMZN", "AMZN MKTP", "AMAZON COM", "AMAZON MKTPL", "AMAZON PRIME"}},
		{Canonical: "UBER", Patterns: []string{"UBER TRIP", "UBER BV", "UBR"}},
		{Canonical: "UBER EATS", Patterns: []string{"UBER EATS", "UBEREATS"}},
		{Canonical: "NETFLIX", Patterns: []string{"NETFLIX COM", "NETFLIX"}},
		{Canonical: "SPOTIFY", Patterns: []string{"SPOTIFY", "SPOTIFY AB"}},
		{Canonical: "AUTOMERCADO", Patterns: []string{"AUTO MERCADO", "AUTOMERCADO"}},
		{Canonical: "WALMART", Patterns: []string{"WAL MART", "WALMART"}},
		{Canonical: "MAS X MENOS", Patterns: []string{"MASXMENOS", "MAS X MENOS"}},
		{Canonical: "PRICESMART", Patterns: []string{"PRICE SMART", "PRICESMART"}},
		{Canonical: "MCDONALDS", Patterns: []string{"MC DONALDS", "MCDONALD S", "MCDONALDS"}},
	}
}

// LoadAliasFile reads an alias table from YAML:
//
//	aliases:
//	  - canonical: FARMACIA FISCHEL
//	    patterns: ["FISCHEL", "FARM FISCHEL"]
func LoadAliasFile(path string) ([]Alias, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file %s: %w", path, err)
	}

	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse alias file %s: %w", path, err)
	}

	for i, a := range file.Aliases {
		if a.Canonical == "" {
			return nil, fmt.Errorf("alias %d in %s has no canonical name", i, path)
		}
	}
	return file.Aliases, nil
}
