package pipeline

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasYAML []byte

var cityAliases map[string]string

func init() {
	if err := yaml.Unmarshal(aliasYAML, &cityAliases); err != nil {
		panic("pipeline: parse embedded alias table: " + err.Error())
	}
}

// CanonicalCity trims and auto-corrects a user-supplied city name. The
// alias lookup is case-insensitive, but the returned name keeps its casing:
// Overpass matches tag values exactly, so "bengaluru" finds no area.
func CanonicalCity(city string) string {
	trimmed := strings.TrimSpace(city)
	if corrected, ok := cityAliases[strings.ToLower(trimmed)]; ok {
		return corrected
	}
	return trimmed
}

// SplitCities parses a comma-separated city list, dropping empties and
// canonicalizing each entry.
func SplitCities(input string) []string {
	parts := strings.Split(input, ",")
	cities := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := CanonicalCity(p); c != "" {
			cities = append(cities, c)
		}
	}
	return cities
}
