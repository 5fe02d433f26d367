package pipeline

import (
	"fmt"

	"github.com/gconnect/leadgen-cli/internal/model"
	"github.com/gconnect/leadgen-cli/pkg/overpass"
)

// firstTag returns the first present tag value from keys, or fallback.
// Precedence is the order of keys.
func firstTag(tags map[string]string, fallback string, keys ...string) string {
	for _, k := range keys {
		if v, ok := tags[k]; ok && v != "" {
			return v
		}
	}
	return fallback
}

// Normalize maps raw Overpass elements to leads. Elements without a name tag
// carry no identity and are dropped. The category falls back through
// amenity, shop, office to fallbackCategory; the address falls back from
// "addr:street, <location>" to the location label itself. Duplicates on
// lowercase(name+address) collapse to the first occurrence, preserving
// input order.
func Normalize(elements []overpass.Element, location, fallbackCategory string) []model.Lead {
	leads := make([]model.Lead, 0, len(elements))
	seen := make(map[string]struct{}, len(elements))

	for _, el := range elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}

		address := location
		if street := el.Tags["addr:street"]; street != "" {
			address = fmt.Sprintf("%s, %s", street, location)
		}

		lead := model.Lead{
			Name:       name,
			Address:    address,
			RawWebsite: el.Tags["website"],
			RawEmail:   el.Tags["email"],
			Category:   firstTag(el.Tags, fallbackCategory, "amenity", "shop", "office"),
		}

		key := lead.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		leads = append(leads, lead)
	}

	return leads
}
