package pipeline

import (
	"fmt"
	"strings"
)

// DefaultAreaQuery is the fixed Overpass QL for the default pipeline run:
// consumer-facing local businesses in the configured home area.
func DefaultAreaQuery(area string) string {
	return fmt.Sprintf(`
[out:json][timeout:25];
area["name"=%q]->.a;
(
  node(area.a)["amenity"~"restaurant|cafe|fast_food|bar|pub|clinic|hospital|doctors|pharmacy|dentist|gym"];
  node(area.a)["shop"~"bakery|supermarket|convenience|clothes|electronics|furniture|books|sports"];
  node(area.a)["office"~"estate_agent|real_estate"];
);
out body;
>;
out skel qt;
`, area)
}

// BroadenCategory expands a user-facing category into the tag regex actually
// queried. Gyms and restaurants are tagged inconsistently in OSM, so their
// queries sweep the synonym space.
func BroadenCategory(category string) string {
	lower := strings.ToLower(category)
	switch {
	case lower == "gym":
		return "gym|fitness_centre|fitness center|sports_centre|sports hall|health club"
	case strings.Contains(lower, "restaurant"):
		return "restaurant|cafe|fast_food|bar|pub"
	default:
		return lower
	}
}

// AreaQuery builds the Overpass QL for a resolved area id and category,
// matching across the tag families businesses use.
func AreaQuery(areaID int64, category string) string {
	regex := BroadenCategory(category)
	return fmt.Sprintf(`
[out:json][timeout:180];
area(%d)->.searchArea;
(
  nwr["amenity"~"%[2]s",i](area.searchArea);
  nwr["leisure"~"%[2]s",i](area.searchArea);
  nwr["building"~"%[2]s",i](area.searchArea);
  nwr["sport"~"%[2]s",i](area.searchArea);
  nwr[name~"%[3]s",i](area.searchArea);
  nwr["shop"~"%[3]s",i](area.searchArea);
);
out body;
>;
out skel qt;
`, areaID, regex, category)
}
