package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gconnect/leadgen-cli/pkg/overpass"
)

func TestNormalize(t *testing.T) {
	elements := []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Corner Cafe", "amenity": "cafe", "addr:street": "MG Road", "website": "https://cornercafe.in", "email": "hi@cornercafe.in"}},
		{ID: 2, Tags: map[string]string{"amenity": "cafe"}}, // nameless, dropped
		{ID: 3, Tags: map[string]string{"name": "Fresh Bakes", "shop": "bakery"}},
		{ID: 4, Tags: map[string]string{"name": "Sunrise Homes", "office": "estate_agent"}},
		{ID: 5, Tags: map[string]string{"name": "Mystery Spot"}},
	}

	leads := Normalize(elements, "Bengaluru", "gym")
	require.Len(t, leads, 4)

	assert.Equal(t, "Corner Cafe", leads[0].Name)
	assert.Equal(t, "MG Road, Bengaluru", leads[0].Address)
	assert.Equal(t, "cafe", leads[0].Category)
	assert.Equal(t, "https://cornercafe.in", leads[0].RawWebsite)
	assert.Equal(t, "hi@cornercafe.in", leads[0].RawEmail)

	// no street tag falls back to the location label
	assert.Equal(t, "Bengaluru", leads[1].Address)
	assert.Equal(t, "bakery", leads[1].Category)

	// amenity > shop > office precedence, then the run category
	assert.Equal(t, "estate_agent", leads[2].Category)
	assert.Equal(t, "gym", leads[3].Category)
}

func TestNormalizeDedupFirstWins(t *testing.T) {
	elements := []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Corner Cafe", "amenity": "cafe", "email": "first@cornercafe.in"}},
		{ID: 2, Tags: map[string]string{"name": "corner cafe", "amenity": "restaurant", "email": "second@cornercafe.in"}},
		{ID: 3, Tags: map[string]string{"name": "CORNER CAFE", "addr:street": "MG Road"}},
	}

	leads := Normalize(elements, "Bengaluru", "")
	require.Len(t, leads, 2)

	// same name+address collapses to the first record
	assert.Equal(t, "first@cornercafe.in", leads[0].RawEmail)
	// different street means a different identity
	assert.Equal(t, "MG Road, Bengaluru", leads[1].Address)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil, "Bengaluru", ""))
}
