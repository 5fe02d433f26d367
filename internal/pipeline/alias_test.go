package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalCity(t *testing.T) {
	assert.Equal(t, "Bengaluru", CanonicalCity("Bangalore"))
	assert.Equal(t, "Bengaluru", CanonicalCity("  BANGLORE "))
	assert.Equal(t, "Mumbai", CanonicalCity("Bombay"))
	assert.Equal(t, "Visakhapatnam", CanonicalCity("vizag"))
	assert.Equal(t, "Panaji", CanonicalCity("Goa"))
	// unknown names pass through with their casing intact
	assert.Equal(t, "Pune", CanonicalCity(" Pune "))
	assert.Equal(t, "", CanonicalCity("  "))
}

func TestCanonicalCityKeepsOSMCasing(t *testing.T) {
	// the corrected name must match the OSM area tag exactly
	assert.Equal(t, "Bengaluru", CanonicalCity("bengaluru"))
	assert.Equal(t, CanonicalCity("Bangalore"), CanonicalCity(CanonicalCity("Bangalore")))
}

func TestSplitCities(t *testing.T) {
	assert.Equal(t, []string{"Bengaluru", "Mumbai", "Kochi"}, SplitCities("Bangalore, Bombay,, Kerala , "))
	assert.Empty(t, SplitCities(" , ,"))
	assert.Equal(t, []string{"Chennai"}, SplitCities("Madras"))
}
