package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnergyTypeStrings(t *testing.T) {
	types := EnergyTypeStrings()
	assert.Len(t, types, 6)
	assert.NotContains(t, types, string(Inconnu))
}

func TestCanonicalizeEnergy(t *testing.T) {
	tests := []struct {
		input string
		want  EnergyType
		ok    bool
	}{
		{"electricite", Electricite, true},
		{"ELECTRICITY", Electricite, true},
		{"steg", Electricite, true},
		{"gaz_naturel", GazNaturel, true},
		{"gas", GazNaturel, true},
		{"water", Eau, true},
		{"sonede", Eau, true},
		{"  diesel  ", Diesel, true},
		{"gazole", Diesel, true},
		{"butane", GPL, true},
		{"charbon", Inconnu, false},
		{"", Inconnu, false},
	}
	for _, tt := range tests {
		got, ok := CanonicalizeEnergy(tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
	}
}

func TestEnergyLabel(t *testing.T) {
	assert.Equal(t, "Électricité", EnergyLabel(Electricite))
	assert.Equal(t, "Gaz naturel", EnergyLabel(GazNaturel))
	assert.Equal(t, "Inconnu", EnergyLabel(Inconnu))
	assert.Equal(t, "Inconnu", EnergyLabel(EnergyType("whatever")))
}
