package constants

import "strings"

// EnergyType is the canonical energy category of an invoice, as reported by
// the extraction engine. Values are stable (stored as-is in DB and JSON).
type EnergyType string

const (
	Electricite EnergyType = "electricite"
	GazNaturel  EnergyType = "gaz_naturel"
	Eau         EnergyType = "eau"
	Essence     EnergyType = "essence"
	Diesel      EnergyType = "diesel"
	GPL         EnergyType = "gpl"

	// Inconnu is used when the engine could not classify the invoice.
	Inconnu EnergyType = "inconnu"
)

var allEnergyTypes = []EnergyType{
	Electricite,
	GazNaturel,
	Eau,
	Essence,
	Diesel,
	GPL,
}

// EnergyTypeStrings returns the billable energy types as strings, without
// the "inconnu" placeholder.
func EnergyTypeStrings() []string {
	result := make([]string, len(allEnergyTypes))
	for i, t := range allEnergyTypes {
		result[i] = string(t)
	}
	return result
}

// EnergyLabel returns the French display label for an energy type.
func EnergyLabel(t EnergyType) string {
	switch t {
	case Electricite:
		return "Électricité"
	case GazNaturel:
		return "Gaz naturel"
	case Eau:
		return "Eau"
	case Essence:
		return "Essence"
	case Diesel:
		return "Diesel"
	case GPL:
		return "GPL"
	default:
		return "Inconnu"
	}
}

// CanonicalizeEnergy maps free-form input onto the closed energy-type set.
// The boolean reports whether the input matched a known type.
func CanonicalizeEnergy(input string) (EnergyType, bool) {
	if input == "" {
		return Inconnu, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]EnergyType{
		"electricity": Electricite,
		"électricité": Electricite,
		"elec":        Electricite,
		"steg":        Electricite,
		"gaz":         GazNaturel,
		"gas":         GazNaturel,
		"natural gas": GazNaturel,
		"water":       Eau,
		"sonede":      Eau,
		"gasoline":    Essence,
		"gasoil":      Diesel,
		"gazole":      Diesel,
		"lpg":         GPL,
		"butane":      GPL,
		"propane":     GPL,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allEnergyTypes {
		if normalized == string(t) {
			return t, true
		}
	}

	return Inconnu, false
}
