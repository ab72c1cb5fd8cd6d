package extraction

import "github.com/ecofacture/carbon-analyzer/constants"

// BuildResultJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the engine's output contract. We validate every
// output against it before deserializing: the engine is a black box and
// silent coercion of whatever it wrote is how bad rows end up in the store.
func BuildResultJSONSchema() map[string]any {
	energyTypes := append(constants.EnergyTypeStrings(), string(constants.Inconnu))

	dataPoint := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"champ":     map[string]any{"type": "string", "minLength": 1},
			"valeur":    nullableString(),
			"unite":     nullableString(),
			"confiance": scoreProp(),
		},
		"required": []string{"champ", "confiance"},
	}

	co2Detail := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":         map[string]any{"type": "string", "enum": constants.EnergyTypeStrings()},
			"consommation": map[string]any{"type": "number"},
			"unite":        map[string]any{"type": "string"},
			"facteur":      map[string]any{"type": "number"},
			"co2_kg":       map[string]any{"type": "number"},
			"source":       map[string]any{"type": "string"},
		},
		"required": []string{"type", "consommation", "co2_kg"},
	}

	props := map[string]any{
		"type_facture":             map[string]any{"type": "string", "enum": energyTypes},
		"fournisseur":              nullableString(),
		"periode":                  nullableString(),
		"reference_facture":        nullableString(),
		"reference_client":         nullableString(),
		"adresse":                  nullableString(),
		"donnees":                  map[string]any{"type": "array", "items": dataPoint},
		"emission_co2_kg":          map[string]any{"type": []string{"number", "null"}},
		"facteur_emission_utilise": nullableString(),
		"source_facteur":           nullableString(),
		"resume":                   map[string]any{"type": "string"},
		"types_energie": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "enum": constants.EnergyTypeStrings()},
		},
		"detail_co2":     map[string]any{"type": "array", "items": co2Detail},
		"score_global":   scoreProp(),
		"alertes":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"texte_ocr_brut": map[string]any{"type": "string"},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"type_facture", "donnees", "score_global"},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func scoreProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}
