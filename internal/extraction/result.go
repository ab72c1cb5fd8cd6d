package extraction

// DataPoint is one extracted field relevant to the carbon assessment.
// Values stay textual: source documents use inconsistent numeral formats
// and the orchestrator does not reinterpret them.
type DataPoint struct {
	Champ     string  `json:"champ"`
	Valeur    *string `json:"valeur"`
	Unite     *string `json:"unite"`
	Confiance float64 `json:"confiance"`
}

// CO2Detail is one energy type's consumption-to-emission computation as
// reported by the engine. The orchestrator trusts the engine's arithmetic;
// its job is transport and persistence, not recomputation.
type CO2Detail struct {
	Type         string  `json:"type"`
	Consommation float64 `json:"consommation"`
	Unite        string  `json:"unite"`
	Facteur      float64 `json:"facteur"`
	CO2Kg        float64 `json:"co2_kg"`
	Source       string  `json:"source"`
}

// Result is the engine's structured output. JSON keys are the engine's
// contract (French, fixed). Filename is not part of the engine output: the
// engine only ever sees the temporary artifact path, so the orchestrator
// overlays the client-declared name after parsing.
type Result struct {
	Filename string `json:"filename,omitempty"`

	TypeFacture            string      `json:"type_facture"`
	Fournisseur            *string     `json:"fournisseur"`
	Periode                *string     `json:"periode"`
	ReferenceFacture       *string     `json:"reference_facture"`
	ReferenceClient        *string     `json:"reference_client"`
	Adresse                *string     `json:"adresse"`
	Donnees                []DataPoint `json:"donnees"`
	EmissionCO2Kg          *float64    `json:"emission_co2_kg"`
	FacteurEmissionUtilise *string     `json:"facteur_emission_utilise"`
	SourceFacteur          *string     `json:"source_facteur"`
	Resume                 string      `json:"resume"`
	TypesEnergie           []string    `json:"types_energie"`
	DetailCO2              []CO2Detail `json:"detail_co2"`
	ScoreGlobal            float64     `json:"score_global"`
	Alertes                []string    `json:"alertes"`
	TexteOCRBrut           string      `json:"texte_ocr_brut"`
}
