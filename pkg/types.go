package pkg

import "errors"

// ErrNotFound is returned by stores when the requested disease or drug has
// no row in the database.
var ErrNotFound = errors.New("not found")

// PatientRecord is the free-form intake submitted to /api/diagnose.  There is
// no fixed schema; only the optional "name" field is interpreted (for file
// naming).  Numbers are kept as json.Number so they round-trip verbatim.
type PatientRecord map[string]any

// Name returns the record's "name" field when it is a non-empty string.
func (r PatientRecord) Name() (string, bool) {
	v, ok := r["name"].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Disease is a row of the diseases table.  Description stays empty until the
// first lookup generates it.
type Disease struct {
	ID          int64  `json:"id"`
	Name        string `json:"disease"`
	Description string `json:"description,omitempty"`
}

// DrugRow is a row of the fda_drugs table.  There is one row per sponsor;
// Overview (the disease_name column) is shared by all rows of a drug once
// filled.
type DrugRow struct {
	DrugName string `json:"drug_name"`
	Sponsor  string `json:"sponsor_name,omitempty"`
	Overview string `json:"disease_name,omitempty"`
}

// DrugInfo is what the drug lookup hands back to callers.
type DrugInfo struct {
	DrugName      string   `json:"drug_name"`
	Manufacturers []string `json:"manufacturers"`
	Description   string   `json:"description"`
}

// RareDiseaseCandidate is one entry of top_rare_diseases as requested from
// the model.  Responses are not validated against it.
type RareDiseaseCandidate struct {
	DiseaseName          string   `json:"disease_name"`
	Score                int      `json:"score"`
	Description          string   `json:"description"`
	Overview             string   `json:"overview"`
	SignsSymptoms        []string `json:"signs_symptoms"`
	ClinicalSignificance string   `json:"clinical_significance"`
	Causes               string   `json:"causes"`
	RelatedDisorders     []string `json:"related_disorders"`
	Diagnosis            string   `json:"diagnosis"`
	Treatment            string   `json:"treatment"`
	ClinicalTrials       []string `json:"clinical_trials"`
	KeyAspects           []string `json:"key_aspects"`
}

// DiagnosisResult is the shape the diagnosis prompt asks the model for.
type DiagnosisResult struct {
	PatientDetails  map[string]any         `json:"patient_details"`
	TopRareDiseases []RareDiseaseCandidate `json:"top_rare_diseases"`
}
