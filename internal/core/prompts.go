package core

// prompts.go holds the prompt templates and sampling settings sent to the
// LLM.  Keeping them together makes them easy to tweak without touching the
// services.

import (
	"bytes"
	"encoding/json"
	"fmt"

	"rarediag/internal/llm"
	"rarediag/pkg"
)

var (
	// DescriptionOptions favour a focused, encyclopaedic answer.
	DescriptionOptions = llm.Options{Temperature: 0.6, MaxTokens: 2048, TopP: 0.95}

	// DiagnosisOptions run hot on purpose so the candidate diseases vary.
	DiagnosisOptions = llm.Options{Temperature: 1.0, MaxTokens: 4096, TopP: 1.0}
)

// descriptionPrompt asks for a free-text write-up of a single disease.
func descriptionPrompt(disease string) string {
	return fmt.Sprintf("%s: give long description, symptoms, Clinical Significance, related disorders, treatment, and key aspects.", disease)
}

const diagnosisTemplate = `You are a medical assistant. The patient's intake information is:
%s

1. Restructure the patient details as a JSON object under the key "patient_details".
2. Using that information, look for rare diseases consistent with the patient's symptoms and history.
3. Return exactly the 3 most likely rare diseases as an array under the key "top_rare_diseases". Each entry must have these fields:
    - disease_name
    - score (likelihood of the match, integer 1-100)
    - description
    - overview
    - signs_symptoms (array of strings)
    - clinical_significance
    - causes
    - related_disorders (disorders with similar symptoms, array of strings)
    - diagnosis
    - treatment
    - clinical_trials (array of strings)
    - key_aspects (array of strings)
4. Answer with a single JSON object with the keys patient_details and top_rare_diseases.

Example output:
%s

IMPORTANT: Do NOT include any reasoning, explanation, <think> tags, or any text before or after the JSON. Return ONLY the JSON object.
`

// diagnosisSkeleton is the literal example shown to the model.
var diagnosisSkeleton = func() string {
	entry := pkg.RareDiseaseCandidate{
		DiseaseName:          "...",
		Score:                92,
		Description:          "...",
		Overview:             "...",
		SignsSymptoms:        []string{"...", "..."},
		ClinicalSignificance: "...",
		Causes:               "...",
		RelatedDisorders:     []string{"...", "..."},
		Diagnosis:            "...",
		Treatment:            "...",
		ClinicalTrials:       []string{"...", "..."},
		KeyAspects:           []string{"...", "..."},
	}
	example := pkg.DiagnosisResult{
		PatientDetails:  map[string]any{"...": "..."},
		TopRareDiseases: []pkg.RareDiseaseCandidate{entry, entry, entry},
	}
	b, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}()

// diagnosisPrompt embeds the pretty-printed record into the template.
func diagnosisPrompt(record pkg.PatientRecord) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("encode patient record: %w", err)
	}
	return fmt.Sprintf(diagnosisTemplate, bytes.TrimSpace(buf.Bytes()), diagnosisSkeleton), nil
}
