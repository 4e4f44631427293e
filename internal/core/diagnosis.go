package core

import (
	"context"

	"github.com/rs/zerolog"

	"rarediag/internal/llm"
	"rarediag/pkg"
)

// RecordSink keeps a copy of every submitted patient record.
type RecordSink interface {
	Save(ctx context.Context, record pkg.PatientRecord) (string, error)
}

// DiagnosisService turns a patient record into ranked rare-disease
// candidates.
type DiagnosisService struct {
	LLM    llm.Client
	Sink   RecordSink
	Logger zerolog.Logger
}

// NewDiagnosisService constructs a DiagnosisService.  sink may be nil.
func NewDiagnosisService(client llm.Client, sink RecordSink, logger zerolog.Logger) *DiagnosisService {
	return &DiagnosisService{LLM: client, Sink: sink, Logger: logger}
}

// Diagnose saves the record and then synthesizes a diagnosis.  Saving is best
// effort: a failure is logged and the diagnosis goes ahead.  An empty record
// is rejected before either step.
func (s *DiagnosisService) Diagnose(ctx context.Context, record pkg.PatientRecord) (map[string]any, error) {
	if len(record) == 0 {
		return nil, invalidInput("No patient data provided")
	}
	if s.Sink != nil {
		if path, err := s.Sink.Save(ctx, record); err != nil {
			s.Logger.Error().Err(err).Msg("failed to save patient data")
		} else {
			s.Logger.Debug().Str("path", path).Msg("patient data saved")
		}
	}
	return s.Synthesize(ctx, record)
}

// Synthesize asks the LLM for patient_details and top_rare_diseases and
// returns the parsed object unchanged.  Output that cannot be parsed yields
// *ExtractionError with the sanitized text; the number of candidates and
// their fields are not checked.
func (s *DiagnosisService) Synthesize(ctx context.Context, record pkg.PatientRecord) (map[string]any, error) {
	prompt, err := diagnosisPrompt(record)
	if err != nil {
		return nil, err
	}

	raw, err := s.LLM.Complete(ctx, llm.UserPrompt(prompt), DiagnosisOptions)
	if err != nil {
		return nil, upstreamFailure("diagnosis completion", err)
	}

	result, err := ExtractJSON(StripThink(raw))
	if err != nil {
		s.Logger.Warn().Err(err).Msg("diagnosis response was not valid JSON")
		return nil, err
	}
	return result, nil
}
