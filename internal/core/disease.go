package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"rarediag/internal/llm"
	"rarediag/pkg"
)

// DiseaseStore is the persistence the disease lookups need.  FindDisease
// returns an error wrapping pkg.ErrNotFound when the name is unknown.
type DiseaseStore interface {
	SuggestDiseases(ctx context.Context, q string) ([]string, error)
	FindDisease(ctx context.Context, name string) (*pkg.Disease, error)
	SetDiseaseDescription(ctx context.Context, d *pkg.Disease, description string) error
}

// Source tells whether a resolved text came from the store or was produced
// during the call.
type Source int

const (
	SourceCached Source = iota + 1
	SourceGenerated
)

// Description is the outcome of DiseaseService.Describe.
type Description struct {
	Disease pkg.Disease
	Source  Source
}

// DiseaseService looks disease descriptions up and fills missing ones from
// the LLM.
type DiseaseService struct {
	Store  DiseaseStore
	LLM    llm.Client
	Logger zerolog.Logger
}

// NewDiseaseService constructs a DiseaseService.
func NewDiseaseService(store DiseaseStore, client llm.Client, logger zerolog.Logger) *DiseaseService {
	return &DiseaseService{Store: store, LLM: client, Logger: logger}
}

// Suggest returns disease names containing q.
func (s *DiseaseService) Suggest(ctx context.Context, q string) ([]string, error) {
	if strings.TrimSpace(q) == "" {
		return nil, invalidInput("Query parameter 'q' cannot be empty")
	}
	names, err := s.Store.SuggestDiseases(ctx, q)
	if err != nil {
		return nil, storeFailure("suggest diseases", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Describe returns the stored description for name, generating and storing
// it first when the row exists but has none.  A stored non-blank description
// is never regenerated.
func (s *DiseaseService) Describe(ctx context.Context, name string) (*Description, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidInput("Disease name cannot be empty")
	}
	d, err := s.Store.FindDisease(ctx, name)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, err
		}
		return nil, storeFailure("find disease", err)
	}

	if strings.TrimSpace(d.Description) != "" {
		return &Description{Disease: *d, Source: SourceCached}, nil
	}

	raw, err := s.LLM.Complete(ctx, llm.UserPrompt(descriptionPrompt(name)), DescriptionOptions)
	if err != nil {
		return nil, upstreamFailure("generate description", err)
	}
	text := StripThink(raw)

	if err := s.Store.SetDiseaseDescription(ctx, d, text); err != nil {
		return nil, storeFailure("store description", err)
	}
	s.Logger.Info().Int64("disease_id", d.ID).Str("disease", d.Name).Msg("description generated")

	d.Description = text
	return &Description{Disease: *d, Source: SourceGenerated}, nil
}
