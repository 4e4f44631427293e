package core

import (
	"context"
	"fmt"
	"strings"

	"rarediag/internal/llm"
	"rarediag/internal/registry"
	"rarediag/pkg"
)

// -- LLM --

type fakeLLM struct {
	reply   string
	err     error
	calls   int
	prompts []string
	opts    []llm.Options
}

func (f *fakeLLM) Complete(_ context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	f.calls++
	for _, m := range msgs {
		f.prompts = append(f.prompts, m.Content)
	}
	f.opts = append(f.opts, opts)
	return f.reply, f.err
}

// -- Diseases --

type fakeDiseaseStore struct {
	diseases map[string]*pkg.Disease
	findErr  error
	updates  int
}

func newFakeDiseaseStore(ds ...pkg.Disease) *fakeDiseaseStore {
	s := &fakeDiseaseStore{diseases: make(map[string]*pkg.Disease)}
	for i := range ds {
		d := ds[i]
		s.diseases[strings.ToLower(d.Name)] = &d
	}
	return s
}

func (s *fakeDiseaseStore) SuggestDiseases(_ context.Context, q string) ([]string, error) {
	out := []string{}
	for _, d := range s.diseases {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(q)) {
			out = append(out, d.Name)
		}
	}
	return out, s.findErr
}

func (s *fakeDiseaseStore) FindDisease(_ context.Context, name string) (*pkg.Disease, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	d, ok := s.diseases[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("disease %q: %w", name, pkg.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDiseaseStore) SetDiseaseDescription(_ context.Context, d *pkg.Disease, description string) error {
	s.updates++
	s.diseases[strings.ToLower(d.Name)].Description = description
	return nil
}

// -- Drugs --

type fakeDrugStore struct {
	rows    []pkg.DrugRow
	updates map[string]string
}

func (s *fakeDrugStore) SuggestDrugs(_ context.Context, q string) ([]string, error) {
	return nil, nil
}

func (s *fakeDrugStore) FindDrugs(_ context.Context, name string) ([]pkg.DrugRow, error) {
	var out []pkg.DrugRow
	for _, r := range s.rows {
		if strings.Contains(strings.ToUpper(r.DrugName), strings.ToUpper(name)) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("drug %q: %w", name, pkg.ErrNotFound)
	}
	return out, nil
}

func (s *fakeDrugStore) SetDrugOverview(_ context.Context, name, overview string) (int64, error) {
	if s.updates == nil {
		s.updates = make(map[string]string)
	}
	s.updates[name] = overview
	var n int64
	for i := range s.rows {
		if strings.Contains(strings.ToUpper(s.rows[i].DrugName), strings.ToUpper(name)) {
			s.rows[i].Overview = overview
			n++
		}
	}
	return n, nil
}

type fakeRegistry struct {
	label *registry.Label
	err   error
	calls int
}

func (r *fakeRegistry) Lookup(_ context.Context, _ string) (*registry.Label, error) {
	r.calls++
	return r.label, r.err
}

// -- Sink --

type fakeSink struct {
	err   error
	saved []pkg.PatientRecord
}

func (s *fakeSink) Save(_ context.Context, record pkg.PatientRecord) (string, error) {
	s.saved = append(s.saved, record)
	if s.err != nil {
		return "", s.err
	}
	return "patient_data/x.json", nil
}
