package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rarediag/internal/registry"
	"rarediag/pkg"
)

const (
	// NoRegistryInfo is returned when the label registry knows nothing about
	// the drug.
	NoRegistryInfo = "No disease info found in OpenFDA."
	// NoDescription is returned when the registry entry has none of the
	// sections we render.
	NoDescription = "No description available."
)

// DrugStore is the persistence the drug lookups need.  FindDrugs returns an
// error wrapping pkg.ErrNotFound when no row matches.
type DrugStore interface {
	SuggestDrugs(ctx context.Context, q string) ([]string, error)
	FindDrugs(ctx context.Context, name string) ([]pkg.DrugRow, error)
	SetDrugOverview(ctx context.Context, name, overview string) (int64, error)
}

// LabelRegistry fetches drug labels.  A nil label with a nil error means the
// registry has no entry for the name.
type LabelRegistry interface {
	Lookup(ctx context.Context, brandName string) (*registry.Label, error)
}

// labelSections are rendered in this order; absent ones are skipped.
var labelSections = []struct {
	field string
	title string
}{
	{"indications_and_usage", "Indications and Usage"},
	{"overdosage", "Overdosage"},
	{"drug_interactions", "Drug Interactions"},
	{"warnings_and_cautions", "Warnings and Cautions"},
	{"storage_and_handling", "Storage and Handling"},
	{"pregnancy", "Pregnancy"},
}

// DrugService resolves manufacturers and an overview for a drug, filling the
// overview from the label registry the first time it is asked for.
type DrugService struct {
	Store    DrugStore
	Registry LabelRegistry
	Logger   zerolog.Logger
}

// NewDrugService constructs a DrugService.
func NewDrugService(store DrugStore, reg LabelRegistry, logger zerolog.Logger) *DrugService {
	return &DrugService{Store: store, Registry: reg, Logger: logger}
}

// Suggest returns drug names containing q.
func (s *DrugService) Suggest(ctx context.Context, q string) ([]string, error) {
	if strings.TrimSpace(q) == "" {
		return nil, invalidInput("Query parameter 'q' cannot be empty")
	}
	names, err := s.Store.SuggestDrugs(ctx, q)
	if err != nil {
		return nil, storeFailure("suggest drugs", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Lookup returns the manufacturers of every row matching name and the shared
// overview, fetching it from the registry when no row has one yet.
func (s *DrugService) Lookup(ctx context.Context, name string) (*pkg.DrugInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidInput("Drug name cannot be empty")
	}
	rows, err := s.Store.FindDrugs(ctx, name)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, err
		}
		return nil, storeFailure("find drugs", err)
	}

	info := &pkg.DrugInfo{
		DrugName:      name,
		Manufacturers: manufacturers(rows),
	}

	for _, r := range rows {
		if strings.TrimSpace(r.Overview) != "" {
			info.Description = r.Overview
			return info, nil
		}
	}

	label, err := s.Registry.Lookup(ctx, name)
	if err != nil {
		return nil, upstreamFailure("drug label lookup", err)
	}
	if label == nil {
		info.Description = NoRegistryInfo
		return info, nil
	}

	overview := renderLabel(name, label)
	if overview == "" {
		info.Description = NoDescription
		return info, nil
	}

	n, err := s.Store.SetDrugOverview(ctx, name, overview)
	if err != nil {
		return nil, storeFailure("store drug overview", err)
	}
	s.Logger.Info().Str("drug", name).Int64("rows", n).Msg("drug overview stored")

	info.Description = overview
	return info, nil
}

// manufacturers returns the distinct non-empty sponsors, sorted ascending.
func manufacturers(rows []pkg.DrugRow) []string {
	seen := make(map[string]struct{}, len(rows))
	out := []string{}
	for _, r := range rows {
		if r.Sponsor == "" {
			continue
		}
		if _, ok := seen[r.Sponsor]; ok {
			continue
		}
		seen[r.Sponsor] = struct{}{}
		out = append(out, r.Sponsor)
	}
	sort.Strings(out)
	return out
}

// renderLabel formats the label sections as markdown under a title line.  It
// returns "" when none of the sections are present.
func renderLabel(drug string, label *registry.Label) string {
	var b strings.Builder
	for _, sec := range labelSections {
		text := strings.TrimSpace(label.Section(sec.field))
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "**%s:**\n%s\n\n", sec.title, strings.ReplaceAll(text, "\n", " "))
	}
	if b.Len() == 0 {
		return ""
	}
	title := cases.Title(language.English).String(drug)
	return strings.TrimSpace(fmt.Sprintf("**%s: A Comprehensive Overview**\n\n%s", title, b.String()))
}
