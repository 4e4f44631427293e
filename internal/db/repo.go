package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rarediag/pkg"
)

// SuggestionLimit caps the number of names returned by the suggest queries.
const SuggestionLimit = 10

// Repository wraps the diseases and fda_drugs tables.  Every method runs in
// its own gate scope, so no connection outlives a call.
type Repository struct {
	Gate     *Gate
	Notifier *Notifier
}

// NewRepository constructs a Repository.  notifier may be nil.
func NewRepository(g *Gate, notifier *Notifier) *Repository {
	return &Repository{Gate: g, Notifier: notifier}
}

// Ping checks that a connection can be acquired.
func (r *Repository) Ping(ctx context.Context) error {
	return r.Gate.DB.PingContext(ctx)
}

// SuggestDiseases returns up to SuggestionLimit distinct disease names
// containing q, case-insensitively.
func (r *Repository) SuggestDiseases(ctx context.Context, q string) ([]string, error) {
	return r.suggest(ctx, `SELECT DISTINCT disease FROM diseases WHERE disease ILIKE $1 LIMIT $2`, q)
}

// SuggestDrugs returns up to SuggestionLimit distinct drug names containing q.
func (r *Repository) SuggestDrugs(ctx context.Context, q string) ([]string, error) {
	return r.suggest(ctx, `SELECT DISTINCT drug_name FROM fda_drugs WHERE drug_name ILIKE $1 LIMIT $2`, q)
}

func (r *Repository) suggest(ctx context.Context, query, q string) ([]string, error) {
	out := []string{}
	err := r.Gate.Scope(ctx, func(ctx context.Context, tx Querier) error {
		rows, err := tx.QueryContext(ctx, query, "%"+q+"%", SuggestionLimit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			out = append(out, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindDisease looks a disease up by exact, case-insensitive name.  LIKE
// wildcards in name are matched literally.  It returns pkg.ErrNotFound when
// there is no such row.
func (r *Repository) FindDisease(ctx context.Context, name string) (*pkg.Disease, error) {
	var d pkg.Disease
	err := r.Gate.Scope(ctx, func(ctx context.Context, tx Querier) error {
		var desc sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT id, disease, description
             FROM diseases
             WHERE lower(disease) = lower($1)
             LIMIT 1`,
			name,
		).Scan(&d.ID, &d.Name, &desc)
		if err != nil {
			return err
		}
		d.Description = desc.String
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("disease %q: %w", name, pkg.ErrNotFound)
		}
		return nil, err
	}
	return &d, nil
}

// SetDiseaseDescription stores a generated description for the disease row.
func (r *Repository) SetDiseaseDescription(ctx context.Context, d *pkg.Disease, description string) error {
	return r.Gate.Scope(ctx, func(ctx context.Context, tx Querier) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE diseases SET description = $1 WHERE id = $2`,
			description, d.ID,
		); err != nil {
			return err
		}
		return r.Notifier.Notify(ctx, tx, CacheFill{Resource: "disease", Key: d.Name})
	})
}

// FindDrugs returns every row whose drug_name contains name,
// case-insensitively.  It returns pkg.ErrNotFound when nothing matches.
func (r *Repository) FindDrugs(ctx context.Context, name string) ([]pkg.DrugRow, error) {
	var out []pkg.DrugRow
	err := r.Gate.Scope(ctx, func(ctx context.Context, tx Querier) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT drug_name, sponsor_name, disease_name
             FROM fda_drugs
             WHERE drug_name ILIKE $1`,
			"%"+name+"%",
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				row      pkg.DrugRow
				sponsor  sql.NullString
				overview sql.NullString
			)
			if err := rows.Scan(&row.DrugName, &sponsor, &overview); err != nil {
				return err
			}
			row.Sponsor = sponsor.String
			row.Overview = overview.String
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("drug %q: %w", name, pkg.ErrNotFound)
	}
	return out, nil
}

// SetDrugOverview writes overview into every row whose drug_name contains
// name.  The match is the same substring match FindDrugs uses, so unrelated
// drugs sharing the substring are updated too.
func (r *Repository) SetDrugOverview(ctx context.Context, name, overview string) (int64, error) {
	var n int64
	err := r.Gate.Scope(ctx, func(ctx context.Context, tx Querier) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE fda_drugs SET disease_name = $1 WHERE drug_name ILIKE $2`,
			overview, "%"+name+"%",
		)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return r.Notifier.Notify(ctx, tx, CacheFill{Resource: "drug", Key: name})
	})
	return n, err
}
