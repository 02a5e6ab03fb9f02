package store

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/ratemyfit/internal/extract"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the YAML shape of a reference-data file.
type Seed struct {
	Whitelist []extract.WhitelistEntry `yaml:"whitelist"`
	Taxonomy  []TaxonomyEntry          `yaml:"taxonomy"`
	Catalog   []extract.CatalogItem    `yaml:"catalog"`
}

// SeedReport counts rows written by LoadSeed.
type SeedReport struct {
	Whitelist int `json:"whitelist"`
	Taxonomy  int `json:"taxonomy"`
	Catalog   int `json:"catalog"`
}

// LoadSeed upserts the reference data in r. Loading the same file twice is a no-op.
func (s *SQLiteStore) LoadSeed(ctx context.Context, r io.Reader) (SeedReport, error) {
	var seed Seed
	report := SeedReport{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return report, fmt.Errorf("parsing seed: %w", err)
	}

	for _, e := range seed.Whitelist {
		if err := s.UpsertWhitelistEntry(ctx, e); err != nil {
			return report, err
		}
		report.Whitelist++
	}
	for _, t := range seed.Taxonomy {
		if err := s.UpsertTaxonomy(ctx, t); err != nil {
			return report, err
		}
		report.Taxonomy++
	}
	for _, c := range seed.Catalog {
		if err := s.UpsertCatalogItem(ctx, c); err != nil {
			return report, err
		}
		report.Catalog++
	}
	return report, nil
}

// LoadDefaultSeed loads the reference data compiled into the binary.
func (s *SQLiteStore) LoadDefaultSeed(ctx context.Context) (SeedReport, error) {
	return s.LoadSeed(ctx, bytes.NewReader(defaultSeed))
}
