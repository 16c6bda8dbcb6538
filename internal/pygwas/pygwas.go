// Package pygwas is a client for the PyGWAS analysis library.
//
// All scientific computation (LD statistics, phenotype transformations and
// GWAS plot rendering) happens inside PyGWAS. This package describes the calls
// the server makes as the Library interface and implements it with Command,
// which drives the PyGWAS bridge executable.
package pygwas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultNumSNPs is the number of SNPs around the requested position used
// for exact LD calculations when the caller does not specify one.
const DefaultNumSNPs = 250

// DefaultMinorAlleleCount is the minor allele count threshold applied when
// plotting unless the caller specifies one.
const DefaultMinorAlleleCount = 15

// Library is the set of PyGWAS operations exposed by the server.
type Library interface {
	// LDForSNP returns the precomputed LD values between the SNP at position
	// and its neighbours, read from the GWAS result file.
	LDForSNP(ctx context.Context, file, chromosome string, position uint64) (*SNPLD, error)

	// LDForRegion returns the precomputed LD matrix for all SNPs in the
	// closed range [start, end], read from the GWAS result file.
	LDForRegion(ctx context.Context, file, chromosome string, start, end uint64) (*RegionLD, error)

	// LoadGenotype opens the genotype file and returns its summary.
	LoadGenotype(ctx context.Context, file string) (*Genotype, error)

	// CalculateLD computes LD for numSNPs SNPs around position using only
	// the listed accessions of the genotype.
	CalculateLD(ctx context.Context, genotype *Genotype, accessions []Accession, chromosome string, position uint64, numSNPs int) (*ExactLD, error)

	// Plot renders a Manhattan plot of the GWAS result file into output.
	Plot(ctx context.Context, file, output string, options PlotOptions) error

	// Statistics computes phenotype transformation statistics for values.
	Statistics(ctx context.Context, values []PhenotypeValue) (Statistics, error)
}

// SNPLD holds the LD between one SNP and its neighbours.
type SNPLD struct {
	Chromosome string   `json:"chr"`
	Position   uint64   `json:"position"`
	Positions  []uint64 `json:"snps"`
	R2         []Float  `json:"r2"`
}

// RegionLD holds the LD matrix of a region.  R2 is lower triangular: row i
// has i+1 entries.
type RegionLD struct {
	Chromosome string    `json:"chr"`
	Start      uint64    `json:"start"`
	End        uint64    `json:"end"`
	Positions  []uint64  `json:"snps"`
	R2         [][]Float `json:"r2"`
}

// ExactLD holds an LD matrix calculated from genotype data for a subset of
// accessions.
type ExactLD struct {
	Chromosome string      `json:"chr"`
	Position   uint64      `json:"position"`
	Accessions []Accession `json:"accessions"`
	Positions  []uint64    `json:"snps"`
	R2         [][]Float   `json:"r2"`
}

// Genotype summarizes a genotype file.
type Genotype struct {
	// Path is the local file the genotype was loaded from.
	Path        string      `json:"-"`
	Accessions  []Accession `json:"accessions"`
	Chromosomes []string    `json:"chromosomes"`
	NumSNPs     uint64      `json:"num_snps"`
}

// Statistics maps a transformation name to its named statistics.
type Statistics map[string]map[string]Float

// Accession identifies a sample.  GWA-Portal accession ids are numeric but
// clients send them either as JSON numbers or strings.
type Accession string

// UnmarshalJSON accepts a JSON string or number.
func (a *Accession) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Accession(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("accession must be a string or number, got %s", data)
	}
	*a = Accession(n.String())
	return nil
}

// PhenotypeValue is a single phenotype measurement.  It is encoded as an
// [accession, value] pair.
type PhenotypeValue struct {
	Accession Accession `validate:"required"`
	Value     float64
}

// UnmarshalJSON decodes an [accession, value] pair.
func (v *PhenotypeValue) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("phenotype value: %v", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("phenotype value: want [accession, value], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &v.Accession); err != nil {
		return fmt.Errorf("phenotype value: %v", err)
	}
	if string(bytes.TrimSpace(pair[1])) == "null" {
		return fmt.Errorf("phenotype value %q: missing value", v.Accession)
	}
	if err := json.Unmarshal(pair[1], &v.Value); err != nil {
		return fmt.Errorf("phenotype value %q: %v", v.Accession, err)
	}
	return nil
}

// MarshalJSON encodes the value as an [accession, value] pair.
func (v PhenotypeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{string(v.Accession), Float(v.Value)})
}

// Format is an output format for plots.
type Format string

// Supported plot formats.
const (
	PNG Format = "png"
	PDF Format = "pdf"
)

// ParseFormat returns the plot format named by s.  An empty string selects
// PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", PNG:
		return PNG, nil
	case PDF:
		return PDF, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ContentType returns the MIME type of files in format f.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "image/png"
}

// PlotOptions controls plot rendering.
type PlotOptions struct {
	// Chromosome restricts the plot to one chromosome when set.
	Chromosome       string `validate:"omitempty,max=64"`
	MinorAlleleCount int    `validate:"gte=0"`
	Format           Format `validate:"oneof=png pdf"`
}

func (o PlotOptions) args() []string {
	args := []string{"--macs", strconv.Itoa(o.MinorAlleleCount), "--format", string(o.Format)}
	if o.Chromosome != "" {
		args = append(args, "--chr", o.Chromosome)
	}
	return args
}
