// Copyright 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"io/ioutil"
	"math"
	"sync"

	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
)

// fakeLibrary is a pygwas.Library that records its calls.  Plot writes
// plotData to the output file, then returns plotErr.
type fakeLibrary struct {
	mu    sync.Mutex
	files []string

	accessions []pygwas.Accession
	numSNPs    int
	options    pygwas.PlotOptions
	upload     []byte
	values     []pygwas.PhenotypeValue

	err      error
	plotData []byte
	plotErr  error
}

func (f *fakeLibrary) record(file string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, file)
}

func (f *fakeLibrary) LDForSNP(_ context.Context, file, chromosome string, position uint64) (*pygwas.SNPLD, error) {
	f.record(file)
	if f.err != nil {
		return nil, f.err
	}
	return &pygwas.SNPLD{
		Chromosome: chromosome,
		Position:   position,
		Positions:  []uint64{position - 1, position},
		R2:         []pygwas.Float{pygwas.Float(math.NaN()), 1},
	}, nil
}

func (f *fakeLibrary) LDForRegion(_ context.Context, file, chromosome string, start, end uint64) (*pygwas.RegionLD, error) {
	f.record(file)
	if f.err != nil {
		return nil, f.err
	}
	return &pygwas.RegionLD{
		Chromosome: chromosome,
		Start:      start,
		End:        end,
		Positions:  []uint64{start, end},
		R2:         [][]pygwas.Float{{1}, {pygwas.Float(math.Inf(1)), 1}},
	}, nil
}

func (f *fakeLibrary) LoadGenotype(_ context.Context, file string) (*pygwas.Genotype, error) {
	f.record(file)
	if f.err != nil {
		return nil, f.err
	}
	return &pygwas.Genotype{
		Path:        file,
		Accessions:  []pygwas.Accession{"6909", "9381"},
		Chromosomes: []string{"chr1", "chr2"},
		NumSNPs:     1000,
	}, nil
}

func (f *fakeLibrary) CalculateLD(_ context.Context, genotype *pygwas.Genotype, accessions []pygwas.Accession, chromosome string, position uint64, numSNPs int) (*pygwas.ExactLD, error) {
	f.record(genotype.Path)
	f.accessions, f.numSNPs = accessions, numSNPs
	if f.err != nil {
		return nil, f.err
	}
	return &pygwas.ExactLD{
		Chromosome: chromosome,
		Position:   position,
		Accessions: accessions,
		Positions:  []uint64{position},
		R2:         [][]pygwas.Float{{pygwas.Float(math.NaN())}},
	}, nil
}

func (f *fakeLibrary) Plot(_ context.Context, file, output string, options pygwas.PlotOptions) error {
	f.record(file)
	f.options = options
	if upload, err := ioutil.ReadFile(file); err == nil {
		f.upload = upload
	}
	if f.err != nil {
		return f.err
	}
	if err := ioutil.WriteFile(output, f.plotData, 0600); err != nil {
		return err
	}
	return f.plotErr
}

func (f *fakeLibrary) Statistics(_ context.Context, values []pygwas.PhenotypeValue) (pygwas.Statistics, error) {
	f.values = values
	if f.err != nil {
		return nil, f.err
	}
	return pygwas.Statistics{
		"none": {"shapiro": 0.5, "pseudo_heritability": pygwas.Float(math.NaN())},
		"log":  {"shapiro": 0.25, "pseudo_heritability": 0.75},
	}, nil
}
