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

// Package genomics contains definitions related to genomic coordinates.
package genomics

import (
	"errors"
	"fmt"
	"strconv"
)

var errMissingChromosome = errors.New("no chromosome specified")

// Locus defines a single position on a chromosome.
type Locus struct {
	Chromosome string
	Position   uint64
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", l.Chromosome, l.Position)
}

// Region defines a region of genomic interest.
type Region struct {
	Chromosome string
	// Start and End specify the closed range (in base pairs) on the
	// chromosome.
	Start, End uint64
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chromosome, r.Start, r.End)
}

// ParseLocus parses the chromosome and position path segments of a request.
func ParseLocus(chromosome, position string) (Locus, error) {
	if chromosome == "" {
		return Locus{}, errMissingChromosome
	}
	n, err := parsePosition(position)
	if err != nil {
		return Locus{}, fmt.Errorf("parsing position: %v", err)
	}
	return Locus{Chromosome: chromosome, Position: n}, nil
}

// ParseRegion parses the chromosome, start and end path segments of a
// request.  It does not check the ordering of start and end; see Validate.
func ParseRegion(chromosome, start, end string) (Region, error) {
	if chromosome == "" {
		return Region{}, errMissingChromosome
	}
	region := Region{Chromosome: chromosome}

	n, err := parsePosition(start)
	if err != nil {
		return Region{}, fmt.Errorf("parsing start: %v", err)
	}
	region.Start = n

	if n, err = parsePosition(end); err != nil {
		return Region{}, fmt.Errorf("parsing end: %v", err)
	}
	region.End = n

	return region, nil
}

// Validate returns an error if the region is inverted.
func (r Region) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("%s: start > end", r)
	}
	return nil
}

func parsePosition(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseUint(s, 10, 64)
}
