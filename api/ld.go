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
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timeu/gwaportal-gwas-server/internal/analytics"
	"github.com/timeu/gwaportal-gwas-server/internal/genomics"
	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
)

func (server *Server) serveLDForSNP(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryLD, "LD For SNP Request Received")

	id, err := parseID(c.Param("analysis_id"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing analysis ID", err))
		return
	}
	locus, err := genomics.ParseLocus(c.Param("chr"), c.Param("position"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing locus", err))
		return
	}

	file, err := server.fetch(c, server.roots.Study, id+".hdf5")
	if err != nil {
		writeError(c, err)
		return
	}
	defer server.release(file)

	ld, err := server.library.LDForSNP(ctx, file.Path, locus.Chromosome, locus.Position)
	if err != nil {
		track(ctx, analytics.CategoryLD, "LD Internal Error")
		writeError(c, fmt.Errorf("loading LD for %s: %v", locus, err))
		return
	}
	c.JSON(http.StatusOK, ld)
}

func (server *Server) serveLDForRegion(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryLD, "LD For Region Request Received")

	id, err := parseID(c.Param("analysis_id"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing analysis ID", err))
		return
	}
	region, err := genomics.ParseRegion(c.Param("chr"), c.Param("start_pos"), c.Param("end_pos"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing region", err))
		return
	}
	if err := region.Validate(); err != nil {
		writeError(c, newInvalidRangeError(err))
		return
	}

	file, err := server.fetch(c, server.roots.Study, id+".hdf5")
	if err != nil {
		writeError(c, err)
		return
	}
	defer server.release(file)

	ld, err := server.library.LDForRegion(ctx, file.Path, region.Chromosome, region.Start, region.End)
	if err != nil {
		track(ctx, analytics.CategoryLD, "LD Internal Error")
		writeError(c, fmt.Errorf("loading LD for %s: %v", region, err))
		return
	}
	c.JSON(http.StatusOK, ld)
}

func (server *Server) serveExactLD(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryLD, "Exact LD Request Received")

	id, err := parseID(c.Param("genotype_id"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing genotype ID", err))
		return
	}
	locus, err := genomics.ParseLocus(c.Param("chr"), c.Param("position"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing locus", err))
		return
	}
	numSNPs, err := parseNumSNPs(c.Query("num_snps"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing num_snps", err))
		return
	}
	accessions := []pygwas.Accession{}
	if _, err := bindDoc(c, &accessions); err != nil {
		writeError(c, newInvalidInputError("parsing accessions", err))
		return
	}

	file, err := server.fetch(c, server.roots.Genotype, path.Join(id, genotypeFile))
	if err != nil {
		writeError(c, err)
		return
	}
	defer server.release(file)

	genotype, err := server.library.LoadGenotype(ctx, file.Path)
	if err != nil {
		writeError(c, fmt.Errorf("loading genotype %s: %v", id, err))
		return
	}
	ld, err := server.library.CalculateLD(ctx, genotype, accessions, locus.Chromosome, locus.Position, numSNPs)
	if err != nil {
		track(ctx, analytics.CategoryLD, "LD Internal Error")
		writeError(c, fmt.Errorf("calculating LD for %s: %v", locus, err))
		return
	}

	count := int64(len(accessions))
	analytics.TrackerFromContext(ctx)(analytics.Event(analytics.CategoryLD, "Exact LD Accession Count", "", &count))
	c.JSON(http.StatusOK, ld)
}

func (server *Server) serveGenotype(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryGenotype, "Genotype Request Received")

	id, err := parseID(c.Param("genotype_id"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing genotype ID", err))
		return
	}

	file, err := server.fetch(c, server.roots.Genotype, path.Join(id, genotypeFile))
	if err != nil {
		writeError(c, err)
		return
	}
	defer server.release(file)

	genotype, err := server.library.LoadGenotype(ctx, file.Path)
	if err != nil {
		writeError(c, fmt.Errorf("loading genotype %s: %v", id, err))
		return
	}
	c.JSON(http.StatusOK, genotype)
}

func parseNumSNPs(s string) (int, error) {
	if s == "" {
		return pygwas.DefaultNumSNPs, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
