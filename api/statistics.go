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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/timeu/gwaportal-gwas-server/internal/analytics"
	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
)

var validate = validator.New()

func (server *Server) serveStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryStatistics, "Statistics Request Received")

	var values []pygwas.PhenotypeValue
	ok, err := bindDoc(c, &values)
	if !ok {
		writeError(c, newEmptyBodyError(errEmptyBody))
		return
	}
	if err != nil {
		writeError(c, newInvalidInputError("parsing phenotype values", err))
		return
	}
	if len(values) == 0 {
		writeError(c, newInvalidInputError("parsing phenotype values", errNoPhenotypeData))
		return
	}
	for i := range values {
		if err := validate.Struct(values[i]); err != nil {
			writeError(c, newInvalidInputError(fmt.Sprintf("validating phenotype value %d", i), err))
			return
		}
	}

	stats, err := server.library.Statistics(ctx, values)
	if err != nil {
		writeError(c, fmt.Errorf("calculating statistics: %v", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
