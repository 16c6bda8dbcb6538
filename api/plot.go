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
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timeu/gwaportal-gwas-server/internal/analytics"
	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
	"github.com/timeu/gwaportal-gwas-server/internal/storage"
)

const uploadSource = "upload"

// servePlot returns a handler rendering the GWAS result file
// <root>/<analysis_id>.hdf5.
func (server *Server) servePlot(source string, root *storage.Root) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		track(ctx, analytics.CategoryPlot, "Plot Request Received")

		id, err := parseID(c.Param("analysis_id"))
		if err != nil {
			writeError(c, newInvalidInputError("parsing analysis ID", err))
			return
		}
		options, err := parsePlotOptions(c.Request.URL.Query())
		if err != nil {
			writeError(c, err)
			return
		}
		if err := negotiatePlot(c, options.Format); err != nil {
			writeError(c, err)
			return
		}

		file, err := server.fetch(c, root, id+".hdf5")
		if err != nil {
			writeError(c, err)
			return
		}
		defer server.release(file)

		server.render(c, source, file.Path, options)
	}
}

// serveUploadPlot renders the hdf5 or csv GWAS result sent as the request
// body.  The upload is written to a temporary file that is removed once the
// response has been generated.
func (server *Server) serveUploadPlot(c *gin.Context) {
	ctx := c.Request.Context()
	track(ctx, analytics.CategoryPlot, "Upload Plot Request Received")

	options, err := parsePlotOptions(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	if err := negotiatePlot(c, options.Format); err != nil {
		writeError(c, err)
		return
	}

	input := filepath.Join(server.tempDir, uuid.New().String()+c.GetString(uploadExtKey))
	defer server.remove(input)

	if err := writeUpload(input, http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBodySize)); err != nil {
		writeError(c, fmt.Errorf("storing upload: %v", err))
		return
	}
	server.render(c, uploadSource, input, options)
}

// render plots input into a temporary file and writes it as the response.
func (server *Server) render(c *gin.Context, source, input string, options pygwas.PlotOptions) {
	ctx := c.Request.Context()

	output := filepath.Join(server.tempDir, uuid.New().String()+"."+string(options.Format))
	defer server.remove(output)

	if err := server.library.Plot(ctx, input, output, options); err != nil {
		track(ctx, analytics.CategoryPlot, "Plot Internal Error")
		writeError(c, fmt.Errorf("plotting: %v", err))
		return
	}
	data, err := ioutil.ReadFile(output)
	if err != nil {
		writeError(c, fmt.Errorf("reading plot: %v", err))
		return
	}

	if server.metrics != nil {
		server.metrics.PlotRendered(source, string(options.Format))
	}
	c.Data(http.StatusOK, options.Format.ContentType(), data)
}

func (server *Server) remove(name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		server.log.Warn("Failed to remove temporary file", zap.String("path", name), zap.Error(err))
	}
}

func writeUpload(name string, body io.Reader) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parsePlotOptions(query url.Values) (pygwas.PlotOptions, error) {
	format, err := pygwas.ParseFormat(query.Get("format"))
	if err != nil {
		return pygwas.PlotOptions{}, newUnsupportedFormatError(err)
	}
	options := pygwas.PlotOptions{
		Chromosome:       query.Get("chr"),
		MinorAlleleCount: pygwas.DefaultMinorAlleleCount,
		Format:           format,
	}
	if mac := query.Get("mac"); mac != "" {
		n, err := strconv.Atoi(mac)
		if err != nil {
			return pygwas.PlotOptions{}, newInvalidInputError("parsing mac", err)
		}
		options.MinorAlleleCount = n
	}
	if err := validate.Struct(options); err != nil {
		return pygwas.PlotOptions{}, newInvalidInputError("validating plot options", err)
	}
	return options, nil
}

// negotiatePlot checks that the client accepts the requested plot format.
func negotiatePlot(c *gin.Context, format pygwas.Format) error {
	if c.NegotiateFormat(format.ContentType()) == "" {
		return newNotAcceptableError(fmt.Errorf("client does not accept %s", format.ContentType()))
	}
	return nil
}
