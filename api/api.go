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

// Package api implements the gwasrv REST resources.
//
// The resources expose PyGWAS functions over HTTP: LD lookups on GWAS result
// files, exact LD calculations on genotype files, phenotype statistics and
// Manhattan plots.  All computation is delegated to a pygwas.Library; this
// package parses requests, locates data files and serializes results.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/timeu/gwaportal-gwas-server/internal/analytics"
	"github.com/timeu/gwaportal-gwas-server/internal/metrics"
	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
	"github.com/timeu/gwaportal-gwas-server/internal/storage"
)

const (
	analysisSource = "analysis"
	viewerSource   = "viewer"

	genotypeFile = "all_chromosomes_binary.hdf5"
)

// Roots are the data directories served by a Server.
type Roots struct {
	// Study holds GWAS result files named <analysis_id>.hdf5.
	Study *storage.Root
	// Genotype holds one directory per genotype containing
	// all_chromosomes_binary.hdf5.
	Genotype *storage.Root
	// Viewer holds GWAS result files uploaded to the GWAS viewer.  Optional.
	Viewer *storage.Root
}

// Config configures a Server.
type Config struct {
	Library pygwas.Library
	Roots   Roots
	// NewStorageClient is called for requests that read from remote roots.
	NewStorageClient storage.NewClientFunc
	// TempDir receives plot outputs and uploads.  Defaults to os.TempDir.
	TempDir string
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Log defaults to a no-op logger.
	Log *zap.Logger
}

// Server provides the gwasrv resources.  Must be created with NewServer.
type Server struct {
	library          pygwas.Library
	roots            Roots
	newStorageClient storage.NewClientFunc
	tempDir          string
	metrics          *metrics.Metrics
	log              *zap.Logger
}

// NewServer returns a new Server configured by cfg.
func NewServer(cfg Config) *Server {
	server := &Server{
		library:          cfg.Library,
		roots:            cfg.Roots,
		newStorageClient: cfg.NewStorageClient,
		tempDir:          cfg.TempDir,
		metrics:          cfg.Metrics,
		log:              cfg.Log,
	}
	if server.tempDir == "" {
		server.tempDir = os.TempDir()
	}
	if server.log == nil {
		server.log = zap.NewNop()
	}
	return server
}

// Export registers the gwasrv resources with router.
func (server *Server) Export(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if server.metrics != nil {
		router.GET("/metrics", gin.WrapH(server.metrics.Handler()))
	}

	data := router.Group("/", requireJSON(), jsonTranslator())
	data.GET("/analysis/:analysis_id/ld/:chr/:position", server.serveLDForSNP)
	data.GET("/analysis/:analysis_id/ld/region/:chr/:start_pos/:end_pos", server.serveLDForRegion)
	data.POST("/ld/:genotype_id/:chr/:position", server.serveExactLD)
	data.GET("/genotype/:genotype_id", server.serveGenotype)
	data.POST("/statistics", server.serveStatistics)

	for source, root := range server.plotRoots() {
		handler := server.servePlot(source, root)
		router.GET("/"+source+"/:analysis_id/plot", handler)
		router.POST("/"+source+"/:analysis_id/plot", handler)
	}
	router.POST("/plot", requirePlotUpload(), server.serveUploadPlot)

	router.NoRoute(func(c *gin.Context) {
		writeError(c, newNotFoundError("resolving route", fmt.Errorf("no resource at %s", c.Request.URL.Path)))
	})
}

// plotRoots returns the roots that plots can be generated from, keyed by the
// leading path segment of the plot route.
func (server *Server) plotRoots() map[string]*storage.Root {
	roots := map[string]*storage.Root{analysisSource: server.roots.Study}
	if server.roots.Viewer != nil {
		roots[viewerSource] = server.roots.Viewer
	}
	return roots
}

// fetch makes the named file of root available locally.  The caller must
// release the returned file.
func (server *Server) fetch(c *gin.Context, root *storage.Root, name string) (*storage.File, error) {
	var client storage.Client
	if root.Remote() {
		var err error
		if client, err = server.newStorageClient(c.Request); err != nil {
			return nil, newStorageError("creating client", err)
		}
		if closer, ok := client.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					server.log.Warn("Failed to close storage client", zap.Error(err))
				}
			}()
		}
	}
	file, err := root.Fetch(c.Request.Context(), client, name)
	if err != nil {
		return nil, newStorageError(fmt.Sprintf("opening %s in %s", name, root), err)
	}
	return file, nil
}

func (server *Server) release(file *storage.File) {
	if err := file.Release(); err != nil {
		server.log.Warn("Failed to release staged file", zap.String("path", file.Path), zap.Error(err))
	}
}

func track(ctx context.Context, category, action string) {
	analytics.TrackerFromContext(ctx)(analytics.Event(category, action, "", nil))
}

// parseID checks that id names a single entry of a data root.
func parseID(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", errInvalidID
	}
	return id, nil
}
