// Package app wires the gwasrv server from its configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/timeu/gwaportal-gwas-server/api"
	"github.com/timeu/gwaportal-gwas-server/internal/analytics"
	"github.com/timeu/gwaportal-gwas-server/internal/config"
	"github.com/timeu/gwaportal-gwas-server/internal/metrics"
	"github.com/timeu/gwaportal-gwas-server/internal/pygwas"
	"github.com/timeu/gwaportal-gwas-server/internal/storage"
)

// New returns the HTTP handler for cfg.  If newStorageClient is nil, remote
// roots are read with the application default credentials, or with the
// client's bearer token in secure mode.
func New(cfg *config.Config, log *zap.Logger, newStorageClient storage.NewClientFunc) (*gin.Engine, error) {
	roots, err := parseRoots(cfg)
	if err != nil {
		return nil, err
	}

	if newStorageClient == nil {
		newStorageClient = storage.NewDefaultClient
		if cfg.Secure {
			newStorageClient = storage.NewClientFromBearerToken
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	middleware := []gin.HandlerFunc{m.Middleware()}
	if cfg.TrackUsage {
		log.Info("Enabling anonymous usage tracking")

		client := analytics.NewClient(cfg.AnalyticsID, uuid.New().String())
		middleware = append(middleware, analytics.Middleware(func(hits []analytics.Hit) {
			go func() {
				if err := client.Send(context.Background(), hits); err != nil {
					log.Warn("Failed to send hits to analytics", zap.Int("hits", len(hits)), zap.Error(err))
				}
			}()
		}))
	}

	server := api.NewServer(api.Config{
		Library:          pygwas.NewCommand(cfg.PyGWAS[0], cfg.PyGWAS[1:]...),
		Roots:            roots,
		NewStorageClient: newStorageClient,
		TempDir:          cfg.TempDir,
		Metrics:          m,
		Log:              log,
	})
	router := api.NewEngine(log, middleware...)
	server.Export(router)

	log.Info("Serving data roots",
		zap.Stringer("study", roots.Study),
		zap.Stringer("genotype", roots.Genotype),
		zap.String("viewer", cfg.ViewerFolder))
	return router, nil
}

func parseRoots(cfg *config.Config) (api.Roots, error) {
	var roots api.Roots
	var err error
	if roots.Study, err = storage.ParseRoot(cfg.StudyFolder, cfg.TempDir); err != nil {
		return api.Roots{}, fmt.Errorf("parsing study folder: %v", err)
	}
	if roots.Genotype, err = storage.ParseRoot(cfg.GenotypeFolder, cfg.TempDir); err != nil {
		return api.Roots{}, fmt.Errorf("parsing genotype folder: %v", err)
	}
	if cfg.ViewerFolder != "" {
		if roots.Viewer, err = storage.ParseRoot(cfg.ViewerFolder, cfg.TempDir); err != nil {
			return api.Roots{}, fmt.Errorf("parsing viewer folder: %v", err)
		}
	}
	return roots, nil
}
