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

// This binary provides the gwasrv REST server for GWA-Portal.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/timeu/gwaportal-gwas-server/internal/app"
	"github.com/timeu/gwaportal-gwas-server/internal/config"
	"github.com/timeu/gwaportal-gwas-server/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gwasrv-server",
		Short:        "A RESTful backend for accessing GWAS HDF5 files of GWA-Portal",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int(config.KeyPort, 8000, "HTTP service port")
	flags.String(config.KeyStudyFolder, "", "directory or gs:// location of GWAS study files (env GWAS_STUDY_FOLDER)")
	flags.String(config.KeyGenotypeFolder, "", "directory or gs:// location of genotype files (env GENOTYPE_FOLDER)")
	flags.String(config.KeyViewerFolder, "", "directory or gs:// location of GWAS viewer files (env GWAS_VIEWER_FOLDER)")
	flags.String(config.KeyTempDir, os.TempDir(), "directory for plots, uploads and staged files")
	flags.String(config.KeyPyGWAS, "pygwas-bridge", "PyGWAS bridge command line")
	flags.String(config.KeyLogLevel, "info", "log level (debug, info, warn, error)")
	flags.Bool(config.KeySecure, false, "serve in HTTPS-only mode and forward client bearer tokens to Cloud Storage")
	flags.String(config.KeyHTTPSCert, "", "HTTPS certificate file")
	flags.String(config.KeyHTTPSKey, "", "HTTPS key file")
	flags.String(config.KeyProfile, "", "write a cpu or mem profile to the working directory")

	// Enable or disable anonymous usage tracking.
	//
	// If enabled, anonymous information about requests handled by the server is
	// logged to Google Analytics.  No user identifying information is sent.
	flags.Bool(config.KeyTrackUsage, false, "anonymous usage tracking")
	flags.String(config.KeyAnalyticsID, "", "Google Analytics property receiving usage hits")

	bindFlags(v, cmd)
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		log.Fatalf("Binding flags: %v", err)
	}
}

func run(cfg *config.Config) error {
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	switch cfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler, err := app.New(cfg, zlog, nil)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errs := make(chan error, 1)
	go func() {
		zlog.Info("Starting gwasrv server", zap.String("addr", srv.Addr), zap.Bool("secure", cfg.Secure))
		if cfg.Secure {
			errs <- srv.ListenAndServeTLS(cfg.HTTPSCert, cfg.HTTPSKey)
		} else {
			errs <- srv.ListenAndServe()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		return fmt.Errorf("HTTP server returned an error: %v", err)
	case sig := <-quit:
		zlog.Info("Shutting down", zap.Stringer("signal", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
