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

// Package gwasrv serves the gwasrv resources on App Engine.  Configuration
// comes from the environment set in app.yaml.
package gwasrv

import (
	"log"
	"net/http"

	"google.golang.org/appengine"

	"github.com/timeu/gwaportal-gwas-server/internal/app"
	"github.com/timeu/gwaportal-gwas-server/internal/config"
	"github.com/timeu/gwaportal-gwas-server/internal/logger"
	"github.com/timeu/gwaportal-gwas-server/internal/storage"
)

func init() {
	cfg, err := config.Load(config.New())
	if err != nil {
		log.Fatalf("Loading configuration: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Creating logger: %v", err)
	}
	handler, err := app.New(cfg, zlog, newAppEngineClient)
	if err != nil {
		log.Fatalf("Creating server: %v", err)
	}
	http.Handle("/", handler)
}

func newAppEngineClient(req *http.Request) (storage.Client, error) {
	return storage.NewClientFromBearerToken(req.WithContext(appengine.NewContext(req)))
}
