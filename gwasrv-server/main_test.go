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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeu/gwaportal-gwas-server/internal/config"
)

func TestRootCommandFlags(t *testing.T) {
	v := config.New()
	cmd := newRootCmd(v)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--study_folder", "/data/study",
		"--genotype_folder", "gs://genotypes",
		"--port", "9001",
		"--pygwas", "python3 -m pygwas.bridge",
	}))

	for _, name := range []string{
		config.KeyPort, config.KeyStudyFolder, config.KeyGenotypeFolder, config.KeyViewerFolder,
		config.KeyTempDir, config.KeyPyGWAS, config.KeyLogLevel, config.KeySecure,
		config.KeyHTTPSCert, config.KeyHTTPSKey, config.KeyTrackUsage, config.KeyAnalyticsID,
		config.KeyProfile,
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "/data/study", cfg.StudyFolder)
	assert.Equal(t, "gs://genotypes", cfg.GenotypeFolder)
	assert.Equal(t, []string{"python3", "-m", "pygwas.bridge"}, cfg.PyGWAS)
	assert.Equal(t, "info", cfg.LogLevel)
}
