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

package storage

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func TestParseRoot(t *testing.T) {
	testCases := []struct {
		location       string
		remote         bool
		bucket, prefix string
	}{
		{"/data/study", false, "/data/study", ""},
		{"/data/study/", false, "/data/study", ""},
		{"gs://gwas", true, "gwas", ""},
		{"gs://gwas/", true, "gwas", ""},
		{"gs://gwas/studies/v2/", true, "gwas", "studies/v2"},
	}
	for _, tc := range testCases {
		t.Run(tc.location, func(t *testing.T) {
			root, err := ParseRoot(tc.location, "")
			if err != nil {
				t.Fatalf("ParseRoot(%q) failed: %v", tc.location, err)
			}
			if got, want := root.Remote(), tc.remote; got != want {
				t.Errorf("Wrong remote flag: got %v, want %v", got, want)
			}
			if got, want := root.bucket, tc.bucket; got != want {
				t.Errorf("Wrong bucket: got %q, want %q", got, want)
			}
			if got, want := root.prefix, tc.prefix; got != want {
				t.Errorf("Wrong prefix: got %q, want %q", got, want)
			}
		})
	}

	for _, bad := range []string{"", "gs://", "gs:///x"} {
		if _, err := ParseRoot(bad, ""); err == nil {
			t.Errorf("ParseRoot(%q) succeeded", bad)
		}
	}
}

func TestFetchLocal(t *testing.T) {
	root, err := ParseRoot("testdata", "")
	if err != nil {
		t.Fatalf("ParseRoot failed: %v", err)
	}

	f, err := root.Fetch(context.Background(), nil, "12.csv")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got, want := f.Path, filepath.Join("testdata", "12.csv"); got != want {
		t.Errorf("Wrong path: got %q, want %q", got, want)
	}
	if err := f.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if _, err := os.Stat(f.Path); err != nil {
		t.Errorf("Release removed a local data file: %v", err)
	}

	if _, err := root.Fetch(context.Background(), nil, "missing.hdf5"); err == nil {
		t.Error("Fetch succeeded for a missing file")
	}
}

func TestFetchRemote(t *testing.T) {
	dir := t.TempDir()
	root, err := ParseRoot("gs://gwas/study", dir)
	if err != nil {
		t.Fatalf("ParseRoot failed: %v", err)
	}
	client := newTestClient(t, &fakeGCS{t})

	f, err := root.Fetch(context.Background(), client, "12.csv")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got, want := filepath.Dir(f.Path), dir; got != want {
		t.Errorf("Staged outside the temp dir: got %q, want %q", got, want)
	}

	got, err := ioutil.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("Reading staged file: %v", err)
	}
	want, _ := ioutil.ReadFile("testdata/12.csv")
	if string(got) != string(want) {
		t.Errorf("Wrong staged content: got %q, want %q", got, want)
	}

	if err := f.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Errorf("Staged file still exists after Release: %v", err)
	}
}

func TestFetchRemoteMissingObject(t *testing.T) {
	dir := t.TempDir()
	root, _ := ParseRoot("gs://gwas", dir)
	client := newTestClient(t, fixedStatus(http.StatusNotFound))

	if _, err := root.Fetch(context.Background(), client, "missing.hdf5"); err != storage.ErrObjectNotExist {
		t.Errorf("Wrong error: got %v, want %v", err, storage.ErrObjectNotExist)
	}
	entries, _ := ioutil.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Fetch left %d files behind", len(entries))
	}
}

func TestNewClientFromBearerToken(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if _, err := NewClientFromBearerToken(req); err != ErrMissingOrInvalidToken {
			t.Errorf("Authorization %q: got %v, want %v", header, err, ErrMissingOrInvalidToken)
		}
	}
}

func newTestClient(t *testing.T, transport http.RoundTripper) Client {
	gcs, err := storage.NewClient(context.Background(), option.WithHTTPClient(&http.Client{Transport: transport}))
	if err != nil {
		t.Fatalf("Failed to create storage client: %v", err)
	}
	return GCSClient{gcs}
}

type fixedStatus int

func (code fixedStatus) RoundTrip(*http.Request) (*http.Response, error) {
	return &http.Response{
		Status:     http.StatusText(int(code)),
		StatusCode: int(code),
		Header:     make(http.Header),
		Body:       http.NoBody,
	}, nil
}

type fakeGCS struct {
	*testing.T
}

func (fake *fakeGCS) RoundTrip(req *http.Request) (*http.Response, error) {
	filename := "testdata/" + path.Base(req.URL.Path)

	content, err := os.Open(filename)
	if err != nil {
		response := httptest.NewRecorder()
		http.Error(response, fmt.Sprintf("Failed to open test data: %v", err), http.StatusNotFound)
		return response.Result(), nil
	}
	defer content.Close()

	w := httptest.NewRecorder()
	http.ServeContent(w, req, filename, time.Now(), content)
	return w.Result(), nil
}
