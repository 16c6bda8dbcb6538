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

// Package storage locates the data files served by gwasrv.  Data roots are
// either local directories or Google Cloud Storage locations; files in remote
// roots are staged into local temporary files because PyGWAS only reads from
// the filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const gcsScheme = "gs://"

// Client is an interface to the storage engine.  Clients that also implement
// io.Closer are closed once the request that created them has fetched its
// files.
type Client interface {
	// NewObjectHandle returns a handle to a specified object in
	// the storage engine.
	NewObjectHandle(bucket, object string) ObjectHandle
}

// ObjectHandle is an interface to the actual storage engine in use.
type ObjectHandle interface {
	// NewRangeReader returns a reader that reads from a specified
	// range. Length of -1 means to capture everything until the
	// end.
	NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// NewClientFunc is the type of function that constructs the storage Client
// used to satisfy an incoming request.
type NewClientFunc func(*http.Request) (Client, error)

// Root is a directory of data files.  Must be created with ParseRoot.
type Root struct {
	location string
	remote   bool
	bucket   string
	prefix   string
	tempDir  string
}

// ParseRoot parses location, which is either a local directory or a
// gs://bucket/prefix URL.  Remote files are staged into tempDir, or the
// default temporary directory if tempDir is empty.
func ParseRoot(location, tempDir string) (*Root, error) {
	if location == "" {
		return nil, errors.New("empty data root")
	}
	root := &Root{location: location, tempDir: tempDir}
	if !strings.HasPrefix(location, gcsScheme) {
		root.bucket = filepath.Clean(location)
		return root, nil
	}

	parts := strings.SplitN(strings.TrimPrefix(location, gcsScheme), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("no bucket in %q", location)
	}
	root.remote = true
	root.bucket = parts[0]
	if len(parts) == 2 {
		root.prefix = strings.Trim(parts[1], "/")
	}
	return root, nil
}

// String returns the location the root was parsed from.
func (r *Root) String() string {
	return r.location
}

// Remote reports whether the root is a Cloud Storage location.
func (r *Root) Remote() bool {
	return r.remote
}

// Bucket returns the Cloud Storage bucket of a remote root.
func (r *Root) Bucket() string {
	if !r.remote {
		return ""
	}
	return r.bucket
}

// File is a data file available on the local filesystem.
type File struct {
	Path string
	temp bool
}

// Release removes the file if it was staged from a remote root.
func (f *File) Release() error {
	if f == nil || !f.temp {
		return nil
	}
	return os.Remove(f.Path)
}

// Fetch returns a local copy of the slash-separated file name inside the
// root.  Local roots return the file in place and ignore client.  The caller
// must call Release on the returned file.
func (r *Root) Fetch(ctx context.Context, client Client, name string) (*File, error) {
	if !r.remote {
		p := filepath.Join(r.bucket, filepath.FromSlash(name))
		if _, err := os.Stat(p); err != nil {
			return nil, err
		}
		return &File{Path: p}, nil
	}

	object := name
	if r.prefix != "" {
		object = r.prefix + "/" + name
	}
	data, err := client.NewObjectHandle(r.bucket, object).NewRangeReader(ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	defer data.Close()

	f, err := os.CreateTemp(r.tempDir, "gwasrv-*-"+path.Base(name))
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %v", err)
	}
	staged := &File{Path: f.Name(), temp: true}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		staged.Release()
		return nil, fmt.Errorf("staging %s: %v", object, err)
	}
	if err := f.Close(); err != nil {
		staged.Release()
		return nil, fmt.Errorf("staging %s: %v", object, err)
	}
	return staged, nil
}
