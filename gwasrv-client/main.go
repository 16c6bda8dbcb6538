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

// This binary fetches gwasrv resources using Google authentication, for
// servers running in secure mode.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	scope = "https://www.googleapis.com/auth/devstorage.read_only"
)

var (
	output      = flag.String("o", "", "output filename")
	data        = flag.String("d", "", "file to send as the request body; implies POST")
	contentType = flag.String("t", "application/json", "content type of the request body")
	format      = flag.String("format", "", "plot format (png or pdf)")
	chromosome  = flag.String("chr", "", "chromosome filter for plots")
)

func main() {
	flag.Parse()

	w := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to open output file: %v", err)
		}
		defer f.Close()

		w = f
	}

	ctx := context.Background()

	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		pem, err := ioutil.ReadFile(bundle)
		if err != nil {
			log.Fatalf("Failed to read CA override file %q: %v", bundle, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("Failed to initialize system certificate pool: %v", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			log.Fatalf("Failed to add certificates from bundle %q", bundle)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: pool,
				}},
		})
		log.Printf("Using CA override bundle from %q", bundle)
	}

	client, err := google.DefaultClient(ctx, scope)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	for _, target := range flag.Args() {
		if *format != "" {
			target = addParameter(target, "format", *format)
		}
		if *chromosome != "" {
			target = addParameter(target, "chr", *chromosome)
		}
		log.Printf("Fetching %q", target)

		req, err := newRequest(target, *data, *contentType)
		if err != nil {
			log.Fatalf("Creating request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Request failed: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("Unexpected response: %v", errorFromResponse(resp))
		}

		n, err := io.Copy(w, resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("Copying response: %v", err)
		}
		log.Printf("Wrote %s of %s", humanSize(n), resp.Header.Get("Content-Type"))
	}
}

func newRequest(target, bodyFile, contentType string) (*http.Request, error) {
	if bodyFile == "" {
		return http.NewRequest("GET", target, nil)
	}
	body, err := os.Open(bodyFile)
	if err != nil {
		return nil, fmt.Errorf("opening request body: %v", err)
	}
	req, err := http.NewRequest("POST", target, body)
	if err != nil {
		body.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

func addParameter(input, name, value string) string {
	values := url.Values{}
	values.Set(name, value)
	if strings.Contains(input, "?") {
		return input + "&" + values.Encode()
	}
	return input + "?" + values.Encode()
}

func humanSize(n int64) string {
	kb := n / 1024
	mb := kb / 1024
	gb := mb / 1024
	if gb > 1 {
		return fmt.Sprintf("%d GB", gb)
	}
	if mb > 1 {
		return fmt.Sprintf("%d MB", mb)
	}
	if kb > 1 {
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%d bytes", n)
}

// errorFromResponse describes a failed request, using the error object the
// server writes for client errors when there is one.
func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var v struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return fmt.Errorf("%s: parsing response body: %v", resp.Status, err)
		}
		if v.Message != "" {
			return fmt.Errorf("%s: %s", v.Error, v.Message)
		}
	}
	return fmt.Errorf("unexpected response status: %q", resp.Status)
}
