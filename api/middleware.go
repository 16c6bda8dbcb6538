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
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// docKey holds the decoded request body of JSON routes.
	docKey = "gwasrv.doc"
	// uploadExtKey holds the file extension of an uploaded plot source.
	uploadExtKey = "gwasrv.upload_ext"

	maxJSONBodySize   = 32 << 20
	maxUploadBodySize = 1 << 30
)

// Content types accepted for plot uploads, by file extension handed to
// PyGWAS.
var uploadTypes = map[string]string{
	"application/x-hdf5":       ".hdf5",
	"application/x-hdf":        ".hdf5",
	"application/octet-stream": ".hdf5",
	"text/csv":                 ".csv",
}

// NewEngine returns a gin engine with access logging, panic recovery and
// origin forwarding installed, followed by middleware.
func NewEngine(log *zap.Logger, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log, true))
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware...)
	return router
}

// requireJSON rejects requests whose client does not accept JSON responses
// and POST or PUT requests whose body is not JSON.
func requireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.NegotiateFormat(gin.MIMEJSON) == "" {
			writeError(c, newNotAcceptableError(errors.New("this API only supports responses encoded as JSON")))
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut:
			if c.ContentType() != gin.MIMEJSON {
				writeError(c, newUnsupportedMediaTypeError(errors.New("this API only supports requests encoded as JSON")))
				return
			}
		}
		c.Next()
	}
}

// jsonTranslator checks that a request body, if any, is a JSON document and
// stores it under docKey for the handler to decode.
func jsonTranslator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := ioutil.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBodySize))
		if err != nil {
			writeError(c, newMalformedJSONError(fmt.Errorf("reading request body: %v", err)))
			return
		}
		if len(body) == 0 {
			writeError(c, newEmptyBodyError(errEmptyBody))
			return
		}
		if !utf8.Valid(body) || !json.Valid(body) {
			writeError(c, newMalformedJSONError(errors.New("could not decode the request body: the JSON was incorrect or not encoded as UTF-8")))
			return
		}
		c.Set(docKey, json.RawMessage(body))
		c.Next()
	}
}

// bindDoc decodes the JSON document stored by jsonTranslator into v.  It
// reports whether a document was present.
func bindDoc(c *gin.Context, v interface{}) (bool, error) {
	doc, ok := c.Get(docKey)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(doc.(json.RawMessage), v); err != nil {
		return true, err
	}
	return true, nil
}

// requirePlotUpload accepts only hdf5 and csv request bodies.
func requirePlotUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		ext, ok := uploadTypes[c.ContentType()]
		if !ok {
			writeError(c, newUnsupportedFileTypeError(fmt.Errorf("unsupported file type %q", c.ContentType())))
			return
		}
		c.Set(uploadExtKey, ext)
		c.Next()
	}
}
