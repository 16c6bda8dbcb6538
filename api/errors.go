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
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/googleapi"

	"github.com/timeu/gwaportal-gwas-server/internal/storage"
)

var (
	errInvalidID       = errors.New("invalid or unspecified ID")
	errEmptyBody       = errors.New("a valid JSON document is required")
	errNoPhenotypeData = errors.New("no phenotype values")
)

// apiError is used to capture errors that map onto a client-visible status.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func newAPIError(name string, code int, context string, err error) error {
	return &apiError{name, code, fmt.Errorf("%s: %v", context, err)}
}

func newInvalidAuthenticationError(context string, err error) error {
	return newAPIError("InvalidAuthentication", http.StatusUnauthorized, context, err)
}

func newInvalidInputError(context string, err error) error {
	return newAPIError("InvalidInput", http.StatusBadRequest, context, err)
}

func newInvalidRangeError(err error) error {
	return &apiError{"InvalidRange", http.StatusBadRequest, err}
}

func newEmptyBodyError(err error) error {
	return &apiError{"EmptyBody", http.StatusBadRequest, err}
}

func newMalformedJSONError(err error) error {
	return &apiError{"MalformedJSON", http.StatusBadRequest, err}
}

func newPermissionDeniedError(context string, err error) error {
	return newAPIError("PermissionDenied", http.StatusForbidden, context, err)
}

func newNotFoundError(context string, err error) error {
	return newAPIError("NotFound", http.StatusNotFound, context, err)
}

func newNotAcceptableError(err error) error {
	return &apiError{"NotAcceptable", http.StatusNotAcceptable, err}
}

func newUnsupportedMediaTypeError(err error) error {
	return &apiError{"UnsupportedMediaType", http.StatusUnsupportedMediaType, err}
}

func newUnsupportedFileTypeError(err error) error {
	return &apiError{"UnsupportedFileType", http.StatusUnsupportedMediaType, err}
}

func newUnsupportedFormatError(err error) error {
	return &apiError{"UnsupportedFormat", http.StatusBadRequest, err}
}

// newStorageError maps authorization failures reported by the storage layer
// onto API errors.  Anything else, including a missing data file, is left as
// an internal error.
func newStorageError(context string, err error) error {
	if err == storage.ErrMissingOrInvalidToken {
		return newPermissionDeniedError(context, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return newInvalidAuthenticationError(context, err)
		case http.StatusForbidden:
			return newPermissionDeniedError(context, err)
		}
	}
	return fmt.Errorf("%s: %v", context, err)
}

// writeError aborts the request with either a JSON object or a bare HTTP
// error describing err.  A JSON object is written only for apiErrors.
func writeError(c *gin.Context, err error) {
	c.Error(err)
	if err, ok := err.(*apiError); ok {
		c.AbortWithStatusJSON(err.code, gin.H{
			"error":   err.name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(err.code), err.cause),
		})
		return
	}

	code := http.StatusInternalServerError
	c.Abort()
	c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%s: %v\n", http.StatusText(code), err)))
}
