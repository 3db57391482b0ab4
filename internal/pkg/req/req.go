/*
Package req provides request body binding with size limits and strict JSON decoding.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"hallchat/internal/pkg/errs"
)

// MaxJSONBodySize caps every JSON request body (64 KB).
const MaxJSONBodySize int64 = 64 << 10

// BindJSON decodes the request body into dst.
// Unknown fields, trailing documents, non-JSON content types and oversized bodies are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
