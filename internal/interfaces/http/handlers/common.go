// Package handlers implements the HTTP handlers of the molfp API.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

// DefaultMaxBodySize bounds request bodies when the handler is built with 0.
const DefaultMaxBodySize int64 = 4 << 20

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its status. Server-side failures are logged and
// masked.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.ErrCodeTimeout
	}
	status := errors.HTTPStatusForCode(code)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}

	resp := ErrorResponse{Code: code.String(), Message: errors.DefaultMessageForCode(code)}
	var appErr *errors.AppError
	if status < 500 && stderrors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	}
	if status >= 500 {
		logging.FromContext(r.Context()).Error("request error",
			logging.String("code", code.String()), logging.Err(err))
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.Newf(errors.ErrCodeBadRequest, "request body exceeds %d bytes", maxErr.Limit)
		case stderrors.Is(err, io.EOF):
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		default:
			return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed JSON body")
		}
	}
	if dec.More() {
		return errors.New(errors.ErrCodeBadRequest, "request body must hold a single JSON object")
	}
	return nil
}

//Personal.AI order the ending
